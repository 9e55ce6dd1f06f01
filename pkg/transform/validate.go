package transform

import (
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/filter"
	"github.com/Ramsey-B/trellis/pkg/models"
)

// ValidateSteps rejects pipelines the evaluator would silently degrade on:
// an empty pipeline, unknown step types, regexes or expressions that do not
// compile and malformed conditions. Evaluation itself stays permissive.
func (e *Evaluator) ValidateSteps(steps []models.TransformationStep) error {
	if len(steps) == 0 {
		return errors.NewMappingError("pipeline requires at least one step")
	}

	for i, step := range steps {
		if !IsKnownType(step.Type) {
			return errors.NewMappingErrorf("unknown transformation type '%s'", step.Type).AddItemIndex(i)
		}

		switch step.Type {
		case models.TransformationReplace:
			if _, err := e.regexes.get(step.SearchValue); err != nil {
				return errors.NewMappingErrorf("invalid search pattern: %w", err).AddStep(string(step.Type)).AddItemIndex(i)
			}
		case models.TransformationExpression:
			if err := e.ValidateExpression(step.Expression); err != nil {
				return errors.NewMappingErrorf("invalid expression: %w", err).AddStep(string(step.Type)).AddItemIndex(i)
			}
		}

		if step.Condition != nil {
			if err := filter.Validate(step.Condition.Root); err != nil {
				return errors.NewMappingErrorf("invalid condition: %w", err).AddStep(string(step.Type)).AddItemIndex(i)
			}
		}
	}

	return nil
}
