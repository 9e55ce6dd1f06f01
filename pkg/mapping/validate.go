package mapping

import (
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/filter"
	"github.com/Ramsey-B/trellis/pkg/models"
)

// Validate checks a document strictly before it is stored: every pipeline
// must be well formed, every filter and selector condition must use known
// operators, and every item mapping must point at an existing container.
// Execution itself stays permissive.
func (e *Executor) Validate(doc models.Document) error {
	if _, err := Compile(doc); err != nil {
		return err
	}

	for _, m := range doc.Mappings {
		if err := e.evaluator.ValidateSteps(m.Transformations); err != nil {
			return errors.WrapMappingError(err).AddMapping(m.ID).AddField(m.TargetField.Path)
		}
	}

	for _, am := range doc.ArrayMappings {
		if !am.Filter.IsActive() {
			continue
		}
		if err := filter.Validate(am.Filter.Root); err != nil {
			return errors.WrapMappingError(err).AddMapping(am.ID).AddField(am.SourceArray.Path)
		}
	}

	for _, am := range doc.ArrayToObjectMappings {
		switch am.Selector.Mode {
		case models.SelectFirst, models.SelectLast:
		case models.SelectCondition:
			if err := filter.Validate(am.Selector.Condition); err != nil {
				return errors.WrapMappingError(err).AddMapping(am.ID).AddField(am.SourceArray.Path)
			}
		default:
			return errors.NewMappingErrorf("unknown selector mode '%s'", am.Selector.Mode).AddMapping(am.ID)
		}
	}

	return nil
}
