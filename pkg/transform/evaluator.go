// Package transform evaluates transformation pipelines.
//
// A pipeline is an ordered list of models.TransformationStep. The first step
// sees the raw source field values, every later step sees the string produced
// by the step before it. A step whose condition is not met passes its input
// through unchanged. Runtime problems (bad regex, unparseable date, bad
// expression) never fail the pipeline: they are logged and the step returns
// its input.
package transform

import (
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/filter"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/utils"
)

// compiledCacheSize bounds the regex and JMESPath caches.
const compiledCacheSize = 512

// Evaluator applies transformation steps. It caches compiled regular
// expressions and JMESPath queries and is safe for concurrent use.
type Evaluator struct {
	logger      ectologger.Logger
	regexes     *regexCache
	expressions *expressionCache
}

func NewEvaluator(logger ectologger.Logger) *Evaluator {
	return &Evaluator{
		logger:      logger,
		regexes:     newRegexCache(compiledCacheSize),
		expressions: newExpressionCache(compiledCacheSize),
	}
}

// ResolveValues looks up every source field in sourceValues. Missing paths
// resolve to nil.
func ResolveValues(sourceValues any, sourceFields []models.FieldNode) []any {
	values := make([]any, len(sourceFields))
	for i, f := range sourceFields {
		values[i] = utils.GetValueByPath(sourceValues, utils.StripItemMarkers(f.Path))
	}
	return values
}

// InitialValue is the pipeline input before any step runs: the single value
// for one source field, otherwise every value joined by a space.
func InitialValue(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	return joinValues(values, models.DefaultConcatSeparator)
}

// ApplyTransformations runs steps strictly in order and returns the final
// string. An empty pipeline yields "".
func (e *Evaluator) ApplyTransformations(sourceValues any, sourceFields []models.FieldNode, steps []models.TransformationStep) string {
	if len(steps) == 0 {
		return ""
	}
	return e.ApplyTransformationsToValues(ResolveValues(sourceValues, sourceFields), sourceFields, steps)
}

// ApplyTransformationsToValues runs steps against already resolved values,
// one per source field.
func (e *Evaluator) ApplyTransformationsToValues(values []any, sourceFields []models.FieldNode, steps []models.TransformationStep) string {
	if len(steps) == 0 {
		return ""
	}

	initial := InitialValue(values)

	var result string
	if filter.IsConditionMet(initial, steps[0]) {
		result = e.apply(values, sourceFields, steps[0])
	} else {
		result = utils.ToString(initial)
	}

	for _, step := range steps[1:] {
		if filter.IsConditionMet(result, step) {
			result = e.ApplyTransformationToValue(result, step)
		}
	}

	return result
}

// ApplyTransformation applies one step to the raw values of sourceFields.
func (e *Evaluator) ApplyTransformation(sourceValues any, sourceFields []models.FieldNode, step models.TransformationStep) string {
	return e.apply(ResolveValues(sourceValues, sourceFields), sourceFields, step)
}

func (e *Evaluator) apply(values []any, sourceFields []models.FieldNode, step models.TransformationStep) string {
	var first any
	if len(values) > 0 {
		first = values[0]
	}

	switch step.Type {
	case models.TransformationConcat:
		if step.Template != "" {
			return applyTemplate(step.Template, values)
		}
		return joinValues(values, step.GetSeparator())
	case models.TransformationTemplate:
		return applyTemplate(step.Template, values)
	case models.TransformationExpression:
		return e.evaluateExpression(step, fieldContext(values, sourceFields), utils.ToString(first))
	}

	return e.applyToValue(first, step)
}

// ApplyTransformationToValue applies one step to an already computed value.
// concat has nothing to join in this mode and returns the value as is.
func (e *Evaluator) ApplyTransformationToValue(value any, step models.TransformationStep) string {
	switch step.Type {
	case models.TransformationConcat:
		return utils.ToString(value)
	case models.TransformationTemplate:
		return strings.ReplaceAll(step.Template, "{0}", utils.ToString(value))
	case models.TransformationExpression:
		return e.evaluateExpression(step, map[string]any{"value": value}, utils.ToString(value))
	}

	return e.applyToValue(value, step)
}

// applyToValue covers the steps that behave the same whether they see the
// first source value or a prior step's output.
func (e *Evaluator) applyToValue(value any, step models.TransformationStep) string {
	str := utils.ToString(value)

	switch step.Type {
	case models.TransformationDirect:
		return str
	case models.TransformationSubstring:
		return substring(str, step.StartIndex, step.EndIndex)
	case models.TransformationReplace:
		result, err := e.regexes.replaceAll(str, step.SearchValue, step.ReplaceValue)
		if err != nil {
			e.logFailure(step, err)
			return str
		}
		return result
	case models.TransformationUppercase:
		return strings.ToUpper(str)
	case models.TransformationLowercase:
		return strings.ToLower(str)
	case models.TransformationTrim:
		return strings.TrimSpace(str)
	case models.TransformationMask:
		return applyMask(str, step.Pattern)
	case models.TransformationDateFormat:
		return e.formatDate(value, step)
	case models.TransformationExtractYear,
		models.TransformationExtractMonth,
		models.TransformationExtractDay,
		models.TransformationExtractHour,
		models.TransformationExtractMinute,
		models.TransformationExtractSecond:
		return e.extractDatePart(value, step)
	case models.TransformationNumberFormat:
		return formatNumber(value, step.DecimalPlaces, step.Prefix, step.Suffix)
	}

	// unknown types pass the value through
	return str
}

func (e *Evaluator) logFailure(step models.TransformationStep, err error) {
	if e.logger == nil {
		return
	}
	e.logger.WithFields(map[string]any{
		"step": step.Type,
	}).WithError(errors.WrapMappingError(err).AddStep(string(step.Type))).Debug("transformation step fell back to its input")
}

func joinValues(values []any, separator string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = utils.ToString(v)
	}
	return strings.Join(parts, separator)
}

func fieldContext(values []any, sourceFields []models.FieldNode) map[string]any {
	ctx := make(map[string]any, len(sourceFields)+1)
	for i, f := range sourceFields {
		if i < len(values) && f.Name != "" {
			ctx[f.Name] = values[i]
		}
	}
	ctx["values"] = values
	return ctx
}
