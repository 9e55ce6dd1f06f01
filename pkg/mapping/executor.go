package mapping

import (
	"context"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/filter"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/transform"
	"github.com/Ramsey-B/trellis/pkg/utils"
)

// Executor runs compiled plans. It is safe for concurrent use.
type Executor struct {
	logger    ectologger.Logger
	evaluator *transform.Evaluator
}

func NewExecutor(logger ectologger.Logger, evaluator *transform.Evaluator) *Executor {
	if evaluator == nil {
		evaluator = transform.NewEvaluator(logger)
	}
	return &Executor{
		logger:    logger,
		evaluator: evaluator,
	}
}

func (e *Executor) Evaluator() *transform.Evaluator {
	return e.evaluator
}

// ExecuteDocument compiles doc and executes it once.
func (e *Executor) ExecuteDocument(ctx context.Context, doc models.Document, source any) (map[string]any, error) {
	plan, err := Compile(doc)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, source)
}

// Execute builds a new target instance from source.
func (e *Executor) Execute(ctx context.Context, plan *Plan, source any) (map[string]any, error) {
	if plan == nil {
		return nil, errors.NewMappingError("mapping plan is required")
	}

	x := acquireExecution(ctx, e)
	defer releaseExecution(x)

	target := make(map[string]any)
	x.runScope(&plan.root, []frame{{item: source}}, target)

	return target, nil
}

// frame is one level of source scope: the item being iterated and the
// array path its fields are relative to. The root frame has no path.
type frame struct {
	sourcePath string
	item       any
}

func (x *execution) runScope(s *scope, frames []frame, target map[string]any) {
	for _, m := range s.mappings {
		x.runMapping(s, m, frames, target)
	}
	for _, ap := range s.arrays {
		x.runArray(s, ap, frames, target)
	}
	for _, op := range s.objects {
		x.runObject(s, op, frames, target)
	}
	for _, dv := range s.defaults {
		path := targetPath(dv.TargetField.Path, s.targetPath)
		if !utils.HasMapValue(target, path) {
			utils.AssignMapValue(target, path, dv.Value)
		}
	}
}

func (x *execution) runMapping(s *scope, m models.FieldMapping, frames []frame, target map[string]any) {
	x.values = x.values[:0]
	found := false
	for _, f := range m.SourceFields {
		v := resolve(f, frames)
		if v != nil {
			found = true
		}
		x.values = append(x.values, v)
	}
	if !found {
		return
	}

	result := x.executor.evaluator.ApplyTransformationsToValues(x.values, m.SourceFields, m.Transformations)
	utils.AssignMapValue(target, targetPath(m.TargetField.Path, s.targetPath), coerce(result, m.TargetField.Type))
}

func (x *execution) runArray(s *scope, ap *arrayPlan, frames []frame, target map[string]any) {
	items, ok := x.sourceItems(ap.mapping.ID, ap.mapping.SourceArray, frames)
	if !ok {
		return
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		if ap.mapping.Filter.IsActive() && !filter.MatchItem(item, ap.mapping.Filter.Root) {
			continue
		}
		if ap.passthrough() {
			out = append(out, item)
			continue
		}

		itemTarget := make(map[string]any)
		x.runScope(&ap.scope, withFrame(frames, ap.sourcePath, item), itemTarget)
		out = append(out, itemTarget)
	}

	utils.AssignMapValue(target, targetPath(ap.mapping.TargetArray.Path, s.targetPath), out)
}

func (x *execution) runObject(s *scope, op *objectPlan, frames []frame, target map[string]any) {
	items, ok := x.sourceItems(op.mapping.ID, op.mapping.SourceArray, frames)
	if !ok {
		return
	}

	selected, ok := selectItem(items, op.mapping.Selector)
	if !ok {
		return
	}

	if op.passthrough() {
		utils.AssignMapValue(target, targetPath(op.mapping.TargetObject.Path, s.targetPath), selected)
		return
	}

	x.runScope(&op.scope, withFrame(frames, op.sourcePath, selected), target)
}

// sourceItems resolves a source array. Anything that is not a list is
// skipped.
func (x *execution) sourceItems(mappingID string, sourceArray models.FieldNode, frames []frame) ([]any, bool) {
	raw := resolve(sourceArray, frames)
	switch items := raw.(type) {
	case []any:
		return items, true
	case []map[string]any:
		result := make([]any, len(items))
		for i, item := range items {
			result[i] = item
		}
		return result, true
	case nil:
		return nil, false
	}

	x.logger().WithError(errors.NewMappingError("source array is not a list").AddMapping(mappingID).AddField(sourceArray.Path)).Debug("skipping array mapping")
	return nil, false
}

// selectItem picks the item an ArrayToObjectMapping collapses to.
func selectItem(items []any, selector models.ArraySelector) (any, bool) {
	if len(items) == 0 {
		return nil, false
	}

	switch selector.Mode {
	case models.SelectLast:
		return items[len(items)-1], true
	case models.SelectCondition:
		for _, item := range items {
			if filter.MatchItem(item, selector.Condition) {
				return item, true
			}
		}
		return nil, false
	}

	return items[0], true
}

// resolve reads a source field from the innermost frame that scopes it.
func resolve(field models.FieldNode, frames []frame) any {
	for i := len(frames) - 1; i > 0; i-- {
		f := frames[i]
		prefix := f.sourcePath + utils.ItemMarker
		if strings.HasPrefix(field.Path, prefix) {
			rel := strings.TrimPrefix(strings.TrimPrefix(field.Path, prefix), utils.SplitToken)
			if rel == "" {
				return f.item
			}
			return utils.GetValueByPath(f.item, utils.StripItemMarkers(rel))
		}
	}
	return utils.GetValueByPath(frames[0].item, utils.StripItemMarkers(field.Path))
}

func withFrame(frames []frame, sourcePath string, item any) []frame {
	next := make([]frame, len(frames), len(frames)+1)
	copy(next, frames)
	return append(next, frame{sourcePath: sourcePath, item: item})
}

func targetPath(path, scopePath string) string {
	return utils.StripItemMarkers(utils.RelativePath(path, scopePath))
}

// coerce turns a pipeline result back into the target field's type where
// the text allows it.
func coerce(value string, fieldType models.FieldType) any {
	switch fieldType {
	case models.FieldTypeNumber:
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return n
			}
		}
	case models.FieldTypeBoolean:
		switch value {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return value
}
