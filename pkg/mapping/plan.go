// Package mapping materializes target instances from source instances.
//
// # Overview
//
// A mapping document (models.Document) is compiled once into a Plan and then
// executed against any number of source instances. Execution never fails on
// data: missing paths resolve to nil, steps that cannot run fall back to
// their input, and a source array that is not a list is skipped.
//
// # Key Concepts
//
// ## Scopes
//
// A Plan is a tree of scopes. The root scope reads from the whole source and
// writes into the whole target. Every ArrayMapping opens a scope per kept
// source item that writes one target item, and every ArrayToObjectMapping
// opens a scope over the single selected item that writes into its target
// object. Nested array mappings nest their scopes.
//
// Inside a scope, item-scoped source paths (`orders[].total`) are read
// relative to the current item and target paths are written relative to the
// current target item. Fields outside the scope are read from the enclosing
// scope.
//
// ## Execution Flow
//
//  1. Field mappings of the scope, each through its transformation pipeline
//  2. Array mappings: filter items, then run the item scope per kept item
//  3. Array-to-object mappings: select an item, then run its scope
//  4. Default values for targets that received no value
//
// A mapping takes precedence over a default value for the same target. A
// mapping whose source values are all missing produces nothing, so the
// default applies.
package mapping

import (
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/models"
)

type scope struct {
	sourcePath string
	targetPath string
	mappings   []models.FieldMapping
	arrays     []*arrayPlan
	objects    []*objectPlan
	defaults   []models.DefaultValue
}

type arrayPlan struct {
	scope
	mapping models.ArrayMapping
}

// passthrough arrays copy the kept source items as they are.
func (p *arrayPlan) passthrough() bool {
	return len(p.mappings) == 0 && len(p.arrays) == 0 && len(p.objects) == 0 && len(p.defaults) == 0
}

type objectPlan struct {
	scope
	mapping models.ArrayToObjectMapping
}

func (p *objectPlan) passthrough() bool {
	return len(p.mappings) == 0 && len(p.arrays) == 0 && len(p.objects) == 0
}

// Plan is a compiled mapping document. It is immutable and safe for
// concurrent use.
type Plan struct {
	Document models.Document
	root     scope
}

// Compile groups the document's mappings into execution scopes. Item
// mappings that point at a container missing from the document are an
// error.
func Compile(doc models.Document) (*Plan, error) {
	plan := &Plan{Document: doc}

	arrays := make(map[string]*arrayPlan, len(doc.ArrayMappings))
	arrayOrder := make([]*arrayPlan, 0, len(doc.ArrayMappings))
	for _, am := range doc.ArrayMappings {
		ap := &arrayPlan{
			mapping: am,
			scope:   scope{sourcePath: am.SourceArray.Path, targetPath: am.TargetArray.Path},
		}
		arrays[am.ID] = ap
		arrayOrder = append(arrayOrder, ap)
	}

	objects := make(map[string]*objectPlan, len(doc.ArrayToObjectMappings))
	objectOrder := make([]*objectPlan, 0, len(doc.ArrayToObjectMappings))
	for _, am := range doc.ArrayToObjectMappings {
		op := &objectPlan{mapping: am}
		objects[am.ID] = op
		objectOrder = append(objectOrder, op)
	}

	for _, m := range doc.Mappings {
		if m.IsContainer() {
			continue
		}

		switch {
		case m.ArrayMappingID != "":
			ap, ok := arrays[m.ArrayMappingID]
			if !ok {
				return nil, errors.NewMappingErrorf("array mapping '%s' not found", m.ArrayMappingID).AddMapping(m.ID)
			}
			ap.mappings = append(ap.mappings, m)
		case m.ArrayToObjectMappingID != "":
			op, ok := objects[m.ArrayToObjectMappingID]
			if !ok {
				return nil, errors.NewMappingErrorf("array to object mapping '%s' not found", m.ArrayToObjectMappingID).AddMapping(m.ID)
			}
			op.mappings = append(op.mappings, m)
		case m.TargetField.IsArrayItem:
			// outer sources broadcast into every item of the enclosing target
			// array; without one there is no item to land in
			for _, ap := range arrayOrder {
				if ap.mapping.TargetArray.Path == m.TargetField.ParentArrayPath {
					ap.mappings = append(ap.mappings, m)
					break
				}
			}
		default:
			plan.root.mappings = append(plan.root.mappings, m)
		}
	}

	for _, ap := range arrayOrder {
		parent := enclosingArray(arrayOrder, ap.mapping.SourceArray, ap.mapping.TargetArray, ap)
		if parent == nil {
			plan.root.arrays = append(plan.root.arrays, ap)
			continue
		}
		parent.arrays = append(parent.arrays, ap)
	}

	for _, op := range objectOrder {
		parent := enclosingArray(arrayOrder, op.mapping.SourceArray, op.mapping.TargetObject, nil)
		op.sourcePath = op.mapping.SourceArray.Path
		if parent == nil {
			plan.root.objects = append(plan.root.objects, op)
			continue
		}
		op.targetPath = parent.targetPath
		parent.objects = append(parent.objects, op)
	}

	for _, dv := range doc.DefaultValues {
		if !dv.TargetField.IsArrayItem {
			plan.root.defaults = append(plan.root.defaults, dv)
			continue
		}
		for _, ap := range arrayOrder {
			if ap.mapping.TargetArray.Path == dv.TargetField.ParentArrayPath {
				ap.defaults = append(ap.defaults, dv)
				break
			}
		}
	}

	return plan, nil
}

// enclosingArray finds the array mapping whose item scope contains both an
// item-scoped source and an item-scoped target.
func enclosingArray(arrays []*arrayPlan, source, target models.FieldNode, self *arrayPlan) *arrayPlan {
	if !source.IsArrayItem || !target.IsArrayItem {
		return nil
	}
	for _, ap := range arrays {
		if ap == self {
			continue
		}
		if ap.mapping.SourceArray.Path == source.ParentArrayPath && ap.mapping.TargetArray.Path == target.ParentArrayPath {
			return ap
		}
	}
	return nil
}
