package registry

import (
	"strings"

	"github.com/Ramsey-B/trellis/pkg/models"
)

// CreateMapping links sourceFields to target.
//
// An array source dropped on an array target creates (or returns) an
// ArrayMapping; dropped on an object target it creates an
// ArrayToObjectMapping. Otherwise the sources are merged into the mapping
// already targeting target, or a new mapping is created. The optional steps
// replace the default pipeline.
//
// The boolean is false when the edit was rejected.
func (r *Registry) CreateMapping(sourceFields []models.FieldNode, target models.FieldNode, steps ...models.TransformationStep) (models.FieldMapping, bool) {
	var (
		result models.FieldMapping
		ok     bool
	)

	r.mutate(func() Change {
		var change Change
		result, change, ok = r.createMapping(sourceFields, target, steps)
		return change
	})

	return result, ok
}

func (r *Registry) createMapping(sourceFields []models.FieldNode, target models.FieldNode, steps []models.TransformationStep) (models.FieldMapping, Change, bool) {
	if len(sourceFields) == 0 || target.ID == "" {
		return models.FieldMapping{}, 0, false
	}
	for _, sf := range sourceFields {
		if sf.ID == target.ID {
			return models.FieldMapping{}, 0, false
		}
	}

	first := sourceFields[0]
	if first.Type == models.FieldTypeArray {
		switch target.Type {
		case models.FieldTypeArray:
			return r.createArrayMapping(first, target)
		case models.FieldTypeObject:
			return r.createArrayToObjectMapping(first, target)
		}
	}

	if existing := r.findSlotForTarget(target.ID, ""); existing != nil {
		return r.mergeSources(existing, sourceFields, steps)
	}

	mapping := models.FieldMapping{
		ID:                     r.newID(mappingPrefix),
		SourceFields:           dedupeFields(nil, sourceFields),
		TargetField:            target,
		ArrayMappingID:         r.arrayContext(first, target),
		ArrayToObjectMappingID: r.arrayToObjectContext(first, target),
	}
	mapping.Transformations = pipelineFor(len(mapping.SourceFields), steps)

	r.mappings = append(r.mappings, r.newSlot(mapping))

	return cloneMapping(mapping), ChangeMappings, true
}

// mergeSources unions new sources into an existing mapping. Adding nothing
// without explicit steps leaves the mapping untouched.
func (r *Registry) mergeSources(slot *mappingSlot, sourceFields []models.FieldNode, steps []models.TransformationStep) (models.FieldMapping, Change, bool) {
	merged := dedupeFields(slot.mapping.SourceFields, sourceFields)
	if len(merged) == len(slot.mapping.SourceFields) && len(steps) == 0 {
		return cloneMapping(slot.mapping), 0, true
	}

	slot.mapping.SourceFields = merged
	slot.mapping.Transformations = pipelineFor(len(merged), steps)

	return cloneMapping(slot.mapping), ChangeMappings, true
}

func (r *Registry) createArrayMapping(sourceArray, targetArray models.FieldNode) (models.FieldMapping, Change, bool) {
	for _, am := range r.arrayMappings {
		if am.SourceArray.ID == sourceArray.ID && am.TargetArray.ID == targetArray.ID {
			return r.ensureRepresentative(am.ID, sourceArray, targetArray, func(m *models.FieldMapping) {
				m.IsArrayMapping = true
			})
		}
	}
	if r.findSlotForTarget(targetArray.ID, "") != nil {
		return models.FieldMapping{}, 0, false
	}

	id := r.newID(arrayMappingPrefix)
	r.arrayMappings = append(r.arrayMappings, models.ArrayMapping{
		ID:          id,
		SourceArray: sourceArray,
		TargetArray: targetArray,
	})

	mapping := models.FieldMapping{
		ID:              id,
		SourceFields:    []models.FieldNode{sourceArray},
		TargetField:     targetArray,
		Transformations: []models.TransformationStep{models.DirectStep()},
		IsArrayMapping:  true,
	}
	r.mappings = append(r.mappings, r.newSlot(mapping))

	return cloneMapping(mapping), ChangeMappings | ChangeArrayMappings, true
}

func (r *Registry) createArrayToObjectMapping(sourceArray, targetObject models.FieldNode) (models.FieldMapping, Change, bool) {
	for _, am := range r.arrayToObjectMappings {
		if am.SourceArray.ID == sourceArray.ID && am.TargetObject.ID == targetObject.ID {
			return r.ensureRepresentative(am.ID, sourceArray, targetObject, func(m *models.FieldMapping) {
				m.IsArrayToObjectMapping = true
			})
		}
	}
	if r.findSlotForTarget(targetObject.ID, "") != nil {
		return models.FieldMapping{}, 0, false
	}

	id := r.newID(arrayToObjectMappingPrefix)
	r.arrayToObjectMappings = append(r.arrayToObjectMappings, models.ArrayToObjectMapping{
		ID:           id,
		SourceArray:  sourceArray,
		TargetObject: targetObject,
		Selector:     models.ArraySelector{Mode: models.SelectFirst},
	})

	mapping := models.FieldMapping{
		ID:                     id,
		SourceFields:           []models.FieldNode{sourceArray},
		TargetField:            targetObject,
		Transformations:        []models.TransformationStep{models.DirectStep()},
		IsArrayToObjectMapping: true,
	}
	r.mappings = append(r.mappings, r.newSlot(mapping))

	return cloneMapping(mapping), ChangeMappings | ChangeArrayToObjectMappings, true
}

// ensureRepresentative returns the field mapping sharing a container's id,
// recreating it when it was removed on its own.
func (r *Registry) ensureRepresentative(id string, source, target models.FieldNode, mark func(*models.FieldMapping)) (models.FieldMapping, Change, bool) {
	if slot := r.findSlot(id); slot != nil {
		return cloneMapping(slot.mapping), 0, true
	}
	if r.findSlotForTarget(target.ID, "") != nil {
		return models.FieldMapping{}, 0, false
	}

	mapping := models.FieldMapping{
		ID:              id,
		SourceFields:    []models.FieldNode{source},
		TargetField:     target,
		Transformations: []models.TransformationStep{models.DirectStep()},
	}
	mark(&mapping)
	r.mappings = append(r.mappings, r.newSlot(mapping))

	return cloneMapping(mapping), ChangeMappings, true
}

// arrayContext returns the ArrayMapping enclosing both an array item source
// and an array item target.
func (r *Registry) arrayContext(source, target models.FieldNode) string {
	if !source.IsArrayItem || !target.IsArrayItem {
		return ""
	}
	for _, am := range r.arrayMappings {
		if am.SourceArray.Path == source.ParentArrayPath && am.TargetArray.Path == target.ParentArrayPath {
			return am.ID
		}
	}
	return ""
}

// arrayToObjectContext returns the ArrayToObjectMapping whose source array
// encloses source and whose target object is target's parent.
func (r *Registry) arrayToObjectContext(source, target models.FieldNode) string {
	if !source.IsArrayItem || target.IsArrayItem {
		return ""
	}
	i := strings.LastIndex(target.Path, ".")
	if i < 0 {
		return ""
	}
	parent := target.Path[:i]

	for _, am := range r.arrayToObjectMappings {
		if am.SourceArray.Path == source.ParentArrayPath && am.TargetObject.Path == parent {
			return am.ID
		}
	}
	return ""
}

// pipelineFor is the pipeline for a mapping with sourceCount sources: a
// space separated concat for several sources, otherwise direct. Explicit
// steps win, with the first step's separator defaulting to a space when
// several sources are joined.
func pipelineFor(sourceCount int, steps []models.TransformationStep) []models.TransformationStep {
	if len(steps) > 0 {
		pipeline := append([]models.TransformationStep{}, steps...)
		if sourceCount > 1 && pipeline[0].Separator == nil {
			sep := models.DefaultConcatSeparator
			pipeline[0].Separator = &sep
		}
		return canonical(pipeline)
	}
	if sourceCount > 1 {
		return []models.TransformationStep{models.ConcatStep(models.DefaultConcatSeparator)}
	}
	return []models.TransformationStep{models.DirectStep()}
}

// dedupeFields appends the fields of add that are not yet in base, by id.
func dedupeFields(base, add []models.FieldNode) []models.FieldNode {
	result := append([]models.FieldNode{}, base...)
	for _, f := range add {
		found := false
		for _, existing := range result {
			if existing.ID == f.ID {
				found = true
				break
			}
		}
		if !found {
			result = append(result, f)
		}
	}
	return result
}
