package registry

import "github.com/Ramsey-B/trellis/pkg/models"

// ChangeSourceField swaps a source of a mapping. With an index into a
// multi-source mapping only that source is replaced; otherwise the mapping
// gets newSource as its only source. Self loops and duplicates are rejected.
func (r *Registry) ChangeSourceField(mappingID string, newSource models.FieldNode, index *int) bool {
	applied := false

	r.mutate(func() Change {
		slot := r.findSlot(mappingID)
		if slot == nil {
			return 0
		}
		m := &slot.mapping
		if newSource.ID == m.TargetField.ID || m.HasSource(newSource.ID) {
			return 0
		}

		if index != nil && len(m.SourceFields) > 1 {
			if *index < 0 || *index >= len(m.SourceFields) {
				return 0
			}
			sources := append([]models.FieldNode{}, m.SourceFields...)
			sources[*index] = newSource
			m.SourceFields = sources
		} else {
			m.SourceFields = []models.FieldNode{newSource}
		}

		applied = true
		return ChangeMappings
	})

	return applied
}

// ChangeTargetField retargets a mapping. When another mapping already
// targets newTarget the two merge: the moved mapping's new sources join the
// existing mapping and the moved mapping is removed.
func (r *Registry) ChangeTargetField(mappingID string, newTarget models.FieldNode) bool {
	applied := false

	r.mutate(func() Change {
		slot := r.findSlot(mappingID)
		if slot == nil || slot.mapping.HasSource(newTarget.ID) {
			return 0
		}
		applied = true

		existing := r.findSlotForTarget(newTarget.ID, mappingID)
		if existing == nil {
			slot.mapping.TargetField = newTarget
			return ChangeMappings
		}

		merged := dedupeFields(existing.mapping.SourceFields, slot.mapping.SourceFields)
		existing.mapping.SourceFields = merged
		if len(merged) > 1 {
			existing.mapping.Transformations = []models.TransformationStep{models.ConcatStep(models.DefaultConcatSeparator)}
		}

		r.removeSlots(func(m models.FieldMapping) bool {
			return m.ID != mappingID
		})

		return ChangeMappings | r.clearDeadSelection()
	})

	return applied
}

// UpdateTransformations replaces a mapping's pipeline. An empty pipeline is
// rejected.
func (r *Registry) UpdateTransformations(mappingID string, steps []models.TransformationStep) bool {
	applied := false

	r.mutate(func() Change {
		slot := r.findSlot(mappingID)
		if slot == nil || len(steps) == 0 {
			return 0
		}
		slot.mapping.Transformations = canonical(append([]models.TransformationStep{}, steps...))
		applied = true
		return ChangeMappings
	})

	return applied
}

// RemoveMapping removes one field mapping. Containers it represents are
// left in place.
func (r *Registry) RemoveMapping(mappingID string) bool {
	applied := false

	r.mutate(func() Change {
		applied = r.removeSlots(func(m models.FieldMapping) bool {
			return m.ID != mappingID
		})
		if !applied {
			return 0
		}
		return ChangeMappings | r.clearDeadSelection()
	})

	return applied
}

// RemoveSourceFromMapping drops one source. Removing the last source removes
// the mapping; dropping to a single source resets the pipeline to direct.
func (r *Registry) RemoveSourceFromMapping(mappingID, sourceFieldID string) bool {
	applied := false

	r.mutate(func() Change {
		slot := r.findSlot(mappingID)
		if slot == nil || !slot.mapping.HasSource(sourceFieldID) {
			return 0
		}
		applied = true

		if len(slot.mapping.SourceFields) <= 1 {
			r.removeSlots(func(m models.FieldMapping) bool {
				return m.ID != mappingID
			})
			return ChangeMappings | r.clearDeadSelection()
		}

		sources := make([]models.FieldNode, 0, len(slot.mapping.SourceFields)-1)
		for _, sf := range slot.mapping.SourceFields {
			if sf.ID != sourceFieldID {
				sources = append(sources, sf)
			}
		}
		slot.mapping.SourceFields = sources
		if len(sources) == 1 {
			slot.mapping.Transformations = []models.TransformationStep{models.DirectStep()}
		}

		return ChangeMappings
	})

	return applied
}

// RemoveArrayMapping removes an ArrayMapping together with its
// representative and every item mapping that refers to it.
func (r *Registry) RemoveArrayMapping(id string) bool {
	applied := false

	r.mutate(func() Change {
		i := r.arrayMappingIndex(id)
		if i < 0 {
			return 0
		}
		applied = true

		r.arrayMappings = append(append([]models.ArrayMapping{}, r.arrayMappings[:i]...), r.arrayMappings[i+1:]...)
		r.removeSlots(func(m models.FieldMapping) bool {
			return m.ID != id && m.ArrayMappingID != id
		})

		return ChangeMappings | ChangeArrayMappings | r.clearDeadSelection()
	})

	return applied
}

// RemoveArrayToObjectMapping removes an ArrayToObjectMapping together with
// its representative and every item mapping that refers to it.
func (r *Registry) RemoveArrayToObjectMapping(id string) bool {
	applied := false

	r.mutate(func() Change {
		i := r.arrayToObjectMappingIndex(id)
		if i < 0 {
			return 0
		}
		applied = true

		r.arrayToObjectMappings = append(append([]models.ArrayToObjectMapping{}, r.arrayToObjectMappings[:i]...), r.arrayToObjectMappings[i+1:]...)
		r.removeSlots(func(m models.FieldMapping) bool {
			return m.ID != id && m.ArrayToObjectMappingID != id
		})

		return ChangeMappings | ChangeArrayToObjectMappings | r.clearDeadSelection()
	})

	return applied
}

// UpdateArrayFilter sets or clears (nil) the item filter of an ArrayMapping.
func (r *Registry) UpdateArrayFilter(id string, filter *models.ArrayFilter) bool {
	applied := false

	r.mutate(func() Change {
		i := r.arrayMappingIndex(id)
		if i < 0 {
			return 0
		}
		r.arrayMappings[i].Filter = canonical(filter)
		applied = true
		return ChangeArrayMappings
	})

	return applied
}

func (r *Registry) UpdateArrayToObjectSelector(id string, selector models.ArraySelector) bool {
	applied := false

	r.mutate(func() Change {
		i := r.arrayToObjectMappingIndex(id)
		if i < 0 {
			return 0
		}
		r.arrayToObjectMappings[i].Selector = canonical(selector)
		applied = true
		return ChangeArrayToObjectMappings
	})

	return applied
}
