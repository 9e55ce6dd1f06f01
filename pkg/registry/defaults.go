package registry

import "github.com/Ramsey-B/trellis/pkg/models"

// SetDefaultValue sets the literal for a target field, replacing any value
// already set for it.
func (r *Registry) SetDefaultValue(target models.FieldNode, value any) models.DefaultValue {
	var result models.DefaultValue
	value = canonical(value)

	r.mutate(func() Change {
		for i, dv := range r.defaultValues {
			if dv.TargetField.ID == target.ID {
				values := append([]models.DefaultValue{}, r.defaultValues...)
				values[i].Value = value
				r.defaultValues = values
				result = values[i]
				return ChangeDefaultValues
			}
		}

		result = models.DefaultValue{
			ID:          r.newID(defaultValuePrefix),
			TargetField: target,
			Value:       value,
		}
		r.defaultValues = append(r.defaultValues, result)
		return ChangeDefaultValues
	})

	return result
}

func (r *Registry) GetDefaultValue(targetFieldID string) (models.DefaultValue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, dv := range r.defaultValues {
		if dv.TargetField.ID == targetFieldID {
			return dv, true
		}
	}
	return models.DefaultValue{}, false
}

func (r *Registry) HasDefaultValue(targetFieldID string) bool {
	_, ok := r.GetDefaultValue(targetFieldID)
	return ok
}

func (r *Registry) RemoveDefaultValue(targetFieldID string) bool {
	applied := false

	r.mutate(func() Change {
		values := make([]models.DefaultValue, 0, len(r.defaultValues))
		for _, dv := range r.defaultValues {
			if dv.TargetField.ID != targetFieldID {
				values = append(values, dv)
			}
		}
		if len(values) == len(r.defaultValues) {
			return 0
		}
		r.defaultValues = values
		applied = true
		return ChangeDefaultValues
	})

	return applied
}
