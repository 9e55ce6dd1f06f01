package schema

import (
	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/trellis/pkg/models"
)

func matches(field models.FieldNode, patterns []string) bool {
	return ectolinq.Contains(patterns, field.Name) || ectolinq.Contains(patterns, field.Path)
}

// applyExclude drops every field whose name or path is listed, at any depth.
func applyExclude(fields []models.FieldNode, exclude []string) []models.FieldNode {
	result := make([]models.FieldNode, 0, len(fields))
	for _, field := range fields {
		if matches(field, exclude) {
			continue
		}
		if field.Children != nil {
			field.Children = applyExclude(field.Children, exclude)
		}
		result = append(result, field)
	}
	return result
}

// applyInclude keeps listed fields and the ancestors of listed fields. A kept
// parent whose children all miss the list keeps every child.
func applyInclude(fields []models.FieldNode, include []string) []models.FieldNode {
	result := make([]models.FieldNode, 0, len(fields))
	for _, field := range fields {
		if !matches(field, include) && !hasIncludedChild(field.Children, include) {
			continue
		}
		if field.Children != nil {
			if filtered := applyInclude(field.Children, include); len(filtered) > 0 {
				field.Children = filtered
			}
		}
		result = append(result, field)
	}
	return result
}

func hasIncludedChild(fields []models.FieldNode, include []string) bool {
	for _, field := range fields {
		if matches(field, include) || hasIncludedChild(field.Children, include) {
			return true
		}
	}
	return false
}
