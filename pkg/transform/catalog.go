package transform

import "github.com/Ramsey-B/trellis/pkg/models"

type TransformationInfo struct {
	Type     models.TransformationType `json:"type"`
	Label    string                    `json:"label"`
	Category string                    `json:"category,omitempty"`
}

var catalog = []TransformationInfo{
	{Type: models.TransformationDirect, Label: "Direct Mapping"},
	{Type: models.TransformationConcat, Label: "Concatenate", Category: "String"},
	{Type: models.TransformationSubstring, Label: "Substring", Category: "String"},
	{Type: models.TransformationReplace, Label: "Find & Replace", Category: "String"},
	{Type: models.TransformationUppercase, Label: "Uppercase", Category: "String"},
	{Type: models.TransformationLowercase, Label: "Lowercase", Category: "String"},
	{Type: models.TransformationTrim, Label: "Trim", Category: "String"},
	{Type: models.TransformationMask, Label: "Mask", Category: "String"},
	{Type: models.TransformationTemplate, Label: "Template", Category: "String"},
	{Type: models.TransformationDateFormat, Label: "Format Date", Category: "Date"},
	{Type: models.TransformationExtractYear, Label: "Extract Year", Category: "Date"},
	{Type: models.TransformationExtractMonth, Label: "Extract Month", Category: "Date"},
	{Type: models.TransformationExtractDay, Label: "Extract Day", Category: "Date"},
	{Type: models.TransformationExtractHour, Label: "Extract Hour", Category: "Date"},
	{Type: models.TransformationExtractMinute, Label: "Extract Minute", Category: "Date"},
	{Type: models.TransformationExtractSecond, Label: "Extract Second", Category: "Date"},
	{Type: models.TransformationNumberFormat, Label: "Number Format", Category: "Number"},
	{Type: models.TransformationExpression, Label: "Expression", Category: "Advanced"},
}

// labels differ from the catalog for dateFormat
var labels = map[models.TransformationType]string{
	models.TransformationDateFormat: "Date Format",
}

// AvailableTransformations lists every step type with its display label and
// category, in menu order.
func AvailableTransformations() []TransformationInfo {
	result := make([]TransformationInfo, len(catalog))
	copy(result, catalog)
	return result
}

// TransformationLabel returns the display label of a step type, or the type
// itself when it is unknown.
func TransformationLabel(t models.TransformationType) string {
	if label, ok := labels[t]; ok {
		return label
	}
	for _, info := range catalog {
		if info.Type == t {
			return info.Label
		}
	}
	return string(t)
}

// IsKnownType reports whether t is a step type the evaluator implements.
func IsKnownType(t models.TransformationType) bool {
	for _, info := range catalog {
		if info.Type == t {
			return true
		}
	}
	return false
}
