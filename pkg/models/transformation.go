package models

type TransformationType string

const (
	TransformationDirect        TransformationType = "direct"
	TransformationConcat        TransformationType = "concat"
	TransformationSubstring     TransformationType = "substring"
	TransformationReplace       TransformationType = "replace"
	TransformationUppercase     TransformationType = "uppercase"
	TransformationLowercase     TransformationType = "lowercase"
	TransformationTrim          TransformationType = "trim"
	TransformationMask          TransformationType = "mask"
	TransformationDateFormat    TransformationType = "dateFormat"
	TransformationExtractYear   TransformationType = "extractYear"
	TransformationExtractMonth  TransformationType = "extractMonth"
	TransformationExtractDay    TransformationType = "extractDay"
	TransformationExtractHour   TransformationType = "extractHour"
	TransformationExtractMinute TransformationType = "extractMinute"
	TransformationExtractSecond TransformationType = "extractSecond"
	TransformationNumberFormat  TransformationType = "numberFormat"
	TransformationTemplate      TransformationType = "template"
	TransformationExpression    TransformationType = "expression"
)

const DefaultConcatSeparator = " "

// TransformationCondition gates a step: the step only runs when Root
// evaluates true against the step's input.
type TransformationCondition struct {
	Enabled bool         `json:"enabled"`
	Root    *FilterGroup `json:"root,omitempty"`
}

// TransformationStep is one typed operation of a pipeline. Only the
// parameters relevant to Type are read.
type TransformationStep struct {
	Type TransformationType `json:"type" validate:"required"`

	// concat / template
	Separator *string `json:"separator,omitempty"`
	Template  string  `json:"template,omitempty"`

	// substring
	StartIndex *int `json:"startIndex,omitempty"`
	EndIndex   *int `json:"endIndex,omitempty"`

	// replace
	SearchValue  string `json:"searchValue,omitempty"`
	ReplaceValue string `json:"replaceValue,omitempty"`

	// dateFormat
	InputFormat  string `json:"inputFormat,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`

	// numberFormat
	DecimalPlaces *int   `json:"decimalPlaces,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Suffix        string `json:"suffix,omitempty"`

	// mask
	Pattern string `json:"pattern,omitempty"`

	// expression (JMESPath)
	Expression string `json:"expression,omitempty"`

	Condition *TransformationCondition `json:"condition,omitempty"`
}

// GetSeparator returns the concat separator, defaulting to a single space.
func (s TransformationStep) GetSeparator() string {
	if s.Separator == nil {
		return DefaultConcatSeparator
	}
	return *s.Separator
}

// HasActiveCondition reports whether the step is gated by an enabled condition.
func (s TransformationStep) HasActiveCondition() bool {
	return s.Condition != nil && s.Condition.Enabled && s.Condition.Root != nil
}

func DirectStep() TransformationStep {
	return TransformationStep{Type: TransformationDirect}
}

func ConcatStep(separator string) TransformationStep {
	return TransformationStep{Type: TransformationConcat, Separator: &separator}
}
