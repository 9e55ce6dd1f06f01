package models

import (
	"reflect"
	"time"
)

// FieldType is the type of a node in a schema field tree.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
	FieldTypeArray   FieldType = "array"
	FieldTypeDate    FieldType = "date"
)

var FieldTypes = []FieldType{
	FieldTypeString,
	FieldTypeNumber,
	FieldTypeBoolean,
	FieldTypeObject,
	FieldTypeArray,
	FieldTypeDate,
}

func (t FieldType) IsValid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// IsContainer reports whether fields of this type carry children.
func (t FieldType) IsContainer() bool {
	return t == FieldTypeObject || t == FieldTypeArray
}

func IsType(value any, expectedType FieldType) bool {
	switch expectedType {
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case FieldTypeBoolean:
		_, ok := value.(bool)
		return ok
	case FieldTypeArray:
		if _, ok := value.([]any); ok {
			return true
		}
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Slice
	case FieldTypeObject:
		_, ok := value.(map[string]any)
		return ok
	case FieldTypeDate:
		_, ok := value.(time.Time)
		return ok
	}
	return false
}

// GetFieldType infers the field type of a decoded JSON value. Unknown values
// fall back to string, matching how schemas without a type are treated.
func GetFieldType(value any) FieldType {
	switch value.(type) {
	case string:
		return FieldTypeString
	case int, int32, int64, float32, float64:
		return FieldTypeNumber
	case bool:
		return FieldTypeBoolean
	case []any:
		return FieldTypeArray
	case map[string]any:
		return FieldTypeObject
	case time.Time:
		return FieldTypeDate
	}

	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Kind() == reflect.Slice {
		return FieldTypeArray
	}

	return FieldTypeString
}

func GetDefault(fieldType FieldType) any {
	switch fieldType {
	case FieldTypeString:
		return ""
	case FieldTypeNumber:
		return 0.0
	case FieldTypeBoolean:
		return false
	case FieldTypeArray:
		return []any{}
	case FieldTypeObject:
		return map[string]any{}
	case FieldTypeDate:
		return time.Time{}
	}

	return nil
}
