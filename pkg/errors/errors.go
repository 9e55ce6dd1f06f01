package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// MappingError describes a failure while evaluating or executing a mapping.
// Context is attached with the chainable Add* methods.
type MappingError struct {
	Mapping   string
	Field     string
	Step      string
	itemIndex *int
	Message   string
}

func NewMappingError(msg string) *MappingError {
	return &MappingError{
		Message: msg,
	}
}

func WrapMappingError(e error) *MappingError {
	if e == nil {
		return nil
	}

	if mappingError, ok := e.(*MappingError); ok {
		return mappingError
	}

	return &MappingError{
		Message: e.Error(),
	}
}

// NewMappingErrorf creates a new MappingError with a formatted message
func NewMappingErrorf(format string, args ...any) *MappingError {
	// %w has no meaning outside fmt.Errorf so fold wrapped errors into the message
	for i, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			format = strings.Replace(format, "%w", "%v", 1)
			args[i] = err.Error()
		}
	}

	return &MappingError{
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *MappingError) Error() string {
	path := []string{}
	if e.Mapping != "" {
		path = append(path, fmt.Sprintf("mapping '%s'", e.Mapping))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}
	if e.itemIndex != nil {
		path = append(path, fmt.Sprintf("item %d", *e.itemIndex))
	}
	if e.Step != "" {
		path = append(path, fmt.Sprintf("step '%s'", e.Step))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *MappingError) AddMapping(mappingID string) *MappingError {
	e.Mapping = mappingID
	return e
}

func (e *MappingError) AddField(fieldPath string) *MappingError {
	e.Field = fieldPath
	return e
}

func (e *MappingError) AddStep(stepType string) *MappingError {
	e.Step = stepType
	return e
}

func (e *MappingError) AddItemIndex(itemIndex int) *MappingError {
	e.itemIndex = &itemIndex
	return e
}

// ItemIndex returns the array item index the error occurred on, if any.
func (e *MappingError) ItemIndex() (int, bool) {
	if e.itemIndex == nil {
		return 0, false
	}
	return *e.itemIndex, true
}

func (e *MappingError) ToHTTPError() *httperror.HTTPError {
	err := httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("mapping_id", e.Mapping).
		AddMetaValue("field", e.Field).
		AddMetaValue("step", e.Step)
	if e.itemIndex != nil {
		err = err.AddMetaValue("item_index", *e.itemIndex)
	}
	return err
}

func IsMappingError(err error) bool {
	_, ok := err.(*MappingError)
	return ok
}

// SchemaError is returned when a schema document cannot be turned into a field
// tree, most commonly because a $ref does not resolve.
type SchemaError struct {
	Schema  string
	Ref     string
	Message string
}

func NewSchemaError(schema, msg string) *SchemaError {
	return &SchemaError{Schema: schema, Message: msg}
}

func NewUnresolvedRefError(schema, ref string) *SchemaError {
	return &SchemaError{
		Schema:  schema,
		Ref:     ref,
		Message: fmt.Sprintf("could not resolve reference '%s'", ref),
	}
}

func (e *SchemaError) Error() string {
	if e.Schema == "" {
		return e.Message
	}
	return fmt.Sprintf("schema '%s': %s", e.Schema, e.Message)
}

func (e *SchemaError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("schema", e.Schema).
		AddMetaValue("ref", e.Ref)
}

func IsSchemaError(err error) bool {
	_, ok := err.(*SchemaError)
	return ok
}
