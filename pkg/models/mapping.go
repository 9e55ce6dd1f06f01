package models

import (
	"encoding/json"
	"time"
)

// FieldMapping is a single target field's incoming pipeline: one or more
// source fields plus an ordered, never empty list of transformation steps.
type FieldMapping struct {
	ID                     string               `json:"id"`
	SourceFields           []FieldNode          `json:"sourceFields"`
	TargetField            FieldNode            `json:"targetField"`
	Transformations        []TransformationStep `json:"transformations"`
	IsArrayMapping         bool                 `json:"isArrayMapping,omitempty"`
	ArrayMappingID         string               `json:"arrayMappingId,omitempty"`
	IsArrayToObjectMapping bool                 `json:"isArrayToObjectMapping,omitempty"`
	ArrayToObjectMappingID string               `json:"arrayToObjectMappingId,omitempty"`
}

// IsContainer reports whether the mapping is the representative of an
// ArrayMapping or ArrayToObjectMapping rather than a value pipeline.
func (m FieldMapping) IsContainer() bool {
	return m.IsArrayMapping || m.IsArrayToObjectMapping
}

func (m FieldMapping) HasSource(fieldID string) bool {
	for _, sf := range m.SourceFields {
		if sf.ID == fieldID {
			return true
		}
	}
	return false
}

// ArrayMapping iterates the (optionally filtered) items of SourceArray and
// produces one TargetArray item per kept item.
type ArrayMapping struct {
	ID           string         `json:"id"`
	SourceArray  FieldNode      `json:"sourceArray"`
	TargetArray  FieldNode      `json:"targetArray"`
	ItemMappings []FieldMapping `json:"itemMappings"`
	Filter       *ArrayFilter   `json:"filter,omitempty"`
}

type ArraySelectionMode string

const (
	SelectFirst     ArraySelectionMode = "first"
	SelectLast      ArraySelectionMode = "last"
	SelectCondition ArraySelectionMode = "condition"
)

type ArraySelector struct {
	Mode      ArraySelectionMode `json:"mode" validate:"required,oneof=first last condition"`
	Condition *FilterGroup       `json:"condition,omitempty"`
}

// ArrayToObjectMapping collapses SourceArray into TargetObject by selecting a
// single item.
type ArrayToObjectMapping struct {
	ID           string         `json:"id"`
	SourceArray  FieldNode      `json:"sourceArray"`
	TargetObject FieldNode      `json:"targetObject"`
	Selector     ArraySelector  `json:"selector"`
	ItemMappings []FieldMapping `json:"itemMappings"`
}

// DefaultValue is a literal applied to a target field without an incoming
// mapping. A mapping to the same target takes precedence at execution time.
type DefaultValue struct {
	ID          string    `json:"id"`
	TargetField FieldNode `json:"targetField"`
	Value       any       `json:"value"`
}

const DocumentVersion = "1.0"

const DefaultDocumentName = "Mapping Configuration"

// Document is the portable serialization of a whole registry.
type Document struct {
	Version               string                 `json:"version"`
	Name                  string                 `json:"name"`
	Description           string                 `json:"description"`
	Mappings              []FieldMapping         `json:"mappings"`
	ArrayMappings         []ArrayMapping         `json:"arrayMappings"`
	ArrayToObjectMappings []ArrayToObjectMapping `json:"arrayToObjectMappings"`
	DefaultValues         []DefaultValue         `json:"defaultValues"`
	SourceSchemaRef       string                 `json:"sourceSchemaRef,omitempty"`
	TargetSchemaRef       string                 `json:"targetSchemaRef,omitempty"`
}

// StoredSchema is a schema document persisted for a tenant. Document is kept
// as raw JSON so property order survives a round trip.
type StoredSchema struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Name      string          `json:"name"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StoredMapping is a mapping document persisted for a tenant. Version is
// bumped on every update.
type StoredMapping struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SourceSchemaID string    `json:"source_schema_id,omitempty"`
	TargetSchemaID string    `json:"target_schema_id,omitempty"`
	Tags           []string  `json:"tags"`
	Document       Document  `json:"document"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
