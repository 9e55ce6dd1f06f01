package schema

import (
	"testing"

	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/fields"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderSchema = `{
	"title": "Order",
	"properties": {
		"id": {"type": "integer"},
		"createdAt": {"type": "string", "format": "date-time"},
		"customer": {"type": "object", "properties": {"name": {"type": "string"}}},
		"items": {"type": "array", "items": {"$ref": "#/$defs/Item"}},
		"flags": {"type": ["boolean", "null"]},
		"ignored": true
	},
	"$defs": {
		"Item": {"properties": {"sku": {"type": "string"}, "qty": {"type": "number", "description": "Quantity"}}}
	}
}`

func TestParse(t *testing.T) {
	t.Run("should build a field tree in document order", func(t *testing.T) {
		schema, err := NewParser().Parse([]byte(orderSchema), "ignored")
		require.NoError(t, err)

		assert.Equal(t, "Order", schema.Name)
		require.Len(t, schema.Fields, 5)

		expected := []models.FieldNode{
			{ID: "field-1-id", Name: "id", Type: models.FieldTypeNumber, Path: "id"},
			{ID: "field-2-createdAt", Name: "createdAt", Type: models.FieldTypeDate, Path: "createdAt"},
			{ID: "field-3-customer", Name: "customer", Type: models.FieldTypeObject, Path: "customer", Children: []models.FieldNode{
				{ID: "field-4-name", Name: "name", Type: models.FieldTypeString, Path: "customer.name"},
			}},
			{ID: "field-5-items", Name: "items", Type: models.FieldTypeArray, Path: "items", Children: []models.FieldNode{
				{ID: "field-6-sku", Name: "sku", Type: models.FieldTypeString, Path: "items[].sku", IsArrayItem: true, ParentArrayPath: "items"},
				{ID: "field-7-qty", Name: "qty", Type: models.FieldTypeNumber, Path: "items[].qty", Description: "Quantity", IsArrayItem: true, ParentArrayPath: "items"},
			}},
			{ID: "field-8-flags", Name: "flags", Type: models.FieldTypeBoolean, Path: "flags"},
		}
		assert.Equal(t, expected, schema.Fields)
	})

	t.Run("should resolve a root reference into definitions", func(t *testing.T) {
		doc := `{"$ref": "#/definitions/User", "definitions": {"User": {"type": "object", "properties": {"email": {"type": "string"}}}}}`

		schema, err := NewParser().Parse([]byte(doc), "Users")
		require.NoError(t, err)

		assert.Equal(t, "Users", schema.Name)
		require.Len(t, schema.Fields, 1)
		assert.Equal(t, "email", schema.Fields[0].Path)
	})

	t.Run("should default the schema name", func(t *testing.T) {
		schema, err := NewParser().Parse([]byte(`{"properties": {"a": {}}}`), "")
		require.NoError(t, err)
		assert.Equal(t, DefaultSchemaName, schema.Name)
		assert.Equal(t, models.FieldTypeString, schema.Fields[0].Type)
	})

	t.Run("should fail hard on an unresolved reference", func(t *testing.T) {
		doc := `{"properties": {"a": {"$ref": "#/$defs/Missing"}}}`

		_, err := NewParser().Parse([]byte(doc), "Broken")
		require.Error(t, err)
		assert.True(t, errors.IsSchemaError(err))
		assert.Equal(t, "#/$defs/Missing", err.(*errors.SchemaError).Ref)
	})

	t.Run("should reject a document without ref or properties", func(t *testing.T) {
		_, err := NewParser().Parse([]byte(`{"type": "object"}`), "Empty")
		assert.True(t, errors.IsSchemaError(err))
	})

	t.Run("should reject circular reference chains", func(t *testing.T) {
		doc := `{"$ref": "#A", "$defs": {"A": {"$ref": "#B"}, "B": {"$ref": "#A"}}}`
		_, err := NewParser().Parse([]byte(doc), "Loop")
		assert.Error(t, err)
	})

	t.Run("should stop expanding self referencing models", func(t *testing.T) {
		doc := `{
			"$ref": "#/$defs/Category",
			"$defs": {
				"Category": {"properties": {
					"name": {"type": "string"},
					"parent": {"$ref": "#/$defs/Category"},
					"children": {"type": "array", "items": {"$ref": "#/$defs/Category"}}
				}}
			}
		}`

		schema, err := NewParser().Parse([]byte(doc), "Tree")
		require.NoError(t, err)
		require.Len(t, schema.Fields, 3)

		assert.Equal(t, models.FieldTypeObject, schema.Fields[1].Type)
		assert.Empty(t, schema.Fields[1].Children)
		assert.Equal(t, models.FieldTypeArray, schema.Fields[2].Type)
		assert.Empty(t, schema.Fields[2].Children)
	})

	t.Run("should scope nested arrays under their closest array", func(t *testing.T) {
		doc := `{"properties": {"orders": {"type": "array", "items": {"properties": {
			"lines": {"type": "array", "items": {"properties": {"sku": {"type": "string"}}}}
		}}}}}`

		schema, err := NewParser().Parse([]byte(doc), "Nested")
		require.NoError(t, err)

		sku, err := fields.Fields(schema.Fields).GetFieldByPath("orders[].lines[].sku")
		require.NoError(t, err)
		assert.True(t, sku.IsArrayItem)
		assert.Equal(t, "orders[].lines", sku.ParentArrayPath)

		lines, err := fields.Fields(schema.Fields).GetFieldByPath("orders[].lines")
		require.NoError(t, err)
		assert.Equal(t, "orders", lines.ParentArrayPath)
	})
}

func TestParseYAML(t *testing.T) {
	doc := `
title: Person
properties:
  name:
    type: string
  birthday:
    type: string
    format: date
  tags:
    type: array
    items:
      type: string
`

	schema, err := NewParser().Parse([]byte(doc), "")
	require.NoError(t, err)

	assert.Equal(t, "Person", schema.Name)
	require.Len(t, schema.Fields, 3)
	assert.Equal(t, "field-1-name", schema.Fields[0].ID)
	assert.Equal(t, models.FieldTypeDate, schema.Fields[1].Type)
	assert.Equal(t, models.FieldTypeArray, schema.Fields[2].Type)
	assert.Empty(t, schema.Fields[2].Children)
}

func TestRegisteredModels(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.RegisterModel("Address", []byte(`{"type": "object", "description": "Postal", "properties": {"city": {"type": "string"}}}`)))

	t.Run("should resolve bare and hash references against registered models", func(t *testing.T) {
		for _, ref := range []string{"Address", "#Address"} {
			doc := `{"properties": {"home": {"$ref": "` + ref + `", "description": "Home"}}}`

			schema, err := p.Parse([]byte(doc), "Person")
			require.NoError(t, err)

			home := schema.Fields[0]
			assert.Equal(t, models.FieldTypeObject, home.Type)
			assert.Equal(t, "Home", home.Description)
			require.Len(t, home.Children, 1)
			assert.Equal(t, "home.city", home.Children[0].Path)
		}
	})

	t.Run("should let local definitions shadow registered models", func(t *testing.T) {
		doc := `{"properties": {"home": {"$ref": "#/$defs/Address"}}, "$defs": {"Address": {"properties": {"zip": {"type": "string"}}}}}`

		schema, err := p.Parse([]byte(doc), "Person")
		require.NoError(t, err)
		assert.Equal(t, "home.zip", schema.Fields[0].Children[0].Path)
	})

	t.Run("should forget models after clearing", func(t *testing.T) {
		p.ClearRegistry()
		_, err := p.Parse([]byte(`{"properties": {"home": {"$ref": "Address"}}}`), "Person")
		assert.Error(t, err)
	})
}

func TestParseValue(t *testing.T) {
	doc := map[string]any{
		"properties": map[string]any{
			"zeta":  map[string]any{"type": "string"},
			"alpha": map[string]any{"type": "number"},
		},
	}

	schema, err := NewParser().ParseValue(doc, "Sorted")
	require.NoError(t, err)

	require.Len(t, schema.Fields, 2)
	assert.Equal(t, "alpha", schema.Fields[0].Name)
	assert.Equal(t, "zeta", schema.Fields[1].Name)
}

func TestIncludeExclude(t *testing.T) {
	doc := `{
		"properties": {
			"id": {"type": "string"},
			"secret": {"type": "string"},
			"profile": {"type": "object", "properties": {
				"email": {"type": "string"},
				"secret": {"type": "string"}
			}}
		},
		"exclude": ["secret"]
	}`

	t.Run("should exclude by name at every depth", func(t *testing.T) {
		schema, err := NewParser().Parse([]byte(doc), "")
		require.NoError(t, err)

		paths := []string{}
		for _, f := range fields.Fields(schema.Fields).Flatten() {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{"id", "profile", "profile.email"}, paths)
	})

	t.Run("should include listed paths and their ancestors", func(t *testing.T) {
		included := `{"properties": {
			"id": {"type": "string"},
			"profile": {"type": "object", "properties": {"email": {"type": "string"}, "phone": {"type": "string"}}}
		}, "include": ["profile.email"]}`

		schema, err := NewParser().Parse([]byte(included), "")
		require.NoError(t, err)

		paths := []string{}
		for _, f := range fields.Fields(schema.Fields).Flatten() {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{"profile", "profile.email"}, paths)
	})

	t.Run("should build a ref document with filters", func(t *testing.T) {
		doc := CreateSchemaFromRef("#/$defs/User", "Users", nil, []string{"password"})
		assert.Equal(t, map[string]any{"$ref": "#/$defs/User", "title": "Users", "exclude": []string{"password"}}, doc)
	})
}
