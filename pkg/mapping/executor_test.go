package mapping

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcFirst      = models.FieldNode{ID: "s1", Name: "firstName", Type: models.FieldTypeString, Path: "firstName"}
	srcLast       = models.FieldNode{ID: "s2", Name: "lastName", Type: models.FieldTypeString, Path: "lastName"}
	srcEmail      = models.FieldNode{ID: "s3", Name: "email", Type: models.FieldTypeString, Path: "email"}
	srcTier       = models.FieldNode{ID: "s4", Name: "tier", Type: models.FieldTypeString, Path: "customer.tier"}
	srcOrders     = models.FieldNode{ID: "s5", Name: "orders", Type: models.FieldTypeArray, Path: "orders"}
	srcOrderTotal = models.FieldNode{ID: "s6", Name: "total", Type: models.FieldTypeNumber, Path: "orders[].total", IsArrayItem: true, ParentArrayPath: "orders"}
	srcOrderLines = models.FieldNode{ID: "s7", Name: "lines", Type: models.FieldTypeArray, Path: "orders[].lines", IsArrayItem: true, ParentArrayPath: "orders"}
	srcLineSku    = models.FieldNode{ID: "s8", Name: "sku", Type: models.FieldTypeString, Path: "orders[].lines[].sku", IsArrayItem: true, ParentArrayPath: "orders[].lines"}
	srcTags       = models.FieldNode{ID: "s9", Name: "tags", Type: models.FieldTypeArray, Path: "tags"}

	tgtFullName    = models.FieldNode{ID: "t1", Name: "fullName", Type: models.FieldTypeString, Path: "fullName"}
	tgtContact     = models.FieldNode{ID: "t2", Name: "contact", Type: models.FieldTypeString, Path: "contact"}
	tgtCountry     = models.FieldNode{ID: "t3", Name: "country", Type: models.FieldTypeString, Path: "country"}
	tgtInvoices    = models.FieldNode{ID: "t4", Name: "invoices", Type: models.FieldTypeArray, Path: "invoices"}
	tgtInvAmount   = models.FieldNode{ID: "t5", Name: "amount", Type: models.FieldTypeNumber, Path: "invoices[].amount", IsArrayItem: true, ParentArrayPath: "invoices"}
	tgtInvTier     = models.FieldNode{ID: "t6", Name: "tier", Type: models.FieldTypeString, Path: "invoices[].tier", IsArrayItem: true, ParentArrayPath: "invoices"}
	tgtInvItems    = models.FieldNode{ID: "t7", Name: "items", Type: models.FieldTypeArray, Path: "invoices[].items", IsArrayItem: true, ParentArrayPath: "invoices"}
	tgtItemCode    = models.FieldNode{ID: "t8", Name: "code", Type: models.FieldTypeString, Path: "invoices[].items[].code", IsArrayItem: true, ParentArrayPath: "invoices[].items"}
	tgtLabels      = models.FieldNode{ID: "t9", Name: "labels", Type: models.FieldTypeArray, Path: "labels"}
	tgtLatest      = models.FieldNode{ID: "t10", Name: "latest", Type: models.FieldTypeObject, Path: "latest"}
	tgtLatestTotal = models.FieldNode{ID: "t11", Name: "total", Type: models.FieldTypeNumber, Path: "latest.total"}
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func paidFilter() *models.ArrayFilter {
	return &models.ArrayFilter{
		Enabled: true,
		Root: &models.FilterGroup{
			ID:    "root",
			Logic: models.FilterLogicAnd,
			Children: []models.FilterItem{
				models.ConditionItem(models.FilterCondition{ID: "c1", Field: "status", Operator: models.OperatorEquals, Value: "paid"}),
			},
		},
	}
}

func customerDocument(t *testing.T) models.Document {
	r := registry.New(testLogger())

	_, ok := r.CreateMapping([]models.FieldNode{srcFirst, srcLast}, tgtFullName)
	require.True(t, ok)
	_, ok = r.CreateMapping([]models.FieldNode{srcEmail}, tgtContact, models.TransformationStep{Type: models.TransformationLowercase})
	require.True(t, ok)
	r.SetDefaultValue(tgtCountry, "US")

	invoices, ok := r.CreateMapping([]models.FieldNode{srcOrders}, tgtInvoices)
	require.True(t, ok)
	require.True(t, r.UpdateArrayFilter(invoices.ID, paidFilter()))
	_, ok = r.CreateMapping([]models.FieldNode{srcOrderTotal}, tgtInvAmount)
	require.True(t, ok)
	_, ok = r.CreateMapping([]models.FieldNode{srcTier}, tgtInvTier)
	require.True(t, ok)
	_, ok = r.CreateMapping([]models.FieldNode{srcOrderLines}, tgtInvItems)
	require.True(t, ok)
	_, ok = r.CreateMapping([]models.FieldNode{srcLineSku}, tgtItemCode)
	require.True(t, ok)

	_, ok = r.CreateMapping([]models.FieldNode{srcTags}, tgtLabels)
	require.True(t, ok)

	latest, ok := r.CreateMapping([]models.FieldNode{srcOrders}, tgtLatest)
	require.True(t, ok)
	require.True(t, r.UpdateArrayToObjectSelector(latest.ID, models.ArraySelector{Mode: models.SelectLast}))
	_, ok = r.CreateMapping([]models.FieldNode{srcOrderTotal}, tgtLatestTotal)
	require.True(t, ok)

	return r.Snapshot()
}

func customerSource() map[string]any {
	return map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ADA@EXAMPLE.COM",
		"customer":  map[string]any{"tier": "gold"},
		"orders": []any{
			map[string]any{"status": "paid", "total": 10, "lines": []any{map[string]any{"sku": "A"}, map[string]any{"sku": "B"}}},
			map[string]any{"status": "open", "total": 20, "lines": []any{}},
			map[string]any{"status": "paid", "total": 30.5, "lines": []any{map[string]any{"sku": "C"}}},
		},
		"tags": []any{"x", "y"},
	}
}

func TestExecute(t *testing.T) {
	executor := NewExecutor(testLogger(), nil)
	doc := customerDocument(t)

	t.Run("should materialize the whole target", func(t *testing.T) {
		target, err := executor.ExecuteDocument(context.Background(), doc, customerSource())
		require.NoError(t, err)

		expected := map[string]any{
			"fullName": "Ada Lovelace",
			"contact":  "ada@example.com",
			"country":  "US",
			"invoices": []any{
				map[string]any{"amount": 10.0, "tier": "gold", "items": []any{map[string]any{"code": "A"}, map[string]any{"code": "B"}}},
				map[string]any{"amount": 30.5, "tier": "gold", "items": []any{map[string]any{"code": "C"}}},
			},
			"labels": []any{"x", "y"},
			"latest": map[string]any{"total": 30.5},
		}
		assert.Equal(t, expected, target)
	})

	t.Run("should reuse a compiled plan", func(t *testing.T) {
		plan, err := Compile(doc)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			target, err := executor.Execute(context.Background(), plan, customerSource())
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", target["fullName"])
		}
	})

	t.Run("should skip missing sources and non list arrays", func(t *testing.T) {
		target, err := executor.ExecuteDocument(context.Background(), doc, map[string]any{"orders": "nope"})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"country": "US"}, target)
	})

	t.Run("should require a plan", func(t *testing.T) {
		_, err := executor.Execute(context.Background(), nil, map[string]any{})
		assert.True(t, errors.IsMappingError(err))
	})
}

func TestDefaultPrecedence(t *testing.T) {
	r := registry.New(testLogger())
	r.CreateMapping([]models.FieldNode{srcEmail}, tgtContact)
	r.SetDefaultValue(tgtContact, "none")

	executor := NewExecutor(testLogger(), nil)

	tests := []struct {
		name     string
		source   map[string]any
		expected any
	}{
		{name: "should prefer the mapped value", source: map[string]any{"email": "a@b.c"}, expected: "a@b.c"},
		{name: "should fall back to the default when the source is missing", source: map[string]any{}, expected: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := executor.ExecuteDocument(context.Background(), r.Snapshot(), tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target["contact"])
		})
	}
}

func TestSelectItem(t *testing.T) {
	items := []any{
		map[string]any{"total": 5},
		map[string]any{"total": 20},
		map[string]any{"total": 50},
	}
	overTen := &models.FilterGroup{
		ID:    "g",
		Logic: models.FilterLogicAnd,
		Children: []models.FilterItem{
			models.ConditionItem(models.FilterCondition{ID: "c", Field: "total", Operator: models.OperatorGreaterThan, Value: 10}),
		},
	}

	tests := []struct {
		name     string
		selector models.ArraySelector
		items    []any
		expected any
		ok       bool
	}{
		{name: "should select the first item", selector: models.ArraySelector{Mode: models.SelectFirst}, items: items, expected: items[0], ok: true},
		{name: "should select the last item", selector: models.ArraySelector{Mode: models.SelectLast}, items: items, expected: items[2], ok: true},
		{name: "should select the first matching item", selector: models.ArraySelector{Mode: models.SelectCondition, Condition: overTen}, items: items, expected: items[1], ok: true},
		{name: "should select nothing from an empty list", selector: models.ArraySelector{Mode: models.SelectFirst}, items: []any{}, ok: false},
		{name: "should select nothing when no item matches", selector: models.ArraySelector{Mode: models.SelectCondition, Condition: overTen}, items: items[:1], ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectItem(tt.items, tt.selector)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 42.5, coerce("42.5", models.FieldTypeNumber))
	assert.Equal(t, "n/a", coerce("n/a", models.FieldTypeNumber))
	assert.Equal(t, "", coerce("", models.FieldTypeNumber))
	assert.Equal(t, true, coerce("true", models.FieldTypeBoolean))
	assert.Equal(t, "yes", coerce("yes", models.FieldTypeBoolean))
	assert.Equal(t, "7", coerce("7", models.FieldTypeString))
}

func TestCompile(t *testing.T) {
	t.Run("should reject item mappings without their container", func(t *testing.T) {
		doc := models.Document{Mappings: []models.FieldMapping{{
			ID:              "m1",
			SourceFields:    []models.FieldNode{srcOrderTotal},
			TargetField:     tgtInvAmount,
			Transformations: []models.TransformationStep{models.DirectStep()},
			ArrayMappingID:  "missing",
		}}}

		_, err := Compile(doc)
		require.Error(t, err)
		assert.Equal(t, "m1", err.(*errors.MappingError).Mapping)
	})
}

func TestValidate(t *testing.T) {
	executor := NewExecutor(testLogger(), nil)

	t.Run("should accept a well formed document", func(t *testing.T) {
		assert.NoError(t, executor.Validate(customerDocument(t)))
	})

	t.Run("should reject unknown transformation types", func(t *testing.T) {
		r := registry.New(testLogger())
		m, _ := r.CreateMapping([]models.FieldNode{srcEmail}, tgtContact)
		r.UpdateTransformations(m.ID, []models.TransformationStep{{Type: "reverse"}})

		err := executor.Validate(r.Snapshot())
		require.Error(t, err)
		assert.Equal(t, m.ID, err.(*errors.MappingError).Mapping)
	})

	t.Run("should reject unknown filter operators", func(t *testing.T) {
		r := registry.New(testLogger())
		am, _ := r.CreateMapping([]models.FieldNode{srcOrders}, tgtInvoices)
		bad := paidFilter()
		bad.Root.Children[0].Condition.Operator = "like"
		r.UpdateArrayFilter(am.ID, bad)

		assert.Error(t, executor.Validate(r.Snapshot()))
	})

	t.Run("should reject unknown selector modes", func(t *testing.T) {
		r := registry.New(testLogger())
		ato, _ := r.CreateMapping([]models.FieldNode{srcOrders}, tgtLatest)
		r.UpdateArrayToObjectSelector(ato.ID, models.ArraySelector{Mode: "middle"})

		assert.Error(t, executor.Validate(r.Snapshot()))
	})
}
