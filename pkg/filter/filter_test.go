package filter

import (
	"testing"

	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/stretchr/testify/assert"
)

func cond(field string, op models.FilterOperator, value any) models.FilterItem {
	return models.ConditionItem(models.FilterCondition{ID: field, Field: field, Operator: op, Value: value})
}

func group(logic models.FilterLogic, children ...models.FilterItem) *models.FilterGroup {
	if children == nil {
		children = []models.FilterItem{}
	}
	return &models.FilterGroup{ID: "g", Logic: logic, Children: children}
}

func TestEvaluate(t *testing.T) {
	t.Run("should treat empty groups as satisfied", func(t *testing.T) {
		assert.True(t, Evaluate("anything", group(models.FilterLogicAnd)))
		assert.True(t, Evaluate(nil, group(models.FilterLogicOr)))
		assert.True(t, Evaluate(1.0, nil))
	})

	t.Run("should treat nested empty groups as satisfied", func(t *testing.T) {
		root := group(models.FilterLogicAnd, models.GroupItem(*group(models.FilterLogicOr)))
		assert.True(t, Evaluate("x", root))
	})

	t.Run("should require every child for and", func(t *testing.T) {
		root := group(models.FilterLogicAnd,
			cond("", models.OperatorStartsWith, "ab"),
			cond("", models.OperatorEndsWith, "yz"),
		)
		assert.True(t, Evaluate("abxyz", root))
		assert.False(t, Evaluate("abx", root))
	})

	t.Run("should require one child for or", func(t *testing.T) {
		root := group(models.FilterLogicOr,
			cond("", models.OperatorEquals, "a"),
			cond("", models.OperatorEquals, "b"),
		)
		assert.True(t, Evaluate("b", root))
		assert.False(t, Evaluate("c", root))
	})
}

func TestEvaluateCondition(t *testing.T) {
	type testCase struct {
		name     string
		value    any
		operator models.FilterOperator
		operand  any
		expected bool
	}

	testCases := []testCase{
		{name: "should compare strings for equals", value: "active", operator: models.OperatorEquals, operand: "active", expected: true},
		{name: "should coerce numbers for equals", value: 50.0, operator: models.OperatorEquals, operand: "50", expected: true},
		{name: "should negate notEquals", value: "a", operator: models.OperatorNotEquals, operand: "a", expected: false},
		{name: "should match contains", value: "hello world", operator: models.OperatorContains, operand: "lo w", expected: true},
		{name: "should match notContains", value: "hello", operator: models.OperatorNotContains, operand: "z", expected: true},
		{name: "should match startsWith", value: "hello", operator: models.OperatorStartsWith, operand: "he", expected: true},
		{name: "should match endsWith", value: "hello", operator: models.OperatorEndsWith, operand: "lo", expected: true},
		{name: "should treat nil as empty", value: nil, operator: models.OperatorIsEmpty, expected: true},
		{name: "should treat empty string as empty", value: "", operator: models.OperatorIsEmpty, expected: true},
		{name: "should treat zero as not empty", value: 0.0, operator: models.OperatorIsNotEmpty, expected: true},
		{name: "should compare numbers", value: 50.0, operator: models.OperatorGreaterThan, operand: 10.0, expected: true},
		{name: "should compare numeric strings", value: "5", operator: models.OperatorLessThan, operand: "10", expected: true},
		{name: "should include equal bound", value: 10.0, operator: models.OperatorGreaterThanOrEqual, operand: 10.0, expected: true},
		{name: "should include equal upper bound", value: 10.0, operator: models.OperatorLessThanOrEqual, operand: 10.0, expected: true},
		{name: "should fail numeric comparison on text", value: "abc", operator: models.OperatorGreaterThan, operand: 1.0, expected: false},
		{name: "should fail numeric comparison on text operand", value: 5.0, operator: models.OperatorLessThan, operand: "abc", expected: false},
		{name: "should fail numeric comparison on nil", value: nil, operator: models.OperatorGreaterThan, operand: -1.0, expected: false},
		{name: "should accept bool true", value: true, operator: models.OperatorIsTrue, expected: true},
		{name: "should accept TRUE string", value: "TRUE", operator: models.OperatorIsTrue, expected: true},
		{name: "should accept False string", value: "False", operator: models.OperatorIsFalse, expected: true},
		{name: "should reject yes for isTrue", value: "yes", operator: models.OperatorIsTrue, expected: false},
		{name: "should satisfy unknown operators", value: "x", operator: "matches", operand: "y", expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := EvaluateCondition(tc.value, models.FilterCondition{Operator: tc.operator, Value: tc.operand})
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestMatchItem(t *testing.T) {
	root := group(models.FilterLogicAnd,
		cond("status", models.OperatorEquals, "active"),
		cond("amount", models.OperatorGreaterThan, 10.0),
	)

	t.Run("should match an item satisfying every condition", func(t *testing.T) {
		assert.True(t, MatchItem(map[string]any{"status": "active", "amount": 50.0}, root))
	})

	t.Run("should reject an item failing one condition", func(t *testing.T) {
		assert.False(t, MatchItem(map[string]any{"status": "active", "amount": 5.0}, root))
	})

	t.Run("should resolve nested paths inside the item", func(t *testing.T) {
		nested := group(models.FilterLogicAnd, cond("customer.tier", models.OperatorEquals, "gold"))
		item := map[string]any{"customer": map[string]any{"tier": "gold"}}
		assert.True(t, MatchItem(item, nested))
	})

	t.Run("should compare missing fields as nil", func(t *testing.T) {
		empty := group(models.FilterLogicAnd, cond("missing", models.OperatorIsEmpty, nil))
		assert.True(t, MatchItem(map[string]any{}, empty))
	})
}

func TestIsConditionMet(t *testing.T) {
	step := models.TransformationStep{Type: models.TransformationUppercase}
	assert.True(t, IsConditionMet("x", step))

	step.Condition = &models.TransformationCondition{Enabled: false, Root: group(models.FilterLogicAnd, cond("", models.OperatorEquals, "y"))}
	assert.True(t, IsConditionMet("x", step))

	step.Condition.Enabled = true
	assert.False(t, IsConditionMet("x", step))
	assert.True(t, IsConditionMet("y", step))

	step.Condition.Root = nil
	assert.True(t, IsConditionMet("x", step))
}

func TestValidate(t *testing.T) {
	t.Run("should accept a well formed group", func(t *testing.T) {
		root := group(models.FilterLogicOr,
			cond("a", models.OperatorEquals, "1"),
			models.GroupItem(*group(models.FilterLogicAnd, cond("b", models.OperatorIsTrue, nil))),
		)
		assert.NoError(t, Validate(root))
		assert.NoError(t, Validate(nil))
	})

	t.Run("should reject unknown operators", func(t *testing.T) {
		root := group(models.FilterLogicAnd,
			models.GroupItem(*group(models.FilterLogicAnd, cond("b", "greaterish", 1.0))),
		)
		err := Validate(root)
		assert.EqualError(t, err, "root.children[0].children[0]: unknown operator 'greaterish'")
	})

	t.Run("should reject unknown logic", func(t *testing.T) {
		assert.EqualError(t, Validate(group("xor")), "root: unknown logic 'xor'")
	})
}
