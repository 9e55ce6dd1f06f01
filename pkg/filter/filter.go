// Package filter evaluates AND/OR condition trees.
//
// Evaluate compares every leaf against one scalar value, which is how a
// transformation step is gated. MatchItem resolves each leaf's field path
// inside an array item first, which is how array filters and condition
// selectors pick items.
package filter

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/utils"
)

// Evaluate reports whether value satisfies group. A nil or empty group is
// satisfied.
func Evaluate(value any, group *models.FilterGroup) bool {
	return evaluateGroup(group, func(models.FilterCondition) any { return value })
}

// MatchItem reports whether an array item satisfies group. Each condition's
// Field is looked up inside item; a missing path compares as nil.
func MatchItem(item any, group *models.FilterGroup) bool {
	return evaluateGroup(group, func(c models.FilterCondition) any {
		if c.Field == "" {
			return item
		}
		return utils.GetValueByPath(item, utils.StripItemMarkers(c.Field))
	})
}

// IsConditionMet reports whether a step should run for the given input.
// Steps without an enabled condition always run.
func IsConditionMet(value any, step models.TransformationStep) bool {
	if !step.HasActiveCondition() {
		return true
	}
	return Evaluate(value, step.Condition.Root)
}

type resolver func(models.FilterCondition) any

func evaluateGroup(group *models.FilterGroup, resolve resolver) bool {
	if group == nil || len(group.Children) == 0 {
		return true
	}

	if group.Logic == models.FilterLogicAnd {
		for _, child := range group.Children {
			if !evaluateItem(child, resolve) {
				return false
			}
		}
		return true
	}

	for _, child := range group.Children {
		if evaluateItem(child, resolve) {
			return true
		}
	}
	return false
}

func evaluateItem(item models.FilterItem, resolve resolver) bool {
	switch item.Kind {
	case models.FilterItemGroup:
		return evaluateGroup(item.Group, resolve)
	case models.FilterItemCondition:
		if item.Condition == nil {
			return true
		}
		return EvaluateCondition(resolve(*item.Condition), *item.Condition)
	}
	return true
}

// EvaluateCondition applies a single leaf operator. Unknown operators are
// satisfied; use Validate to reject them up front.
func EvaluateCondition(value any, condition models.FilterCondition) bool {
	strValue := utils.ToString(value)
	condValue := utils.ToString(condition.Value)

	switch condition.Operator {
	case models.OperatorEquals:
		return strValue == condValue
	case models.OperatorNotEquals:
		return strValue != condValue
	case models.OperatorContains:
		return strings.Contains(strValue, condValue)
	case models.OperatorNotContains:
		return !strings.Contains(strValue, condValue)
	case models.OperatorStartsWith:
		return strings.HasPrefix(strValue, condValue)
	case models.OperatorEndsWith:
		return strings.HasSuffix(strValue, condValue)
	case models.OperatorIsEmpty:
		return value == nil || strValue == ""
	case models.OperatorIsNotEmpty:
		return value != nil && strValue != ""
	case models.OperatorGreaterThan:
		return compareNumbers(value, condition.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compareNumbers(value, condition.Value, func(a, b float64) bool { return a < b })
	case models.OperatorGreaterThanOrEqual:
		return compareNumbers(value, condition.Value, func(a, b float64) bool { return a >= b })
	case models.OperatorLessThanOrEqual:
		return compareNumbers(value, condition.Value, func(a, b float64) bool { return a <= b })
	case models.OperatorIsTrue:
		b, ok := value.(bool)
		return (ok && b) || strings.EqualFold(strValue, "true")
	case models.OperatorIsFalse:
		b, ok := value.(bool)
		return (ok && !b) || strings.EqualFold(strValue, "false")
	}

	return true
}

func compareNumbers(left, right any, cmp func(a, b float64) bool) bool {
	a, ok := utils.ToNumber(left)
	if !ok {
		return false
	}
	b, ok := utils.ToNumber(right)
	if !ok {
		return false
	}
	return cmp(a, b)
}

// Validate walks a group and reports unknown logic values, operators and
// item kinds. The first problem found is returned.
func Validate(group *models.FilterGroup) error {
	if group == nil {
		return nil
	}
	return validateGroup(*group, "root")
}

func validateGroup(group models.FilterGroup, at string) error {
	if group.Logic != models.FilterLogicAnd && group.Logic != models.FilterLogicOr {
		return fmt.Errorf("%s: unknown logic '%s'", at, group.Logic)
	}

	for i, child := range group.Children {
		childAt := fmt.Sprintf("%s.children[%d]", at, i)
		switch child.Kind {
		case models.FilterItemGroup:
			if child.Group == nil {
				return fmt.Errorf("%s: group is empty", childAt)
			}
			if err := validateGroup(*child.Group, childAt); err != nil {
				return err
			}
		case models.FilterItemCondition:
			if child.Condition == nil {
				return fmt.Errorf("%s: condition is empty", childAt)
			}
			if !child.Condition.Operator.IsValid() {
				return fmt.Errorf("%s: unknown operator '%s'", childAt, child.Condition.Operator)
			}
		default:
			return fmt.Errorf("%s: unknown item type '%s'", childAt, child.Kind)
		}
	}

	return nil
}
