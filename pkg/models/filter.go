package models

import (
	"encoding/json"
	"fmt"
)

type FilterLogic string

const (
	FilterLogicAnd FilterLogic = "and"
	FilterLogicOr  FilterLogic = "or"
)

type FilterOperator string

const (
	OperatorEquals             FilterOperator = "equals"
	OperatorNotEquals          FilterOperator = "notEquals"
	OperatorContains           FilterOperator = "contains"
	OperatorNotContains        FilterOperator = "notContains"
	OperatorStartsWith         FilterOperator = "startsWith"
	OperatorEndsWith           FilterOperator = "endsWith"
	OperatorGreaterThan        FilterOperator = "greaterThan"
	OperatorLessThan           FilterOperator = "lessThan"
	OperatorGreaterThanOrEqual FilterOperator = "greaterThanOrEqual"
	OperatorLessThanOrEqual    FilterOperator = "lessThanOrEqual"
	OperatorIsEmpty            FilterOperator = "isEmpty"
	OperatorIsNotEmpty         FilterOperator = "isNotEmpty"
	OperatorIsTrue             FilterOperator = "isTrue"
	OperatorIsFalse            FilterOperator = "isFalse"
)

var FilterOperators = []FilterOperator{
	OperatorEquals, OperatorNotEquals,
	OperatorContains, OperatorNotContains, OperatorStartsWith, OperatorEndsWith,
	OperatorGreaterThan, OperatorLessThan, OperatorGreaterThanOrEqual, OperatorLessThanOrEqual,
	OperatorIsEmpty, OperatorIsNotEmpty,
	OperatorIsTrue, OperatorIsFalse,
}

func (o FilterOperator) IsValid() bool {
	for _, op := range FilterOperators {
		if op == o {
			return true
		}
	}
	return false
}

// FilterItemKind is the discriminant of FilterItem.
type FilterItemKind string

const (
	FilterItemCondition FilterItemKind = "condition"
	FilterItemGroup     FilterItemKind = "group"
)

// FilterCondition is a leaf comparison. Field is a path inside an array item
// and is only consulted when filtering items; gating a transformation compares
// against the step input directly.
type FilterCondition struct {
	ID        string         `json:"id"`
	Field     string         `json:"field"`
	FieldName string         `json:"fieldName,omitempty"`
	Operator  FilterOperator `json:"operator"`
	Value     any            `json:"value"`
	ValueType string         `json:"valueType,omitempty"`
}

type FilterGroup struct {
	ID       string       `json:"id"`
	Logic    FilterLogic  `json:"logic"`
	Children []FilterItem `json:"children"`
}

// FilterItem is either a condition or a group. Exactly one of Condition and
// Group is set, as named by Kind.
type FilterItem struct {
	Kind      FilterItemKind
	Condition *FilterCondition
	Group     *FilterGroup
}

func ConditionItem(c FilterCondition) FilterItem {
	return FilterItem{Kind: FilterItemCondition, Condition: &c}
}

func GroupItem(g FilterGroup) FilterItem {
	return FilterItem{Kind: FilterItemGroup, Group: &g}
}

type conditionJSON struct {
	Type FilterItemKind `json:"type"`
	FilterCondition
}

type groupJSON struct {
	Type     FilterItemKind `json:"type"`
	ID       string         `json:"id"`
	Logic    FilterLogic    `json:"logic"`
	Children []FilterItem   `json:"children"`
}

func (g FilterGroup) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []FilterItem{}
	}
	return json.Marshal(groupJSON{Type: FilterItemGroup, ID: g.ID, Logic: g.Logic, Children: children})
}

func (g *FilterGroup) UnmarshalJSON(data []byte) error {
	var raw groupJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != FilterItemGroup {
		return fmt.Errorf("expected filter item of type 'group' but got '%s'", raw.Type)
	}
	g.ID = raw.ID
	g.Logic = raw.Logic
	g.Children = raw.Children
	if g.Children == nil {
		g.Children = []FilterItem{}
	}
	return nil
}

func (i FilterItem) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case FilterItemCondition:
		if i.Condition == nil {
			return nil, fmt.Errorf("filter item of type 'condition' has no condition")
		}
		return json.Marshal(conditionJSON{Type: FilterItemCondition, FilterCondition: *i.Condition})
	case FilterItemGroup:
		if i.Group == nil {
			return nil, fmt.Errorf("filter item of type 'group' has no group")
		}
		return json.Marshal(*i.Group)
	}
	return nil, fmt.Errorf("unknown filter item type '%s'", i.Kind)
}

func (i *FilterItem) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type FilterItemKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch probe.Type {
	case FilterItemCondition:
		var c conditionJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*i = ConditionItem(c.FilterCondition)
		return nil
	case FilterItemGroup:
		var g FilterGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*i = GroupItem(g)
		return nil
	}

	return fmt.Errorf("unknown filter item type '%s'", probe.Type)
}

// ArrayFilter restricts which source items an ArrayMapping iterates.
type ArrayFilter struct {
	Enabled bool         `json:"enabled"`
	Root    *FilterGroup `json:"root,omitempty"`
}

// IsActive reports whether the filter should be applied at all. A disabled
// filter or one without conditions keeps every item.
func (f *ArrayFilter) IsActive() bool {
	return f != nil && f.Enabled && f.Root != nil && len(f.Root.Children) > 0
}
