// Package fields provides read-only helpers over a parsed schema tree.
//
// # Overview
//
// A schema parses into a forest of models.FieldNode. Mappings only ever hold
// borrowed copies of those nodes, so every lookup here is keyed by ID (or by
// the unique Path) and never by deep equality.
//
// # Array items
//
// Children of an array node describe one item. Their paths are scoped under
// the array path plus the `[]` marker and carry IsArrayItem/ParentArrayPath:
//
//	{ID: "field-1-orders", Path: "orders", Type: array, Children: [
//	  {ID: "field-2-total", Path: "orders[].total", IsArrayItem: true, ParentArrayPath: "orders"},
//	]}
//
// # ID vs Path
//
// ID: stable identifier referenced from mappings (e.g. "field-3-name")
// Path: location of the value in data (e.g. "user.profile.name")
package fields

import (
	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/utils"
)

// Fields is a forest of schema nodes.
type Fields []models.FieldNode

// WalkFunc is called for every node in depth-first order. parent is nil for
// roots. Returning false stops the walk.
type WalkFunc func(field models.FieldNode, parent *models.FieldNode) bool

func (f Fields) Walk(fn WalkFunc) {
	walk(f, nil, fn)
}

func walk(nodes []models.FieldNode, parent *models.FieldNode, fn WalkFunc) bool {
	for i := range nodes {
		if !fn(nodes[i], parent) {
			return false
		}
		if len(nodes[i].Children) > 0 && !walk(nodes[i].Children, &nodes[i], fn) {
			return false
		}
	}
	return true
}

func (f Fields) GetField(id string) (models.FieldNode, error) {
	var found *models.FieldNode
	f.Walk(func(field models.FieldNode, _ *models.FieldNode) bool {
		if field.ID == id {
			found = &field
			return false
		}
		return true
	})

	if found == nil {
		return models.FieldNode{}, errors.NewMappingError("field not found").AddField(id)
	}

	return *found, nil
}

func (f Fields) GetFieldByPath(path string) (models.FieldNode, error) {
	var found *models.FieldNode
	f.Walk(func(field models.FieldNode, _ *models.FieldNode) bool {
		if field.Path == path {
			found = &field
			return false
		}
		return true
	})

	if found == nil {
		return models.FieldNode{}, errors.NewMappingError("field not found").AddField(path)
	}

	return *found, nil
}

// GetFieldPath returns the data path of a field, without item markers.
func (f Fields) GetFieldPath(id string) (string, error) {
	field, err := f.GetField(id)
	if err != nil {
		return "", err
	}
	return utils.StripItemMarkers(field.Path), nil
}

// Flatten lists every node in depth-first order.
func (f Fields) Flatten() Fields {
	result := Fields{}
	f.Walk(func(field models.FieldNode, _ *models.FieldNode) bool {
		result = append(result, field)
		return true
	})
	return result
}

// Leaves lists the nodes without children, the ones a user can connect
// scalar values to.
func (f Fields) Leaves() Fields {
	result := Fields{}
	f.Walk(func(field models.FieldNode, _ *models.FieldNode) bool {
		if len(field.Children) == 0 && !field.Type.IsContainer() {
			result = append(result, field)
		}
		return true
	})
	return result
}

// GetPathToField returns the chain of nodes from a root down to the field,
// inclusive.
func (f Fields) GetPathToField(id string) (Fields, error) {
	for _, root := range f {
		if chain, ok := pathTo(root, id); ok {
			return chain, nil
		}
	}

	return nil, errors.NewMappingErrorf("path to field '%s' not found", id).AddField(id)
}

func pathTo(node models.FieldNode, id string) (Fields, bool) {
	if node.ID == id {
		return Fields{node}, true
	}

	for _, child := range node.Children {
		if chain, ok := pathTo(child, id); ok {
			return append(Fields{node}, chain...), true
		}
	}

	return nil, false
}

// ArrayItemFields returns the nodes scoped directly or transitively under
// the array at arrayPath.
func (f Fields) ArrayItemFields(arrayPath string) Fields {
	result := Fields{}
	f.Walk(func(field models.FieldNode, _ *models.FieldNode) bool {
		if field.IsArrayItem && isWithinArray(field, arrayPath) {
			result = append(result, field)
		}
		return true
	})
	return result
}

func isWithinArray(field models.FieldNode, arrayPath string) bool {
	if field.ParentArrayPath == arrayPath {
		return true
	}
	prefix := arrayPath + utils.ItemMarker
	return len(field.Path) > len(prefix) && field.Path[:len(prefix)] == prefix
}
