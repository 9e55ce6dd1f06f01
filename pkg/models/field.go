package models

// FieldNode is one typed, path-addressed element of a parsed schema tree.
//
// Nodes are borrowed by mappings: identity is the ID, never deep equality.
// IsArrayItem is set for every descendant of an array's item schema and
// ParentArrayPath then holds the path of the closest enclosing array.
type FieldNode struct {
	ID              string      `json:"id" validate:"required"`
	Name            string      `json:"name"`
	Type            FieldType   `json:"type" validate:"required,oneof=string number boolean object array date"`
	Path            string      `json:"path"`
	Description     string      `json:"description,omitempty"`
	Children        []FieldNode `json:"children,omitempty" validate:"omitempty,dive"`
	IsArrayItem     bool        `json:"isArrayItem,omitempty"`
	ParentArrayPath string      `json:"parentArrayPath,omitempty"`
}

// ParentPath returns the path with its last segment stripped, or "" for a
// top level field.
func (f FieldNode) ParentPath() string {
	for i := len(f.Path) - 1; i >= 0; i-- {
		if f.Path[i] == '.' {
			return f.Path[:i]
		}
	}
	return ""
}

// Schema is the output of schema parsing: a named forest of field nodes.
type Schema struct {
	Name   string      `json:"name"`
	Fields []FieldNode `json:"fields"`
}
