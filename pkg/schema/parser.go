// Package schema turns JSON-Schema (or YAML) documents into field trees.
//
// References may point at local `$defs`/`definitions` or at models registered
// on the Parser, using any of the forms `#/$defs/X`, `#/definitions/X`, `#X`
// or `X`. A reference that does not resolve is a hard error.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Ramsey-B/trellis/pkg/errors"
	"github.com/Ramsey-B/trellis/pkg/models"
)

const DefaultSchemaName = "Schema"

// Parser parses schema documents against a registry of shared models.
type Parser struct {
	mu     sync.RWMutex
	models map[string]*node
}

func NewParser() *Parser {
	return &Parser{models: make(map[string]*node)}
}

// RegisterModel makes a JSON or YAML model document resolvable by name from
// any schema parsed afterwards.
func (p *Parser) RegisterModel(name string, document []byte) error {
	n, err := decode(document)
	if err != nil {
		return errors.NewSchemaError(name, err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.models[name] = n

	return nil
}

func (p *Parser) ClearRegistry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.models = make(map[string]*node)
}

// Parse parses a JSON or YAML document. The schema title wins over name.
func (p *Parser) Parse(document []byte, name string) (models.Schema, error) {
	n, err := decode(document)
	if err != nil {
		return models.Schema{}, errors.NewSchemaError(name, err.Error())
	}
	return p.parse(n, name)
}

// ParseValue parses an already decoded document. Properties are ordered by
// name because map order is not preserved.
func (p *Parser) ParseValue(document map[string]any, name string) (models.Schema, error) {
	n, err := fromValue(document)
	if err != nil {
		return models.Schema{}, errors.NewSchemaError(name, err.Error())
	}
	return p.parse(n, name)
}

func (p *Parser) parse(doc *node, name string) (models.Schema, error) {
	if name == "" {
		name = DefaultSchemaName
	}
	if doc.Title != "" {
		name = doc.Title
	}

	state := &parseState{
		schema:    name,
		registry:  p.registry(doc.Defs),
		expanding: map[string]bool{},
	}

	var root *node
	switch {
	case doc.Ref != "":
		resolved, modelName, err := state.resolveRef(doc.Ref)
		if err != nil {
			return models.Schema{}, err
		}
		state.expanding[modelName] = true
		root = resolved
	case doc.Properties != nil:
		root = doc
	default:
		return models.Schema{}, errors.NewSchemaError(name, "schema must have either $ref or properties")
	}

	fields, err := state.buildFields(root, "", nil)
	if err != nil {
		return models.Schema{}, err
	}

	if len(doc.Exclude) > 0 {
		fields = applyExclude(fields, doc.Exclude)
	}
	if len(doc.Include) > 0 {
		fields = applyInclude(fields, doc.Include)
	}

	return models.Schema{Name: name, Fields: fields}, nil
}

// registry layers local definitions over the registered models.
func (p *Parser) registry(local map[string]*node) map[string]*node {
	p.mu.RLock()
	defer p.mu.RUnlock()

	combined := make(map[string]*node, len(p.models)+len(local))
	for k, v := range p.models {
		combined[k] = v
	}
	for k, v := range local {
		combined[k] = v
	}
	return combined
}

type arrayContext struct {
	parentArrayPath string
}

type parseState struct {
	schema    string
	registry  map[string]*node
	counter   int
	expanding map[string]bool
}

func refName(ref string) string {
	switch {
	case strings.HasPrefix(ref, "#/$defs/"):
		return strings.TrimPrefix(ref, "#/$defs/")
	case strings.HasPrefix(ref, "#/definitions/"):
		return strings.TrimPrefix(ref, "#/definitions/")
	case strings.HasPrefix(ref, "#"):
		return strings.TrimPrefix(ref, "#")
	}
	return ref
}

// resolveRef follows a chain of references to a concrete schema and returns
// it with the name of the last model in the chain.
func (s *parseState) resolveRef(ref string) (*node, string, error) {
	seen := map[string]bool{}
	for {
		modelName := refName(ref)
		if seen[modelName] {
			return nil, "", errors.NewSchemaError(s.schema, fmt.Sprintf("circular reference '%s'", ref))
		}
		seen[modelName] = true

		resolved, ok := s.registry[modelName]
		if !ok {
			return nil, "", errors.NewUnresolvedRefError(s.schema, ref)
		}
		if resolved.Ref == "" {
			return resolved, modelName, nil
		}
		ref = resolved.Ref
	}
}

func (s *parseState) buildFields(n *node, parentPath string, ctx *arrayContext) ([]models.FieldNode, error) {
	fields := make([]models.FieldNode, 0, len(n.Properties))
	for _, prop := range n.Properties {
		path := prop.Name
		if parentPath != "" {
			path = parentPath + "." + prop.Name
		}

		field, err := s.buildField(prop.Name, prop.Schema, path, ctx)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (s *parseState) buildField(name string, n *node, path string, ctx *arrayContext) (models.FieldNode, error) {
	resolved := n
	modelName := ""
	if n.Ref != "" {
		base, refModel, err := s.resolveRef(n.Ref)
		if err != nil {
			return models.FieldNode{}, err
		}
		resolved = merge(base, n)
		modelName = refModel
	}

	s.counter++
	field := models.FieldNode{
		ID:          fmt.Sprintf("field-%d-%s", s.counter, name),
		Name:        name,
		Type:        mapType(resolved),
		Path:        path,
		Description: resolved.Description,
	}
	if ctx != nil {
		field.IsArrayItem = true
		field.ParentArrayPath = ctx.parentArrayPath
	}

	// a model that references itself stops expanding at the second level
	if modelName != "" {
		if s.expanding[modelName] {
			return field, nil
		}
		s.expanding[modelName] = true
		defer delete(s.expanding, modelName)
	}

	switch {
	case field.Type == models.FieldTypeObject && resolved.Properties != nil:
		children, err := s.buildFields(resolved, path, ctx)
		if err != nil {
			return models.FieldNode{}, err
		}
		field.Children = children
	case field.Type == models.FieldTypeArray && resolved.Items != nil:
		items := resolved.Items
		itemModel := ""
		if items.Ref != "" {
			base, refModel, err := s.resolveRef(items.Ref)
			if err != nil {
				return models.FieldNode{}, err
			}
			items = base
			itemModel = refModel
		}
		if items.Properties == nil {
			return field, nil
		}
		if itemModel != "" {
			if s.expanding[itemModel] {
				return field, nil
			}
			s.expanding[itemModel] = true
			defer delete(s.expanding, itemModel)
		}

		children, err := s.buildFields(items, path+"[]", &arrayContext{parentArrayPath: path})
		if err != nil {
			return models.FieldNode{}, err
		}
		field.Children = children
	}

	return field, nil
}

// merge overlays the keys set on a referencing property onto the referenced
// schema.
func merge(base, override *node) *node {
	result := *base
	result.Ref = ""
	if override.Type != "" {
		result.Type = override.Type
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Title != "" {
		result.Title = override.Title
	}
	if override.Description != "" {
		result.Description = override.Description
	}
	if override.Properties != nil {
		result.Properties = override.Properties
	}
	if override.Items != nil {
		result.Items = override.Items
	}
	return &result
}

func mapType(n *node) models.FieldType {
	switch n.Format {
	case "date", "date-time", "time":
		return models.FieldTypeDate
	}

	switch n.Type {
	case "string":
		return models.FieldTypeString
	case "number", "integer":
		return models.FieldTypeNumber
	case "boolean":
		return models.FieldTypeBoolean
	case "object":
		return models.FieldTypeObject
	case "array":
		return models.FieldTypeArray
	}

	if n.Properties != nil {
		return models.FieldTypeObject
	}
	return models.FieldTypeString
}

// CreateSchemaFromRef builds a document that parses to the referenced model
// with optional include/exclude filters.
func CreateSchemaFromRef(ref, title string, include, exclude []string) map[string]any {
	doc := map[string]any{"$ref": ref}
	if title != "" {
		doc["title"] = title
	}
	if len(include) > 0 {
		doc["include"] = include
	}
	if len(exclude) > 0 {
		doc["exclude"] = exclude
	}
	return doc
}
