package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// node is the subset of JSON-Schema the parser understands. Properties keep
// their document order so field ids and tree order are stable.
type node struct {
	Ref         string
	Type        string
	Format      string
	Title       string
	Description string
	Properties  []property
	Items       *node
	Defs        map[string]*node
	Include     []string
	Exclude     []string
}

type property struct {
	Name   string
	Schema *node
}

func (n *node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema must be an object", value.Line)
	}

	var definitions map[string]*node
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, v := value.Content[i].Value, value.Content[i+1]

		switch key {
		case "$ref":
			n.Ref = v.Value
		case "type":
			if v.Kind == yaml.SequenceNode {
				if len(v.Content) > 0 {
					n.Type = v.Content[0].Value
				}
			} else {
				n.Type = v.Value
			}
		case "format":
			n.Format = v.Value
		case "title":
			n.Title = v.Value
		case "description":
			n.Description = v.Value
		case "properties":
			props, err := decodeProperties(v)
			if err != nil {
				return err
			}
			n.Properties = props
		case "items":
			// boolean and tuple item schemas carry no fields
			if v.Kind == yaml.MappingNode {
				n.Items = &node{}
				if err := v.Decode(n.Items); err != nil {
					return err
				}
			}
		case "$defs":
			defs, err := decodeDefinitions(v)
			if err != nil {
				return err
			}
			n.Defs = defs
		case "definitions":
			defs, err := decodeDefinitions(v)
			if err != nil {
				return err
			}
			definitions = defs
		case "include":
			if err := v.Decode(&n.Include); err != nil {
				return err
			}
		case "exclude":
			if err := v.Decode(&n.Exclude); err != nil {
				return err
			}
		}
	}

	if n.Defs == nil {
		n.Defs = definitions
	}

	return nil
}

func decodeProperties(v *yaml.Node) ([]property, error) {
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: properties must be an object", v.Line)
	}

	props := make([]property, 0, len(v.Content)/2)
	for i := 0; i+1 < len(v.Content); i += 2 {
		// boolean property schemas carry no type
		if v.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		child := &node{}
		if err := v.Content[i+1].Decode(child); err != nil {
			return nil, err
		}
		props = append(props, property{Name: v.Content[i].Value, Schema: child})
	}
	return props, nil
}

func decodeDefinitions(v *yaml.Node) (map[string]*node, error) {
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: definitions must be an object", v.Line)
	}

	defs := make(map[string]*node, len(v.Content)/2)
	for i := 0; i+1 < len(v.Content); i += 2 {
		if v.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		child := &node{}
		if err := v.Content[i+1].Decode(child); err != nil {
			return nil, err
		}
		defs[v.Content[i].Value] = child
	}
	return defs, nil
}

// decode reads a JSON or YAML document. JSON goes through a token decoder so
// key order survives.
func decode(data []byte) (*node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}

	var root yaml.Node
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		doc, err := jsonToNode(dec)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON schema: %w", err)
		}
		root = *doc
	} else if err := yaml.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML schema: %w", err)
	}

	target := &root
	if target.Kind == yaml.DocumentNode && len(target.Content) > 0 {
		target = target.Content[0]
	}

	n := &node{}
	if err := target.Decode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// fromValue converts an already decoded document. Map key order is lost, so
// properties come out sorted.
func fromValue(value any) (*node, error) {
	var doc yaml.Node
	if err := doc.Encode(value); err != nil {
		return nil, err
	}

	n := &node{}
	if err := doc.Decode(n); err != nil {
		return nil, err
	}
	return n, nil
}

func jsonToNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := jsonToNode(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				value, err := jsonToNode(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}, nil
	case json.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: t.String()}, nil
	case bool:
		if t {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	return nil, fmt.Errorf("unexpected token %v", tok)
}
