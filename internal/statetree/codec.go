package statetree

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Encode writes d as a YAML document.
func Encode(w io.Writer, d *Dict) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(d)); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML document whose root is a mapping.
func Decode(r io.Reader) (*Dict, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewDict(), nil
		}
		return nil, fmt.Errorf("decode state: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	value, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	dict, ok := value.(*Dict)
	if !ok {
		return nil, fmt.Errorf("decode state: root is %T, want mapping", value)
	}
	return dict, nil
}

func toNode(value any) *yaml.Node {
	switch v := value.(type) {
	case *Dict:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range v.keys {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				toNode(v.values[key]))
		}
		return node
	case *List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			node.Content = append(node.Content, toNode(item))
		}
		return node
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v, 'g', -1, 64)}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func fromNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		d := NewDict()
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := fromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue
			}
			d.set(node.Content[i].Value, value)
		}
		return d, nil
	case yaml.SequenceNode:
		l := NewList()
		for _, child := range node.Content {
			value, err := fromNode(child)
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue
			}
			l.items = append(l.items, value)
		}
		return l, nil
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.ScalarNode:
		return scalar(node)
	default:
		return nil, fmt.Errorf("decode state: unsupported node kind %d at line %d", node.Kind, node.Line)
	}
}

func scalar(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!int":
		v, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("decode state: line %d: %w", node.Line, err)
		}
		return v, nil
	case "!!float":
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("decode state: line %d: %w", node.Line, err)
		}
		return v, nil
	case "!!bool":
		var v bool
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode state: line %d: %w", node.Line, err)
		}
		return v, nil
	default:
		return node.Value, nil
	}
}
