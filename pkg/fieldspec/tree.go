package fieldspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type treeKind int

const (
	treeNull treeKind = iota
	treeScalar
	treeMap
	treeList
)

// tree is an order-preserving document node. Maps keep duplicate keys so the
// checker can report them instead of silently keeping the last one.
type tree struct {
	kind   treeKind
	keys   []string
	values []*tree
	scalar any
}

func (t *tree) lookup(key string) (*tree, bool) {
	if t == nil || t.kind != treeMap {
		return nil, false
	}
	for i, k := range t.keys {
		if k == key {
			return t.values[i], true
		}
	}
	return nil, false
}

// plain converts the node into the generic encoding/json shape. Duplicate keys
// collapse to the last value.
func (t *tree) plain() any {
	if t == nil {
		return nil
	}
	switch t.kind {
	case treeScalar:
		return t.scalar
	case treeMap:
		out := make(map[string]any, len(t.keys))
		for i, key := range t.keys {
			out[key] = t.values[i].plain()
		}
		return out
	case treeList:
		out := make([]any, len(t.values))
		for i, child := range t.values {
			out[i] = child.plain()
		}
		return out
	default:
		return nil
	}
}

func decodeTree(data []byte) (*tree, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("document is empty")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return decodeJSONTree(trimmed)
	}
	return decodeYAMLTree(trimmed)
}

func decodeJSONTree(data []byte) (*tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := readJSONNode(dec)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: unexpected data after document")
	}
	return root, nil
}

func readJSONNode(dec *json.Decoder) (*tree, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch value := tok.(type) {
	case json.Delim:
		switch value {
		case '{':
			node := &tree{kind: treeMap}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				child, err := readJSONNode(dec)
				if err != nil {
					return nil, err
				}
				node.keys = append(node.keys, key)
				node.values = append(node.values, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &tree{kind: treeList}
			for dec.More() {
				child, err := readJSONNode(dec)
				if err != nil {
					return nil, err
				}
				node.values = append(node.values, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", value)
		}
	case nil:
		return &tree{kind: treeNull}, nil
	case json.Number:
		number, err := value.Float64()
		if err != nil {
			return nil, err
		}
		return &tree{kind: treeScalar, scalar: number}, nil
	default:
		return &tree{kind: treeScalar, scalar: value}, nil
	}
}

func decodeYAMLTree(data []byte) (*tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("decode yaml: document is empty")
	}
	return fromYAMLNode(doc.Content[0])
}

func fromYAMLNode(node *yaml.Node) (*tree, error) {
	switch node.Kind {
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, errors.New("decode yaml: dangling alias")
		}
		return fromYAMLNode(node.Alias)
	case yaml.MappingNode:
		out := &tree{kind: treeMap}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			child, err := fromYAMLNode(valueNode)
			if err != nil {
				return nil, err
			}
			out.keys = append(out.keys, keyNode.Value)
			out.values = append(out.values, child)
		}
		return out, nil
	case yaml.SequenceNode:
		out := &tree{kind: treeList}
		for _, item := range node.Content {
			child, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			out.values = append(out.values, child)
		}
		return out, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return &tree{kind: treeNull}, nil
		}
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode yaml: line %d: %w", node.Line, err)
		}
		return &tree{kind: treeScalar, scalar: normalizeNumber(value)}, nil
	default:
		return nil, fmt.Errorf("decode yaml: unsupported node kind %d", node.Kind)
	}
}

func normalizeNumber(value any) any {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return value
	}
}
