package labels

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// decodeYAML reads a document of the form
//
//	head: {paperwidth: 210, paperheight: 297, bubblewidth: 4, bubbleheight: 4}
//	groups:
//	  ans:
//	    "1:A": "30.5,200"
//	    "1:B": [36.5, 200]
//
// Mapping order is preserved through yaml.Node.
func decodeYAML(r io.Reader) (*rawDatabase, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Err: err}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &FormatError{Err: errors.New("document is not a mapping")}
	}
	root := doc.Content[0]
	raw := &rawDatabase{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		switch key {
		case HeadGroup:
			items, err := yamlHead(val)
			if err != nil {
				return nil, err
			}
			raw.head = items
		case "groups":
			groups, err := yamlGroups(val)
			if err != nil {
				return nil, err
			}
			raw.groups = groups
		}
	}
	return raw, nil
}

func yamlHead(n *yaml.Node) ([]rawItem, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &FormatError{Group: HeadGroup, Err: errors.New("head is not a mapping")}
	}
	var items []rawItem
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		v, err := yamlScalar(n.Content[i+1])
		if err != nil {
			return nil, &FormatError{Group: HeadGroup, Key: name, Err: err}
		}
		items = append(items, rawItem{name: name, value: v})
	}
	return items, nil
}

func yamlScalar(n *yaml.Node) (Value, error) {
	if n.Kind != yaml.ScalarNode {
		return Value{}, fmt.Errorf("expected a scalar at line %d", n.Line)
	}
	switch n.Tag {
	case "!!int":
		i, err := strconv.Atoi(n.Value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: i}, nil
	case "!!float":
		return Coerce("float", n.Value)
	default:
		return Coerce("", n.Value)
	}
}

func yamlGroups(n *yaml.Node) ([]rawGroup, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &FormatError{Err: errors.New("groups is not a mapping")}
	}
	var groups []rawGroup
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		body := n.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, &FormatError{Group: name, Err: errors.New("group is not a mapping")}
		}
		g := rawGroup{name: name}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			v, err := yamlCoord(body.Content[j+1])
			if err != nil {
				return nil, &FormatError{Group: name, Key: key, Err: err}
			}
			g.items = append(g.items, rawItem{name: key, value: v})
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func yamlCoord(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Coerce("coord", n.Value)
	case yaml.SequenceNode:
		if len(n.Content) != 2 {
			return Value{}, fmt.Errorf("%w: want 2 components, got %d", ErrBadCoord, len(n.Content))
		}
		x, err := strconv.ParseFloat(n.Content[0].Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrBadCoord, n.Content[0].Value)
		}
		y, err := strconv.ParseFloat(n.Content[1].Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrBadCoord, n.Content[1].Value)
		}
		return Value{Kind: KindCoord, X: x, Y: y}, nil
	default:
		return Value{}, fmt.Errorf("%w at line %d", ErrBadCoord, n.Line)
	}
}

// WriteYAML encodes db in the YAML layout, preserving group and entry order.
func (db *Database) WriteYAML(w io.Writer) error {
	scalar := func(v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Value: v} }
	number := func(f float64) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(f, 'g', -1, 64)}
	}

	head := &yaml.Node{Kind: yaml.MappingNode}
	head.Content = append(head.Content,
		scalar("paperwidth"), number(db.Head.PaperWidth),
		scalar("paperheight"), number(db.Head.PaperHeight),
		scalar("bubblewidth"), number(db.Head.BubbleWidth),
		scalar("bubbleheight"), number(db.Head.BubbleHeight),
	)
	groups := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range db.Groups {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range g.Entries {
			coord := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			coord.Content = append(coord.Content, number(e.X), number(e.Y))
			body.Content = append(body.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: e.Key, Style: yaml.DoubleQuotedStyle}, coord)
		}
		groups.Content = append(groups.Content, scalar(g.Name), body)
	}
	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar(HeadGroup), head, scalar("groups"), groups)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode label database: %w", err)
	}
	return enc.Close()
}
