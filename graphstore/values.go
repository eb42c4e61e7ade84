package graphstore

import "encoding/json"

// Node is a driver-independent graph node.
// It encodes to JSON as its property map, matching what callers see when a
// query returns whole nodes.
type Node struct {
	ElementID string
	Labels    []string
	Props     map[string]any
}

// FirstLabel returns the node's first label, or "" for an unlabeled node.
func (n Node) FirstLabel() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// MarshalJSON encodes the node as its properties.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Props == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n.Props)
}

// Relationship is a driver-independent typed edge.
type Relationship struct {
	ElementID      string
	StartElementID string
	EndElementID   string
	Type           string
	Props          map[string]any
}

// MarshalJSON encodes the relationship as its properties plus its type.
func (r Relationship) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Props)+1)
	for k, v := range r.Props {
		out[k] = v
	}
	out["type"] = r.Type
	return json.Marshal(out)
}

// Path is an alternating sequence of nodes and relationships.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}

// MarshalJSON encodes the path as node, relationship, node, ... in walk order.
func (p Path) MarshalJSON() ([]byte, error) {
	seq := make([]any, 0, len(p.Nodes)+len(p.Relationships))
	for i, n := range p.Nodes {
		seq = append(seq, n)
		if i < len(p.Relationships) {
			seq = append(seq, p.Relationships[i])
		}
	}
	return json.Marshal(seq)
}
