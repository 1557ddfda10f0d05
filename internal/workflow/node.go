package workflow

import (
	"bytes"
	"encoding/json"
)

// Node is a single unit of work in the graph: a class type, a display title
// kept under the "_meta" key, and named input parameters.
type Node struct {
	// Inputs maps a parameter name to a literal value or a node reference.
	Inputs map[string]any

	// ClassType names the node implementation on the engine side.
	ClassType string

	// Meta holds the "_meta" object verbatim; the display title lives here.
	Meta map[string]any

	// extra preserves document fields this client does not model, so the
	// graph round-trips losslessly.
	extra map[string]json.RawMessage
}

// Title returns the node's display title, or "" when the document carries
// none. Titles are not unique; node id is the sole identity key.
func (n *Node) Title() string {
	if n.Meta == nil {
		return ""
	}
	title, _ := n.Meta["title"].(string)
	return title
}

// UnmarshalJSON decodes a node object, keeping unrecognized fields aside for
// re-serialization. Numbers decode as json.Number so that integer inputs do
// not silently become floats on a round-trip.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		switch key {
		case "inputs":
			if err := decodeNumeric(val, &n.Inputs); err != nil {
				return err
			}
		case "class_type":
			if err := json.Unmarshal(val, &n.ClassType); err != nil {
				return err
			}
		case "_meta":
			if err := decodeNumeric(val, &n.Meta); err != nil {
				return err
			}
		default:
			if n.extra == nil {
				n.extra = make(map[string]json.RawMessage)
			}
			n.extra[key] = val
		}
	}
	if n.Inputs == nil {
		n.Inputs = make(map[string]any)
	}
	return nil
}

// MarshalJSON re-assembles the node object, including preserved fields.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.extra)+3)
	for key, val := range n.extra {
		out[key] = val
	}
	out["inputs"] = n.Inputs
	if n.ClassType != "" {
		out["class_type"] = n.ClassType
	}
	if n.Meta != nil {
		out["_meta"] = n.Meta
	}
	return json.Marshal(out)
}

// decodeNumeric unmarshals with json.Number enabled for all numeric tokens.
func decodeNumeric(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(target)
}

// Reference is an input value that points at another node's output slot
// instead of carrying a literal.
type Reference struct {
	NodeID string
	Slot   int
}

// AsReference reports whether a decoded input value is a node reference,
// which the document encodes as a two-element [id, slot] array.
func AsReference(v any) (Reference, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return Reference{}, false
	}
	id, ok := pair[0].(string)
	if !ok {
		return Reference{}, false
	}
	slot, ok := asInt(pair[1])
	if !ok {
		return Reference{}, false
	}
	return Reference{NodeID: id, Slot: slot}, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
