package workflow

import "fmt"

// Prune extracts the minimal subgraph required to produce the given output
// nodes. Every input reference is followed to its producer, depth first; a
// node already visited is never re-entered, so shared ancestors are walked
// once and a dependency cycle terminates with each participant included
// exactly once.
//
// The returned workflow holds the required nodes in their original
// definitions; the node values are shared with the receiver, not copied.
func (w *Workflow) Prune(outputIDs ...string) (*Workflow, error) {
	required := make(map[string]*Node)

	var visit func(id string) error
	visit = func(id string) error {
		if _, seen := required[id]; seen {
			return nil
		}
		node, ok := w.nodes[id]
		if !ok {
			return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
		}
		required[id] = node
		for _, value := range node.Inputs {
			ref, isRef := AsReference(value)
			if !isRef {
				continue
			}
			if err := visit(ref.NodeID); err != nil {
				return fmt.Errorf("reference from node %q: %w", id, err)
			}
		}
		return nil
	}

	for _, id := range outputIDs {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return &Workflow{nodes: required}, nil
}
