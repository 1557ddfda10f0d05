package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Workflow owns the node graph. It is a plain owned structure with no
// internal locking; concurrent mutation requires external synchronization.
type Workflow struct {
	nodes map[string]*Node
}

// NodeInfo is one row of the Nodes listing.
type NodeInfo struct {
	ID    string
	Title string
}

// New returns an empty workflow.
func New() *Workflow {
	return &Workflow{nodes: make(map[string]*Node)}
}

// Parse decodes a workflow document from its JSON form.
func Parse(data []byte) (*Workflow, error) {
	w := New()
	if err := w.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}
	return w, nil
}

// LoadFile reads and parses a workflow document from disk.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(data)
}

// Load accepts either an inline JSON document or a path to one. A string
// starting with "{" is treated as the document itself.
func Load(src string) (*Workflow, error) {
	if strings.HasPrefix(strings.TrimSpace(src), "{") {
		return Parse([]byte(src))
	}
	return LoadFile(src)
}

// SaveFile writes the workflow document to disk, indented the way the
// engine's own editor exports it.
func (w *Workflow) SaveFile(path string) error {
	data, err := json.MarshalIndent(w, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to serialize workflow: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}
	return nil
}

// Len returns the number of nodes in the graph.
func (w *Workflow) Len() int {
	return len(w.nodes)
}

// Nodes enumerates all nodes as (id, title) pairs, ordered by id so the
// listing is deterministic for a given in-memory state.
func (w *Workflow) Nodes() []NodeInfo {
	infos := make([]NodeInfo, 0, len(w.nodes))
	for _, id := range w.sortedIDs() {
		infos = append(infos, NodeInfo{ID: id, Title: w.nodes[id].Title()})
	}
	return infos
}

// Param returns the value of a node's input parameter.
func (w *Workflow) Param(id, name string) (any, error) {
	node, ok := w.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	value, ok := node.Inputs[name]
	if !ok {
		return nil, fmt.Errorf("node %q input %q: %w", id, name, ErrParamNotFound)
	}
	return value, nil
}

// SetParam replaces a node's input parameter, coercing the new value against
// the type of the existing one. The graph travels as a loosely typed
// document while the engine is strict about per-field types, so a caller
// passing "3" for a numeric input gets a number stored, not a string.
func (w *Workflow) SetParam(id, name string, value any) error {
	node, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	existing, ok := node.Inputs[name]
	if !ok {
		return fmt.Errorf("node %q input %q: %w", id, name, ErrParamNotFound)
	}
	coerced, err := coerce(existing, value)
	if err != nil {
		return fmt.Errorf("node %q input %q: %w", id, name, err)
	}
	node.Inputs[name] = coerced
	return nil
}

// NodeIDByTitle scans for the first node carrying the given title, in
// sorted-id order so a duplicated title resolves to the same id on every
// call. Duplicate titles are ambiguous; prefer addressing nodes by id.
func (w *Workflow) NodeIDByTitle(title string) (string, error) {
	for _, id := range w.sortedIDs() {
		if w.nodes[id].Title() == title {
			return id, nil
		}
	}
	return "", fmt.Errorf("node titled %q: %w", title, ErrTitleNotFound)
}

// UnmarshalJSON decodes the id-to-node document.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	nodes := make(map[string]*Node)
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	w.nodes = nodes
	return nil
}

// MarshalJSON encodes the id-to-node document. Key order in the output is
// not significant to the engine.
func (w *Workflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.nodes)
}

func (w *Workflow) sortedIDs() []string {
	ids := make([]string, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
