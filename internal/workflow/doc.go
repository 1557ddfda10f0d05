// Package workflow holds the in-memory representation of a node-dependency
// graph as the execution engine understands it: a JSON document mapping node
// ids to nodes, where an input value is either a literal or a two-element
// [producerID, slot] reference to another node's output.
//
// The graph document is loosely typed on the wire while the engine is strict
// about per-field types, so all mutation goes through SetParam, which coerces
// the incoming value against the type of the value it replaces.
package workflow
