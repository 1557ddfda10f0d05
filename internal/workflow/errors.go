package workflow

import "errors"

// Sentinel errors reported by graph lookups and mutations. Callers match
// them with errors.Is; the wrapping error names the offending id or param.
var (
	// ErrNodeNotFound is returned when a node id is absent from the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrParamNotFound is returned when a node exists but has no input with
	// the requested name.
	ErrParamNotFound = errors.New("parameter not found")

	// ErrTitleNotFound is returned when no node carries the requested title.
	ErrTitleNotFound = errors.New("title not found")

	// ErrCannotCoerce is returned when SetParam cannot convert the new value
	// into the type of the value it replaces.
	ErrCannotCoerce = errors.New("cannot coerce value")
)
