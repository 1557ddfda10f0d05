// Package events decodes the engine's event-stream messages into a closed
// set of typed variants at the transport boundary. Unknown message types
// decode to Unclassified so that newer engines never break the listener.
package events

import "encoding/json"

// Event is one decoded event-stream message.
type Event interface {
	// Kind returns the wire-level type tag the event was decoded from.
	Kind() string
}

// Status reports queue-wide scheduling state.
type Status struct {
	QueueRemaining int
}

// Executing marks a node starting execution. A nil Node together with a
// matching PromptID is the engine's way of saying the whole job finished.
type Executing struct {
	PromptID string
	Node     *string
	NodeType string
}

// Executed marks a node that finished and produced output.
type Executed struct {
	PromptID string
	Node     *string
}

// ExecutionError reports a node fault inside a running job.
type ExecutionError struct {
	PromptID         string
	NodeID           string
	NodeType         string
	ExceptionType    string
	ExceptionMessage string
}

// Progress reports step-level progress inside a long-running node, such as
// a sampler's current step out of its total.
type Progress struct {
	PromptID string
	Node     *string
	Value    int
	Max      int
}

// ExecutionCached lists nodes the engine served from its cache.
type ExecutionCached struct {
	PromptID string
	Nodes    []string
}

// Monitor is periodic hardware telemetry unrelated to job state.
type Monitor struct{}

// Unclassified is any message type this client does not model.
type Unclassified struct {
	Type string
}

func (Status) Kind() string          { return "status" }
func (Executing) Kind() string       { return "executing" }
func (Executed) Kind() string        { return "executed" }
func (ExecutionError) Kind() string  { return "execution_error" }
func (Progress) Kind() string        { return "progress" }
func (ExecutionCached) Kind() string { return "execution_cached" }
func (Monitor) Kind() string         { return "crystools.monitor" }
func (u Unclassified) Kind() string  { return u.Type }

// envelope is the outer wire shape shared by every message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type statusData struct {
	Status struct {
		ExecInfo struct {
			QueueRemaining int `json:"queue_remaining"`
		} `json:"exec_info"`
	} `json:"status"`
}

type executingData struct {
	PromptID string  `json:"prompt_id"`
	Node     *string `json:"node"`
	NodeType string  `json:"node_type"`
}

type executionErrorData struct {
	PromptID         string `json:"prompt_id"`
	NodeID           string `json:"node_id"`
	NodeType         string `json:"node_type"`
	ExceptionType    string `json:"exception_type"`
	ExceptionMessage string `json:"exception_message"`
}

type progressData struct {
	PromptID string  `json:"prompt_id"`
	Node     *string `json:"node"`
	Value    int     `json:"value"`
	Max      int     `json:"max"`
}

type executionCachedData struct {
	PromptID string   `json:"prompt_id"`
	Nodes    []string `json:"nodes"`
}

// Decode parses one event-stream message. Only a malformed frame is an
// error; an unknown type tag decodes to Unclassified.
func Decode(message []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "status":
		var data statusData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return Status{QueueRemaining: data.Status.ExecInfo.QueueRemaining}, nil

	case "executing":
		var data executingData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return Executing{PromptID: data.PromptID, Node: data.Node, NodeType: data.NodeType}, nil

	case "executed":
		var data executingData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return Executed{PromptID: data.PromptID, Node: data.Node}, nil

	case "execution_error":
		var data executionErrorData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return ExecutionError{
			PromptID:         data.PromptID,
			NodeID:           data.NodeID,
			NodeType:         data.NodeType,
			ExceptionType:    data.ExceptionType,
			ExceptionMessage: data.ExceptionMessage,
		}, nil

	case "progress":
		var data progressData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return Progress{PromptID: data.PromptID, Node: data.Node, Value: data.Value, Max: data.Max}, nil

	case "execution_cached":
		var data executionCachedData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return ExecutionCached{PromptID: data.PromptID, Nodes: data.Nodes}, nil

	case "crystools.monitor":
		return Monitor{}, nil

	default:
		return Unclassified{Type: env.Type}, nil
	}
}
