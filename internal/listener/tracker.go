package listener

import (
	"fmt"

	"github.com/vk/comfygridgo/internal/events"
)

// State is the listener's position in the wait lifecycle.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateCompleted
	StateFailed
)

// ExecutionError is the terminal failure raised when a node inside the
// awaited job faults. It carries the engine's full diagnostic detail.
type ExecutionError struct {
	PromptID         string
	NodeID           string
	NodeType         string
	ExceptionType    string
	ExceptionMessage string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error in node %s (%s): %s: %s",
		e.NodeID, e.NodeType, e.ExceptionType, e.ExceptionMessage)
}

// advance applies one decoded event to a streaming wait for promptID and
// returns the next state. Two signals complete the wait: an executing or
// executed event with a nil node for the awaited prompt (the precise one),
// and queue_remaining dropping to zero (queue-wide; a near-simultaneous job
// from another client could coincide — inherited behavior, kept on purpose).
func advance(promptID string, ev events.Event) (State, *ExecutionError) {
	switch e := ev.(type) {
	case events.Monitor:
		// Telemetry, never job state.
		return StateStreaming, nil

	case events.ExecutionError:
		if e.PromptID == promptID {
			return StateFailed, &ExecutionError{
				PromptID:         e.PromptID,
				NodeID:           e.NodeID,
				NodeType:         e.NodeType,
				ExceptionType:    e.ExceptionType,
				ExceptionMessage: e.ExceptionMessage,
			}
		}
		return StateStreaming, nil

	case events.Status:
		if e.QueueRemaining == 0 {
			return StateCompleted, nil
		}
		return StateStreaming, nil

	case events.Executing:
		if e.Node == nil && e.PromptID == promptID {
			return StateCompleted, nil
		}
		return StateStreaming, nil

	case events.Executed:
		if e.Node == nil && e.PromptID == promptID {
			return StateCompleted, nil
		}
		return StateStreaming, nil

	default:
		// ExecutionCached, Unclassified and future variants never end a wait.
		return StateStreaming, nil
	}
}

// isProgress reports whether an event is worth surfacing to a progress
// callback while the wait stays in Streaming.
func isProgress(ev events.Event) bool {
	switch e := ev.(type) {
	case events.Executing:
		return e.Node != nil
	case events.Executed:
		return e.Node != nil
	case events.ExecutionCached:
		return true
	case events.Progress:
		return true
	case events.Status:
		return e.QueueRemaining > 0
	default:
		return false
	}
}
