package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/comfygridgo/internal/ctxlog"
	"github.com/vk/comfygridgo/internal/events"
	"github.com/vk/comfygridgo/internal/listener"
	"github.com/vk/comfygridgo/internal/workflow"
)

// WaitOptions configure one submit-and-wait operation.
type WaitOptions struct {
	// OutputNodes, when non-empty, filters the result to these node ids. A
	// requested id that never produced output yields an empty entry rather
	// than an error.
	OutputNodes []string

	// ClientID pins the event-stream correlation token. Leave empty to get
	// a fresh one; concurrent waits must never share an id.
	ClientID string

	// ExtraData is an opaque side channel stored with the job.
	ExtraData map[string]any

	// OnProgress receives non-terminal job events while the wait streams.
	OnProgress func(events.Event)
}

// Result is the outcome of a completed job.
type Result struct {
	PromptID string
	Outputs  map[string]NodeOutput
}

// Images collects every image artifact across the result's output nodes,
// in sorted node-id order.
func (r *Result) Images() []ImageRef {
	ids := make([]string, 0, len(r.Outputs))
	for id := range r.Outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var refs []ImageRef
	for _, id := range ids {
		refs = append(refs, r.Outputs[id].Images...)
	}
	return refs
}

// SubmitAndWait queues a workflow, follows the event stream until the job
// reaches a terminal state, and on completion returns the recorded outputs.
// A failed job propagates the listener's *listener.ExecutionError with the
// engine's full diagnostic detail; no partial result is assembled.
func (c *Client) SubmitAndWait(ctx context.Context, wf *workflow.Workflow, opts WaitOptions) (*Result, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("client_id", clientID)
	ctx = ctxlog.WithLogger(ctx, logger)

	promptID, err := c.QueuePrompt(ctx, wf, QueueOptions{ClientID: clientID, ExtraData: opts.ExtraData})
	if err != nil {
		return nil, err
	}

	l := listener.New(c.wsURL(clientID), c.wsHeader(), c.cfg.Reconnect)
	l.OnProgress = opts.OnProgress
	if err := l.Wait(ctx, promptID); err != nil {
		return nil, fmt.Errorf("prompt %s: %w", promptID, err)
	}

	entry, err := c.History(ctx, promptID)
	if err != nil {
		return nil, err
	}

	outputs := entry.Outputs
	if len(opts.OutputNodes) > 0 {
		filtered := make(map[string]NodeOutput, len(opts.OutputNodes))
		for _, nodeID := range opts.OutputNodes {
			filtered[nodeID] = outputs[nodeID]
		}
		outputs = filtered
	}

	logger.Info("Job finished.", "prompt_id", promptID, "output_nodes", len(outputs))
	return &Result{PromptID: promptID, Outputs: outputs}, nil
}
