package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/comfygridgo/internal/ctxlog"
	"github.com/vk/comfygridgo/internal/workflow"
)

// ValidationResult is the engine's pass/fail verdict on a graph document.
type ValidationResult struct {
	Valid      bool            `json:"valid"`
	ErrorMsg   json.RawMessage `json:"error_msg,omitempty"`
	NodeErrors json.RawMessage `json:"node_errors,omitempty"`
}

// ValidatePrompt checks a workflow against the engine without queueing it.
func (c *Client) ValidatePrompt(ctx context.Context, wf *workflow.Workflow) (*ValidationResult, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Validating prompt.", "nodes", wf.Len())

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"prompt": wf}).
		Post("/validate_prompt")
	if err != nil {
		return nil, fmt.Errorf("failed to validate prompt: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("validation request failed with status %d", res.StatusCode())
	}

	var result ValidationResult
	if err := json.Unmarshal(res.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode validation response: %w", err)
	}
	return &result, nil
}
