package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/comfygridgo/internal/ctxlog"
)

// ImageRef addresses one produced or uploaded artifact on the engine.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// NodeOutput is everything one node recorded into the job history. Image
// artifacts are decoded; any other output fields stay available raw.
type NodeOutput struct {
	Images []ImageRef
	Raw    map[string]json.RawMessage
}

// UnmarshalJSON keeps every recorded field while decoding the ones this
// client models.
func (o *NodeOutput) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &o.Raw); err != nil {
		return err
	}
	if images, ok := o.Raw["images"]; ok {
		if err := json.Unmarshal(images, &o.Images); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON re-emits the recorded fields verbatim.
func (o NodeOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Raw)
}

// HistoryEntry is the engine's record of one finished job.
type HistoryEntry struct {
	Outputs map[string]NodeOutput `json:"outputs"`
	Status  json.RawMessage       `json:"status,omitempty"`
}

// History fetches the recorded outputs of a finished job.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Fetching job history.", "prompt_id", promptID)

	res, err := c.http.R().SetContext(ctx).Get("/history/" + promptID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", promptID, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("history request for %s failed with status %d", promptID, res.StatusCode())
	}

	var entries map[string]HistoryEntry
	if err := json.Unmarshal(res.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	entry, ok := entries[promptID]
	if !ok {
		return nil, fmt.Errorf("engine has no history recorded for prompt %s", promptID)
	}
	return &entry, nil
}
