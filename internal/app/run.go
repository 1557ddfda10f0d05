package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/comfygridgo/internal/client"
	"github.com/vk/comfygridgo/internal/ctxlog"
	"github.com/vk/comfygridgo/internal/events"
	"github.com/vk/comfygridgo/internal/workflow"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	wf, err := workflow.Load(a.config.WorkflowPath)
	if err != nil {
		return err
	}
	a.logger.Debug("Workflow loaded.", "node_count", wf.Len())

	if a.config.ListNodes {
		for _, info := range wf.Nodes() {
			fmt.Fprintf(a.outW, "%s\t%s\n", info.ID, info.Title)
		}
		return nil
	}

	if err := applyOverrides(wf, a.config.Sets); err != nil {
		return err
	}

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	if a.config.Validate {
		verdict, err := a.client.ValidatePrompt(ctx, wf)
		if err != nil {
			return err
		}
		if !verdict.Valid {
			return fmt.Errorf("engine rejected workflow as invalid: %s", verdict.ErrorMsg)
		}
		a.logger.Info("Workflow validated by engine.")
	}

	extra, err := a.extraData()
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Submitting workflow...", "nodes", wf.Len())
	result, err := a.client.SubmitAndWait(ctx, wf, client.WaitOptions{
		OutputNodes: a.config.OutputNodes,
		ClientID:    a.config.ClientID,
		ExtraData:   extra,
		OnProgress:  a.logProgress,
	})
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Job finished.", "prompt_id", result.PromptID)

	if a.config.OutDir == "" && a.sink == nil {
		return nil
	}

	images, err := a.client.FetchImages(ctx, result.Outputs)
	if err != nil {
		return err
	}

	if a.config.OutDir != "" {
		if err := writeImages(a.config.OutDir, images); err != nil {
			return err
		}
		a.logger.Info("Images written.", "dir", a.config.OutDir, "count", len(images))
	}
	if a.sink != nil {
		if err := a.sink.Put(ctx, result.PromptID, images); err != nil {
			return err
		}
	}
	return nil
}

// logProgress surfaces non-terminal job events at info level.
func (a *App) logProgress(ev events.Event) {
	switch e := ev.(type) {
	case events.Status:
		a.logger.Info("Waiting in queue.", "queue_remaining", e.QueueRemaining)
	case events.Executing:
		a.logger.Info("Node started.", "node", deref(e.Node), "node_type", e.NodeType)
	case events.Executed:
		a.logger.Info("Node finished.", "node", deref(e.Node))
	case events.Progress:
		a.logger.Debug("Node progress.", "node", deref(e.Node), "value", e.Value, "max", e.Max)
	case events.ExecutionCached:
		a.logger.Info("Nodes served from engine cache.", "count", len(e.Nodes))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// applyOverrides applies node.param=value settings. The node part is tried
// as an id first and falls back to a title lookup, so scripted overrides
// can address nodes the way the workflow author labeled them.
func applyOverrides(wf *workflow.Workflow, sets []string) error {
	for _, set := range sets {
		key, value, found := strings.Cut(set, "=")
		if !found {
			return fmt.Errorf("invalid override %q: expected node.param=value", set)
		}
		node, param, found := strings.Cut(key, ".")
		if !found || node == "" || param == "" {
			return fmt.Errorf("invalid override %q: expected node.param=value", set)
		}

		err := wf.SetParam(node, param, value)
		if err == nil {
			continue
		}
		if !errors.Is(err, workflow.ErrNodeNotFound) {
			return err
		}
		id, titleErr := wf.NodeIDByTitle(node)
		if titleErr != nil {
			return err
		}
		if err := wf.SetParam(id, param, value); err != nil {
			return err
		}
	}
	return nil
}

func writeImages(dir string, images map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for filename, data := range images {
		// Artifact names come from the engine; never let them escape the dir.
		target := filepath.Join(dir, filepath.Base(filename))
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}
	return nil
}
