package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/comfygridgo/internal/ctxlog"
)

// defaultUploadSubfolder mirrors the engine's default input subfolder used
// when an upload names no destination.
const defaultUploadSubfolder = "default_upload_folder"

// View downloads one artifact's bytes. Responses are cached in a bounded
// LRU when the client was configured with one, so assembling a result that
// references the same artifact twice hits the engine once.
func (c *Client) View(ctx context.Context, ref ImageRef) ([]byte, error) {
	logger := ctxlog.FromContext(ctx)

	if c.viewCache != nil {
		if data, ok := c.viewCache.Get(ref); ok {
			logger.Debug("Artifact served from cache.", "filename", ref.Filename)
			return data, nil
		}
	}

	logger.Debug("Fetching artifact.", "filename", ref.Filename, "subfolder", ref.Subfolder, "type", ref.Type)
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("filename", ref.Filename).
		SetQueryParam("subfolder", ref.Subfolder).
		SetQueryParam("type", ref.Type).
		Get("/view")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", ref.Filename, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("artifact request for %s failed with status %d", ref.Filename, res.StatusCode())
	}

	data := res.Bytes()
	if c.viewCache != nil {
		c.viewCache.Add(ref, data)
	}
	return data, nil
}

// FetchImages downloads every image artifact referenced by the given
// outputs, keyed by filename.
func (c *Client) FetchImages(ctx context.Context, outputs map[string]NodeOutput) (map[string][]byte, error) {
	images := make(map[string][]byte)
	for nodeID, output := range outputs {
		for _, ref := range output.Images {
			data, err := c.View(ctx, ref)
			if err != nil {
				return nil, fmt.Errorf("output of node %s: %w", nodeID, err)
			}
			images[ref.Filename] = data
		}
	}
	return images, nil
}

// UploadResult describes where the engine stored an uploaded artifact.
type UploadResult struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// UploadImage sends a local file to the engine's input store. An empty
// subfolder lands in the engine's default upload folder.
func (c *Client) UploadImage(ctx context.Context, path, subfolder string) (*UploadResult, error) {
	logger := ctxlog.FromContext(ctx)
	if subfolder == "" {
		subfolder = defaultUploadSubfolder
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload file: %w", err)
	}
	defer file.Close()

	logger.Info("Uploading image.", "path", path, "subfolder", subfolder)
	res, err := c.http.R().
		SetContext(ctx).
		SetFileReader("image", filepath.Base(path), file).
		SetFormData(map[string]string{"subfolder": subfolder}).
		Post("/upload/image")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("upload of %s failed with status %d: %s", path, res.StatusCode(), res.Bytes())
	}

	var result UploadResult
	if err := json.Unmarshal(res.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}
