package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"resty.dev/v3"

	"github.com/vk/comfygridgo/internal/ctxlog"
	"github.com/vk/comfygridgo/internal/listener"
	"github.com/vk/comfygridgo/internal/workflow"
)

// Config holds everything needed to talk to one engine instance.
type Config struct {
	// BaseURL is the engine's HTTP base, e.g. "http://127.0.0.1:8188".
	BaseURL string

	// User and Password enable basic auth on both the HTTP and the
	// websocket endpoints when User is non-empty.
	User     string
	Password string

	// Timeout bounds each plain request/response call. Zero means the
	// default of 60s; the event-stream wait is bounded by its own context.
	Timeout time.Duration

	// Reconnect bounds the event listener's retry behavior.
	Reconnect listener.Config

	// ViewCacheSize is the number of fetched artifacts kept in memory.
	// Zero disables the cache.
	ViewCacheSize int
}

const (
	defaultBaseURL = "http://127.0.0.1:8188"
	defaultTimeout = 60 * time.Second
)

// Client talks to one engine instance. It is safe for concurrent use as
// long as each concurrent SubmitAndWait gets its own client id, which is
// the default when the caller does not pin one.
type Client struct {
	http      *resty.Client
	base      *url.URL
	cfg       Config
	viewCache *lru.Cache[ImageRef, []byte]
}

// New builds a client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse engine URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("engine URL %q must use http or https", cfg.BaseURL)
	}

	httpClient := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(cfg.Timeout)
	if cfg.User != "" {
		httpClient.SetBasicAuth(cfg.User, cfg.Password)
	}

	c := &Client{http: httpClient, base: base, cfg: cfg}
	if cfg.ViewCacheSize > 0 {
		cache, err := lru.New[ImageRef, []byte](cfg.ViewCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create artifact cache: %w", err)
		}
		c.viewCache = cache
	}
	return c, nil
}

// Close releases the underlying HTTP transport.
func (c *Client) Close() error {
	return c.http.Close()
}

// wsURL derives the event-stream endpoint for a client id: http maps to ws,
// https to wss, same host, path /ws.
func (c *Client) wsURL(clientID string) string {
	scheme := "ws"
	if c.base.Scheme == "https" {
		scheme = "wss"
	}
	q := url.Values{"clientId": {clientID}}
	u := url.URL{Scheme: scheme, Host: c.base.Host, Path: "/ws", RawQuery: q.Encode()}
	return u.String()
}

// wsHeader carries basic auth to the websocket dial when configured.
func (c *Client) wsHeader() http.Header {
	if c.cfg.User == "" {
		return nil
	}
	header := make(http.Header)
	token := base64.StdEncoding.EncodeToString([]byte(c.cfg.User + ":" + c.cfg.Password))
	header.Set("Authorization", "Basic "+token)
	return header
}

// SubmissionError is returned when the engine declines a submitted graph or
// the response carries no usable job identifier. It is terminal for that
// submission attempt; nothing is retried.
type SubmissionError struct {
	StatusCode int
	Body       []byte
}

func (e *SubmissionError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("engine rejected submission (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("engine rejected submission (status %d): %s", e.StatusCode, e.Body)
}

// QueueOptions are the optional parts of a submission.
type QueueOptions struct {
	// ClientID scopes the engine's event stream to the submitting caller.
	// When empty a fresh one is generated; concurrent submissions must not
	// share an id or their events cannot be told apart.
	ClientID string

	// ExtraData is an opaque side channel stored with the job.
	ExtraData map[string]any
}

type queueRequest struct {
	Prompt    *workflow.Workflow `json:"prompt"`
	ClientID  string             `json:"client_id,omitempty"`
	ExtraData map[string]any     `json:"extra_data,omitempty"`
}

type queueResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
}

// QueuePrompt submits a workflow for execution and returns the job id the
// engine assigned to it.
func (c *Client) QueuePrompt(ctx context.Context, wf *workflow.Workflow, opts QueueOptions) (string, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("client_id", clientID)
	logger.Info("Queueing prompt.", "nodes", wf.Len())

	body := queueRequest{Prompt: wf, ClientID: clientID, ExtraData: opts.ExtraData}
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/prompt")
	if err != nil {
		return "", fmt.Errorf("failed to post prompt: %w", err)
	}
	if res.IsError() {
		return "", &SubmissionError{StatusCode: res.StatusCode(), Body: res.Bytes()}
	}

	var parsed queueResponse
	if err := json.Unmarshal(res.Bytes(), &parsed); err != nil {
		return "", &SubmissionError{StatusCode: res.StatusCode(), Body: res.Bytes()}
	}
	if parsed.PromptID == "" {
		// A 200 without a prompt id still means the job was not accepted.
		return "", &SubmissionError{StatusCode: res.StatusCode(), Body: res.Bytes()}
	}

	logger.Info("Prompt queued.", "prompt_id", parsed.PromptID, "queue_number", parsed.Number)
	return parsed.PromptID, nil
}
