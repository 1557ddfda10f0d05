package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/vk/comfygridgo/internal/ctxlog"
	"github.com/vk/comfygridgo/internal/events"
)

// ErrConnectionExhausted is returned when the reconnect budget runs out
// before a terminal event for the awaited job was observed.
var ErrConnectionExhausted = errors.New("event stream reconnect budget exhausted")

// Config bounds the reconnect behavior. Unbounded retry is a defect, so a
// zero MaxRetries still gets a finite default.
type Config struct {
	// ReconnectInterval is the fixed delay between reconnect attempts.
	ReconnectInterval time.Duration

	// MaxRetries is how many times a dropped connection is re-established
	// after the initial attempt.
	MaxRetries uint64
}

const (
	defaultReconnectInterval = 2 * time.Second
	defaultMaxRetries        = 5
)

func (c Config) withDefaults() Config {
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = defaultReconnectInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// Listener waits on the engine's event stream for one job's terminal event.
type Listener struct {
	url    string
	header http.Header
	cfg    Config
	dialer *websocket.Dialer

	// OnProgress, when set, receives non-terminal job events (node started,
	// node finished, cached nodes, queue position). It runs on the read
	// loop's goroutine and must not block.
	OnProgress func(events.Event)
}

// New creates a listener for the given websocket URL. The URL must already
// be scoped to the caller's client id; every reconnect reuses it unchanged.
func New(wsURL string, header http.Header, cfg Config) *Listener {
	return &Listener{
		url:    wsURL,
		header: header,
		cfg:    cfg.withDefaults(),
		dialer: websocket.DefaultDialer,
	}
}

// Wait blocks until a terminal event for promptID arrives. It returns nil on
// completion, an *ExecutionError when the job failed on the engine, the
// context error when the caller cancelled, and ErrConnectionExhausted when
// the transport kept failing past the retry ceiling.
func (l *Listener) Wait(ctx context.Context, promptID string) error {
	logger := ctxlog.FromContext(ctx).With("prompt_id", promptID)

	attempt := 0
	operation := func() error {
		if attempt > 0 {
			logger.Info("Reconnecting to event stream.", "attempt", attempt)
		}
		attempt++
		return l.streamOnce(ctx, logger, promptID)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.cfg.ReconnectInterval), l.cfg.MaxRetries),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return execErr
		}
		return fmt.Errorf("%w after %d attempts: %v", ErrConnectionExhausted, attempt, err)
	}
}

// streamOnce runs a single Connecting -> Streaming pass. A nil return means
// the job completed; a permanent error means the job failed or the caller
// cancelled; any other error is a transport fault eligible for retry.
func (l *Listener) streamOnce(ctx context.Context, logger *slog.Logger, promptID string) error {
	logger.Debug("Dialing event stream.", "url", l.url)
	conn, resp, err := l.dialer.DialContext(ctx, l.url, l.header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("failed to dial event stream: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop when the caller gives up; closing the socket is
	// the only way to interrupt ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("event stream read failed: %w", err)
		}
		if messageType != websocket.TextMessage {
			// Binary frames carry image previews, not protocol events.
			continue
		}

		ev, err := events.Decode(message)
		if err != nil {
			logger.Warn("Skipping undecodable event frame.", "error", err)
			continue
		}
		logger.Debug("Event received.", "type", ev.Kind())

		state, execErr := advance(promptID, ev)
		switch state {
		case StateCompleted:
			logger.Info("Terminal event observed, job completed.")
			return nil
		case StateFailed:
			logger.Info("Execution error observed for awaited job.",
				"node_id", execErr.NodeID, "node_type", execErr.NodeType)
			return backoff.Permanent(execErr)
		}

		if l.OnProgress != nil && isProgress(ev) {
			l.OnProgress(ev)
		}
	}
}
