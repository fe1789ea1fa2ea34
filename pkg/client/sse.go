package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/retry"
)

// Subscribe streams namespace change events from the server until ctx is
// done. Dropped connections are re-established with exponential backoff.
// Both channels are closed when the subscription ends; connection errors are
// reported on the error channel without blocking.
func (c *Client) Subscribe(ctx context.Context) (<-chan protocol.SSEEvent, <-chan error) {
	events := make(chan protocol.SSEEvent, 100)
	errs := make(chan error, 1)

	go c.subscribeLoop(ctx, events, errs)

	return events, errs
}

func (c *Client) subscribeLoop(ctx context.Context, events chan<- protocol.SSEEvent, errs chan<- error) {
	defer close(events)
	defer close(errs)

	backoff := retry.Config{InitialWait: time.Second, MaxWait: 30 * time.Second, Multiplier: 2}
	attempt := 0

	for {
		connected, err := c.stream(ctx, events)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempt = 0
		}
		attempt++
		wait := backoff.Backoff(attempt)

		c.log.Warn("event stream interrupted, reconnecting",
			zap.Error(err), zap.Duration("wait", wait))
		select {
		case errs <- err:
		default:
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// stream reads one SSE connection. connected reports whether the server
// accepted the subscription.
func (c *Client) stream(ctx context.Context, events chan<- protocol.SSEEvent) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events", nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream has no deadline; the shared client's timeout would cut it.
	httpClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return false, fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeError(resp)
	}
	c.setOnline(true)
	c.log.Info("event stream connected", zap.String("url", c.baseURL))

	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data != "" {
				var ev protocol.SSEEvent
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					c.log.Debug("malformed event", zap.String("data", data), zap.Error(err))
				} else {
					if ev.Type == "" {
						ev.Type = eventType
					}
					select {
					case events <- ev:
					case <-ctx.Done():
						return true, ctx.Err()
					}
				}
			}
			eventType, data = "", ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("read: %w", err)
	}
	return true, fmt.Errorf("connection closed")
}
