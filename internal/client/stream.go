// SPDX-License-Identifier: MIT

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Stream consumes the server's event stream and hands each event to the
// dispatcher. It reconnects with exponential backoff until the context is
// cancelled or the server rejects the token.
type Stream struct {
	client  *Client
	handler func(context.Context, hub.Event)
	logger  zerolog.Logger
}

// NewStream creates a stream over the client's connection.
func NewStream(c *Client, handler func(context.Context, hub.Event)) *Stream {
	return &Stream{
		client:  c,
		handler: handler,
		logger:  log.WithComponent("stream"),
	}
}

// Run connects and consumes until ctx is cancelled. An authorization
// rejection stops the loop; every other failure backs off and retries.
func (s *Stream) Run(ctx context.Context) error {
	backoff := reconnectMin
	for {
		err := s.consume(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !IsNetworkError(err):
			// the server spoke; an auth rejection will not heal on retry
			if errors.Is(err, auth.ErrUnauthorized) {
				return err
			}
		}

		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("event stream lost, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.BaseURL()+"/api/events", nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.client.Token())

	// no timeout: the connection is expected to stay open
	httpClient := &http.Client{Transport: s.client.http.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	s.logger.Info().Msg("event stream connected")

	var eventType, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 16*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case line == "":
			if eventType != "" && data != "" {
				s.deliver(ctx, eventType, data)
			}
			eventType, data = "", ""
		}
	}
	if err := scanner.Err(); err != nil {
		return &NetworkError{Err: err}
	}
	return &NetworkError{Err: fmt.Errorf("event stream closed by server")}
}

func (s *Stream) deliver(ctx context.Context, eventType, data string) {
	var ev hub.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, eventType).Msg("malformed event dropped")
		return
	}
	if ev.Type == "" {
		ev.Type = hub.EventType(eventType)
	}
	s.handler(ctx, ev)
}
