// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aathif-M/workpulse/internal/hub"
)

func TestStreamParsesEventsAndHeartbeats(t *testing.T) {
	events := []hub.Event{
		{ID: "e1", Type: hub.EventBreakWarning, UserID: 7, Message: "Your Lunch break ends in 5m"},
		{ID: "e2", Type: hub.EventBreakUpdate},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		fmt.Fprint(w, ": heartbeat\n\n")
		flusher.Flush()
		for _, ev := range events {
			payload, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
		// keep the connection open until the client goes away
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-1")

	var (
		mu       sync.Mutex
		received []hub.Event
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := NewStream(c, func(_ context.Context, ev hub.Event) {
		mu.Lock()
		received = append(received, ev)
		if len(received) == len(events) {
			cancel()
		}
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not deliver events")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "e1", received[0].ID)
	assert.Equal(t, hub.EventBreakWarning, received[0].Type)
	assert.Equal(t, hub.EventBreakUpdate, received[1].Type)
}

func TestStreamRetriesOnServerErrorMentioningAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "upstream said unauthorized"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-1")
	stream := NewStream(c, func(context.Context, hub.Event) {})

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	err := stream.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded,
		"a 5xx whose text mentions auth is retried, only a real 401 is fatal")
}

func TestStreamStopsOnAuthRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("revoked")
	stream := NewStream(c, func(context.Context, hub.Event) {})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := stream.Run(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded, "auth rejection stops the loop without retrying")
}
