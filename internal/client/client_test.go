package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// fakeService answers the control endpoints like the real service
type fakeService struct {
	mu      sync.Mutex
	running bool
	lastRPS string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/start-loadtest":
		f.lastRPS = r.URL.Query().Get("rps")
		if f.lastRPS == "0" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"invalid request rate: rps must be greater than 0"}`))
			return
		}
		if f.running {
			w.Write([]byte(`{"success":false,"message":"load test is already running"}`))
			return
		}
		f.running = true
		w.Write([]byte(`{"success":true}`))
	case "/stop-loadtest":
		if !f.running {
			w.Write([]byte(`{"success":false,"message":"load test is not running"}`))
			return
		}
		f.running = false
		w.Write([]byte(`{"success":true}`))
	case "/loadtest/status":
		json.NewEncoder(w).Encode(loadtest.Snapshot{TotalRequests: 12, SuccessfulRequests: 10, FailedRequests: 2, Active: f.running})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}
}

func TestNew_InvalidServer(t *testing.T) {
	for _, server := range []string{"ftp://localhost", "localhost:8000", "http://", "://bad"} {
		_, err := New(server, 0)
		assert.Error(t, err, server)
	}

	c, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/loadtest-ws", c.StreamURL())
}

func TestStreamURL(t *testing.T) {
	c, err := New("https://example.com/prefix/", 0)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/prefix/loadtest-ws", c.StreamURL())
}

func TestControl(t *testing.T) {
	fake := &fakeService{}
	server := httptest.NewServer(fake)
	defer server.Close()

	c, err := New(server.URL, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, 25))
	assert.Equal(t, "25", fake.lastRPS)

	err = c.Start(ctx, 25)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "load test is already running")

	snap, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Active)
	assert.Equal(t, uint64(12), snap.TotalRequests)

	require.NoError(t, c.Stop(ctx))

	err = c.Stop(ctx)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "load test is not running")

	err = c.Start(ctx, 0)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "invalid request rate")
}

func TestControl_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := New(server.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestWatch_ReceivesUntilServerCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for i := 1; i <= 3; i++ {
			conn.WriteJSON(loadtest.Snapshot{TotalRequests: uint64(i), SuccessfulRequests: uint64(i)})
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

		// Wait for the client's close reply
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
	}))
	defer server.Close()

	c, err := New(server.URL, time.Second)
	require.NoError(t, err)

	var totals []uint64
	err = c.Watch(context.Background(), func(snap loadtest.Snapshot) {
		totals = append(totals, snap.TotalRequests)
	})

	assert.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, totals)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(loadtest.Snapshot{}); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c, err := New(server.URL, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	received := 0
	err = c.Watch(ctx, func(loadtest.Snapshot) {
		received++
		if received == 3 {
			cancel()
		}
	})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, received, 3)
}

func TestWatch_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c, err := New(server.URL, time.Second)
	require.NoError(t, err)

	err = c.Watch(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
