// Package client talks to a running o11y-kit service: it drives the load
// test control endpoints and follows the stats stream.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/gorilla/websocket"
)

const (
	DefaultServer  = "http://localhost:8000"
	DefaultTimeout = 10 * time.Second

	handshakeTimeout = 45 * time.Second
	maxErrorBody     = 4096
)

// ErrRejected is returned when the service refused a control request
var ErrRejected = errors.New("request rejected")

// controlResponse mirrors the body of /start-loadtest and /stop-loadtest
type controlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client is a handle on one service instance
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// New creates a client for the service at server (http or https URL)
func New(server string, timeout time.Duration) (*Client, error) {
	if server == "" {
		server = DefaultServer
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", server)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", server)
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	return u.String()
}

// StreamURL returns the WebSocket URL of the stats stream
func (c *Client) StreamURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/loadtest-ws"
	u.RawQuery = ""

	return u.String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Control endpoints report rejections as JSON even with 400
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusBadRequest {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("%s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}

	return nil
}

func (c *Client) control(ctx context.Context, path string, query url.Values) error {
	var result controlResponse
	if err := c.get(ctx, path, query, &result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrRejected, result.Message)
	}

	return nil
}

// Start asks the service to begin a run at rps requests per second
func (c *Client) Start(ctx context.Context, rps int) error {
	return c.control(ctx, "/start-loadtest", url.Values{"rps": []string{strconv.Itoa(rps)}})
}

// Stop asks the service to end the active run
func (c *Client) Stop(ctx context.Context) error {
	return c.control(ctx, "/stop-loadtest", nil)
}

// Status fetches the current stats snapshot
func (c *Client) Status(ctx context.Context) (*loadtest.Snapshot, error) {
	var snap loadtest.Snapshot
	if err := c.get(ctx, "/loadtest/status", nil, &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}

// Watch follows the stats stream and calls callback for every snapshot
// until ctx is cancelled or the server closes the stream.
func (c *Client) Watch(ctx context.Context, callback func(loadtest.Snapshot)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.StreamURL(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	receiveChan := make(chan loadtest.Snapshot, 16)
	receiveErrChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go receiveSnapshots(conn, receiveChan, receiveErrChan, done)

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return nil

		case snap := <-receiveChan:
			if callback != nil {
				callback(snap)
			}

		case err := <-receiveErrChan:
			// Snapshots read before the connection ended are still delivered
			for drained := false; !drained; {
				select {
				case snap := <-receiveChan:
					if callback != nil {
						callback(snap)
					}
				default:
					drained = true
				}
			}

			if err == nil {
				return nil
			}
			return fmt.Errorf("receive error: %w", err)
		}
	}
}

// receiveSnapshots decodes stream messages until the connection ends. A
// regular close from the server is reported as a nil error.
func receiveSnapshots(conn *websocket.Conn, snapChan chan<- loadtest.Snapshot, errChan chan<- error, done <-chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				errChan <- err
			} else {
				errChan <- nil
			}
			return
		}

		var snap loadtest.Snapshot
		if err := json.Unmarshal(message, &snap); err != nil {
			errChan <- fmt.Errorf("invalid snapshot: %w", err)
			return
		}

		select {
		case snapChan <- snap:
		case <-done:
			return
		}
	}
}
