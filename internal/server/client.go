package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// Client talks to a running daemon over its control socket.
type Client struct {
	httpClient *http.Client
}

func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = shared.SocketPath()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// Call sends one command and decodes the reply. A connection failure
// maps to [shared.ErrDaemonNotRunning]; a reply with ok=false becomes
// an error carrying the daemon's message.
func (c *Client) Call(ctx context.Context, cmd string, params map[string]string) (*Response, error) {
	body, err := json.Marshal(Request{Cmd: cmd, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://spondex/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDaemonNotRunning, err)
	}
	defer httpResp.Body.Close()

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !resp.OK {
		return &resp, errors.New(resp.Error)
	}
	return &resp, nil
}

// Ping checks that the daemon answers on its socket.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, "ping", nil)
	return err
}

// Status fetches the daemon's status report.
func (c *Client) Status(ctx context.Context) (*StatusReport, error) {
	resp, err := c.Call(ctx, "status", nil)
	if err != nil {
		return nil, err
	}

	var report StatusReport
	if err := decodeData(resp.Data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &report, nil
}

// Sync asks the daemon to start a run now. An empty mode uses the
// configured one.
func (c *Client) Sync(ctx context.Context, mode models.SyncMode) error {
	params := map[string]string{}
	if mode != "" {
		params["mode"] = string(mode)
	}
	_, err := c.Call(ctx, "sync", params)
	return err
}

// Pause suspends interval runs.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.Call(ctx, "pause", nil)
	return err
}

// Resume re-enables interval runs.
func (c *Client) Resume(ctx context.Context) error {
	_, err := c.Call(ctx, "resume", nil)
	return err
}

// Shutdown asks the daemon to exit gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Call(ctx, "shutdown", nil)
	return err
}

// decodeData round-trips a decoded JSON value into a concrete type.
func decodeData(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
