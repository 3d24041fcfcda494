package gossip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultPort    = 6000
	DefaultTimeout = 10 * time.Second
	rpcPath        = "/rpc"
)

// ErrEmptyResult is returned when a node answers but knows no pods.
var ErrEmptyResult = errors.New("empty pod list")

// API is the subset of the pRPC interface the monitor consumes.
type API interface {
	GetPods(ctx context.Context) (*PodsResponse, error)
	GetPodsWithStats(ctx context.Context) (*PodsResponse, error)
	GetStats(ctx context.Context) (*NodeStats, error)
}

// Factory builds an API client bound to one node IP.
type Factory func(ip string, port int, timeout time.Duration) API

// NewFactory returns a Factory producing HTTP clients.
func NewFactory() Factory {
	return func(ip string, port int, timeout time.Duration) API {
		return NewClient(ip, port, timeout)
	}
}

// Client is a thin JSON-RPC client for a single pNode.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	nextID   atomic.Int64
}

// NewClient creates a client for http://ip:port/rpc. Zero port and timeout
// fall back to the defaults.
func NewClient(ip string, port int, timeout time.Duration) *Client {
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newClientWithEndpoint("http://"+net.JoinHostPort(ip, strconv.Itoa(port))+rpcPath, timeout)
}

func newClientWithEndpoint(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// Endpoint returns the URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetPods lists the pods known to the node through gossip. A node that knows
// no pods yields ErrEmptyResult.
func (c *Client) GetPods(ctx context.Context) (*PodsResponse, error) {
	var resp PodsResponse
	if err := c.call(ctx, MethodGetPods, &resp); err != nil {
		return nil, err
	}
	if len(resp.Pods) == 0 {
		return nil, ErrEmptyResult
	}
	return &resp, nil
}

// GetPodsWithStats is GetPods including storage and uptime figures.
func (c *Client) GetPodsWithStats(ctx context.Context) (*PodsResponse, error) {
	var resp PodsResponse
	if err := c.call(ctx, MethodGetPodsWithStats, &resp); err != nil {
		return nil, err
	}
	if len(resp.Pods) == 0 {
		return nil, ErrEmptyResult
	}
	return &resp, nil
}

// GetStats returns the runtime statistics of the node itself.
func (c *Client) GetStats(ctx context.Context) (*NodeStats, error) {
	var resp NodeStats
	if err := c.call(ctx, MethodGetStats, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      int(c.nextID.Add(1)),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, c.endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("%s %s: request failed: %s: %s", method, c.endpoint, res.Status, msg)
		}
		return fmt.Errorf("%s %s: request failed: %s", method, c.endpoint, res.Status)
	}

	var rpcResp RPCResponse
	if err := json.NewDecoder(res.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, c.endpoint, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s %s: %w", method, c.endpoint, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("%s %s: missing result", method, c.endpoint)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%s %s: decode result: %w", method, c.endpoint, err)
	}
	return nil
}
