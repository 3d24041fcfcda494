package gossip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRPCServer(t *testing.T, handle func(method string) (any, *RPCError)) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rpcErr := handle(req.Method)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestClient_GetPodsWithStats(t *testing.T) {
	t.Parallel()

	var gotMethod string
	s := newRPCServer(t, func(method string) (any, *RPCError) {
		gotMethod = method
		return PodsResponse{
			Pods: []Pod{{
				Address:           "10.0.0.1:9001",
				Pubkey:            "abc",
				Version:           "0.8.0",
				StorageCommitted:  1000,
				StorageUsed:       500,
				Uptime:            43200,
				LastSeenTimestamp: 1700000000,
				RpcPort:           6000,
			}},
			TotalCount: 1,
		}, nil
	})

	c := newClientWithEndpoint(s.URL+rpcPath, time.Second)
	resp, err := c.GetPodsWithStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodGetPodsWithStats, gotMethod)
	require.Len(t, resp.Pods, 1)
	assert.Equal(t, "abc", resp.Pods[0].Pubkey)
	assert.Equal(t, int64(43200), resp.Pods[0].Uptime)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestClient_GetStats(t *testing.T) {
	t.Parallel()

	s := newRPCServer(t, func(method string) (any, *RPCError) {
		assert.Equal(t, MethodGetStats, method)
		return NodeStats{RAMUsed: 1 << 30, RAMTotal: 4 << 30, CPUPercent: 12.5}, nil
	})

	stats, err := newClientWithEndpoint(s.URL+rpcPath, time.Second).GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), stats.RAMUsed)
	assert.Equal(t, int64(4<<30), stats.RAMTotal)
	assert.InDelta(t, 12.5, stats.CPUPercent, 0.0001)
}

func TestClient_RPCError(t *testing.T) {
	t.Parallel()

	s := newRPCServer(t, func(method string) (any, *RPCError) {
		return nil, &RPCError{Code: -32601, Message: "method not found"}
	})

	_, err := newClientWithEndpoint(s.URL+rpcPath, time.Second).GetPodsWithStats(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
	assert.False(t, IsNetworkError(err))
}

func TestClient_HTTPStatusError(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer s.Close()

	_, err := newClientWithEndpoint(s.URL+rpcPath, time.Second).GetPods(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer s.Close()

	_, err := newClientWithEndpoint(s.URL+rpcPath, 50*time.Millisecond).GetPods(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestNewClient_Endpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://1.2.3.4:6000/rpc", NewClient("1.2.3.4", 0, 0).Endpoint())
	assert.Equal(t, "http://1.2.3.4:7000/rpc", NewClient("1.2.3.4", 7000, time.Second).Endpoint())
}

func TestIsNetworkError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"dns", &net.DNSError{Err: "no such host", Name: "x.invalid"}, true},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("boom")}, true},
		{"refused text", errors.New("dial tcp 1.2.3.4:6000: connect: connection refused"), true},
		{"unexpected", errors.New("decode result: invalid character"), false},
		{"rpc error", &RPCError{Code: 1, Message: "bad"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestClient_EmptyPodList(t *testing.T) {
	t.Parallel()

	s := newRPCServer(t, func(method string) (any, *RPCError) {
		return PodsResponse{Pods: []Pod{}}, nil
	})
	c := newClientWithEndpoint(s.URL+rpcPath, time.Second)

	_, err := c.GetPods(context.Background())
	assert.ErrorIs(t, err, ErrEmptyResult)
	_, err = c.GetPodsWithStats(context.Background())
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestLogFailure_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		level zapcore.Level
	}{
		{"refused", errors.New("dial tcp 1.2.3.4:6000: connect: connection refused"), zapcore.DebugLevel},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), zapcore.DebugLevel},
		{"empty", ErrEmptyResult, zapcore.DebugLevel},
		{"decode", errors.New("decode result: invalid character 'x'"), zapcore.ErrorLevel},
		{"rpc error", &RPCError{Code: -32601, Message: "method not found"}, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			LogFailure(zap.New(core), "get-pods", tt.err)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Contains(t, entries[0].Message, "get-pods")
		})
	}
}
