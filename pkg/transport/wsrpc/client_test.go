package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"guardian/pkg/transport"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type serverRequest struct {
	JSONRPC string               `json:"jsonrpc"`
	ID      string               `json:"id"`
	Method  string               `json:"method"`
	Params  []transport.Envelope `json:"params"`
}

type handler func(req serverRequest) (any, *transport.RPCError)

// newGuardianServer starts a JSON-RPC WebSocket server that answers every
// request with handle.
func newGuardianServer(t *testing.T, handle handler) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var writeMu sync.Mutex
		for {
			var req serverRequest
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			go func(req serverRequest) {
				result, rpcErr := handle(req)
				reply := map[string]any{"jsonrpc": "2.0", "id": req.ID}
				if rpcErr != nil {
					reply["error"] = rpcErr
				} else {
					reply["result"] = result
				}
				writeMu.Lock()
				defer writeMu.Unlock()
				_ = ws.WriteJSON(reply)
			}(req)
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, endpoint string, opts transport.DialOptions) transport.Conn {
	t.Helper()
	conn, err := NewDialer(zaptest.NewLogger(t)).Dial(context.Background(), endpoint, opts)
	require.NoError(t, err)
	return conn
}

func TestCall_ResultAndEnvelope(t *testing.T) {
	var got serverRequest
	var mu sync.Mutex
	endpoint := newGuardianServer(t, func(req serverRequest) (any, *transport.RPCError) {
		mu.Lock()
		got = req
		mu.Unlock()
		return map[string]string{"server": "ConsensusRunning"}, nil
	})

	conn := dial(t, endpoint, transport.DialOptions{})
	defer conn.Close()

	resp, err := conn.Call(context.Background(), "status", transport.NewEnvelope("pw", nil))
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"server":"ConsensusRunning"}`, string(resp.Result))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "status", got.Method)
	assert.NotEmpty(t, got.ID)
	require.Len(t, got.Params, 1)
	require.NotNil(t, got.Params[0].Auth)
	assert.Equal(t, "pw", *got.Params[0].Auth)
	assert.Nil(t, got.Params[0].Params)
}

func TestCall_ApplicationError(t *testing.T) {
	endpoint := newGuardianServer(t, func(req serverRequest) (any, *transport.RPCError) {
		return nil, &transport.RPCError{Code: 401, Message: "Invalid authentication", Data: json.RawMessage(`"x"`)}
	})

	conn := dial(t, endpoint, transport.DialOptions{})
	defer conn.Close()

	resp, err := conn.Call(context.Background(), "auth", transport.NewEnvelope("", nil))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, 401, resp.Error.Code)
	assert.Equal(t, "Invalid authentication", resp.Error.Message)
	assert.JSONEq(t, `"x"`, string(resp.Error.Data))
}

func TestCall_ConcurrentRequestsAreCorrelated(t *testing.T) {
	endpoint := newGuardianServer(t, func(req serverRequest) (any, *transport.RPCError) {
		// answer out of order
		if req.Method == "slow" {
			time.Sleep(50 * time.Millisecond)
		}
		return req.Method, nil
	})

	conn := dial(t, endpoint, transport.DialOptions{})
	defer conn.Close()

	methods := []string{"slow", "fast", "version", "audit"}
	var wg sync.WaitGroup
	for _, method := range methods {
		wg.Add(1)
		go func(method string) {
			defer wg.Done()
			resp, err := conn.Call(context.Background(), method, transport.NewEnvelope("", nil))
			if assert.NoError(t, err) {
				var echoed string
				assert.NoError(t, json.Unmarshal(resp.Result, &echoed))
				assert.Equal(t, method, echoed)
			}
		}(method)
	}
	wg.Wait()
}

func TestCall_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	endpoint := newGuardianServer(t, func(req serverRequest) (any, *transport.RPCError) {
		<-release
		return nil, nil
	})
	t.Cleanup(func() { close(release) })

	conn := dial(t, endpoint, transport.DialOptions{RequestTimeout: 50 * time.Millisecond})
	defer conn.Close()

	_, err := conn.Call(context.Background(), "run_dkg", transport.NewEnvelope("", nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_StalledPeerWriteHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		// never read, so the client's socket buffers fill up
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"), transport.DialOptions{})
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	params := strings.Repeat("x", 64<<20)
	start := time.Now()
	_, err := conn.Call(ctx, "set_config_gen_params", transport.NewEnvelope("", params))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	select {
	case err := <-conn.Errors():
		assert.Contains(t, err.Error(), "guardian connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("expected the stalled connection to be reported lost")
	}
}

func TestClose_Clean(t *testing.T) {
	endpoint := newGuardianServer(t, func(req serverRequest) (any, *transport.RPCError) {
		return nil, nil
	})

	conn := dial(t, endpoint, transport.DialOptions{})
	clean, err := conn.Close()
	require.NoError(t, err)
	assert.True(t, clean)

	_, err = conn.Call(context.Background(), "status", transport.NewEnvelope("", nil))
	require.ErrorIs(t, err, transport.ErrClosed)

	_, ok := <-conn.Errors()
	assert.False(t, ok, "errors channel must be closed after Close")

	clean, err = conn.Close()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestRemoteDropReportsError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// drop without a close frame, like a restarting guardian
		ws.Close()
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"), transport.DialOptions{})

	select {
	case err := <-conn.Errors():
		require.Error(t, err)
		assert.Contains(t, err.Error(), "guardian connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("expected an asynchronous connection error")
	}

	_, err := conn.Call(context.Background(), "status", transport.NewEnvelope("", nil))
	require.ErrorIs(t, err, transport.ErrClosed)

	clean, err := conn.Close()
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := NewDialer(nil).Dial(context.Background(), endpoint, transport.DialOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, transport.ErrClosed))
	assert.Contains(t, err.Error(), "dialing")
}
