package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"guardian/pkg/transport"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// handshakeTimeout bounds the WebSocket opening handshake only.
	handshakeTimeout = 10 * time.Second

	// closeTimeout is how long Close waits for the server to answer our
	// close frame before tearing the socket down.
	closeTimeout = 3 * time.Second

	jsonrpcVersion = "2.0"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      string              `json:"id"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *transport.RPCError `json:"error,omitempty"`
}

// Dialer opens JSON-RPC 2.0 connections over WebSocket (ws:// or wss://).
type Dialer struct {
	logger *zap.Logger
}

// NewDialer creates a WebSocket dialer.
func NewDialer(logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{logger: logger}
}

// Dial performs the WebSocket handshake and starts the response reader.
func (d *Dialer) Dial(ctx context.Context, endpoint string, opts transport.DialOptions) (transport.Conn, error) {
	wsDialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	if strings.HasPrefix(endpoint, "wss://") {
		tlsConfig, err := transport.TLSConfig(opts.CACertPath)
		if err != nil {
			return nil, err
		}
		wsDialer.TLSClientConfig = tlsConfig
	}

	ws, _, err := wsDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	c := &conn{
		ws:             ws,
		logger:         d.logger.With(zap.String("endpoint", endpoint)),
		requestTimeout: opts.RequestTimeout,
		pending:        make(map[string]chan *response),
		done:           make(chan struct{}),
		errs:           make(chan error, 1),
	}
	go c.readLoop()

	d.logger.Debug("WebSocket connection opened", zap.String("endpoint", endpoint))
	return c, nil
}

// conn multiplexes concurrent calls over one socket, matching responses to
// requests by id.
type conn struct {
	ws             *websocket.Conn
	logger         *zap.Logger
	requestTimeout time.Duration

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *response
	closing bool
	readErr error

	// done is closed when the read loop exits; readErr is final by then.
	done chan struct{}
	errs chan error
}

func (c *conn) Call(ctx context.Context, method string, params any) (*transport.Response, error) {
	id := uuid.NewString()
	replyCh := make(chan *response, 1)

	c.mu.Lock()
	if c.closing || c.readErr != nil {
		c.mu.Unlock()
		return nil, transport.ErrClosed
	}
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := request{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  []any{params},
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	// A peer that stops reading must not hold writeMu past the deadline.
	deadline, _ := ctx.Deadline()
	c.writeMu.Lock()
	err := c.ws.SetWriteDeadline(deadline)
	if err == nil {
		err = c.ws.WriteJSON(req)
	}
	c.writeMu.Unlock()
	if err != nil {
		// gorilla fails every later write once one has failed; dropping the
		// socket lets the read loop report the connection lost.
		c.logger.Warn("Failed to write request, dropping connection", zap.String("method", method), zap.Error(err))
		c.ws.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = context.DeadlineExceeded
		}
		return nil, fmt.Errorf("writing %s request: %w", method, err)
	}

	select {
	case reply := <-replyCh:
		return &transport.Response{Result: reply.Result, Error: reply.Error}, nil
	case <-c.done:
		// The reader may have delivered our reply just before exiting.
		select {
		case reply := <-replyCh:
			return &transport.Response{Result: reply.Result, Error: reply.Error}, nil
		default:
		}
		return nil, fmt.Errorf("%w: %v", transport.ErrClosed, c.readErr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) readLoop() {
	defer close(c.done)

	for {
		_, reader, err := c.ws.NextReader()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			local := c.closing
			c.mu.Unlock()

			if !local {
				c.logger.Warn("Guardian connection lost", zap.Error(err))
				select {
				case c.errs <- fmt.Errorf("guardian connection lost: %w", err):
				default:
				}
			}
			return
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			c.logger.Warn("Failed to read message", zap.Error(err))
			continue
		}

		var msg response
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Dropping malformed message", zap.Error(err))
			continue
		}

		c.mu.Lock()
		replyCh, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("Dropping response for unknown request", zap.String("id", msg.ID))
			continue
		}
		replyCh <- &msg
	}
}

func (c *conn) Close() (bool, error) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		<-c.done
		return false, nil
	}
	c.closing = true
	alreadyDown := c.readErr != nil
	c.mu.Unlock()

	clean := false
	if !alreadyDown {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err == nil {
			select {
			case <-c.done:
				var closeErr *websocket.CloseError
				clean = errors.As(c.readErr, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure
			case <-time.After(closeTimeout):
				c.logger.Debug("Close handshake timed out")
			}
		}
	}

	err := c.ws.Close()
	<-c.done
	close(c.errs)

	if alreadyDown || clean {
		// the socket is already gone on both sides
		err = nil
	}
	return clean, err
}

func (c *conn) Errors() <-chan error {
	return c.errs
}
