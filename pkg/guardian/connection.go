package guardian

import (
	"context"

	"guardian/pkg/transport"

	"go.uber.org/zap"
)

// pendingConnect is one in-flight connection attempt shared by every caller
// that arrives while it runs. conn and err are set before done is closed.
type pendingConnect struct {
	done chan struct{}
	conn transport.Conn
	err  error
}

// Connect returns the open connection, opening one if needed. Concurrent
// callers share a single attempt. ctx only bounds the wait; the attempt itself
// is bounded by the dial timeout and settles for everyone else.
func (c *Client) Connect(ctx context.Context) (transport.Conn, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}

	p := c.pending
	if p == nil {
		if c.opts.Endpoint == "" {
			c.mu.Unlock()
			return nil, ErrEndpointNotConfigured
		}
		p = &pendingConnect{done: make(chan struct{})}
		c.pending = p
		go c.open(p)
	}
	c.mu.Unlock()

	select {
	case <-p.done:
		return p.conn, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) open(p *pendingConnect) {
	defer close(p.done)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	defer cancel()

	c.logger.Debug("Connecting to guardian")
	c.metrics.connectAttempt()

	conn, err := c.dialer.Dial(ctx, c.opts.Endpoint, transport.DialOptions{
		RequestTimeout: c.opts.RequestTimeout,
		CACertPath:     c.opts.CACertPath,
	})

	c.mu.Lock()
	current := c.pending == p
	if current {
		c.pending = nil
	}
	switch {
	case err != nil:
		p.err = &ConnectError{Endpoint: c.opts.Endpoint, Err: err}
	case !current:
		p.err = ErrClientShutdown
	default:
		c.conn = conn
		p.conn = conn
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Failed to connect to guardian", zap.Error(err))
		c.metrics.connectResult(err)
		return
	}
	if !current {
		c.logger.Debug("Discarding connection superseded by shutdown")
		conn.Close()
		return
	}

	c.logger.Info("Connected to guardian")
	c.metrics.connectResult(nil)
	go c.watch(conn)
}

// watch drops conn when the transport reports it broken. The errors channel
// is closed when conn is closed locally.
func (c *Client) watch(conn transport.Conn) {
	err, ok := <-conn.Errors()
	if !ok {
		return
	}

	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	c.logger.Error("Guardian connection failed", zap.Error(err))
	if !current {
		return
	}

	c.metrics.disconnected(true)
	if _, err := conn.Close(); err != nil {
		c.logger.Debug("Error closing failed connection", zap.Error(err))
	}
}

// Shutdown forgets any pending attempt and closes the open connection. It
// reports whether the close completed cleanly, and true when nothing was
// open. Calls after Shutdown reconnect.
func (c *Client) Shutdown() bool {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.pending = nil
	c.mu.Unlock()

	if conn == nil {
		return true
	}

	c.metrics.disconnected(false)
	clean, err := conn.Close()
	if err != nil {
		c.logger.Warn("Error closing guardian connection", zap.Error(err))
	}
	c.logger.Debug("Guardian connection closed", zap.Bool("clean", clean))
	return clean
}
