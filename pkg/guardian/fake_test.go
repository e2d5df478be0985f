package guardian

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"guardian/pkg/credential"
	"guardian/pkg/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testEndpoint = "ws://guardian.test:18174"

// handlerFunc answers one call on a fake connection.
type handlerFunc func(ctx context.Context, conn *fakeConn, method string, env transport.Envelope) (*transport.Response, error)

type sentCall struct {
	method string
	env    transport.Envelope
}

type fakeConn struct {
	id      int
	handler handlerFunc
	errs    chan error
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) Call(ctx context.Context, method string, params any) (*transport.Response, error) {
	if f.isClosed() {
		return nil, transport.ErrClosed
	}
	return f.handler(ctx, f, method, params.(transport.Envelope))
}

func (f *fakeConn) Close() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, nil
	}
	f.closed = true
	close(f.done)
	close(f.errs)
	return true, nil
}

func (f *fakeConn) Errors() <-chan error {
	return f.errs
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDialer hands out fake connections sharing one handler and records
// every call made on them.
type fakeDialer struct {
	handler handlerFunc

	// gate, when set, holds every Dial until it is closed.
	gate chan struct{}
	// fail decides whether dial number n (1-based) fails.
	fail func(n int) error

	mu    sync.Mutex
	dials int
	conns []*fakeConn
	calls []sentCall
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string, opts transport.DialOptions) (transport.Conn, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.fail != nil {
		if err := d.fail(n); err != nil {
			return nil, err
		}
	}

	conn := &fakeConn{
		id:   n,
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	conn.handler = func(ctx context.Context, c *fakeConn, method string, env transport.Envelope) (*transport.Response, error) {
		d.mu.Lock()
		d.calls = append(d.calls, sentCall{method: method, env: env})
		d.mu.Unlock()
		if d.handler == nil {
			return &transport.Response{Result: json.RawMessage("null")}, nil
		}
		return d.handler(ctx, c, method, env)
	}

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) sent() []sentCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentCall(nil), d.calls...)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

type testClient struct {
	*Client
	dialer *fakeDialer
	creds  *credential.MemoryStore
	clock  *clock.Mock
}

func newTestClient(t *testing.T, dialer *fakeDialer, modify ...func(*Options)) *testClient {
	t.Helper()
	creds := credential.NewMemoryStore()
	mock := clock.NewMock()
	opts := Options{
		Endpoint:    testEndpoint,
		Credentials: creds,
		Logger:      zaptest.NewLogger(t),
		Clock:       mock,
	}
	for _, m := range modify {
		m(&opts)
	}
	c := New(dialer, opts)
	t.Cleanup(func() { c.Shutdown() })
	return &testClient{Client: c, dialer: dialer, creds: creds, clock: mock}
}

func result(t *testing.T, v any) *transport.Response {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return &transport.Response{Result: data}
}

func statusResult(t *testing.T, status ServerStatus) *transport.Response {
	return result(t, StatusResponse{Server: status})
}
