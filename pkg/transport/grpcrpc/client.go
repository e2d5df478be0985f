package grpcrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"guardian/pkg/transport"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service every guardian method is invoked on.
const ServiceName = "guardian.GuardianApi"

// MethodPath returns the full gRPC method path for a guardian method name.
func MethodPath(method string) string {
	return "/" + ServiceName + "/" + method
}

// Dialer opens gRPC connections to grpc:// (plaintext) or grpcs:// (TLS)
// endpoints.
type Dialer struct {
	logger    *zap.Logger
	extraOpts []grpc.DialOption
}

// NewDialer creates a gRPC dialer. Extra dial options are appended after the
// defaults.
func NewDialer(logger *zap.Logger, opts ...grpc.DialOption) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{logger: logger, extraOpts: opts}
}

// Dial creates the client connection and blocks until it is ready or fails.
func (d *Dialer) Dial(ctx context.Context, endpoint string, opts transport.DialOptions) (transport.Conn, error) {
	target, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	dialOpts := []grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    time.Minute,
			Timeout: 10 * time.Second,
		}),
		// connection loss must surface as a state change, not idleness
		grpc.WithIdleTimeout(0),
	}

	if secure {
		tlsConfig, err := transport.TLSConfig(opts.CACertPath)
		if err != nil {
			return nil, err
		}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, d.extraOpts...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", endpoint, err)
	}

	if err := waitReady(ctx, cc); err != nil {
		cc.Close()
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	c := &conn{
		cc:             cc,
		logger:         d.logger.With(zap.String("endpoint", endpoint)),
		requestTimeout: opts.RequestTimeout,
		errs:           make(chan error, 1),
		stopWatch:      stopWatch,
		watchDone:      make(chan struct{}),
	}
	go c.watch(watchCtx)

	return c, nil
}

func parseEndpoint(endpoint string) (target string, secure bool, err error) {
	switch {
	case strings.HasPrefix(endpoint, "grpc://"):
		return "passthrough:///" + strings.TrimPrefix(endpoint, "grpc://"), false, nil
	case strings.HasPrefix(endpoint, "grpcs://"):
		return "passthrough:///" + strings.TrimPrefix(endpoint, "grpcs://"), true, nil
	default:
		return "", false, fmt.Errorf("unsupported gRPC endpoint %q (expected grpc:// or grpcs://)", endpoint)
	}
}

func waitReady(ctx context.Context, cc *grpc.ClientConn) error {
	cc.Connect()
	for {
		state := cc.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return errors.New("server unavailable")
		case connectivity.Shutdown:
			return transport.ErrClosed
		}
		if !cc.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

type conn struct {
	cc             *grpc.ClientConn
	logger         *zap.Logger
	requestTimeout time.Duration

	mu     sync.Mutex
	closed bool
	lost   bool

	errs      chan error
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// watch reports the first loss of the ready connection on errs.
func (c *conn) watch(ctx context.Context) {
	defer close(c.watchDone)

	state := c.cc.GetState()
	for {
		if !c.cc.WaitForStateChange(ctx, state) {
			return
		}
		state = c.cc.GetState()
		if state != connectivity.TransientFailure && state != connectivity.Idle {
			continue
		}

		c.mu.Lock()
		c.lost = true
		c.mu.Unlock()

		c.logger.Warn("Guardian connection lost", zap.String("state", state.String()))
		c.errs <- fmt.Errorf("guardian connection lost: %s", state)
		return
	}
}

func (c *conn) Call(ctx context.Context, method string, params any) (*transport.Response, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, transport.ErrClosed
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	var req structpb.Value
	if err := protojson.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	var reply structpb.Value
	if err := c.cc.Invoke(ctx, MethodPath(method), &req, &reply); err != nil {
		c.mu.Lock()
		down := c.closed || c.lost
		c.mu.Unlock()
		if down {
			return nil, fmt.Errorf("%w: %v", transport.ErrClosed, err)
		}
		return nil, mapError(method, err)
	}

	out, err := protojson.Marshal(&reply)
	if err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	var resp transport.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	return &resp, nil
}

func mapError(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("calling %s: %w", method, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("calling %s: %w", method, context.Canceled)
	default:
		return fmt.Errorf("calling %s: %w", method, err)
	}
}

func (c *conn) Close() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stopWatch()
	<-c.watchDone

	c.mu.Lock()
	lost := c.lost
	c.mu.Unlock()

	err := c.cc.Close()
	close(c.errs)

	return err == nil && !lost, err
}

func (c *conn) Errors() <-chan error {
	return c.errs
}
