package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by Call on a connection that has been closed,
// either locally or by the remote end.
var ErrClosed = errors.New("transport: connection closed")

// DialOptions carries the per-connection settings shared by every transport.
type DialOptions struct {
	// RequestTimeout bounds a single request/response round trip. Key
	// generation on the guardian can run for hours, so callers should pick
	// an hour-scale value rather than a short default.
	RequestTimeout time.Duration

	// CACertPath optionally names a PEM bundle used to verify the server
	// when the endpoint uses TLS.
	CACertPath string
}

// Dialer opens connections to a guardian endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, opts DialOptions) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint string, opts DialOptions) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, endpoint string, opts DialOptions) (Conn, error) {
	return f(ctx, endpoint, opts)
}

// Conn is one open request/response channel to a guardian. Implementations
// correlate responses to requests themselves and are safe for concurrent use.
type Conn interface {
	// Call sends method with params as the single positional argument and
	// waits for the matching response. A non-nil error means the round trip
	// itself failed; application errors arrive in Response.Error.
	Call(ctx context.Context, method string, params any) (*Response, error)

	// Close shuts the connection down. clean reports whether the close was
	// locally initiated and completed an orderly close handshake.
	Close() (clean bool, err error)

	// Errors delivers at most one asynchronous fatal error (for example the
	// remote end dropping the connection). The channel is closed once the
	// connection is closed.
	Errors() <-chan error
}

// Envelope is the single positional argument of every guardian request.
// Both fields serialize as null when unset.
type Envelope struct {
	Auth   *string `json:"auth"`
	Params any     `json:"params"`
}

// NewEnvelope builds an envelope, mapping an empty credential to null.
func NewEnvelope(credential string, params any) Envelope {
	env := Envelope{Params: params}
	if credential != "" {
		env.Auth = &credential
	}
	return env
}

// Response is a decoded guardian reply: exactly one of Result or Error is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is an application-level error returned by the guardian. It is
// passed through to callers without reinterpretation.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
