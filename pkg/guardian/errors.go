package guardian

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointNotConfigured is returned by Connect when no API URL is set.
	ErrEndpointNotConfigured = errors.New("guardian API URL not set (FM_CONFIG_API)")

	// ErrUnreachable matches every *ConnectError.
	ErrUnreachable = errors.New("guardian API unreachable")

	// ErrClientShutdown is returned to callers waiting on a connection attempt
	// that Shutdown superseded.
	ErrClientShutdown = errors.New("guardian client shut down while connecting")

	// ErrConsensusStartFailed is returned when StartConsensus never observed
	// the server running consensus.
	ErrConsensusStartFailed = errors.New("failed to start consensus, see logs for more info")
)

// ConnectError reports a failed connection attempt with a message an operator
// can act on. The transport's own error is kept for diagnostics.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to guardian API at %s, confirm your server is online and try again", e.Endpoint)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func (e *ConnectError) Is(target error) bool {
	return target == ErrUnreachable
}
