package guardian

import (
	"sync"
	"time"

	"guardian/pkg/credential"
	"guardian/pkg/transport"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// DefaultRequestTimeout bounds a single call. Distributed key generation
	// can keep run_dkg open for hours.
	DefaultRequestTimeout = 5 * time.Hour

	DefaultDialTimeout     = 30 * time.Second
	DefaultConsensusGrace  = 5 * time.Second
	DefaultConfirmAttempts = 10
	DefaultConfirmInterval = time.Second
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	// Endpoint is the guardian API URL. It is only checked when the first
	// connection is attempted.
	Endpoint   string
	CACertPath string

	RequestTimeout time.Duration
	DialTimeout    time.Duration

	ConsensusGrace  time.Duration
	ConfirmAttempts int
	ConfirmInterval time.Duration

	Credentials credential.Store
	Logger      *zap.Logger
	Metrics     *Metrics
	Clock       clock.Clock
}

// Client drives one guardian over a single lazily opened connection. It is
// safe for concurrent use.
type Client struct {
	dialer  transport.Dialer
	opts    Options
	creds   credential.Store
	logger  *zap.Logger
	metrics *Metrics
	clock   clock.Clock

	mu      sync.Mutex
	conn    transport.Conn
	pending *pendingConnect
}

// New creates a client that opens connections with dialer. No connection is
// made until the first call.
func New(dialer transport.Dialer, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Credentials == nil {
		opts.Credentials = credential.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ConsensusGrace <= 0 {
		opts.ConsensusGrace = DefaultConsensusGrace
	}
	if opts.ConfirmAttempts <= 0 {
		opts.ConfirmAttempts = DefaultConfirmAttempts
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = DefaultConfirmInterval
	}

	return &Client{
		dialer:  dialer,
		opts:    opts,
		creds:   opts.Credentials,
		logger:  opts.Logger.With(zap.String("endpoint", opts.Endpoint)),
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
}

// Endpoint returns the configured API URL.
func (c *Client) Endpoint() string {
	return c.opts.Endpoint
}
