package guardian

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes recorded in guardian_client_calls_total.
const (
	outcomeOK             = "ok"
	outcomeRPCError       = "rpc_error"
	outcomeTransportError = "transport_error"
	outcomeConnectError   = "connect_error"
)

// Metrics tracks client-side guardian activity. A nil *Metrics records
// nothing.
type Metrics struct {
	// Connection metrics
	ConnectAttempts prometheus.Counter
	ConnectFailures prometheus.Counter
	ConnectionsLost prometheus.Counter
	Connected       prometheus.Gauge

	// Call metrics
	Calls       *prometheus.CounterVec
	CallLatency *prometheus.HistogramVec

	// Consensus start confirmation
	ConfirmAttempts prometheus.Counter

	// Last observed server state, fed by the monitor command
	ServerPhase      *prometheus.GaugeVec
	GuardiansOnline  prometheus.Gauge
	GuardiansTotal   prometheus.Gauge
	PeersFlagged     prometheus.Gauge
	LastStatusPoll   prometheus.Gauge
	StatusPollErrors prometheus.Counter
}

// NewMetrics creates and registers the client metrics. A nil registry uses
// the default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_client_connect_attempts_total",
			Help: "Total number of connection attempts to the guardian API",
		}),
		ConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_client_connect_failures_total",
			Help: "Total number of failed connection attempts",
		}),
		ConnectionsLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_client_connections_lost_total",
			Help: "Total number of open connections dropped by a transport error",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_client_connected",
			Help: "Whether the client currently holds an open connection (0 or 1)",
		}),
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_client_calls_total",
			Help: "Total number of guardian method calls by outcome",
		}, []string{"method", "outcome"}),
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guardian_client_call_duration_seconds",
			Help:    "Guardian method call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_client_consensus_confirm_attempts_total",
			Help: "Total number of attempts to confirm consensus is running",
		}),
		ServerPhase: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "guardian_server_phase",
			Help: "Last observed server phase (1 for the current phase)",
		}, []string{"phase"}),
		GuardiansOnline: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_federation_guardians_online",
			Help: "Guardians online including the polled guardian",
		}),
		GuardiansTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_federation_guardians_total",
			Help: "Federation size as seen by the polled guardian",
		}),
		PeersFlagged: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_federation_peers_flagged",
			Help: "Peers flagged by the polled guardian",
		}),
		LastStatusPoll: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_last_status_poll_timestamp",
			Help: "Timestamp of the last successful status poll",
		}),
		StatusPollErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_status_poll_errors_total",
			Help: "Total number of failed status polls",
		}),
	}
}

func (m *Metrics) connectAttempt() {
	if m == nil {
		return
	}
	m.ConnectAttempts.Inc()
}

func (m *Metrics) connectResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ConnectFailures.Inc()
		return
	}
	m.Connected.Set(1)
}

func (m *Metrics) disconnected(lost bool) {
	if m == nil {
		return
	}
	if lost {
		m.ConnectionsLost.Inc()
	}
	m.Connected.Set(0)
}

func (m *Metrics) observeCall(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(method, outcome).Inc()
	if outcome != outcomeConnectError {
		m.CallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) confirmAttempt() {
	if m == nil {
		return
	}
	m.ConfirmAttempts.Inc()
}

// ObserveStatus records a successful status poll.
func (m *Metrics) ObserveStatus(status *StatusResponse, at time.Time) {
	if m == nil || status == nil {
		return
	}
	m.ServerPhase.Reset()
	m.ServerPhase.WithLabelValues(string(status.Server)).Set(1)

	online, total := status.GuardiansOnline()
	m.GuardiansOnline.Set(float64(online))
	m.GuardiansTotal.Set(float64(total))
	if status.Consensus != nil {
		m.PeersFlagged.Set(float64(status.Consensus.PeersFlagged))
	} else {
		m.PeersFlagged.Set(0)
	}
	m.LastStatusPoll.Set(float64(at.Unix()))
}

// ObserveStatusError records a failed status poll.
func (m *Metrics) ObserveStatusError() {
	if m == nil {
		return
	}
	m.StatusPollErrors.Inc()
}
