package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"guardian/pkg/guardian"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func monitorCmd() *cobra.Command {
	var (
		metricsAddr string
		interval    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll guardian status and serve health and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := guardian.NewMetrics(registry)

			a, err := newApp(metrics)
			if err != nil {
				return err
			}
			defer a.close()

			mon := newStatusMonitor(a.client, metrics, clock.New(), interval, a.logger)
			return serveMonitor(cmd.Context(), metricsAddr, mon, registry, a.logger)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9184", "listen address for /health and /metrics")
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "status poll interval")
	return cmd
}

type statusPoller interface {
	Status(ctx context.Context) (*guardian.StatusResponse, error)
}

// statusMonitor polls a guardian's status on a fixed interval, feeding the
// metrics and the health handlers.
type statusMonitor struct {
	poller   statusPoller
	metrics  *guardian.Metrics
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	last     *guardian.StatusResponse
	lastPoll time.Time
	lastErr  error
}

func newStatusMonitor(poller statusPoller, metrics *guardian.Metrics, clk clock.Clock, interval time.Duration, logger *zap.Logger) *statusMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}

	return &statusMonitor{
		poller:   poller,
		metrics:  metrics,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// run polls immediately and then on every tick until ctx is done.
func (m *statusMonitor) run(ctx context.Context) {
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *statusMonitor) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	status, err := m.poller.Status(ctx)
	now := m.clock.Now()

	m.mu.Lock()
	m.lastPoll = now
	m.lastErr = err
	if err == nil {
		m.last = status
	}
	m.mu.Unlock()

	if err != nil {
		m.metrics.ObserveStatusError()
		m.logger.Warn("Status poll failed", zap.Error(err))
		return
	}

	m.metrics.ObserveStatus(status, now)
	online, total := status.GuardiansOnline()
	m.logger.Debug("Status poll completed",
		zap.String("server", string(status.Server)),
		zap.Int("online", online),
		zap.Int("total", total))
}

type healthReport struct {
	Status    string                `json:"status"`
	Server    guardian.ServerStatus `json:"server,omitempty"`
	Peers     guardian.PeerHealth   `json:"peers,omitempty"`
	Online    int                   `json:"guardians_online,omitempty"`
	Total     int                   `json:"guardians_total,omitempty"`
	Error     string                `json:"error,omitempty"`
	LastPoll  string                `json:"last_poll,omitempty"`
	Timestamp string                `json:"timestamp"`
}

// report classifies the latest poll. A failed or missing poll and a guardian
// below quorum are unhealthy; a guardian at quorum with peers down is
// degraded.
func (m *statusMonitor) report() (healthReport, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := healthReport{Timestamp: m.clock.Now().Format(time.RFC3339)}
	if !m.lastPoll.IsZero() {
		r.LastPoll = m.lastPoll.Format(time.RFC3339)
	}

	switch {
	case m.lastPoll.IsZero():
		r.Status = "unknown"
		return r, http.StatusServiceUnavailable
	case m.lastErr != nil:
		r.Status = "unreachable"
		r.Error = m.lastErr.Error()
		return r, http.StatusServiceUnavailable
	}

	r.Server = m.last.Server
	if m.last.Consensus == nil {
		r.Status = "healthy"
		return r, http.StatusOK
	}

	r.Online, r.Total = m.last.GuardiansOnline()
	r.Peers = m.last.Health()
	switch r.Peers {
	case guardian.HealthAll:
		r.Status = "healthy"
	case guardian.HealthQuorum:
		r.Status = "degraded"
	default:
		r.Status = "unhealthy"
		return r, http.StatusServiceUnavailable
	}
	return r, http.StatusOK
}

func (m *statusMonitor) registerHandlers(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/health/live", m.handleLiveness)
	mux.HandleFunc("/health/ready", m.handleReadiness)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func (m *statusMonitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, code := m.report()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		m.logger.Debug("Failed to write health response", zap.Error(err))
	}
}

func (m *statusMonitor) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReadiness reports ready once the last poll reached the guardian.
func (m *statusMonitor) handleReadiness(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	ready := !m.lastPoll.IsZero() && m.lastErr == nil
	m.mu.RUnlock()

	if ready {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("NOT READY"))
}

// serveMonitor runs the poll loop and the HTTP server until ctx is done.
func serveMonitor(ctx context.Context, addr string, mon *statusMonitor, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mon.registerHandlers(mux, gatherer)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	go mon.run(pollCtx)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}
