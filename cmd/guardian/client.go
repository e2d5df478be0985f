package main

import (
	"fmt"

	"guardian/pkg/config"
	"guardian/pkg/credential"
	"guardian/pkg/guardian"
	"guardian/pkg/transport"
	"guardian/pkg/transport/grpcrpc"
	"guardian/pkg/transport/wsrpc"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app bundles what every command that talks to a guardian needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *guardian.Client
}

// loadConfig applies the persistent flags over config.Load.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}
	if transportFlag != "" {
		cfg.Transport = config.Transport(transportFlag)
	}
	if caCertFlag != "" {
		cfg.CACert = caCertFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDialer(cfg *config.Config, logger *zap.Logger) transport.Dialer {
	switch cfg.ResolvedTransport() {
	case config.TransportGRPC:
		return grpcrpc.NewDialer(logger)
	default:
		return wsrpc.NewDialer(logger)
	}
}

func newCredentialStore(cfg *config.Config, logger *zap.Logger) credential.Store {
	if cfg.CredentialStore == config.CredentialMemory {
		return credential.NewMemoryStore()
	}
	return credential.NewSessionStore(cfg.SessionDir, logger)
}

func newApp(metrics *guardian.Metrics) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(verbose, cfg.LogLevel)

	client := guardian.New(newDialer(cfg, logger), guardian.Options{
		Endpoint:        cfg.APIURL,
		CACertPath:      cfg.CACert,
		RequestTimeout:  cfg.RequestTimeout,
		DialTimeout:     cfg.DialTimeout,
		ConsensusGrace:  cfg.ConsensusGrace,
		ConfirmAttempts: cfg.ConfirmAttempts,
		ConfirmInterval: cfg.ConfirmInterval,
		Credentials:     newCredentialStore(cfg, logger),
		Logger:          logger,
		Metrics:         metrics,
	})

	return &app{cfg: cfg, logger: logger, client: client}, nil
}

func (a *app) close() {
	a.client.Shutdown()
	a.logger.Sync()
}

// withApp adapts a command body that needs a connected client into a RunE.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, a, args)
	}
}
