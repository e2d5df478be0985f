package guardian

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StartConsensus asks the guardian to start consensus and waits until a
// fresh connection reports ConsensusRunning.
//
// The server restarts to enter the running phase and may never answer
// start_consensus, so the reply is only awaited for the consensus grace
// period. A failed reply still waits out the grace period. Confirmation then
// reconnects and polls status up to ConfirmAttempts times, ConfirmInterval
// apart, before giving up with ErrConsensusStartFailed. A missing endpoint
// is reported as ErrEndpointNotConfigured without any attempt.
func (c *Client) StartConsensus(ctx context.Context) error {
	if c.opts.Endpoint == "" {
		return ErrEndpointNotConfigured
	}

	started := make(chan error, 1)
	go func() {
		started <- c.Call(ctx, MethodStartConsensus, nil, nil)
	}()

	grace := c.clock.Timer(c.opts.ConsensusGrace)
	defer grace.Stop()

	select {
	case err := <-started:
		if err != nil {
			c.logger.Warn("start_consensus failed, waiting for server restart", zap.Error(err))
			select {
			case <-grace.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	case <-grace.C:
		c.logger.Debug("No reply to start_consensus, checking status",
			zap.Duration("grace", c.opts.ConsensusGrace))
	case <-ctx.Done():
		return ctx.Err()
	}

	for attempt := 1; attempt <= c.opts.ConfirmAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.metrics.confirmAttempt()
		err := c.confirmConsensusRunning(ctx)
		if err == nil {
			c.logger.Info("Consensus running", zap.Int("attempt", attempt))
			return nil
		}

		c.logger.Warn("Failed to confirm consensus running",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.opts.ConfirmAttempts),
			zap.Error(err))

		if attempt < c.opts.ConfirmAttempts {
			if err := c.sleep(ctx, c.opts.ConfirmInterval); err != nil {
				return err
			}
		}
	}

	return ErrConsensusStartFailed
}

// confirmConsensusRunning checks status over a newly opened connection so a
// socket to the pre-restart server is never reused.
func (c *Client) confirmConsensusRunning(ctx context.Context) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	c.Shutdown()

	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if status.Server != ServerConsensusRunning {
		return fmt.Errorf("expected status %s, got %s", ServerConsensusRunning, status.Server)
	}
	return nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := c.clock.Timer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
