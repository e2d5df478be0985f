package guardian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"guardian/pkg/transport"

	"go.uber.org/zap"
)

// Method is a guardian RPC method name.
type Method string

// Methods available in every phase.
const (
	MethodAuth   Method = "auth"
	MethodStatus Method = "status"
)

// Methods served while the federation is being set up.
const (
	MethodSetPassword                 Method = "set_password"
	MethodSetConfigGenConnections     Method = "set_config_gen_connections"
	MethodGetDefaultConfigGenParams   Method = "get_default_config_gen_params"
	MethodGetConsensusConfigGenParams Method = "get_consensus_config_gen_params"
	MethodSetConfigGenParams          Method = "set_config_gen_params"
	MethodGetVerifyConfigHash         Method = "get_verify_config_hash"
	MethodRunDKG                      Method = "run_dkg"
	MethodVerifiedConfigs             Method = "verified_configs"
	MethodStartConsensus              Method = "start_consensus"
)

// Methods served once consensus is running.
const (
	MethodVersion         Method = "version"
	MethodFetchEpochCount Method = "fetch_epoch_count"
	MethodConsensusStatus Method = "consensus_status"
	MethodInviteCode      Method = "invite_code"
	MethodConfig          Method = "config"
	MethodAudit           Method = "audit"
)

// Call invokes a known guardian method. params may be nil. When result is
// non-nil the response result is decoded into it; a null result leaves it
// untouched. An error reply from the server is returned as
// *transport.RPCError exactly as received.
func (c *Client) Call(ctx context.Context, method Method, params, result any) error {
	return c.CallAnyMethod(ctx, string(method), params, result)
}

// CallAnyMethod is Call for method names composed at runtime.
func (c *Client) CallAnyMethod(ctx context.Context, method string, params, result any) error {
	start := c.clock.Now()

	conn, err := c.Connect(ctx)
	if err != nil {
		c.logger.Error("Error calling guardian method", zap.String("method", method), zap.Error(err))
		c.metrics.observeCall(method, outcomeConnectError, 0)
		return err
	}

	// read after connecting so a credential set meanwhile is used
	auth, _ := c.creds.Get()

	c.logger.Debug("Calling guardian method", zap.String("method", method))
	resp, err := conn.Call(ctx, method, transport.NewEnvelope(auth, params))
	elapsed := c.clock.Since(start)

	if err != nil {
		c.logger.Error("Error calling guardian method", zap.String("method", method), zap.Error(err))
		c.metrics.observeCall(method, outcomeTransportError, elapsed)
		return err
	}
	if resp.Error != nil {
		c.logger.Error("Guardian method returned error",
			zap.String("method", method),
			zap.Int("code", resp.Error.Code),
			zap.String("message", resp.Error.Message))
		c.metrics.observeCall(method, outcomeRPCError, elapsed)
		return resp.Error
	}

	c.metrics.observeCall(method, outcomeOK, elapsed)
	c.logger.Debug("Guardian method result",
		zap.String("method", method),
		zap.ByteString("result", resp.Result),
		zap.Duration("elapsed", elapsed))

	if result == nil || isNull(resp.Result) {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// IsRPCError reports whether err is an error reply from the guardian, as
// opposed to a connection or transport failure.
func IsRPCError(err error) bool {
	var rpcErr *transport.RPCError
	return errors.As(err, &rpcErr)
}
