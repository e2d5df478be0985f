package guardian

import (
	"context"
	"strconv"
)

// Status reports the server phase and, once running, peer connectivity.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if err := c.Call(ctx, MethodStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Version(ctx context.Context) (Versions, error) {
	var versions Versions
	if err := c.Call(ctx, MethodVersion, nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *Client) FetchEpochCount(ctx context.Context) (uint64, error) {
	var count uint64
	if err := c.Call(ctx, MethodFetchEpochCount, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) FederationStatus(ctx context.Context) (FederationStatus, error) {
	var status FederationStatus
	if err := c.Call(ctx, MethodConsensusStatus, nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// InviteCode returns the code clients use to join the federation.
func (c *Client) InviteCode(ctx context.Context) (string, error) {
	var code string
	if err := c.Call(ctx, MethodInviteCode, nil, &code); err != nil {
		return "", err
	}
	return code, nil
}

// Config fetches the client config for the federation reachable through
// connection, typically an invite code.
func (c *Client) Config(ctx context.Context, connection string) (ConfigResponse, error) {
	var config ConfigResponse
	if err := c.Call(ctx, MethodConfig, connection, &config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Client) Audit(ctx context.Context) (*AuditSummary, error) {
	var summary AuditSummary
	if err := c.Call(ctx, MethodAudit, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ModuleMethod composes the method name for op on module moduleID.
func ModuleMethod(moduleID uint16, op ModuleOp) string {
	return "module_" + strconv.FormatUint(uint64(moduleID), 10) + "_" + string(op)
}

// ModuleCall invokes op on module moduleID with no params.
func (c *Client) ModuleCall(ctx context.Context, moduleID uint16, op ModuleOp, result any) error {
	return c.CallAnyMethod(ctx, ModuleMethod(moduleID, op), nil, result)
}
