package guardian

import (
	"context"
	"fmt"
)

// SetPassword stores password locally and sets it as the guardian's admin
// password. The server takes the new password from the request's auth field.
func (c *Client) SetPassword(ctx context.Context, password string) error {
	if err := c.creds.Set(password); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return c.Call(ctx, MethodSetPassword, nil, nil)
}

type configGenConnections struct {
	OurName      string `json:"our_name"`
	LeaderAPIURL string `json:"leader_api_url,omitempty"`
}

// SetConfigGenConnections names this guardian and, for followers, points it
// at the leader's API. The leader passes an empty leaderURL.
func (c *Client) SetConfigGenConnections(ctx context.Context, ourName, leaderURL string) error {
	return c.Call(ctx, MethodSetConfigGenConnections, configGenConnections{
		OurName:      ourName,
		LeaderAPIURL: leaderURL,
	}, nil)
}

func (c *Client) DefaultConfigGenParams(ctx context.Context) (ConfigGenParams, error) {
	var params ConfigGenParams
	if err := c.Call(ctx, MethodGetDefaultConfigGenParams, nil, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func (c *Client) ConsensusConfigGenParams(ctx context.Context) (ConsensusState, error) {
	var state ConsensusState
	if err := c.Call(ctx, MethodGetConsensusConfigGenParams, nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) SetConfigGenParams(ctx context.Context, params ConfigGenParams) error {
	return c.Call(ctx, MethodSetConfigGenParams, params, nil)
}

// VerifyConfigHash returns the config hash each peer generated.
func (c *Client) VerifyConfigHash(ctx context.Context) (PeerHashMap, error) {
	var hashes PeerHashMap
	if err := c.Call(ctx, MethodGetVerifyConfigHash, nil, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// RunDKG starts distributed key generation. The call returns when the server
// finishes, which can take hours.
func (c *Client) RunDKG(ctx context.Context) error {
	return c.Call(ctx, MethodRunDKG, nil, nil)
}

// VerifiedConfigs confirms the operator checked the peers' config hashes.
func (c *Client) VerifiedConfigs(ctx context.Context) error {
	return c.Call(ctx, MethodVerifiedConfigs, nil, nil)
}
