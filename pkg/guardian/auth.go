package guardian

import (
	"context"

	"go.uber.org/zap"
)

// TestPassword stores password and checks it with an auth call. On success
// the password stays stored; on any failure it is cleared and false is
// returned. Connection problems are indistinguishable from a wrong password
// here; use Auth when the cause matters.
func (c *Client) TestPassword(ctx context.Context, password string) bool {
	if err := c.creds.Set(password); err != nil {
		c.logger.Warn("Failed to store password", zap.Error(err))
		c.clearAfterFailedTest()
		return false
	}

	if err := c.Auth(ctx); err != nil {
		c.logger.Warn("Password rejected", zap.Error(err))
		c.clearAfterFailedTest()
		return false
	}
	return true
}

func (c *Client) clearAfterFailedTest() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Warn("Failed to clear password", zap.Error(err))
	}
}

// Password returns the stored credential, if any.
func (c *Client) Password() (string, bool) {
	return c.creds.Get()
}

// ClearPassword removes the stored credential.
func (c *Client) ClearPassword() error {
	return c.creds.Clear()
}

// Auth checks the stored credential against the guardian.
func (c *Client) Auth(ctx context.Context) error {
	return c.Call(ctx, MethodAuth, nil, nil)
}
