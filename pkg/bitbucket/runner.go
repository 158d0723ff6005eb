package bitbucket

import (
	"context"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// Bitbucket Cloud exposes no self-hosted runner API usable here; every
// runner capability fails explicitly rather than silently no-opping.

// RunnerToken is unsupported on Bitbucket.
func (c *Client) RunnerToken(_ context.Context) (string, error) {
	return "", driver.Unsupported(driver.KindBitbucket, "runner tokens")
}

// RegisterRunner is unsupported on Bitbucket.
func (c *Client) RegisterRunner(_ context.Context, _ string, _ []string) (string, error) {
	return "", driver.Unsupported(driver.KindBitbucket, "runner registration")
}

// UnregisterRunner is unsupported on Bitbucket.
func (c *Client) UnregisterRunner(_ context.Context, _ int64) error {
	return driver.Unsupported(driver.KindBitbucket, "runner deregistration")
}

// RunnerByName is unsupported on Bitbucket.
func (c *Client) RunnerByName(_ context.Context, _ string) (*driver.Runner, error) {
	return nil, driver.Unsupported(driver.KindBitbucket, "runner lookup")
}

// RunnersByLabels is unsupported on Bitbucket.
func (c *Client) RunnersByLabels(_ context.Context, _ []string) ([]driver.Runner, error) {
	return nil, driver.Unsupported(driver.KindBitbucket, "runner lookup")
}

// StartRunner is unsupported on Bitbucket.
func (c *Client) StartRunner(_ context.Context, _ driver.RunnerSpec) (*driver.RunnerProcess, error) {
	return nil, driver.Unsupported(driver.KindBitbucket, "self-hosted runners")
}
