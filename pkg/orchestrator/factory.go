package orchestrator

import (
	"fmt"

	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/pkg/bitbucket"
	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/github"
	"github.com/sgaunet/ci-bridge/pkg/gitlab"
)

// newDriver creates the driver implementation for kind.
//
//nolint:ireturn // Factory function must return interface to enable platform abstraction.
func newDriver(kind driver.Kind, cfg driver.Config, uploader driver.Uploader, log *bullets.Logger) (driver.Driver, error) {
	switch kind {
	case driver.KindGitHub:
		client, err := github.New(cfg, uploader)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub driver: %w", err)
		}
		client.SetLogger(log)
		return client, nil

	case driver.KindGitLab:
		client, err := gitlab.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitLab driver: %w", err)
		}
		client.SetLogger(log)
		return client, nil

	case driver.KindBitbucket:
		client, err := bitbucket.New(cfg, uploader)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bitbucket driver: %w", err)
		}
		client.SetLogger(log)
		return client, nil

	default:
		return nil, fmt.Errorf("%w: %s", driver.ErrUnknownKind, kind)
	}
}
