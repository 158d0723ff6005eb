package runner

import (
	"context"
	"fmt"

	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// Manager sequences runner lifecycle operations on top of one driver.
type Manager struct {
	driver driver.Driver
	log    *bullets.Logger
}

// NewManager creates a lifecycle manager bound to the given driver.
func NewManager(d driver.Driver) *Manager {
	return &Manager{driver: d, log: logger.NoLogger()}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(log *bullets.Logger) {
	m.log = log
}

// Start registers and spawns a runner per spec. Registration happens
// inside the driver where the platform requires it; after spawn the
// caller owns the returned process handle. A runner can remain
// registered-but-never-spawned when spawn fails after registration;
// this window is accepted and surfaced through the returned error.
func (m *Manager) Start(ctx context.Context, spec driver.RunnerSpec) (*driver.RunnerProcess, error) {
	m.log.Info(fmt.Sprintf("Starting runner %s on %s", spec.Name, m.driver.Kind()))

	proc, err := m.driver.StartRunner(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to start runner %s: %w", spec.Name, err)
	}

	m.log.Infof("Runner %s spawned (pid %d)", spec.Name, proc.Cmd.Process.Pid)
	return proc, nil
}

// Unregister resolves name to the platform runner ID and deletes the
// registration. A missing name is an error: succeeding silently would
// mask a caller's typo.
func (m *Manager) Unregister(ctx context.Context, name string) error {
	r, err := m.driver.RunnerByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up runner %s: %w", name, err)
	}
	if r == nil {
		return fmt.Errorf("runner %q: %w", name, driver.ErrNotFound)
	}

	if err := m.driver.UnregisterRunner(ctx, r.ID); err != nil {
		return fmt.Errorf("failed to unregister runner %s: %w", name, err)
	}

	m.log.Infof("Runner %s (id %d) unregistered", name, r.ID)
	return nil
}
