package github

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/google/go-github/v69/github"

	"github.com/sgaunet/ci-bridge/internal/labels"
	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/runner"
)

const (
	// actionsRunnerVersion is the pinned actions/runner release used
	// when provisioning a binary locally.
	actionsRunnerVersion = "2.319.1"
	runnerPageSize       = 100
)

// RunnerToken returns an ephemeral registration token. GitHub runners
// are self-registering: config.sh consumes this token directly, so
// there is no separate registration call.
func (c *Client) RunnerToken(ctx context.Context) (string, error) {
	token, _, err := c.client.Actions.CreateRegistrationToken(ctx, c.owner, c.repo)
	if err != nil {
		return "", fmt.Errorf("failed to create registration token: %w", err)
	}
	return token.GetToken(), nil
}

// RegisterRunner is not a concept on GitHub; registration happens
// implicitly when the runner binary consumes its ephemeral token.
func (c *Client) RegisterRunner(_ context.Context, _ string, _ []string) (string, error) {
	return "", driver.Unsupported(driver.KindGitHub, "explicit runner registration")
}

// UnregisterRunner deletes the runner with the given ID.
func (c *Client) UnregisterRunner(ctx context.Context, id int64) error {
	if _, err := c.client.Actions.RemoveRunner(ctx, c.owner, c.repo, id); err != nil {
		return fmt.Errorf("failed to remove runner: %w", err)
	}
	return nil
}

// RunnerByName returns the runner whose name matches exactly, or
// (nil, nil) when absent.
func (c *Client) RunnerByName(ctx context.Context, name string) (*driver.Runner, error) {
	all, err := c.listRunners(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, nil
}

// RunnersByLabels returns every runner whose label set contains all the
// requested labels.
func (c *Client) RunnersByLabels(ctx context.Context, want []string) ([]driver.Runner, error) {
	all, err := c.listRunners(ctx)
	if err != nil {
		return nil, err
	}

	var matched []driver.Runner
	for _, r := range all {
		if labels.Superset(r.Labels, want) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (c *Client) listRunners(ctx context.Context) ([]driver.Runner, error) {
	opts := &github.ListRunnersOptions{
		ListOptions: github.ListOptions{PerPage: runnerPageSize},
	}

	var result []driver.Runner
	for {
		page, resp, err := c.client.Actions.ListRunners(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list runners: %w", err)
		}
		for _, r := range page.Runners {
			result = append(result, normalizeRunner(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

func normalizeRunner(r *github.Runner) driver.Runner {
	names := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		names = append(names, l.GetName())
	}
	return driver.Runner{
		ID:     r.GetID(),
		Name:   r.GetName(),
		Labels: names,
		Online: r.GetStatus() == "online",
	}
}

// StartRunner provisions the actions/runner distribution if absent,
// registers it through config.sh with an ephemeral token and spawns
// run.sh as a detached child. IdleTimeout is not enforced here: the
// vendor binary has no idle flag, so single-job operation is the only
// supported bound (--ephemeral).
func (c *Client) StartRunner(ctx context.Context, spec driver.RunnerSpec) (*driver.RunnerProcess, error) {
	workDir := spec.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "ci-bridge-actions-runner")
	}

	configScript, err := runner.EnsureBinary(workDir, actionsRunnerURL(), "config.sh")
	if err != nil {
		return nil, err
	}

	token, err := c.RunnerToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed preparing runner: %w", err)
	}

	args := []string{
		"--url", "https://github.com/" + c.owner + "/" + c.repo,
		"--token", token,
		"--name", spec.Name,
		"--labels", labels.Join(spec.Labels),
		"--work", "_work",
		"--unattended",
		"--disableupdate",
	}
	if spec.Single {
		args = append(args, "--ephemeral")
	}

	configure := exec.CommandContext(ctx, configScript, args...)
	configure.Dir = workDir
	if out, err := configure.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed preparing runner: config.sh: %w: %s", err, out)
	}

	run := exec.Command(filepath.Join(workDir, "run.sh"))
	run.Dir = workDir
	return runner.Spawn(run, c.ParseLogLine, c.log)
}

func actionsRunnerURL() string {
	osName := "linux"
	if runtime.GOOS == "darwin" {
		osName = "osx"
	}
	return fmt.Sprintf(
		"https://github.com/actions/runner/releases/download/v%s/actions-runner-%s-x64-%s.tar.gz",
		actionsRunnerVersion, osName, actionsRunnerVersion)
}
