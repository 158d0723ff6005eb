package gitlab

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sgaunet/ci-bridge/internal/labels"
	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/runner"
)

const runnerPageSize = 100

// RunnerToken returns the project's runner registration token.
func (c *Client) RunnerToken(ctx context.Context) (string, error) {
	project, _, err := c.client.Projects.GetProject(c.projectPath, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get project: %w", err)
	}
	return project.RunnersToken, nil
}

// RegisterRunner exchanges the project registration token for a
// runner-specific auth token.
func (c *Client) RegisterRunner(ctx context.Context, name string, tags []string) (string, error) {
	token, err := c.RunnerToken(ctx)
	if err != nil {
		return "", err
	}

	r, _, err := c.client.Runners.RegisterNewRunner(&gitlab.RegisterNewRunnerOptions{
		Token:       gitlab.Ptr(token),
		Description: gitlab.Ptr(name),
		TagList:     &tags,
		RunUntagged: gitlab.Ptr(len(tags) == 0),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to register runner: %w", err)
	}

	c.log.Debug("Runner registered with id " + strconv.Itoa(r.ID))
	return r.Token, nil
}

// UnregisterRunner deletes the runner with the given ID.
func (c *Client) UnregisterRunner(ctx context.Context, id int64) error {
	if _, err := c.client.Runners.RemoveRunner(int(id), gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove runner: %w", err)
	}
	return nil
}

// runnerRow pairs the normalized runner with the raw identity fields.
// The API's name field carries the runner application name (usually
// "gitlab-runner"); the caller-chosen name passed to RegisterRunner
// lands in the description field.
type runnerRow struct {
	runner      driver.Runner
	name        string
	description string
}

// RunnerByName returns the runner matching name exactly, against either
// the API name or the legacy description field. Returns (nil, nil) when
// absent.
func (c *Client) RunnerByName(ctx context.Context, name string) (*driver.Runner, error) {
	all, err := c.listRunners(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].name == name || all[i].description == name {
			return &all[i].runner, nil
		}
	}
	return nil, nil
}

// RunnersByLabels returns every runner whose tag list contains all the
// requested labels.
func (c *Client) RunnersByLabels(ctx context.Context, want []string) ([]driver.Runner, error) {
	all, err := c.listRunners(ctx)
	if err != nil {
		return nil, err
	}

	var matched []driver.Runner
	for _, row := range all {
		if labels.Superset(row.runner.Labels, want) {
			matched = append(matched, row.runner)
		}
	}
	return matched, nil
}

// listRunners lists the project's runners with their tag lists. The
// list endpoint omits tags, so each row costs one details call. The
// normalized name prefers the description, where RegisterRunner puts
// the caller-chosen name.
func (c *Client) listRunners(ctx context.Context) ([]runnerRow, error) {
	opts := &gitlab.ListProjectRunnersOptions{
		ListOptions: gitlab.ListOptions{PerPage: runnerPageSize},
	}

	var result []runnerRow
	for {
		page, resp, err := c.client.Runners.ListProjectRunners(c.projectPath, opts,
			gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list runners: %w", err)
		}

		for _, r := range page {
			details, _, err := c.client.Runners.GetRunnerDetails(r.ID, gitlab.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("failed to get runner %d details: %w", r.ID, err)
			}

			name := r.Description
			if name == "" {
				name = r.Name
			}
			result = append(result, runnerRow{
				runner: driver.Runner{
					ID:     int64(r.ID),
					Name:   name,
					Labels: details.TagList,
					Online: r.Online,
				},
				name:        r.Name,
				description: r.Description,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// StartRunner provisions the gitlab-runner binary if absent, registers
// a runner for the project and spawns run-single as a detached child.
func (c *Client) StartRunner(ctx context.Context, spec driver.RunnerSpec) (*driver.RunnerProcess, error) {
	workDir := spec.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "ci-bridge-gitlab-runner")
	}

	binary, err := runner.EnsureBinary(workDir, gitlabRunnerURL(), "gitlab-runner")
	if err != nil {
		return nil, err
	}

	token, err := c.RegisterRunner(ctx, spec.Name, spec.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed preparing runner: %w", err)
	}

	args := []string{
		"run-single",
		"--url", c.apiBase,
		"--token", token,
		"--executor", "shell",
	}
	if spec.IdleTimeout > 0 {
		args = append(args, "--wait-timeout", strconv.Itoa(int(spec.IdleTimeout.Seconds())))
	}
	if spec.Single {
		args = append(args, "--max-builds", "1")
	}

	run := exec.Command(binary, args...)
	run.Dir = workDir
	return runner.Spawn(run, c.ParseLogLine, c.log)
}

func gitlabRunnerURL() string {
	osName := runtime.GOOS
	if osName != "linux" && osName != "darwin" {
		osName = "linux"
	}
	return fmt.Sprintf(
		"https://gitlab-runner-downloads.s3.amazonaws.com/latest/binaries/gitlab-runner-%s-amd64",
		osName)
}
