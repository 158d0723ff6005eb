// Package autopr implements the idempotent automated-PR state machine:
// detect relevant local changes, establish a deterministic branch and
// request PR creation through a driver. Terminal states are a PR URL or
// a no-op.
package autopr

import (
	"context"
	"fmt"

	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// DefaultGlobs covers the lock/ignore files automated pipelines
// typically regenerate.
var DefaultGlobs = []string{"*.lock", "*/*.lock", ".gitignore"}

const remoteName = "origin"

// Repo is the slice of local repository operations the engine needs.
// pkg/git.Repository satisfies it.
type Repo interface {
	ChangedFiles() ([]string, error)
	CurrentBranch() (string, error)
	HeadSHA() (string, error)
	RemoteBranchExists(remoteName, branch, token string) (bool, error)
	CheckoutNewBranch(name, sha string) error
	StagePaths(paths []string) error
	Commit(message, authorName, authorEmail string) (string, error)
	PushBranch(remoteName, branch, token string) error
}

// Engine drives automated PR creation for one repository and driver.
type Engine struct {
	driver driver.Driver
	repo   Repo
	token  string
	log    *bullets.Logger
}

// NewEngine creates an engine. token authenticates pushes and remote
// branch listings; it is the same token the driver holds.
func NewEngine(d driver.Driver, repo Repo, token string) *Engine {
	return &Engine{driver: d, repo: repo, token: token, log: logger.NoLogger()}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(log *bullets.Logger) {
	e.log = log
}

// Result is the terminal state of one engine run. URL is empty exactly
// when NoOp is true.
type Result struct {
	URL  string
	NoOp bool
}

// Run executes the state machine. globs defaults to [DefaultGlobs]
// when empty.
//
// The branch-existence check and the eventual push are not
// transactional against the remote: two pipeline runs racing on the
// same commit can both pass the check and one of them will surface a
// plain push failure. That is accepted behavior, not corruption.
func (e *Engine) Run(ctx context.Context, globs []string) (*Result, error) {
	if len(globs) == 0 {
		globs = DefaultGlobs
	}

	changed, err := e.repo.ChangedFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to read working tree status: %w", err)
	}
	if len(changed) == 0 {
		e.log.Info("Working tree clean, nothing to do")
		return &Result{NoOp: true}, nil
	}

	paths := intersect(changed, globs)
	if len(paths) == 0 {
		e.log.Info("No changed files match the requested globs, nothing to do")
		return &Result{NoOp: true}, nil
	}

	sha, target, err := e.resolveRefs()
	if err != nil {
		return nil, err
	}
	source := SourceBranch(target, sha)

	exists, err := e.repo.RemoteBranchExists(remoteName, source, e.token)
	if err != nil {
		return nil, fmt.Errorf("failed to check remote branch %s: %w", source, err)
	}
	if exists {
		return e.findExisting(ctx, source, target)
	}

	return e.createPR(ctx, source, target, sha, paths)
}

// resolveRefs prefers the driver's CI-provided sha/branch and falls
// back to the local repository.
func (e *Engine) resolveRefs() (sha, target string, err error) {
	sha = e.driver.SHA()
	if sha == "" {
		sha, err = e.repo.HeadSHA()
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve commit sha: %w", err)
		}
	}

	target = e.driver.Branch()
	if target == "" {
		target, err = e.repo.CurrentBranch()
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve target branch: %w", err)
		}
	}

	return sha, target, nil
}

// findExisting is the idempotent short-circuit: the source branch is
// already on the remote, so a previous run got here first. Return its
// PR instead of creating a duplicate.
func (e *Engine) findExisting(ctx context.Context, source, target string) (*Result, error) {
	e.log.Infof("Branch %s already exists, looking for its PR", source)

	prs, err := e.driver.PRs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	for _, pr := range prs {
		if pr.Source == source && pr.Target == target {
			e.log.Info("Reusing existing PR: " + pr.URL)
			return &Result{URL: pr.URL}, nil
		}
	}

	// Branch pushed but PR creation failed last time; retry just the
	// PR call.
	return e.requestPR(ctx, source, target)
}

func (e *Engine) createPR(ctx context.Context, source, target, sha string, paths []string) (*Result, error) {
	name, email, err := e.commitIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.repo.CheckoutNewBranch(source, sha); err != nil {
		return nil, err
	}
	if err := e.repo.StagePaths(paths); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("ci: update artifacts for %s [skip ci]", ShortSHA(sha))
	if _, err := e.repo.Commit(message, name, email); err != nil {
		return nil, err
	}

	e.log.Infof("Pushing %s", source)
	if err := e.repo.PushBranch(remoteName, source, e.token); err != nil {
		// Possibly a concurrent run won the race for this branch;
		// surfaced as-is per contract.
		return nil, err
	}

	return e.requestPR(ctx, source, target)
}

func (e *Engine) requestPR(ctx context.Context, source, target string) (*Result, error) {
	title := fmt.Sprintf("CI results for %s", source)
	description := fmt.Sprintf(
		"Automated changes produced by the pipeline for `%s`.\n\nMerging this PR keeps `%s` in sync with the generated artifacts.",
		source, target)

	pr, err := e.driver.PRCreate(ctx, source, target, title, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	e.log.Info("Pull request ready: " + pr.URL)
	return &Result{URL: pr.URL}, nil
}

// commitIdentity resolves the author used for the automated commit.
func (e *Engine) commitIdentity(ctx context.Context) (name, email string, err error) {
	name, err = e.driver.UserName(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve commit author: %w", err)
	}
	email, err = e.driver.UserEmail(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve commit email: %w", err)
	}
	return name, email, nil
}
