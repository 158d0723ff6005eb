// Package orchestrator is the facade consumed by the CLI. It resolves
// which driver to use, injects cross-cutting behavior (watermarking,
// sha/branch defaulting, token redaction) and exposes the public
// operation surface.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/internal/labels"
	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/internal/security"
	"github.com/sgaunet/ci-bridge/internal/timeutil"
	"github.com/sgaunet/ci-bridge/pkg/autopr"
	"github.com/sgaunet/ci-bridge/pkg/config"
	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/git"
	"github.com/sgaunet/ci-bridge/pkg/runner"
	"github.com/sgaunet/ci-bridge/pkg/storage"
)

// watermark is appended to automated report bodies so downstream
// tooling can tell them apart from human comments.
const watermark = "\n\n![CI watermark](https://raw.githubusercontent.com/sgaunet/ci-bridge/main/assets/watermark.svg)"

var errNoCommitSHA = errors.New("cannot resolve a commit sha: pass --commit-sha or run inside a repository")

// Orchestrator wires one resolved driver to the CLI-facing operations.
type Orchestrator struct {
	driver  driver.Driver
	repo    *git.Repository
	opts    Options
	fileCfg *config.Config
	token   security.SecureToken
	log     *bullets.Logger
}

// New resolves the effective (repo, token, driver) from options, the
// optional config file and the process environment, then constructs
// the matching driver.
func New(opts Options) (*Orchestrator, error) {
	fileCfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithEnv(opts, fileCfg, envSnapshot(), logger.NoLogger())
}

// NewWithEnv is [New] with the config file and environment snapshot
// injected, keeping resolution pure for tests.
func NewWithEnv(opts Options, fileCfg *config.Config, env map[string]string, log *bullets.Logger) (*Orchestrator, error) {
	// The local repository is optional: several operations only need
	// the platform API.
	localRepo, repoErr := git.OpenRepository(".")
	if repoErr == nil {
		localRepo.SetLogger(log)
	}

	remoteURL := func() (string, error) {
		if repoErr != nil {
			return "", repoErr
		}
		return localRepo.RemoteURL("origin")
	}

	repoURI := resolveRepo(opts, fileCfg, env, remoteURL)
	kind, err := resolveKind(opts, fileCfg, env, repoURI)
	if err != nil {
		return nil, err
	}
	token := resolveToken(opts, env, kind)

	security.DebugAuth(log, string(kind), map[string]string{
		"repo":  repoURI,
		"token": token,
	})

	var uploader driver.Uploader
	bucket := opts.Bucket
	if bucket == "" {
		bucket = fileCfg.Bucket
	}
	if bucket != "" {
		uploader, err = storage.NewS3Uploader(bucket, opts.Prefix)
		if err != nil {
			return nil, err
		}
	}

	d, err := newDriver(kind, driver.Config{RepoURI: repoURI, Token: token, Env: env}, uploader, log)
	if err != nil {
		return nil, err
	}

	orch := &Orchestrator{
		driver:  d,
		opts:    opts,
		fileCfg: fileCfg,
		token:   security.NewSecureToken(token),
		log:     log,
	}
	if repoErr == nil {
		orch.repo = localRepo
	}
	return orch, nil
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(log *bullets.Logger) {
	o.log = log
}

// Driver exposes the resolved driver.
func (o *Orchestrator) Driver() driver.Driver {
	return o.driver
}

// envSnapshot captures the process environment as a map.
func envSnapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// resolveSHA applies commit-sha defaulting: explicit option, driver's
// CI environment, local HEAD.
func (o *Orchestrator) resolveSHA() (string, error) {
	if o.opts.CommitSHA != "" {
		return o.opts.CommitSHA, nil
	}
	if sha := o.driver.SHA(); sha != "" {
		return sha, nil
	}
	if o.repo != nil {
		return o.repo.HeadSHA()
	}
	return "", errNoCommitSHA
}

// Watermarked appends the watermark marker exactly once, unless the
// caller asked for raw bodies.
func (o *Orchestrator) Watermarked(body string) string {
	if o.opts.RmWatermark || strings.Contains(body, watermark) {
		return body
	}
	return body + watermark
}

// CommentCreate posts a (watermarked) result comment on the resolved
// commit and returns the comment URL.
func (o *Orchestrator) CommentCreate(ctx context.Context, body string) (string, error) {
	sha, err := o.resolveSHA()
	if err != nil {
		return "", err
	}

	return o.driver.CommentCreate(ctx, driver.CommentOptions{
		Body:      o.Watermarked(body),
		CommitSHA: sha,
	})
}

// CheckCreate creates a check run on the resolved commit.
func (o *Orchestrator) CheckCreate(ctx context.Context, opts driver.CheckOptions) (string, error) {
	if opts.CommitSHA == "" {
		sha, err := o.resolveSHA()
		if err != nil {
			return "", err
		}
		opts.CommitSHA = sha
	}
	opts.Summary = o.Watermarked(opts.Summary)

	return o.driver.CheckCreate(ctx, opts)
}

// Publish uploads a local file as an artifact.
func (o *Orchestrator) Publish(ctx context.Context, path string) (*driver.UploadResult, error) {
	f, err := os.Open(path) // #nosec G304 - caller-chosen artifact path is the point
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return o.driver.Upload(ctx, filepath.Base(path), f, info.Size())
}

// PRCreate runs the automated-PR engine against the local repository.
func (o *Orchestrator) PRCreate(ctx context.Context, globs []string) (*autopr.Result, error) {
	if o.repo == nil {
		return nil, fmt.Errorf("failed to open git repository: automated PRs need a local checkout")
	}

	engine := autopr.NewEngine(o.driver, o.repo, o.token.Value())
	engine.SetLogger(o.log)
	return engine.Run(ctx, globs)
}

// RunnerStart provisions, registers and spawns a self-hosted runner.
// Unset spec fields fall back to the config file's runner defaults.
func (o *Orchestrator) RunnerStart(ctx context.Context, spec driver.RunnerSpec) (*driver.RunnerProcess, error) {
	if o.fileCfg != nil {
		defaults := o.fileCfg.Runner
		if len(spec.Labels) == 0 {
			spec.Labels = labels.Parse(defaults.Labels)
		}
		if spec.WorkDir == "" {
			spec.WorkDir = defaults.WorkDir
		}
		if spec.IdleTimeout == 0 && defaults.IdleTimeout != "" {
			timeout, err := timeutil.ParseTimeout(defaults.IdleTimeout, 0)
			if err != nil {
				return nil, err
			}
			spec.IdleTimeout = timeout
		}
	}

	manager := runner.NewManager(o.driver)
	manager.SetLogger(o.log)
	return manager.Start(ctx, spec)
}

// RunnerUnregister removes the named runner's registration.
func (o *Orchestrator) RunnerUnregister(ctx context.Context, name string) error {
	manager := runner.NewManager(o.driver)
	manager.SetLogger(o.log)
	return manager.Unregister(ctx, name)
}
