package driver

import (
	"context"
	"io"
)

// Uploader is the generic object-store collaborator used by drivers
// whose platform has no artifact upload endpoint of its own.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) (*UploadResult, error)
}

// Driver is the uniform capability contract over one CI platform.
// Every method is declared on every variant; capabilities a platform
// cannot serve return an [UnsupportedError] rather than being omitted.
type Driver interface {
	// Kind identifies the platform variant.
	Kind() Kind

	// Repo returns the resolved "owner/name" slug. Resolution is
	// performed once at construction and is side-effect-free.
	Repo() string

	// CommentCreate posts a result comment on a commit and returns
	// the comment URL.
	CommentCreate(ctx context.Context, opts CommentOptions) (string, error)

	// CheckCreate creates a commit check run. GitHub only.
	CheckCreate(ctx context.Context, opts CheckOptions) (string, error)

	// Upload publishes an artifact and returns where it landed.
	Upload(ctx context.Context, name string, r io.Reader, size int64) (*UploadResult, error)

	// RunnerToken returns a registration token for self-hosted
	// runner enrollment.
	RunnerToken(ctx context.Context) (string, error)

	// RegisterRunner exchanges a registration token for a
	// runner-specific auth token where the platform requires an
	// explicit registration call (GitLab).
	RegisterRunner(ctx context.Context, name string, labels []string) (string, error)

	// UnregisterRunner deletes the runner with the given platform ID.
	UnregisterRunner(ctx context.Context, id int64) error

	// RunnerByName returns the runner with exactly the given name,
	// or (nil, nil) when absent.
	RunnerByName(ctx context.Context, name string) (*Runner, error)

	// RunnersByLabels returns every runner whose label set is a
	// superset of labels.
	RunnersByLabels(ctx context.Context, labels []string) ([]Runner, error)

	// StartRunner provisions the vendor runner binary if needed and
	// launches it as a detached child process.
	StartRunner(ctx context.Context, spec RunnerSpec) (*RunnerProcess, error)

	// PRCreate opens a pull/merge request from source into target.
	PRCreate(ctx context.Context, source, target, title, description string) (*PullRequest, error)

	// PRs lists the open pull/merge requests of the repository.
	PRs(ctx context.Context) ([]PullRequest, error)

	// SHA returns the commit sha advertised by the CI environment,
	// or "" when running outside CI.
	SHA() string

	// Branch returns the branch advertised by the CI environment,
	// or "" when running outside CI.
	Branch() string

	// UserEmail returns the token owner's email for commit identity.
	UserEmail(ctx context.Context) (string, error)

	// UserName returns the token owner's display name.
	UserName(ctx context.Context) (string, error)

	// ParseLogLine classifies one raw runner output line into a
	// normalized event, or nil when the line carries none. It never
	// fails: malformed input yields nil.
	ParseLogLine(line []byte) *LogEvent
}
