// Package driver defines the uniform capability contract implemented by
// every supported CI platform (GitHub, GitLab, Bitbucket Cloud).
//
// A [Driver] is bound to exactly one (repository, token) pair for its
// lifetime. Callers never see platform-specific field names: list and
// create responses are mapped onto the normalized types in this
// package.
package driver

import (
	"os/exec"
	"time"
)

// Kind identifies a supported CI platform.
type Kind string

// Supported driver kinds.
const (
	KindGitHub    Kind = "github"
	KindGitLab    Kind = "gitlab"
	KindBitbucket Kind = "bitbucket"
)

// Config holds the immutable settings a driver is constructed with.
// Env is an injected environment snapshot so CI inference stays pure
// and testable; it is never read from the process environment inside
// a driver.
type Config struct {
	RepoURI string
	Token   string
	Env     map[string]string
}

// EnvLookup returns the value for key from the injected snapshot.
func (c Config) EnvLookup(key string) string {
	if c.Env == nil {
		return ""
	}
	return c.Env[key]
}

// Runner is a normalized self-hosted runner row.
type Runner struct {
	ID     int64
	Name   string
	Labels []string
	Online bool
}

// HasLabels reports whether the runner carries every requested label
// (superset semantics).
func (r Runner) HasLabels(labels []string) bool {
	set := make(map[string]struct{}, len(r.Labels))
	for _, l := range r.Labels {
		set[l] = struct{}{}
	}
	for _, l := range labels {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}

// RunnerSpec describes a runner to register and spawn.
type RunnerSpec struct {
	Name        string
	Labels      []string
	IdleTimeout time.Duration
	Single      bool
	WorkDir     string
}

// RunnerProcess is the handle returned by StartRunner. The core does
// not manage the process after spawn; callers may supervise it through
// Cmd and Done, or ignore both.
type RunnerProcess struct {
	Cmd  *exec.Cmd
	Done <-chan error
	// Events receives normalized log events parsed from the runner's
	// output. The channel is closed when the output streams end.
	// Delivery is best-effort: malformed lines are dropped.
	Events <-chan LogEvent
}

// PullRequest is a normalized pull/merge request.
type PullRequest struct {
	URL         string
	Source      string
	Target      string
	Title       string
	Description string
}

// UploadResult is returned by artifact publishing. Ownership of the
// uploaded object passes to the caller; the core retains nothing.
type UploadResult struct {
	URI  string
	Mime string
	Size int64
}

// CommentOptions describes a result comment to post on a commit.
type CommentOptions struct {
	Body      string
	CommitSHA string
}

// CheckOptions describes a commit check/status to create.
type CheckOptions struct {
	Title      string
	Summary    string
	CommitSHA  string
	Conclusion string
	StartedAt  time.Time
	EndedAt    time.Time
}

// LogLevel classifies a normalized log event.
type LogLevel string

// Log event levels.
const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// Status is the lifecycle phase reported by a runner log line.
// Conceptually lines follow ready → job_started → job_ended, but the
// normalizer is stateless per line and does not enforce ordering.
type Status string

// Runner log statuses.
const (
	StatusReady      Status = "ready"
	StatusJobStarted Status = "job_started"
	StatusJobEnded   Status = "job_ended"
)

// LogEvent is a normalized runner log record. It is derived per
// observed output line and never persisted. Success is non-nil only
// when Status is [StatusJobEnded].
type LogEvent struct {
	Level   LogLevel
	Time    time.Time
	Repo    string
	Job     string
	Status  Status
	Success *bool
}
