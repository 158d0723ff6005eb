// Package mocks provides call-tracking mock implementations of the
// project's interfaces for testing.
package mocks

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// MethodCall represents a tracked method call with its parameters.
type MethodCall struct {
	Method string
	Args   []interface{}
}

// Driver is a mock implementation of driver.Driver with call tracking.
type Driver struct {
	mu    sync.Mutex
	calls []MethodCall

	// Configurable identity
	KindValue   driver.Kind
	RepoValue   string
	SHAValue    string
	BranchValue string

	// Configurable responses
	CommentCreateResponse   string
	CommentCreateError      error
	CheckCreateResponse     string
	CheckCreateError        error
	UploadResponse          *driver.UploadResult
	UploadError             error
	RunnerTokenResponse     string
	RunnerTokenError        error
	RegisterRunnerResponse  string
	RegisterRunnerError     error
	UnregisterRunnerError   error
	RunnerByNameResponse    *driver.Runner
	RunnerByNameError       error
	RunnersByLabelsResponse []driver.Runner
	RunnersByLabelsError    error
	StartRunnerResponse     *driver.RunnerProcess
	StartRunnerError        error
	PRCreateResponse        *driver.PullRequest
	PRCreateError           error
	PRsResponse             []driver.PullRequest
	PRsError                error
	UserEmailResponse       string
	UserEmailError          error
	UserNameResponse        string
	UserNameError           error
	ParseLogLineResponse    *driver.LogEvent
}

// NewDriver creates a mock driver with sensible defaults.
func NewDriver() *Driver {
	return &Driver{
		KindValue:         driver.KindGitHub,
		RepoValue:         "owner/repo",
		UserEmailResponse: "ci@example.com",
		UserNameResponse:  "CI Bot",
	}
}

func (m *Driver) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MethodCall{Method: method, Args: args})
}

// Calls returns a copy of the recorded call history.
func (m *Driver) Calls() []MethodCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MethodCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCountFor returns the number of times a method was called.
func (m *Driver) CallCountFor(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Kind implements driver.Driver.
func (m *Driver) Kind() driver.Kind { return m.KindValue }

// Repo implements driver.Driver.
func (m *Driver) Repo() string { return m.RepoValue }

// CommentCreate implements driver.Driver.
func (m *Driver) CommentCreate(_ context.Context, opts driver.CommentOptions) (string, error) {
	m.record("CommentCreate", opts)
	return m.CommentCreateResponse, m.CommentCreateError
}

// CheckCreate implements driver.Driver.
func (m *Driver) CheckCreate(_ context.Context, opts driver.CheckOptions) (string, error) {
	m.record("CheckCreate", opts)
	return m.CheckCreateResponse, m.CheckCreateError
}

// Upload implements driver.Driver.
func (m *Driver) Upload(_ context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	m.record("Upload", name, size)
	if m.UploadError != nil {
		return nil, m.UploadError
	}
	if m.UploadResponse != nil {
		return m.UploadResponse, nil
	}
	return &driver.UploadResult{URI: "https://example.com/" + name, Size: size}, nil
}

// RunnerToken implements driver.Driver.
func (m *Driver) RunnerToken(_ context.Context) (string, error) {
	m.record("RunnerToken")
	return m.RunnerTokenResponse, m.RunnerTokenError
}

// RegisterRunner implements driver.Driver.
func (m *Driver) RegisterRunner(_ context.Context, name string, labels []string) (string, error) {
	m.record("RegisterRunner", name, labels)
	return m.RegisterRunnerResponse, m.RegisterRunnerError
}

// UnregisterRunner implements driver.Driver.
func (m *Driver) UnregisterRunner(_ context.Context, id int64) error {
	m.record("UnregisterRunner", id)
	return m.UnregisterRunnerError
}

// RunnerByName implements driver.Driver.
func (m *Driver) RunnerByName(_ context.Context, name string) (*driver.Runner, error) {
	m.record("RunnerByName", name)
	return m.RunnerByNameResponse, m.RunnerByNameError
}

// RunnersByLabels implements driver.Driver.
func (m *Driver) RunnersByLabels(_ context.Context, labels []string) ([]driver.Runner, error) {
	m.record("RunnersByLabels", labels)
	return m.RunnersByLabelsResponse, m.RunnersByLabelsError
}

// StartRunner implements driver.Driver.
func (m *Driver) StartRunner(_ context.Context, spec driver.RunnerSpec) (*driver.RunnerProcess, error) {
	m.record("StartRunner", spec)
	return m.StartRunnerResponse, m.StartRunnerError
}

// PRCreate implements driver.Driver.
func (m *Driver) PRCreate(_ context.Context, source, target, title, description string) (*driver.PullRequest, error) {
	m.record("PRCreate", source, target, title, description)
	if m.PRCreateError != nil {
		return nil, m.PRCreateError
	}
	if m.PRCreateResponse != nil {
		return m.PRCreateResponse, nil
	}
	return &driver.PullRequest{
		URL:    "https://example.com/pr/1",
		Source: source,
		Target: target,
		Title:  title,
	}, nil
}

// PRs implements driver.Driver.
func (m *Driver) PRs(_ context.Context) ([]driver.PullRequest, error) {
	m.record("PRs")
	return m.PRsResponse, m.PRsError
}

// SHA implements driver.Driver.
func (m *Driver) SHA() string { return m.SHAValue }

// Branch implements driver.Driver.
func (m *Driver) Branch() string { return m.BranchValue }

// UserEmail implements driver.Driver.
func (m *Driver) UserEmail(_ context.Context) (string, error) {
	m.record("UserEmail")
	return m.UserEmailResponse, m.UserEmailError
}

// UserName implements driver.Driver.
func (m *Driver) UserName(_ context.Context) (string, error) {
	m.record("UserName")
	return m.UserNameResponse, m.UserNameError
}

// ParseLogLine implements driver.Driver.
func (m *Driver) ParseLogLine(_ []byte) *driver.LogEvent {
	return m.ParseLogLineResponse
}

// Uploader is a mock implementation of driver.Uploader that captures
// the uploaded payload.
type Uploader struct {
	UploadResponse *driver.UploadResult
	UploadError    error

	LastName string
	LastBody []byte
	LastSize int64
	Count    int
}

// Upload implements driver.Uploader.
func (m *Uploader) Upload(_ context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	m.Count++
	m.LastName = name
	m.LastSize = size
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	m.LastBody = buf.Bytes()
	if m.UploadError != nil {
		return nil, m.UploadError
	}
	if m.UploadResponse != nil {
		return m.UploadResponse, nil
	}
	return &driver.UploadResult{URI: "s3://bucket/" + name, Size: size}, nil
}
