package mocks

import "sync"

// GitRepo is a mock implementation of autopr.Repo with call tracking.
type GitRepo struct {
	mu    sync.Mutex
	calls []MethodCall

	// Configurable responses
	ChangedFilesResponse       []string
	ChangedFilesError          error
	CurrentBranchResponse      string
	CurrentBranchError         error
	HeadSHAResponse            string
	HeadSHAError               error
	RemoteBranchExistsResponse bool
	RemoteBranchExistsError    error
	CheckoutNewBranchError     error
	StagePathsError            error
	CommitResponse             string
	CommitError                error
	PushBranchError            error

	// Captured parameters
	StagedPaths      []string
	CommitMessage    string
	CommitAuthor     string
	CommitEmail      string
	CheckedOutBranch string
	PushedBranch     string
}

// NewGitRepo creates a mock repository with a clean default state.
func NewGitRepo() *GitRepo {
	return &GitRepo{
		CurrentBranchResponse: "main",
		HeadSHAResponse:       "0123456789abcdef0123456789abcdef01234567",
		CommitResponse:        "fedcba9876543210fedcba9876543210fedcba98",
	}
}

func (m *GitRepo) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MethodCall{Method: method, Args: args})
}

// CallCountFor returns the number of times a method was called.
func (m *GitRepo) CallCountFor(method string) int {
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

// ChangedFiles implements autopr.Repo.
func (m *GitRepo) ChangedFiles() ([]string, error) {
	m.record("ChangedFiles")
	return m.ChangedFilesResponse, m.ChangedFilesError
}

// CurrentBranch implements autopr.Repo.
func (m *GitRepo) CurrentBranch() (string, error) {
	m.record("CurrentBranch")
	return m.CurrentBranchResponse, m.CurrentBranchError
}

// HeadSHA implements autopr.Repo.
func (m *GitRepo) HeadSHA() (string, error) {
	m.record("HeadSHA")
	return m.HeadSHAResponse, m.HeadSHAError
}

// RemoteBranchExists implements autopr.Repo.
func (m *GitRepo) RemoteBranchExists(remote, branch, token string) (bool, error) {
	m.record("RemoteBranchExists", remote, branch)
	return m.RemoteBranchExistsResponse, m.RemoteBranchExistsError
}

// CheckoutNewBranch implements autopr.Repo.
func (m *GitRepo) CheckoutNewBranch(name, sha string) error {
	m.record("CheckoutNewBranch", name, sha)
	m.CheckedOutBranch = name
	return m.CheckoutNewBranchError
}

// StagePaths implements autopr.Repo.
func (m *GitRepo) StagePaths(paths []string) error {
	m.record("StagePaths", paths)
	m.StagedPaths = paths
	return m.StagePathsError
}

// Commit implements autopr.Repo.
func (m *GitRepo) Commit(message, authorName, authorEmail string) (string, error) {
	m.record("Commit", message)
	m.CommitMessage = message
	m.CommitAuthor = authorName
	m.CommitEmail = authorEmail
	return m.CommitResponse, m.CommitError
}

// PushBranch implements autopr.Repo.
func (m *GitRepo) PushBranch(remote, branch, token string) error {
	m.record("PushBranch", remote, branch)
	m.PushedBranch = branch
	return m.PushBranchError
}
