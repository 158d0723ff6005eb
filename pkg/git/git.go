// Package git wraps the local repository operations the PR automation
// engine needs: working-tree status, branch creation, staged commits,
// and pushes. It never talks to a platform API; that is driver territory.
package git

import (
	"errors"
	"fmt"
	"sort"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/internal/logger"
)

var (
	errNoRemoteURL  = errors.New("no URLs found for remote")
	errDetachedHead = errors.New("HEAD is not pointing to a branch")
)

// Repository wraps a go-git repository handle.
type Repository struct {
	repo *gogit.Repository
	log  *bullets.Logger
}

// OpenRepository opens the repository at path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return &Repository{repo: repo, log: logger.NoLogger()}, nil
}

// SetLogger sets the logger used by the repository.
func (r *Repository) SetLogger(log *bullets.Logger) {
	r.log = log
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", errDetachedHead
	}

	return head.Name().Short(), nil
}

// HeadSHA returns the full hex hash of HEAD.
func (r *Repository) HeadSHA() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	return head.Hash().String(), nil
}

// RemoteURL returns the first URL configured for the named remote.
func (r *Repository) RemoteURL(remoteName string) (string, error) {
	remote, err := r.repo.Remote(remoteName)
	if err != nil {
		return "", fmt.Errorf("failed to get remote %s: %w", remoteName, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s", errNoRemoteURL, remoteName)
	}

	return urls[0], nil
}

// ChangedFiles returns the paths reported as modified, added, deleted or
// untracked by the working tree, sorted for deterministic iteration.
func (r *Repository) ChangedFiles() ([]string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository status: %w", err)
	}

	var files []string
	for path, fileStatus := range status {
		if fileStatus.Staging == gogit.Unmodified && fileStatus.Worktree == gogit.Unmodified {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

// RemoteBranchExists asks the remote whether the branch already exists.
// The lookup is advisory: a branch can appear between this check and a
// later push.
func (r *Repository) RemoteBranchExists(remoteName, branch string, token string) (bool, error) {
	remote, err := r.repo.Remote(remoteName)
	if err != nil {
		return false, fmt.Errorf("failed to get remote %s: %w", remoteName, err)
	}

	refs, err := remote.List(&gogit.ListOptions{Auth: r.auth(token)})
	if err != nil {
		return false, fmt.Errorf("failed to list remote references: %w", err)
	}

	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return true, nil
		}
	}

	return false, nil
}

// CheckoutNewBranch creates branch name at the given sha and checks it
// out, keeping the working tree as is.
func (r *Repository) CheckoutNewBranch(name, sha string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Hash:   plumbing.NewHash(sha),
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	return nil
}

// StagePaths adds the given paths to the index.
func (r *Repository) StagePaths(paths []string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, path := range paths {
		if _, err := worktree.Add(path); err != nil {
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}

	return nil
}

// Commit records the staged changes with the given identity and returns
// the new commit sha.
func (r *Repository) Commit(message, authorName, authorEmail string) (string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return hash.String(), nil
}

// PushBranch pushes the named branch to the remote.
func (r *Repository) PushBranch(remoteName, branch, token string) error {
	err := r.repo.Push(&gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs: []config.RefSpec{
			config.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch),
		},
		Auth: r.auth(token),
	})
	if err != nil {
		return fmt.Errorf("failed to push branch %s: %w", branch, err)
	}

	return nil
}

// auth builds HTTP token auth for remote calls. An empty token falls
// back to whatever credentials the environment already provides.
func (r *Repository) auth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "token", Password: token}
}
