// Package gitlab implements the driver capability contract against the
// GitLab REST API v4, including API base discovery for self-hosted
// installations.
package gitlab

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/sgaunet/bullets"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// Client is the GitLab driver. The API base discovered at construction
// is cached for the client's lifetime.
type Client struct {
	client      *gitlab.Client
	cfg         driver.Config
	apiBase     string
	projectPath string
	log         *bullets.Logger
}

var _ driver.Driver = (*Client)(nil)

// New creates a GitLab driver. The repository URL (explicit or from the
// CI environment) goes through API base discovery; discovery failure is
// fatal since no other call can succeed without a base.
func New(cfg driver.Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, driver.ErrTokenRequired
	}

	repoURL := cfg.RepoURI
	if repoURL == "" {
		repoURL = cfg.EnvLookup("CI_PROJECT_URL")
	}
	if repoURL == "" {
		return nil, driver.ErrRepoRequired
	}
	if !strings.Contains(repoURL, "://") {
		// Bare "group/project" slug defaults to gitlab.com.
		repoURL = "https://gitlab.com/" + strings.TrimPrefix(repoURL, "/")
	}

	base, projectPath, err := discoverAPIBase(repoURL, cfg.Token)
	if err != nil {
		return nil, err
	}
	if projectPath == "" {
		return nil, fmt.Errorf("%w: %s resolves to the API root, not a project", driver.ErrRepoRequired, repoURL)
	}

	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(base))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &Client{
		client:      client,
		cfg:         cfg,
		apiBase:     base,
		projectPath: projectPath,
		log:         logger.NoLogger(),
	}, nil
}

// SetLogger sets the logger for the GitLab driver.
func (c *Client) SetLogger(log *bullets.Logger) {
	c.log = log
}

// Kind returns the driver kind.
func (c *Client) Kind() driver.Kind {
	return driver.KindGitLab
}

// Repo returns the project path ("group/project").
func (c *Client) Repo() string {
	return c.projectPath
}

// APIBase returns the discovered API base URL.
func (c *Client) APIBase() string {
	return c.apiBase
}

// CommentCreate posts a commit comment and returns the commit's web URL.
func (c *Client) CommentCreate(ctx context.Context, opts driver.CommentOptions) (string, error) {
	_, _, err := c.client.Commits.PostCommitComment(c.projectPath, opts.CommitSHA,
		&gitlab.PostCommitCommentOptions{Note: gitlab.Ptr(opts.Body)},
		gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create commit comment: %w", err)
	}

	url := fmt.Sprintf("%s/%s/-/commit/%s", c.apiBase, c.projectPath, opts.CommitSHA)
	c.log.Debug("Commit comment created on " + url)
	return url, nil
}

// CheckCreate is a GitHub-only capability.
func (c *Client) CheckCreate(_ context.Context, _ driver.CheckOptions) (string, error) {
	return "", driver.Unsupported(driver.KindGitLab, "check runs")
}

// Upload publishes the artifact through the project uploads endpoint,
// which returns a content-addressed URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	file, _, err := c.client.ProjectMarkdownUploads.UploadProjectMarkdown(c.projectPath, r, name,
		gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifact: %w", err)
	}

	uri := file.URL
	if strings.HasPrefix(uri, "/") {
		uri = c.apiBase + "/" + c.projectPath + uri
	}

	return &driver.UploadResult{URI: uri, Mime: mimeByName(name), Size: size}, nil
}

// mimeByName guesses a content type from the file extension.
func mimeByName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UserEmail returns the token owner's email.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return user.Email, nil
}

// UserName returns the token owner's display name, falling back to the
// username.
func (c *Client) UserName(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}

	if user.Name != "" {
		return user.Name, nil
	}
	return user.Username, nil
}

// SHA returns the commit sha advertised by GitLab CI.
func (c *Client) SHA() string {
	return c.cfg.EnvLookup("CI_COMMIT_SHA")
}

// Branch returns the branch advertised by GitLab CI.
func (c *Client) Branch() string {
	return c.cfg.EnvLookup("CI_COMMIT_REF_NAME")
}
