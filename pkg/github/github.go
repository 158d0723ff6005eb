// Package github implements the driver capability contract against the
// GitHub REST API.
package github

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v69/github"
	"github.com/sgaunet/bullets"
	"golang.org/x/oauth2"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/internal/urlutil"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

const minURLParts = 2

// Client is the GitHub driver. It is bound to one (repository, token)
// pair for its lifetime.
type Client struct {
	client   *github.Client
	cfg      driver.Config
	owner    string
	repo     string
	uploader driver.Uploader
	log      *bullets.Logger
}

// compile-time contract check
var _ driver.Driver = (*Client)(nil)

// New creates a GitHub driver from the given config. The repository is
// resolved from the explicit URI or the Actions environment fallback;
// resolution performs no API call so it can run repeatedly without
// side effects.
func New(cfg driver.Config, uploader driver.Uploader) (*Client, error) {
	if cfg.Token == "" {
		return nil, driver.ErrTokenRequired
	}

	owner, repo, err := resolveRepo(cfg)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		client:   github.NewClient(tc),
		cfg:      cfg,
		owner:    owner,
		repo:     repo,
		uploader: uploader,
		log:      logger.NoLogger(),
	}, nil
}

// SetLogger sets the logger for the GitHub driver.
func (c *Client) SetLogger(log *bullets.Logger) {
	c.log = log
}

// Kind returns the driver kind.
func (c *Client) Kind() driver.Kind {
	return driver.KindGitHub
}

// Repo returns the resolved "owner/name" slug.
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

// resolveRepo extracts (owner, repo) from the explicit URI, a bare
// "owner/repo" slug, or the GITHUB_REPOSITORY environment fallback.
func resolveRepo(cfg driver.Config) (string, string, error) {
	uri := cfg.RepoURI
	if uri == "" {
		uri = cfg.EnvLookup("GITHUB_REPOSITORY")
	}
	if uri == "" {
		return "", "", driver.ErrRepoRequired
	}

	slug := uri
	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "git@") {
		slug = urlutil.OwnerRepo(uri)
	} else {
		slug = strings.TrimSuffix(slug, ".git")
	}

	parts := strings.Split(slug, "/")
	if len(parts) != minURLParts || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: cannot parse %q", driver.ErrRepoRequired, uri)
	}

	return parts[0], parts[1], nil
}

// CommentCreate posts a commit comment and returns its URL.
func (c *Client) CommentCreate(ctx context.Context, opts driver.CommentOptions) (string, error) {
	comment, _, err := c.client.Repositories.CreateComment(ctx, c.owner, c.repo, opts.CommitSHA,
		&github.RepositoryComment{Body: github.Ptr(opts.Body)})
	if err != nil {
		return "", fmt.Errorf("failed to create commit comment: %w", err)
	}

	c.log.Debug("Commit comment created: " + comment.GetHTMLURL())
	return comment.GetHTMLURL(), nil
}

// CheckCreate creates a check run on the commit.
func (c *Client) CheckCreate(ctx context.Context, opts driver.CheckOptions) (string, error) {
	conclusion := opts.Conclusion
	if conclusion == "" {
		conclusion = "success"
	}

	createOpts := github.CreateCheckRunOptions{
		Name:       opts.Title,
		HeadSHA:    opts.CommitSHA,
		Status:     github.Ptr("completed"),
		Conclusion: github.Ptr(conclusion),
		Output: &github.CheckRunOutput{
			Title:   github.Ptr(opts.Title),
			Summary: github.Ptr(opts.Summary),
		},
	}
	if !opts.StartedAt.IsZero() {
		createOpts.StartedAt = &github.Timestamp{Time: opts.StartedAt}
	}
	if !opts.EndedAt.IsZero() {
		createOpts.CompletedAt = &github.Timestamp{Time: opts.EndedAt}
	}

	check, _, err := c.client.Checks.CreateCheckRun(ctx, c.owner, c.repo, createOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create check run: %w", err)
	}

	return check.GetHTMLURL(), nil
}

// Upload delegates to the generic object-store collaborator; GitHub has
// no platform upload endpoint for arbitrary artifacts.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	if c.uploader == nil {
		return nil, driver.Unsupported(driver.KindGitHub, "upload without an object store")
	}

	result, err := c.uploader.Upload(ctx, name, r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifact: %w", err)
	}
	return result, nil
}

// UserEmail returns the token owner's email, falling back to the
// noreply address when the profile email is private.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}

	if user.GetEmail() != "" {
		return user.GetEmail(), nil
	}
	return fmt.Sprintf("%d+%s@users.noreply.github.com", user.GetID(), user.GetLogin()), nil
}

// UserName returns the token owner's display name, falling back to the
// login.
func (c *Client) UserName(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}

	if user.GetName() != "" {
		return user.GetName(), nil
	}
	return user.GetLogin(), nil
}

// SHA returns the commit sha advertised by GitHub Actions.
func (c *Client) SHA() string {
	return c.cfg.EnvLookup("GITHUB_SHA")
}

// Branch returns the branch advertised by GitHub Actions. On
// pull_request events GITHUB_HEAD_REF carries the source branch;
// otherwise GITHUB_REF holds a fully qualified ref.
func (c *Client) Branch() string {
	if head := c.cfg.EnvLookup("GITHUB_HEAD_REF"); head != "" {
		return head
	}
	return strings.TrimPrefix(c.cfg.EnvLookup("GITHUB_REF"), "refs/heads/")
}
