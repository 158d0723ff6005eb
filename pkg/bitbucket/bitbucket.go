// Package bitbucket implements the driver capability contract against
// the Bitbucket Cloud REST API. Bitbucket has the narrowest capability
// set of the supported platforms: checks and self-hosted runner
// management fail with explicit unsupported errors.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sgaunet/bullets"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/sgaunet/ci-bridge/internal/urlutil"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

const (
	defaultAPIBase = "https://api.bitbucket.org/2.0"
	requestRetries = 2
	minSlugParts   = 2
)

var (
	errInvalidToken     = errors.New("bitbucket token must be \"username:app_password\"")
	errUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Client is the Bitbucket Cloud driver.
type Client struct {
	http      *http.Client
	cfg       driver.Config
	apiBase   string
	workspace string
	slug      string
	username  string
	password  string
	uploader  driver.Uploader
	log       *bullets.Logger
}

var _ driver.Driver = (*Client)(nil)

// New creates a Bitbucket Cloud driver. The token carries basic auth
// credentials in "username:app_password" form, matching the Pipelines
// convention.
func New(cfg driver.Config, uploader driver.Uploader) (*Client, error) {
	if cfg.Token == "" {
		return nil, driver.ErrTokenRequired
	}

	credentials := strings.SplitN(cfg.Token, ":", 2)
	if len(credentials) != 2 || credentials[0] == "" || credentials[1] == "" {
		return nil, errInvalidToken
	}

	workspace, slug, err := resolveRepo(cfg)
	if err != nil {
		return nil, err
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = requestRetries
	retry.Logger = nil

	return &Client{
		http:      retry.StandardClient(),
		cfg:       cfg,
		apiBase:   defaultAPIBase,
		workspace: workspace,
		slug:      slug,
		username:  credentials[0],
		password:  credentials[1],
		uploader:  uploader,
		log:       logger.NoLogger(),
	}, nil
}

// SetLogger sets the logger for the Bitbucket driver.
func (c *Client) SetLogger(log *bullets.Logger) {
	c.log = log
}

// SetAPIBase overrides the default API endpoint.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = strings.TrimSuffix(base, "/")
}

// Kind returns the driver kind.
func (c *Client) Kind() driver.Kind {
	return driver.KindBitbucket
}

// Repo returns the resolved "workspace/slug".
func (c *Client) Repo() string {
	return c.workspace + "/" + c.slug
}

func resolveRepo(cfg driver.Config) (string, string, error) {
	uri := cfg.RepoURI
	if uri == "" {
		uri = cfg.EnvLookup("BITBUCKET_REPO_FULL_NAME")
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
	if len(parts) != minSlugParts || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: cannot parse %q", driver.ErrRepoRequired, uri)
	}

	return parts[0], parts[1], nil
}

// request performs one authenticated API call and decodes the response
// into out when non-nil.
func (c *Client) request(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", errUnexpectedStatus, resp.Status, strings.TrimSpace(string(text)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) repoURL(suffix string) string {
	return fmt.Sprintf("%s/repositories/%s/%s%s", c.apiBase, c.workspace, c.slug, suffix)
}

// CommentCreate posts a commit comment and returns its web link.
func (c *Client) CommentCreate(ctx context.Context, opts driver.CommentOptions) (string, error) {
	payload := map[string]any{
		"content": map[string]string{"raw": opts.Body},
	}

	var created struct {
		Links struct {
			HTML struct {
				Href string `json:"href"`
			} `json:"html"`
		} `json:"links"`
	}

	url := c.repoURL("/commit/" + opts.CommitSHA + "/comments")
	if err := c.request(ctx, http.MethodPost, url, payload, &created); err != nil {
		return "", fmt.Errorf("failed to create commit comment: %w", err)
	}

	return created.Links.HTML.Href, nil
}

// CheckCreate is a GitHub-only capability.
func (c *Client) CheckCreate(_ context.Context, _ driver.CheckOptions) (string, error) {
	return "", driver.Unsupported(driver.KindBitbucket, "check runs")
}

// Upload delegates to the generic object-store collaborator.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (*driver.UploadResult, error) {
	if c.uploader == nil {
		return nil, driver.Unsupported(driver.KindBitbucket, "upload without an object store")
	}

	result, err := c.uploader.Upload(ctx, name, r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifact: %w", err)
	}
	return result, nil
}

// UserEmail returns the app-password owner's primary email.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	var emails struct {
		Values []struct {
			Email     string `json:"email"`
			IsPrimary bool   `json:"is_primary"`
		} `json:"values"`
	}

	if err := c.request(ctx, http.MethodGet, c.apiBase+"/user/emails", nil, &emails); err != nil {
		return "", fmt.Errorf("failed to get user emails: %w", err)
	}

	for _, e := range emails.Values {
		if e.IsPrimary {
			return e.Email, nil
		}
	}
	if len(emails.Values) > 0 {
		return emails.Values[0].Email, nil
	}
	return "", fmt.Errorf("%w: no email on account", driver.ErrNotFound)
}

// UserName returns the app-password owner's display name.
func (c *Client) UserName(ctx context.Context) (string, error) {
	var user struct {
		DisplayName string `json:"display_name"`
		Nickname    string `json:"nickname"`
	}

	if err := c.request(ctx, http.MethodGet, c.apiBase+"/user", nil, &user); err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.Nickname, nil
}

// SHA returns the commit sha advertised by Bitbucket Pipelines.
func (c *Client) SHA() string {
	return c.cfg.EnvLookup("BITBUCKET_COMMIT")
}

// Branch returns the branch advertised by Bitbucket Pipelines.
func (c *Client) Branch() string {
	return c.cfg.EnvLookup("BITBUCKET_BRANCH")
}

// ParseLogLine never yields events: Bitbucket has no self-hosted runner
// integration here.
func (c *Client) ParseLogLine(_ []byte) *driver.LogEvent {
	return nil
}
