package bitbucket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/ci-bridge/pkg/bitbucket"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

func newTestClient(t *testing.T, handler http.Handler) *bitbucket.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := bitbucket.New(driver.Config{
		RepoURI: "workspace/repo",
		Token:   "robot:app-password",
	}, nil)
	require.NoError(t, err)
	c.SetAPIBase(srv.URL)
	return c
}

func TestNew(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		_, err := bitbucket.New(driver.Config{RepoURI: "workspace/repo"}, nil)
		require.ErrorIs(t, err, driver.ErrTokenRequired)
	})

	t.Run("rejects tokens without credentials", func(t *testing.T) {
		for _, token := range []string{"justapassword", "user:", ":pass"} {
			_, err := bitbucket.New(driver.Config{RepoURI: "workspace/repo", Token: token}, nil)
			require.Error(t, err, token)
			assert.Contains(t, err.Error(), "username:app_password")
		}
	})

	t.Run("requires a repository", func(t *testing.T) {
		_, err := bitbucket.New(driver.Config{Token: "user:pass"}, nil)
		require.ErrorIs(t, err, driver.ErrRepoRequired)
	})

	t.Run("accepts an https URL", func(t *testing.T) {
		c, err := bitbucket.New(driver.Config{
			RepoURI: "https://bitbucket.org/workspace/repo.git",
			Token:   "user:pass",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "workspace/repo", c.Repo())
		assert.Equal(t, driver.KindBitbucket, c.Kind())
	})

	t.Run("falls back to the Pipelines environment", func(t *testing.T) {
		c, err := bitbucket.New(driver.Config{
			Token: "user:pass",
			Env:   map[string]string{"BITBUCKET_REPO_FULL_NAME": "team/project"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "team/project", c.Repo())
	})
}

func TestCommentCreate(t *testing.T) {
	var gotPath, gotUser, gotBody string

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()

		var payload struct {
			Content struct {
				Raw string `json:"raw"`
			} `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotBody = payload.Content.Raw

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"links":{"html":{"href":"https://bitbucket.org/workspace/repo/commits/abc#comment-1"}}}`))
	}))

	url, err := c.CommentCreate(context.Background(), driver.CommentOptions{
		Body:      "## Results",
		CommitSHA: "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://bitbucket.org/workspace/repo/commits/abc#comment-1", url)
	assert.Equal(t, "/repositories/workspace/repo/commit/abc/comments", gotPath)
	assert.Equal(t, "robot", gotUser)
	assert.Equal(t, "## Results", gotBody)
}

func TestCommentCreateAPIFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"commit not found"}}`, http.StatusNotFound)
	}))

	_, err := c.CommentCreate(context.Background(), driver.CommentOptions{CommitSHA: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPRCreate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/workspace/repo/pullrequests", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "CI results", payload["title"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"title": "CI results",
			"source": {"branch": {"name": "main-cml-pr-01234567"}},
			"destination": {"branch": {"name": "main"}},
			"links": {"html": {"href": "https://bitbucket.org/workspace/repo/pull-requests/3"}}
		}`))
	}))

	pr, err := c.PRCreate(context.Background(), "main-cml-pr-01234567", "main", "CI results", "body")
	require.NoError(t, err)
	assert.Equal(t, "https://bitbucket.org/workspace/repo/pull-requests/3", pr.URL)
	assert.Equal(t, "main-cml-pr-01234567", pr.Source)
	assert.Equal(t, "main", pr.Target)
}

func TestPRsFollowsPagination(t *testing.T) {
	var srvURL string
	pages := 0

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"values":[{"title":"second","source":{"branch":{"name":"b"}},"destination":{"branch":{"name":"main"}}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"values": [{"title":"first","source":{"branch":{"name":"a"}},"destination":{"branch":{"name":"main"}}}],
			"next": "` + srvURL + `/repositories/workspace/repo/pullrequests?state=OPEN&page=2"
		}`))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	c, err := bitbucket.New(driver.Config{RepoURI: "workspace/repo", Token: "user:pass"}, nil)
	require.NoError(t, err)
	c.SetAPIBase(srv.URL)

	prs, err := c.PRs(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.Equal(t, "first", prs[0].Title)
	assert.Equal(t, "second", prs[1].Title)
	assert.Equal(t, 2, pages)
}

func TestUnsupportedCapabilities(t *testing.T) {
	c, err := bitbucket.New(driver.Config{RepoURI: "workspace/repo", Token: "user:pass"}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = c.CheckCreate(ctx, driver.CheckOptions{})
	assert.True(t, driver.IsUnsupported(err))

	_, err = c.RunnerToken(ctx)
	assert.True(t, driver.IsUnsupported(err))

	_, err = c.RegisterRunner(ctx, "name", nil)
	assert.True(t, driver.IsUnsupported(err))

	assert.True(t, driver.IsUnsupported(c.UnregisterRunner(ctx, 1)))

	_, err = c.RunnerByName(ctx, "name")
	assert.True(t, driver.IsUnsupported(err))

	_, err = c.RunnersByLabels(ctx, []string{"cml"})
	assert.True(t, driver.IsUnsupported(err))

	_, err = c.StartRunner(ctx, driver.RunnerSpec{})
	assert.True(t, driver.IsUnsupported(err))

	assert.Nil(t, c.ParseLogLine([]byte("anything")))
}

func TestCIEnvironment(t *testing.T) {
	c, err := bitbucket.New(driver.Config{
		RepoURI: "workspace/repo",
		Token:   "user:pass",
		Env: map[string]string{
			"BITBUCKET_COMMIT": "abc123",
			"BITBUCKET_BRANCH": "main",
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.SHA())
	assert.Equal(t, "main", c.Branch())
}
