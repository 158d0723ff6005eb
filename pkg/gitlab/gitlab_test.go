package gitlab_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/gitlab"
	"github.com/sgaunet/ci-bridge/testing/fixtures"
)

// versionServer answers the version endpoint under the given mount
// prefix only, mimicking a self-hosted instance.
func versionServer(t *testing.T, mount string, seenTokens *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seenTokens != nil {
			*seenTokens = append(*seenTokens, r.Header.Get("PRIVATE-TOKEN"))
		}
		if r.URL.Path == mount+"/api/v4/version" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"17.0.0"}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		_, err := gitlab.New(driver.Config{RepoURI: "group/project"})
		require.ErrorIs(t, err, driver.ErrTokenRequired)
	})

	t.Run("requires a repository", func(t *testing.T) {
		_, err := gitlab.New(driver.Config{Token: "glpat-test"})
		require.ErrorIs(t, err, driver.ErrRepoRequired)
	})

	t.Run("discovers a root-mounted instance", func(t *testing.T) {
		var tokens []string
		srv := versionServer(t, "", &tokens)

		c, err := gitlab.New(driver.Config{
			RepoURI: srv.URL + "/group/project",
			Token:   "glpat-test",
		})
		require.NoError(t, err)
		assert.Equal(t, srv.URL, c.APIBase())
		assert.Equal(t, "group/project", c.Repo())
		assert.Equal(t, driver.KindGitLab, c.Kind())
		require.NotEmpty(t, tokens)
		assert.Equal(t, "glpat-test", tokens[0])
	})

	t.Run("discovers an instance mounted under a path prefix", func(t *testing.T) {
		srv := versionServer(t, "/mount/gitlab", nil)

		c, err := gitlab.New(driver.Config{
			RepoURI: srv.URL + "/mount/gitlab/group/project",
			Token:   "glpat-test",
		})
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/mount/gitlab", c.APIBase())
		assert.Equal(t, "group/project", c.Repo())
	})

	t.Run("discovery failure is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		_, err := gitlab.New(driver.Config{
			RepoURI: srv.URL + "/group/project",
			Token:   "glpat-test",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not discover GitLab API base")
	})

	t.Run("URL naming the API root is not a project", func(t *testing.T) {
		srv := versionServer(t, "", nil)

		_, err := gitlab.New(driver.Config{RepoURI: srv.URL, Token: "glpat-test"})
		require.ErrorIs(t, err, driver.ErrRepoRequired)
	})

	t.Run("falls back to CI_PROJECT_URL", func(t *testing.T) {
		srv := versionServer(t, "", nil)

		c, err := gitlab.New(driver.Config{
			Token: "glpat-test",
			Env:   map[string]string{"CI_PROJECT_URL": srv.URL + "/ci/pipeline"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ci/pipeline", c.Repo())
	})
}

func TestCIEnvironment(t *testing.T) {
	srv := versionServer(t, "", nil)

	c, err := gitlab.New(driver.Config{
		RepoURI: srv.URL + "/group/project",
		Token:   "glpat-test",
		Env: map[string]string{
			"CI_COMMIT_SHA":      "abc123",
			"CI_COMMIT_REF_NAME": "main",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.SHA())
	assert.Equal(t, "main", c.Branch())
}

func TestCheckCreateUnsupported(t *testing.T) {
	srv := versionServer(t, "", nil)

	c, err := gitlab.New(driver.Config{RepoURI: srv.URL + "/group/project", Token: "glpat-test"})
	require.NoError(t, err)

	_, err = c.CheckCreate(context.Background(), driver.CheckOptions{Title: "report"})
	require.Error(t, err)
	assert.True(t, driver.IsUnsupported(err))
}

func TestUpload(t *testing.T) {
	var uploadPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v4/version":
			_, _ = w.Write([]byte(`{"version":"17.0.0"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v4/projects/group/project/uploads":
			uploadPath = r.URL.Path
			_, _ = w.Write([]byte(`{"id":5,"alt":"report.png",` +
				`"url":"/uploads/abcd1234/report.png",` +
				`"markdown":"![report.png](/uploads/abcd1234/report.png)"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := gitlab.New(driver.Config{RepoURI: srv.URL + "/group/project", Token: "glpat-test"})
	require.NoError(t, err)

	result, err := c.Upload(context.Background(), "report.png", strings.NewReader("png bytes"), 9)
	require.NoError(t, err)

	t.Run("posts to the project uploads endpoint", func(t *testing.T) {
		assert.Equal(t, "/api/v4/projects/group/project/uploads", uploadPath)
	})

	t.Run("content-addressed URL is made absolute", func(t *testing.T) {
		assert.Equal(t, srv.URL+"/group/project/uploads/abcd1234/report.png", result.URI)
	})

	t.Run("mime and size from the local file", func(t *testing.T) {
		assert.Equal(t, "image/png", result.Mime)
		assert.Equal(t, int64(9), result.Size)
	})
}

func TestRunnerByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v4/version":
			_, _ = w.Write([]byte(`{"version":"17.0.0"}`))
		case "/api/v4/projects/group/project/runners":
			// A row registered by this tool: the API name field carries
			// the runner application name, the chosen name lives in the
			// description.
			_, _ = w.Write([]byte(`[{"id":7,"description":"my-runner",` +
				`"name":"gitlab-runner","online":true}]`))
		case "/api/v4/runners/7":
			_, _ = w.Write([]byte(`{"id":7,"description":"my-runner",` +
				`"name":"gitlab-runner","tag_list":["cml","linux"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := gitlab.New(driver.Config{RepoURI: srv.URL + "/group/project", Token: "glpat-test"})
	require.NoError(t, err)

	t.Run("matches the registered description", func(t *testing.T) {
		runner, err := c.RunnerByName(context.Background(), "my-runner")
		require.NoError(t, err)
		require.NotNil(t, runner)
		assert.Equal(t, int64(7), runner.ID)
		assert.Equal(t, "my-runner", runner.Name)
		assert.Equal(t, []string{"cml", "linux"}, runner.Labels)
		assert.True(t, runner.Online)
	})

	t.Run("matches the API name field", func(t *testing.T) {
		runner, err := c.RunnerByName(context.Background(), "gitlab-runner")
		require.NoError(t, err)
		require.NotNil(t, runner)
		assert.Equal(t, int64(7), runner.ID)
	})

	t.Run("absent name yields nil without error", func(t *testing.T) {
		runner, err := c.RunnerByName(context.Background(), "other-runner")
		require.NoError(t, err)
		assert.Nil(t, runner)
	})
}

func TestParseLogLine(t *testing.T) {
	srv := versionServer(t, "", nil)

	c, err := gitlab.New(driver.Config{RepoURI: srv.URL + "/group/project", Token: "glpat-test"})
	require.NoError(t, err)

	t.Run("runner startup means ready", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitLabRunnerLogLines()[0])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusReady, event.Status)
		assert.Equal(t, "group/project", event.Repo)
	})

	t.Run("job received carries the numeric job id", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitLabRunnerLogLines()[1])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobStarted, event.Status)
		assert.Equal(t, "1842", event.Job)
	})

	t.Run("job failed is an error event", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitLabRunnerLogLines()[2])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobEnded, event.Status)
		assert.Equal(t, driver.LevelError, event.Level)
		require.NotNil(t, event.Success)
		assert.False(t, *event.Success)
	})

	t.Run("job succeeded", func(t *testing.T) {
		event := c.ParseLogLine([]byte(`{"msg":"Job succeeded","job":"7"}`))
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobEnded, event.Status)
		assert.Equal(t, "7", event.Job)
		require.NotNil(t, event.Success)
		assert.True(t, *event.Success)
	})

	t.Run("non-JSON lines yield nothing", func(t *testing.T) {
		assert.Nil(t, c.ParseLogLine([]byte("plain text output")))
	})

	t.Run("JSON without a message yields nothing", func(t *testing.T) {
		assert.Nil(t, c.ParseLogLine([]byte(`{"level":"info"}`)))
	})

	t.Run("non-UTF8 input yields nothing", func(t *testing.T) {
		assert.Nil(t, c.ParseLogLine([]byte{0xff, 0xfe}))
	})
}
