package github_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/ci-bridge/pkg/driver"
	"github.com/sgaunet/ci-bridge/pkg/github"
	"github.com/sgaunet/ci-bridge/testing/fixtures"
	"github.com/sgaunet/ci-bridge/testing/mocks"
)

func TestNew(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		_, err := github.New(driver.Config{RepoURI: "owner/repo"}, nil)
		require.ErrorIs(t, err, driver.ErrTokenRequired)
	})

	t.Run("requires a repository", func(t *testing.T) {
		_, err := github.New(driver.Config{Token: "ghp_test"}, nil)
		require.ErrorIs(t, err, driver.ErrRepoRequired)
	})

	t.Run("accepts a bare slug", func(t *testing.T) {
		c, err := github.New(driver.Config{RepoURI: "owner/repo", Token: "ghp_test"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "owner/repo", c.Repo())
		assert.Equal(t, driver.KindGitHub, c.Kind())
	})

	t.Run("accepts an https URL", func(t *testing.T) {
		c, err := github.New(driver.Config{
			RepoURI: "https://github.com/owner/repo.git",
			Token:   "ghp_test",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "owner/repo", c.Repo())
	})

	t.Run("falls back to the Actions environment", func(t *testing.T) {
		c, err := github.New(driver.Config{
			Token: "ghp_test",
			Env:   map[string]string{"GITHUB_REPOSITORY": "org/project"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "org/project", c.Repo())
	})

	t.Run("rejects an unparsable repository", func(t *testing.T) {
		_, err := github.New(driver.Config{RepoURI: "not-a-repo", Token: "ghp_test"}, nil)
		require.ErrorIs(t, err, driver.ErrRepoRequired)
	})
}

func TestCIEnvironment(t *testing.T) {
	newClient := func(t *testing.T, env map[string]string) *github.Client {
		t.Helper()
		c, err := github.New(driver.Config{RepoURI: "owner/repo", Token: "ghp_test", Env: env}, nil)
		require.NoError(t, err)
		return c
	}

	t.Run("sha from GITHUB_SHA", func(t *testing.T) {
		c := newClient(t, map[string]string{"GITHUB_SHA": "abc123"})
		assert.Equal(t, "abc123", c.SHA())
	})

	t.Run("empty outside CI", func(t *testing.T) {
		c := newClient(t, nil)
		assert.Equal(t, "", c.SHA())
		assert.Equal(t, "", c.Branch())
	})

	t.Run("branch prefers GITHUB_HEAD_REF", func(t *testing.T) {
		c := newClient(t, map[string]string{
			"GITHUB_HEAD_REF": "feature",
			"GITHUB_REF":      "refs/heads/main",
		})
		assert.Equal(t, "feature", c.Branch())
	})

	t.Run("branch strips the ref prefix", func(t *testing.T) {
		c := newClient(t, map[string]string{"GITHUB_REF": "refs/heads/main"})
		assert.Equal(t, "main", c.Branch())
	})
}

func TestUpload(t *testing.T) {
	t.Run("unsupported without an object store", func(t *testing.T) {
		c, err := github.New(driver.Config{RepoURI: "owner/repo", Token: "ghp_test"}, nil)
		require.NoError(t, err)

		_, err = c.Upload(context.Background(), "report.html", strings.NewReader("x"), 1)
		require.Error(t, err)
		assert.True(t, driver.IsUnsupported(err))
	})

	t.Run("delegates to the uploader", func(t *testing.T) {
		uploader := &mocks.Uploader{}
		c, err := github.New(driver.Config{RepoURI: "owner/repo", Token: "ghp_test"}, uploader)
		require.NoError(t, err)

		result, err := c.Upload(context.Background(), "report.html", strings.NewReader("body"), 4)
		require.NoError(t, err)
		assert.Equal(t, "s3://bucket/report.html", result.URI)
		assert.Equal(t, "report.html", uploader.LastName)
		assert.Equal(t, []byte("body"), uploader.LastBody)
	})
}

func TestParseLogLine(t *testing.T) {
	c, err := github.New(driver.Config{RepoURI: "owner/repo", Token: "ghp_test"}, nil)
	require.NoError(t, err)

	t.Run("listening means ready", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitHubRunnerLogLines()[0])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusReady, event.Status)
		assert.Equal(t, driver.LevelInfo, event.Level)
		assert.Nil(t, event.Success)
		assert.Equal(t, "owner/repo", event.Repo)
	})

	t.Run("running job carries the job name", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitHubRunnerLogLines()[1])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobStarted, event.Status)
		assert.Equal(t, "train-model", event.Job)
	})

	t.Run("successful completion", func(t *testing.T) {
		event := c.ParseLogLine(fixtures.GitHubRunnerLogLines()[2])
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobEnded, event.Status)
		assert.Equal(t, driver.LevelInfo, event.Level)
		require.NotNil(t, event.Success)
		assert.True(t, *event.Success)
	})

	t.Run("failed completion is an error event", func(t *testing.T) {
		event := c.ParseLogLine([]byte("Job train-model completed with result: Failed"))
		require.NotNil(t, event)
		assert.Equal(t, driver.StatusJobEnded, event.Status)
		assert.Equal(t, driver.LevelError, event.Level)
		require.NotNil(t, event.Success)
		assert.False(t, *event.Success)
	})

	t.Run("unrelated lines yield nothing", func(t *testing.T) {
		assert.Nil(t, c.ParseLogLine([]byte("Downloading actions...")))
	})

	t.Run("non-UTF8 input yields nothing", func(t *testing.T) {
		assert.Nil(t, c.ParseLogLine([]byte{0xff, 0xfe, 0xfd}))
	})
}
