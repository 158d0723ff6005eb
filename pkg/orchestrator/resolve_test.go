package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/ci-bridge/pkg/config"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

func TestResolveKind(t *testing.T) {
	empty := &config.Config{}

	t.Run("explicit option wins", func(t *testing.T) {
		kind, err := resolveKind(Options{Driver: "bitbucket"}, &config.Config{Driver: "gitlab"},
			map[string]string{"GITHUB_ACTIONS": "true"}, "")
		require.NoError(t, err)
		assert.Equal(t, driver.KindBitbucket, kind)
	})

	t.Run("config file beats the environment", func(t *testing.T) {
		kind, err := resolveKind(Options{}, &config.Config{Driver: "gitlab"},
			map[string]string{"GITHUB_ACTIONS": "true"}, "")
		require.NoError(t, err)
		assert.Equal(t, driver.KindGitLab, kind)
	})

	t.Run("unknown explicit driver rejected", func(t *testing.T) {
		_, err := resolveKind(Options{Driver: "jenkins"}, empty, nil, "")
		require.ErrorIs(t, err, driver.ErrUnknownKind)
	})

	t.Run("CI environment signals", func(t *testing.T) {
		cases := []struct {
			env  map[string]string
			want driver.Kind
		}{
			{map[string]string{"GITHUB_ACTIONS": "true"}, driver.KindGitHub},
			{map[string]string{"GITHUB_REPOSITORY": "o/r"}, driver.KindGitHub},
			{map[string]string{"GITLAB_CI": "true"}, driver.KindGitLab},
			{map[string]string{"CI_PROJECT_URL": "https://gitlab.com/g/p"}, driver.KindGitLab},
			{map[string]string{"BITBUCKET_BUILD_NUMBER": "7"}, driver.KindBitbucket},
		}
		for _, tc := range cases {
			kind, err := resolveKind(Options{}, empty, tc.env, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		}
	})

	t.Run("repository host as last resort", func(t *testing.T) {
		kind, err := resolveKind(Options{}, empty, nil, "https://github.com/owner/repo")
		require.NoError(t, err)
		assert.Equal(t, driver.KindGitHub, kind)

		kind, err = resolveKind(Options{}, empty, nil, "https://gitlab.example.com/g/p")
		require.NoError(t, err)
		assert.Equal(t, driver.KindGitLab, kind)
	})

	t.Run("nothing to infer from", func(t *testing.T) {
		_, err := resolveKind(Options{}, empty, nil, "")
		require.ErrorIs(t, err, driver.ErrUnknownKind)
	})
}

func TestResolveRepo(t *testing.T) {
	empty := &config.Config{}

	t.Run("explicit option wins", func(t *testing.T) {
		repo := resolveRepo(Options{Repo: "owner/repo"}, &config.Config{Repo: "other/repo"}, nil, nil)
		assert.Equal(t, "owner/repo", repo)
	})

	t.Run("GitHub environment builds a URL", func(t *testing.T) {
		repo := resolveRepo(Options{}, empty, map[string]string{"GITHUB_REPOSITORY": "o/r"}, nil)
		assert.Equal(t, "https://github.com/o/r", repo)
	})

	t.Run("GitHub enterprise server honored", func(t *testing.T) {
		repo := resolveRepo(Options{}, empty, map[string]string{
			"GITHUB_REPOSITORY": "o/r",
			"GITHUB_SERVER_URL": "https://github.corp.example/",
		}, nil)
		assert.Equal(t, "https://github.corp.example/o/r", repo)
	})

	t.Run("local remote as last resort", func(t *testing.T) {
		repo := resolveRepo(Options{}, empty, nil, func() (string, error) {
			return "https://gitlab.com/g/p.git", nil
		})
		assert.Equal(t, "https://gitlab.com/g/p.git", repo)
	})

	t.Run("remote errors leave the repo empty", func(t *testing.T) {
		repo := resolveRepo(Options{}, empty, nil, func() (string, error) {
			return "", errors.New("not a repository")
		})
		assert.Equal(t, "", repo)
	})
}

func TestResolveToken(t *testing.T) {
	t.Run("explicit option wins", func(t *testing.T) {
		token := resolveToken(Options{Token: "explicit"},
			map[string]string{"REPO_TOKEN": "generic"}, driver.KindGitHub)
		assert.Equal(t, "explicit", token)
	})

	t.Run("REPO_TOKEN beats provider variables", func(t *testing.T) {
		token := resolveToken(Options{}, map[string]string{
			"REPO_TOKEN":   "generic",
			"GITHUB_TOKEN": "provider",
		}, driver.KindGitHub)
		assert.Equal(t, "generic", token)
	})

	t.Run("provider fallbacks", func(t *testing.T) {
		assert.Equal(t, "gh",
			resolveToken(Options{}, map[string]string{"GITHUB_TOKEN": "gh"}, driver.KindGitHub))
		assert.Equal(t, "gl",
			resolveToken(Options{}, map[string]string{"GITLAB_TOKEN": "gl"}, driver.KindGitLab))
		assert.Equal(t, "job",
			resolveToken(Options{}, map[string]string{"CI_JOB_TOKEN": "job"}, driver.KindGitLab))
		assert.Equal(t, "bb",
			resolveToken(Options{}, map[string]string{"BITBUCKET_TOKEN": "bb"}, driver.KindBitbucket))
	})

	t.Run("empty when nothing is set", func(t *testing.T) {
		assert.Equal(t, "", resolveToken(Options{}, nil, driver.KindGitHub))
	})
}
