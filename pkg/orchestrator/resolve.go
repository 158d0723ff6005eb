package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sgaunet/ci-bridge/pkg/config"
	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// Options are the caller-supplied settings, typically parsed CLI flags.
type Options struct {
	Repo        string
	Token       string
	Driver      string
	CommitSHA   string
	RmWatermark bool
	Bucket      string
	Prefix      string
}

// resolveKind picks the driver kind: explicit option, config file,
// CI-provider environment signal, repository URL host, in that order.
func resolveKind(opts Options, fileCfg *config.Config, env map[string]string, repo string) (driver.Kind, error) {
	if opts.Driver != "" {
		return parseKind(opts.Driver)
	}
	if fileCfg.Driver != "" {
		return parseKind(fileCfg.Driver)
	}

	switch {
	case env["GITHUB_ACTIONS"] == "true" || env["GITHUB_REPOSITORY"] != "":
		return driver.KindGitHub, nil
	case env["GITLAB_CI"] == "true" || env["CI_PROJECT_URL"] != "":
		return driver.KindGitLab, nil
	case env["BITBUCKET_BUILD_NUMBER"] != "" || env["BITBUCKET_REPO_FULL_NAME"] != "":
		return driver.KindBitbucket, nil
	}

	switch {
	case strings.Contains(repo, "github.com"):
		return driver.KindGitHub, nil
	case strings.Contains(repo, "gitlab"):
		return driver.KindGitLab, nil
	case strings.Contains(repo, "bitbucket.org"):
		return driver.KindBitbucket, nil
	}

	return "", fmt.Errorf("%w: cannot infer a driver, pass --driver", driver.ErrUnknownKind)
}

func parseKind(s string) (driver.Kind, error) {
	switch driver.Kind(s) {
	case driver.KindGitHub, driver.KindGitLab, driver.KindBitbucket:
		return driver.Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %s", driver.ErrUnknownKind, s)
	}
}

// resolveRepo picks the repository: explicit option, config file,
// CI-provider environment, local remote URL as last resort.
func resolveRepo(opts Options, fileCfg *config.Config, env map[string]string, remoteURL func() (string, error)) string {
	if opts.Repo != "" {
		return opts.Repo
	}
	if fileCfg.Repo != "" {
		return fileCfg.Repo
	}

	if slug := env["GITHUB_REPOSITORY"]; slug != "" {
		server := env["GITHUB_SERVER_URL"]
		if server == "" {
			server = "https://github.com"
		}
		return strings.TrimSuffix(server, "/") + "/" + slug
	}
	if url := env["CI_PROJECT_URL"]; url != "" {
		return url
	}
	if slug := env["BITBUCKET_REPO_FULL_NAME"]; slug != "" {
		return "https://bitbucket.org/" + slug
	}

	if remoteURL != nil {
		if url, err := remoteURL(); err == nil {
			return url
		}
	}
	return ""
}

// resolveToken applies the fixed precedence: the generic REPO_TOKEN,
// then the provider-specific variable for the resolved kind.
func resolveToken(opts Options, env map[string]string, kind driver.Kind) string {
	if opts.Token != "" {
		return opts.Token
	}
	if token := env["REPO_TOKEN"]; token != "" {
		return token
	}

	switch kind {
	case driver.KindGitHub:
		return env["GITHUB_TOKEN"]
	case driver.KindGitLab:
		if token := env["GITLAB_TOKEN"]; token != "" {
			return token
		}
		return env["CI_JOB_TOKEN"]
	case driver.KindBitbucket:
		return env["BITBUCKET_TOKEN"]
	}
	return ""
}
