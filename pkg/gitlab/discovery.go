package gitlab

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const versionEndpoint = "/api/v4/version"

var errNoAPIBase = errors.New("could not discover GitLab API base")

// discoverAPIBase probes successively shorter path prefixes of repoURL
// against the version endpoint until one answers, supporting
// self-hosted installations mounted under a path prefix. It returns
// the discovered base URL and the remaining path as the project slug.
//
// Example: https://git.corp.example/mount/gitlab/group/project with the
// instance mounted at /mount/gitlab yields
// ("https://git.corp.example/mount/gitlab", "group/project").
func discoverAPIBase(repoURL, token string) (string, string, error) {
	parsed, err := url.Parse(repoURL)
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("%w: invalid repository URL %q", errNoAPIBase, repoURL)
	}

	trimmed := strings.Trim(strings.TrimSuffix(parsed.Path, ".git"), "/")
	var segments []string
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil

	root := parsed.Scheme + "://" + parsed.Host
	for i := len(segments); i >= 0; i-- {
		base := root
		if i > 0 {
			base += "/" + strings.Join(segments[:i], "/")
		}

		if probeVersion(client, base, token) {
			return base, strings.Join(segments[i:], "/"), nil
		}
	}

	return "", "", fmt.Errorf("%w: no prefix of %s answered %s", errNoAPIBase, repoURL, versionEndpoint)
}

// probeVersion reports whether base hosts a GitLab API.
func probeVersion(client *retryablehttp.Client, base, token string) bool {
	req, err := retryablehttp.NewRequest("GET", base+versionEndpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("PRIVATE-TOKEN", token)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
