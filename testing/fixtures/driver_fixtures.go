// Package fixtures provides canned test data shared across packages.
package fixtures

import "github.com/sgaunet/ci-bridge/pkg/driver"

// Test constants for driver fixtures.
const (
	DefaultSHA    = "0123456789abcdef0123456789abcdef01234567"
	DefaultBranch = "main"
	DefaultPRURL  = "https://example.com/owner/repo/pull/7"
)

// OnlineRunner returns a registered, online runner row.
func OnlineRunner() driver.Runner {
	return driver.Runner{
		ID:     101,
		Name:   "ci-bridge-runner",
		Labels: []string{"cml", "gpu", "linux"},
		Online: true,
	}
}

// OfflineRunner returns a registered runner that is not connected.
func OfflineRunner() driver.Runner {
	return driver.Runner{
		ID:     102,
		Name:   "stale-runner",
		Labels: []string{"cml"},
		Online: false,
	}
}

// OpenPullRequest returns an open automated PR for DefaultSHA.
func OpenPullRequest() driver.PullRequest {
	return driver.PullRequest{
		URL:    DefaultPRURL,
		Source: "main-cml-pr-01234567",
		Target: DefaultBranch,
		Title:  "CI results for main-cml-pr-01234567",
	}
}

// GitHubRunnerLogLines returns raw Actions runner output covering the
// ready, job start and job end phases.
func GitHubRunnerLogLines() [][]byte {
	return [][]byte{
		[]byte("2024-01-15 10:00:01Z: Listening for Jobs"),
		[]byte("2024-01-15 10:00:10Z: Running job: train-model"),
		[]byte("2024-01-15 10:05:42Z: Job train-model completed with result: Succeeded"),
	}
}

// GitLabRunnerLogLines returns raw gitlab-runner JSON output covering
// the ready, job start and job end phases.
func GitLabRunnerLogLines() [][]byte {
	return [][]byte{
		[]byte(`{"level":"info","msg":"Starting runner for https://gitlab.com with token abc ...","time":"2024-01-15T10:00:01Z"}`),
		[]byte(`{"level":"info","msg":"Checking for jobs... received","job":1842,"repo_url":"https://gitlab.com/group/project.git","time":"2024-01-15T10:00:10Z"}`),
		[]byte(`{"level":"warning","msg":"Job failed: exit code 1","job":1842,"duration_s":330.2,"time":"2024-01-15T10:05:42Z"}`),
	}
}
