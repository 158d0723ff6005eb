package gitlab

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

const mrPageSize = 100

// PRCreate opens a merge request from source into target.
func (c *Client) PRCreate(ctx context.Context, source, target, title, description string) (*driver.PullRequest, error) {
	mr, _, err := c.client.MergeRequests.CreateMergeRequest(c.projectPath,
		&gitlab.CreateMergeRequestOptions{
			Title:        gitlab.Ptr(title),
			Description:  gitlab.Ptr(description),
			SourceBranch: gitlab.Ptr(source),
			TargetBranch: gitlab.Ptr(target),
		},
		gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}

	c.log.Debug("Merge request created: " + mr.WebURL)
	return &driver.PullRequest{
		URL:         mr.WebURL,
		Source:      mr.SourceBranch,
		Target:      mr.TargetBranch,
		Title:       mr.Title,
		Description: mr.Description,
	}, nil
}

// PRs lists the project's open merge requests.
func (c *Client) PRs(ctx context.Context) ([]driver.PullRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{PerPage: mrPageSize},
	}

	var result []driver.PullRequest
	for {
		page, resp, err := c.client.MergeRequests.ListProjectMergeRequests(c.projectPath, opts,
			gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list merge requests: %w", err)
		}
		for _, mr := range page {
			result = append(result, driver.PullRequest{
				URL:         mr.WebURL,
				Source:      mr.SourceBranch,
				Target:      mr.TargetBranch,
				Title:       mr.Title,
				Description: mr.Description,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}
