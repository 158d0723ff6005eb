package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v69/github"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

const prPageSize = 100

// PRCreate opens a pull request from source into target.
func (c *Client) PRCreate(ctx context.Context, source, target, title, description string) (*driver.PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(source),
		Base:  github.Ptr(target),
		Body:  github.Ptr(description),
	}

	pr, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, newPR)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	c.log.Debug("Pull request created: " + pr.GetHTMLURL())
	return normalizePR(pr), nil
}

// PRs lists the repository's open pull requests.
func (c *Client) PRs(ctx context.Context) ([]driver.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: prPageSize},
	}

	var result []driver.PullRequest
	for {
		page, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range page {
			result = append(result, *normalizePR(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

func normalizePR(pr *github.PullRequest) *driver.PullRequest {
	return &driver.PullRequest{
		URL:         pr.GetHTMLURL(),
		Source:      pr.GetHead().GetRef(),
		Target:      pr.GetBase().GetRef(),
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
	}
}
