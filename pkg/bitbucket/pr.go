package bitbucket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sgaunet/ci-bridge/pkg/driver"
)

// prPayload is the wire shape shared by create responses and list pages.
type prPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"source"`
	Destination struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"destination"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

func (p prPayload) normalize() driver.PullRequest {
	return driver.PullRequest{
		URL:         p.Links.HTML.Href,
		Source:      p.Source.Branch.Name,
		Target:      p.Destination.Branch.Name,
		Title:       p.Title,
		Description: p.Description,
	}
}

// PRCreate opens a pull request from source into target.
func (c *Client) PRCreate(ctx context.Context, source, target, title, description string) (*driver.PullRequest, error) {
	payload := map[string]any{
		"title":       title,
		"description": description,
		"source":      map[string]any{"branch": map[string]string{"name": source}},
		"destination": map[string]any{"branch": map[string]string{"name": target}},
	}

	var created prPayload
	if err := c.request(ctx, http.MethodPost, c.repoURL("/pullrequests"), payload, &created); err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	c.log.Debug("Pull request created: " + created.Links.HTML.Href)
	pr := created.normalize()
	return &pr, nil
}

// PRs lists the repository's open pull requests, following the API's
// next-page links.
func (c *Client) PRs(ctx context.Context) ([]driver.PullRequest, error) {
	url := c.repoURL("/pullrequests?state=OPEN")

	var result []driver.PullRequest
	for url != "" {
		var page struct {
			Values []prPayload `json:"values"`
			Next   string      `json:"next"`
		}
		if err := c.request(ctx, http.MethodGet, url, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}

		for _, pr := range page.Values {
			result = append(result, pr.normalize())
		}
		url = page.Next
	}

	return result, nil
}
