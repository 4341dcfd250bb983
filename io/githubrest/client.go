// Package githubrest publishes comments back to the issue thread through the
// GitHub REST API.
package githubrest

import (
	"context"
	"fmt"

	"github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

type Client struct {
	gh      *github.Client
	logger  interfaces.Logger
	metrics interfaces.MetricsCollector
}

// NewClient creates a comment publisher authenticated with the given token.
// baseURL overrides the API host for GitHub Enterprise and for tests; pass
// the default https://api.github.com otherwise.
func NewClient(ctx context.Context, token, baseURL string, logger interfaces.Logger, metrics interfaces.MetricsCollector) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := github.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid GitHub API base URL %q", baseURL)).WithCause(err)
		}
	}

	return &Client{
		gh:      gh,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// PublishComment creates a comment on the issue and returns its id and URL.
func (c *Client) PublishComment(ctx context.Context, owner, repo string, issueNumber int, body string) (*models.PublishedComment, error) {
	c.logger.Debug("publishing comment",
		"owner", owner,
		"repo", repo,
		"issue_number", issueNumber,
		"body_length", len(body),
	)

	comment, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, issueNumber, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.metrics.IncrementCounter("comments_published_total", map[string]string{"status": "error"})
		return nil, publishError(status, err)
	}

	c.metrics.IncrementCounter("comments_published_total", map[string]string{"status": "success"})
	c.logger.Info("comment published",
		"comment_id", comment.GetID(),
		"comment_url", comment.GetHTMLURL(),
	)

	return &models.PublishedComment{
		ID:  comment.GetID(),
		URL: comment.GetHTMLURL(),
	}, nil
}

func publishError(status int, err error) error {
	switch status {
	case 401, 403:
		return pkgerrors.NewUnauthorizedError(
			"GitHub rejected the comment; grant the workflow token issues: write permission").WithCause(err)
	case 404:
		return pkgerrors.NewNotFoundError(
			"issue not found when publishing comment; check the repository and issue number").WithCause(err)
	case 429:
		return pkgerrors.NewRateLimitError("github-rest").WithCause(err)
	default:
		return pkgerrors.NewExternalError("github-rest", err.Error()).WithCause(err)
	}
}

var _ interfaces.CommentPublisher = (*Client)(nil)
