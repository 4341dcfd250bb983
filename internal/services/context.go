package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
)

// issueContextQuery fetches the issue plus its most recent comments in a
// single round trip.
const issueContextQuery = `query($owner: String!, $repo: String!, $number: Int!, $pageSize: Int!) {
	repository(owner: $owner, name: $repo) {
		issue(number: $number) {
			id
			number
			title
			author { login }
			body
			createdAt
			comments(last: $pageSize) {
				totalCount
				nodes {
					id
					author { login }
					bodyText
					createdAt
				}
			}
		}
	}
}`

// issueContextData mirrors the data portion of the query response.
type issueContextData struct {
	Repository struct {
		Issue *struct {
			ID        string `json:"id"`
			Number    int    `json:"number"`
			Title     string `json:"title"`
			Author    author `json:"author"`
			Body      string `json:"body"`
			CreatedAt string `json:"createdAt"`
			Comments  struct {
				TotalCount int `json:"totalCount"`
				Nodes      []struct {
					ID        string `json:"id"`
					Author    author `json:"author"`
					BodyText  string `json:"bodyText"`
					CreatedAt string `json:"createdAt"`
				} `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	} `json:"repository"`
}

type author struct {
	Login string `json:"login"`
}

// ContextService retrieves the issue conversation and maps every expected
// remote failure into the result's closed status set. Only a programmer
// error (nil request) escapes as a panic.
type ContextService struct {
	executor interfaces.GraphQLExecutor
	logger   interfaces.Logger
	metrics  interfaces.MetricsCollector
}

// NewContextService creates a new context retrieval service
func NewContextService(executor interfaces.GraphQLExecutor, logger interfaces.Logger, metrics interfaces.MetricsCollector) *ContextService {
	return &ContextService{
		executor: executor,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchIssueContext executes the single context query. It never returns an
// error: every outcome, including a panic below this frame, becomes a status
// on the result.
func (s *ContextService) FetchIssueContext(ctx context.Context, req *models.IssueContextRequest) (result models.IssueContextResult) {
	if req == nil {
		panic("services: FetchIssueContext called with nil request")
	}

	started := time.Now()
	result = models.IssueContextResult{
		RunID:       req.RunID,
		EventType:   req.EventType,
		RetrievedAt: started.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Status = models.StatusUnexpectedError
			result.Message = fmt.Sprintf("unexpected panic during context retrieval: %v", r)
			result.Issue = nil
		}
		s.metrics.IncrementCounter("context_requests_total", map[string]string{
			"status":     string(result.Status),
			"event_type": string(req.EventType),
		})
		s.metrics.RecordDuration("context_fetch_duration_seconds", time.Since(started).Seconds(), map[string]string{
			"event_type": string(req.EventType),
		})
	}()

	pageSize := clampPageSize(req.CommentsPageSize)

	s.logger.Debug("fetching issue context",
		"owner", req.Owner,
		"repo", req.Repo,
		"issue_number", req.IssueNumber,
		"page_size", pageSize,
	)

	envelope, err := s.executor.Execute(ctx, issueContextQuery, map[string]any{
		"owner":    req.Owner,
		"repo":     req.Repo,
		"number":   req.IssueNumber,
		"pageSize": pageSize,
	})
	if err != nil {
		result.Status = models.StatusUnexpectedError
		result.Message = fmt.Sprintf("context query failed: %v", err)
		s.logger.Error("context query failed", err, "issue_number", req.IssueNumber)
		return result
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		if first.PermissionRelated() {
			result.Status = models.StatusPermissionDenied
			result.Message = fmt.Sprintf(
				"GitHub denied the context query (%s); grant the workflow token `issues: write` permission (read is the minimum for retrieval, write is needed to reply)",
				first.Message)
			s.logger.Warn("context query denied by token scope", "graphql_error", first.Message)
			return result
		}

		result.Status = models.StatusGraphQLFailure
		result.Message = fmt.Sprintf("GraphQL query returned an error: %s", first.Message)
		s.logger.Warn("context query returned errors", "graphql_error", first.Message)
		return result
	}

	var data issueContextData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		result.Status = models.StatusGraphQLFailure
		result.Message = fmt.Sprintf("failed to decode GraphQL payload: %v", err)
		return result
	}

	issue := data.Repository.Issue
	if issue == nil {
		result.Status = models.StatusGraphQLFailure
		result.Message = fmt.Sprintf("issue #%d was not found in %s/%s; check the issue number", req.IssueNumber, req.Owner, req.Repo)
		s.logger.Warn("issue not found", "issue_number", req.IssueNumber)
		return result
	}

	comments := make([]models.CommentSnapshot, 0, len(issue.Comments.Nodes))
	for _, node := range issue.Comments.Nodes {
		comments = append(comments, models.NewCommentSnapshot(
			node.ID,
			node.Author.Login,
			node.BodyText,
			parseTimestamp(node.CreatedAt),
		))
	}

	result.Issue = models.NewIssueSnapshot(
		issue.ID,
		issue.Number,
		issue.Title,
		issue.Body,
		issue.Author.Login,
		parseTimestamp(issue.CreatedAt),
		comments,
	)
	result.Status = models.StatusSuccess
	result.Message = fmt.Sprintf("retrieved issue #%d with %d of %d comments", issue.Number, len(result.Issue.LatestComments), issue.Comments.TotalCount)

	s.logger.Info("issue context retrieved",
		"issue_number", issue.Number,
		"comments_retained", len(result.Issue.LatestComments),
		"comments_total", issue.Comments.TotalCount,
	)
	return result
}

func clampPageSize(n int) int {
	switch {
	case n < models.MinCommentsPageSize:
		return models.MinCommentsPageSize
	case n > models.MaxCommentsPageSize:
		return models.MaxCommentsPageSize
	default:
		return n
	}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

var _ interfaces.ContextRetriever = (*ContextService)(nil)
