package models

import "time"

// EventType identifies which GitHub event triggered the run.
type EventType string

const (
	EventIssueOpened    EventType = "issue-opened"
	EventIssueReopened  EventType = "issue-reopened"
	EventCommentCreated EventType = "comment-created"
)

// Snapshot limits. Anything beyond these is dropped at construction time so
// downstream consumers never see oversized payloads.
const (
	MaxTitleLength       = 256
	MaxBodyExcerptLength = 280
	MaxRetainedComments  = 5

	MinCommentsPageSize = 1
	MaxCommentsPageSize = 20
)

// IssueContextRequest captures everything the retrieval layer needs for one
// invocation. Built once from the triggering event; never mutated.
type IssueContextRequest struct {
	Owner            string
	Repo             string
	IssueNumber      int
	CommentsPageSize int
	RunID            string
	EventType        EventType
}

// CommentSnapshot is a point-in-time capture of a single issue comment.
type CommentSnapshot struct {
	ID          string
	AuthorLogin string
	BodyExcerpt string
	CreatedAt   time.Time
}

// NewCommentSnapshot builds a CommentSnapshot, capping the body excerpt and
// clamping future-dated timestamps to now (UTC).
func NewCommentSnapshot(id, authorLogin, body string, createdAt time.Time) CommentSnapshot {
	createdAt = createdAt.UTC()
	if now := time.Now().UTC(); createdAt.After(now) {
		createdAt = now
	}
	return CommentSnapshot{
		ID:          id,
		AuthorLogin: authorLogin,
		BodyExcerpt: truncateRunes(body, MaxBodyExcerptLength),
		CreatedAt:   createdAt,
	}
}

// IssueSnapshot is a point-in-time capture of an issue and its most recent
// comments.
type IssueSnapshot struct {
	ID             string
	Number         int
	Title          string
	Body           string
	AuthorLogin    string
	CreatedAt      time.Time
	LatestComments []CommentSnapshot
}

// NewIssueSnapshot builds an IssueSnapshot, capping the title and keeping only
// the most recent MaxRetainedComments comments in their original relative
// order. Older comments are silently dropped.
func NewIssueSnapshot(id string, number int, title, body, authorLogin string, createdAt time.Time, comments []CommentSnapshot) *IssueSnapshot {
	if len(comments) > MaxRetainedComments {
		comments = comments[len(comments)-MaxRetainedComments:]
	}
	kept := make([]CommentSnapshot, len(comments))
	copy(kept, comments)

	return &IssueSnapshot{
		ID:             id,
		Number:         number,
		Title:          truncateRunes(title, MaxTitleLength),
		Body:           body,
		AuthorLogin:    authorLogin,
		CreatedAt:      createdAt.UTC(),
		LatestComments: kept,
	}
}

// ContextStatus is the closed set of context-retrieval outcomes.
type ContextStatus string

const (
	StatusSuccess          ContextStatus = "success"
	StatusGraphQLFailure   ContextStatus = "graphql_failure"
	StatusPermissionDenied ContextStatus = "permission_denied"
	StatusUnexpectedError  ContextStatus = "unexpected_error"
	StatusSkipped          ContextStatus = "skipped"
)

// IssueContextResult is the terminal value produced by the retrieval layer.
// Issue is non-nil iff Status is StatusSuccess.
type IssueContextResult struct {
	RunID       string
	EventType   EventType
	Issue       *IssueSnapshot
	RetrievedAt time.Time
	Status      ContextStatus
	Message     string
}

// PublishedComment identifies a comment created on the issue thread.
type PublishedComment struct {
	ID  int64
	URL string
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
