package interfaces

import (
	"context"

	"github.com/mattdot/issueagent/internal/models"
)

// GraphQLExecutor executes one GraphQL query and returns the raw response
// envelope. Implementations never interpret the errors list; that is the
// retrieval service's job.
type GraphQLExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (*models.GraphQLEnvelope, error)
}

// ContextRetriever fetches the issue plus its recent comments and maps every
// expected failure into the result's status. It never returns an error for
// expected remote failures.
type ContextRetriever interface {
	FetchIssueContext(ctx context.Context, req *models.IssueContextRequest) models.IssueContextResult
}

// DecisionEngine decides whether the agent should reply to the conversation.
type DecisionEngine interface {
	ShouldRespond(history []models.ConversationMessage) models.ResponseDecisionResult
}

// CompletionClient produces reply text from a conversation. Implemented by
// the AI backend client once the bootstrap succeeds.
type CompletionClient interface {
	Complete(ctx context.Context, history []models.ConversationMessage) (string, error)
}

// CommentPublisher creates a comment on the issue thread.
type CommentPublisher interface {
	PublishComment(ctx context.Context, owner, repo string, issueNumber int, body string) (*models.PublishedComment, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
	Fatal(msg string, err error, fields ...any)
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordDuration(name string, duration float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// CircuitBreaker defines the interface for circuit breaker pattern
type CircuitBreaker interface {
	Execute(req func() (any, error)) (any, error)
	Name() string
	State() string
}
