package services

import (
	"context"

	"github.com/mattdot/issueagent/internal/models"
)

// nopLogger satisfies interfaces.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, error, ...any) {}
func (nopLogger) Fatal(string, error, ...any) {}

// stubMetrics satisfies interfaces.MetricsCollector for tests.
type stubMetrics struct {
	counters map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{counters: map[string]int{}}
}

func (m *stubMetrics) IncrementCounter(name string, _ map[string]string) {
	m.counters[name]++
}
func (m *stubMetrics) RecordDuration(string, float64, map[string]string) {}
func (m *stubMetrics) SetGauge(string, float64, map[string]string)       {}

// fakeExecutor returns a canned envelope, error, or panics.
type fakeExecutor struct {
	envelope *models.GraphQLEnvelope
	err      error
	panicMsg string
	calls    int
}

func (f *fakeExecutor) Execute(_ context.Context, _ string, _ map[string]any) (*models.GraphQLEnvelope, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.envelope, nil
}

// fakeRetriever returns a canned result.
type fakeRetriever struct {
	result models.IssueContextResult
	calls  int
}

func (f *fakeRetriever) FetchIssueContext(_ context.Context, _ *models.IssueContextRequest) models.IssueContextResult {
	f.calls++
	return f.result
}

// fakePublisher records the published body.
type fakePublisher struct {
	body  string
	err   error
	calls int
}

func (f *fakePublisher) PublishComment(_ context.Context, _, _ string, _ int, body string) (*models.PublishedComment, error) {
	f.calls++
	f.body = body
	if f.err != nil {
		return nil, f.err
	}
	return &models.PublishedComment{ID: 42, URL: "https://github.com/acme/widgets/issues/7#issuecomment-42"}, nil
}

// fakeCompletions returns canned reply text.
type fakeCompletions struct {
	text string
	err  error
}

func (f *fakeCompletions) Complete(_ context.Context, _ []models.ConversationMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
