package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdot/issueagent/internal/config"
	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

func pipelineConfig() *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{
			Token:            "ghs_testtoken",
			Owner:            "acme",
			Repo:             "widgets",
			IssueNumber:      7,
			CommentsPageSize: 5,
			RunID:            "run-123",
			EventType:        models.EventCommentCreated,
		},
		Agent: config.AgentConfig{Login: "issueagent", Handle: "issueagent"},
	}
}

func successContext(latestText string) models.IssueContextResult {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return models.IssueContextResult{
		Status: models.StatusSuccess,
		Issue: models.NewIssueSnapshot("I_1", 7, "App crashes", "Details inside.", "octocat", base,
			[]models.CommentSnapshot{
				{ID: "C_1", AuthorLogin: "octocat", BodyExcerpt: latestText, CreatedAt: base.Add(time.Hour)},
			}),
	}
}

func newTestPipeline(cfg *config.Config, retriever *fakeRetriever, completions *fakeCompletions, publisher *fakePublisher) *Pipeline {
	generator := NewResponseGenerator(nil, nopLogger{})
	if completions != nil {
		generator = NewResponseGenerator(completions, nopLogger{})
	}
	return NewPipeline(
		cfg,
		retriever,
		NewHistoryBuilder(cfg.Agent.Login),
		NewDecisionEngine(cfg.Agent.Handle),
		generator,
		publisher,
		nopLogger{},
		newStubMetrics(),
	)
}

func TestPipelineRun_BlankTokenFailsBeforeRetrieval(t *testing.T) {
	cfg := pipelineConfig()
	cfg.GitHub.Token = "   "
	retriever := &fakeRetriever{}

	pipeline := newTestPipeline(cfg, retriever, nil, &fakePublisher{})
	outcome, err := pipeline.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, 0, retriever.calls, "no remote call may happen without a token")

	appErr, ok := pkgerrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrorTypeUnauthorized, appErr.Type)
}

func TestPipelineRun_MentionPublishesSignedComment(t *testing.T) {
	retriever := &fakeRetriever{result: successContext("@issueagent please take a look")}
	completions := &fakeCompletions{text: "Here is what I found."}
	publisher := &fakePublisher{}

	pipeline := newTestPipeline(pipelineConfig(), retriever, completions, publisher)
	outcome, err := pipeline.Run(context.Background())

	require.NoError(t, err)
	require.NotNil(t, outcome.Published)
	assert.Equal(t, int64(42), outcome.Published.ID)
	assert.Equal(t, models.VerdictMustRespond, outcome.Decision.Verdict)

	assert.Contains(t, publisher.body, agentBanner)
	assert.Contains(t, publisher.body, models.SignatureMarker)
	assert.Contains(t, publisher.body, "Here is what I found.")
}

func TestPipelineRun_NoBackendPublishesFallback(t *testing.T) {
	retriever := &fakeRetriever{result: successContext("@issueagent please take a look")}
	publisher := &fakePublisher{}

	pipeline := newTestPipeline(pipelineConfig(), retriever, nil, publisher)
	outcome, err := pipeline.Run(context.Background())

	require.NoError(t, err)
	require.NotNil(t, outcome.Published)
	assert.Contains(t, publisher.body, "A maintainer will take a look soon")
	assert.Contains(t, publisher.body, models.SignatureMarker)
}

func TestPipelineRun_SkipDoesNotPublish(t *testing.T) {
	retriever := &fakeRetriever{result: successContext("just leaving a note for myself")}
	publisher := &fakePublisher{}

	pipeline := newTestPipeline(pipelineConfig(), retriever, nil, publisher)
	outcome, err := pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.Nil(t, outcome.Published)
	assert.Equal(t, models.VerdictSkip, outcome.Decision.Verdict)
	assert.Equal(t, 0, publisher.calls)
	assert.False(t, outcome.Failed())
}

func TestPipelineRun_PermissionDeniedIsFailureWithoutError(t *testing.T) {
	retriever := &fakeRetriever{result: models.IssueContextResult{
		Status:  models.StatusPermissionDenied,
		Message: "GitHub denied the context query",
	}}
	publisher := &fakePublisher{}

	pipeline := newTestPipeline(pipelineConfig(), retriever, nil, publisher)
	outcome, err := pipeline.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Failed())
	assert.Nil(t, outcome.Published)
	assert.Equal(t, 0, publisher.calls)
}

func TestPipelineRun_PublishErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{result: successContext("@issueagent please take a look")}
	publisher := &fakePublisher{err: pkgerrors.NewExternalError("github", "comment creation failed")}

	pipeline := newTestPipeline(pipelineConfig(), retriever, nil, publisher)
	outcome, err := pipeline.Run(context.Background())

	require.Error(t, err)
	require.NotNil(t, outcome)
	assert.Nil(t, outcome.Published)
}

func TestGenerateReply_FallbackOnCompletionError(t *testing.T) {
	generator := NewResponseGenerator(&fakeCompletions{err: assert.AnError}, nopLogger{})

	reply := generator.GenerateReply(context.Background(), nil, models.ResponseDecisionResult{Verdict: models.VerdictMustRespond})

	assert.Equal(t, fallbackReply, reply)
}

func TestGenerateReply_SkipVerdictReturnsEmpty(t *testing.T) {
	generator := NewResponseGenerator(&fakeCompletions{text: "unused"}, nopLogger{})

	reply := generator.GenerateReply(context.Background(), nil, models.ResponseDecisionResult{Verdict: models.VerdictSkip})

	assert.Empty(t, reply)
}
