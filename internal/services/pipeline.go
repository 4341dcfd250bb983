package services

import (
	"context"
	"strings"
	"time"

	"github.com/mattdot/issueagent/internal/config"
	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

// agentBanner opens every published comment so readers can tell automation
// from humans at a glance. The signature marker below it is what the history
// builder keys on.
const agentBanner = ":robot: **Issue Agent**"

// RunOutcome is everything one pipeline invocation produced.
type RunOutcome struct {
	Context   models.IssueContextResult
	Decision  models.ResponseDecisionResult
	Published *models.PublishedComment
}

// Failed reports whether the run ended in a failure status. Skipped outcomes
// are not failures.
func (o *RunOutcome) Failed() bool {
	switch o.Context.Status {
	case models.StatusSuccess, models.StatusSkipped:
		return false
	default:
		return true
	}
}

// Pipeline is the top-level orchestrator: validate token, retrieve context,
// build history, decide, generate, publish. Strictly sequential; the first
// unsuccessful step ends the run except where retrieval converts failures
// into result values.
type Pipeline struct {
	cfg       *config.Config
	retriever interfaces.ContextRetriever
	history   *HistoryBuilder
	engine    interfaces.DecisionEngine
	generator *ResponseGenerator
	publisher interfaces.CommentPublisher
	logger    interfaces.Logger
	metrics   interfaces.MetricsCollector
}

// NewPipeline wires the orchestrator.
func NewPipeline(
	cfg *config.Config,
	retriever interfaces.ContextRetriever,
	history *HistoryBuilder,
	engine interfaces.DecisionEngine,
	generator *ResponseGenerator,
	publisher interfaces.CommentPublisher,
	logger interfaces.Logger,
	metrics interfaces.MetricsCollector,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		retriever: retriever,
		history:   history,
		engine:    engine,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes one event-to-reply pass.
func (p *Pipeline) Run(ctx context.Context) (*RunOutcome, error) {
	started := time.Now()
	gh := p.cfg.GitHub

	// Fail before any remote call when there is nothing to authenticate with.
	if strings.TrimSpace(gh.Token) == "" {
		return nil, pkgerrors.NewUnauthorizedError(
			"no GitHub token supplied; set the github_token input or the GITHUB_TOKEN environment variable")
	}

	req := &models.IssueContextRequest{
		Owner:            gh.Owner,
		Repo:             gh.Repo,
		IssueNumber:      gh.IssueNumber,
		CommentsPageSize: gh.CommentsPageSize,
		RunID:            gh.RunID,
		EventType:        gh.EventType,
	}

	outcome := &RunOutcome{
		Decision: models.ResponseDecisionResult{
			Verdict: models.VerdictSkip,
			Reason:  "context retrieval did not succeed",
		},
	}

	defer func() {
		label := "skipped"
		switch {
		case outcome.Failed():
			label = "failed"
		case outcome.Published != nil:
			label = "replied"
		}
		p.metrics.RecordDuration("pipeline_duration_seconds", time.Since(started).Seconds(), map[string]string{
			"outcome": label,
		})
	}()

	outcome.Context = p.retriever.FetchIssueContext(ctx, req)
	if outcome.Context.Status != models.StatusSuccess {
		p.logger.Warn("context retrieval did not succeed",
			"status", string(outcome.Context.Status),
			"message", outcome.Context.Message,
		)
		return outcome, nil
	}

	history := p.history.BuildHistory(outcome.Context.Issue)
	p.metrics.SetGauge("conversation_messages", float64(len(history)), map[string]string{
		"event_type": string(gh.EventType),
	})

	outcome.Decision = p.engine.ShouldRespond(history)
	p.metrics.IncrementCounter("decisions_total", map[string]string{
		"verdict": string(outcome.Decision.Verdict),
	})
	p.logger.Info("response decision made",
		"verdict", string(outcome.Decision.Verdict),
		"reason", outcome.Decision.Reason,
	)

	if !outcome.Decision.Verdict.ShouldReply() {
		return outcome, nil
	}

	reply := p.generator.GenerateReply(ctx, history, outcome.Decision)
	body := agentBanner + "\n" + models.SignatureMarker + "\n\n" + reply

	published, err := p.publisher.PublishComment(ctx, gh.Owner, gh.Repo, gh.IssueNumber, body)
	if err != nil {
		return outcome, err
	}
	outcome.Published = published

	return outcome, nil
}
