package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattdot/issueagent/internal/config"
	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/services"
	"github.com/mattdot/issueagent/io/foundry"
	"github.com/mattdot/issueagent/io/githubgql"
	"github.com/mattdot/issueagent/io/githubrest"
	"github.com/mattdot/issueagent/pkg/logger"
	"github.com/mattdot/issueagent/pkg/metrics"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitCanceled = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return exitFailure
	}

	log := logger.NewAdapter(cfg.Logging.Level, cfg.Logging.Format)
	collector := metrics.NewPrometheusCollector()
	defer collector.LogSummary(log)

	log.Info("starting issue agent", flatten(cfg.LogFields())...)

	// Bootstrap the AI backend only when an endpoint was supplied. An unset
	// endpoint means the backend is simply not configured; the run proceeds
	// with fallback reply text.
	var completions interfaces.CompletionClient
	if cfg.Backend.IsConfigured() {
		result := foundry.InitializeBackend(ctx, cfg.Backend, log, collector)
		switch {
		case result.Canceled:
			log.Warn("run canceled during backend bootstrap")
			return exitCanceled
		case !result.IsSuccess:
			log.Error("backend bootstrap failed", nil,
				"category", string(result.Category),
				"message", result.ErrorMessage,
				"endpoint", result.EndpointSuffix,
				"duration_ms", result.Duration.Milliseconds(),
			)
			return exitFailure
		default:
			completions = result.Client.(interfaces.CompletionClient)
		}
	} else {
		log.Info("AI backend not configured, replies will use fallback text")
	}

	publisher, err := githubrest.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.APIBaseURL, log, collector)
	if err != nil {
		log.Error("failed to build GitHub client", err)
		return exitFailure
	}

	pipeline := services.NewPipeline(
		cfg,
		services.NewContextService(githubgql.NewClient(cfg.GitHub.Token, cfg.GitHub.GraphQLURL, log, collector), log, collector),
		services.NewHistoryBuilder(cfg.Agent.Login),
		services.NewDecisionEngine(cfg.Agent.Handle),
		services.NewResponseGenerator(completions, log),
		publisher,
		log,
		collector,
	)

	outcome, err := pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			log.Warn("run canceled")
			return exitCanceled
		}
		log.Error("pipeline failed", err)
		return exitFailure
	}

	summary := []any{
		"run_id", outcome.Context.RunID,
		"event_type", string(outcome.Context.EventType),
		"status", string(outcome.Context.Status),
		"verdict", string(outcome.Decision.Verdict),
		"reason", outcome.Decision.Reason,
	}
	if outcome.Published != nil {
		summary = append(summary, "comment_id", outcome.Published.ID, "comment_url", outcome.Published.URL)
	}
	log.Info("run complete", summary...)

	if outcome.Failed() {
		return exitFailure
	}
	return exitOK
}

// flatten turns a metadata map into the logger's variadic pair form.
// Sensitive keys are scrubbed by the logger itself.
func flatten(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
