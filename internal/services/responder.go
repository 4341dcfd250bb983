package services

import (
	"context"

	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
)

// fallbackReply is the deterministic text used when the AI backend is not
// configured or fails mid-run. It acknowledges the thread and asks for the
// triage basics without pretending to understand the content.
const fallbackReply = "Thanks for the update! A maintainer will take a look soon.\n\n" +
	"In the meantime, it helps triage if the thread includes:\n" +
	"- reproduction steps or a minimal example\n" +
	"- the expected and the actual behavior\n" +
	"- version and environment details"

// ResponseGenerator produces reply text for a warranted decision. It prefers
// the AI backend when one was bootstrapped and quietly falls back to the
// deterministic template when it was not, or when it errors.
type ResponseGenerator struct {
	completions interfaces.CompletionClient
	logger      interfaces.Logger
}

// NewResponseGenerator creates a generator. completions may be nil when the
// backend is not configured; the generator then always uses the fallback.
func NewResponseGenerator(completions interfaces.CompletionClient, logger interfaces.Logger) *ResponseGenerator {
	return &ResponseGenerator{
		completions: completions,
		logger:      logger,
	}
}

// GenerateReply returns the reply body for the conversation, or "" when the
// verdict does not warrant one.
func (g *ResponseGenerator) GenerateReply(ctx context.Context, history []models.ConversationMessage, decision models.ResponseDecisionResult) string {
	if !decision.Verdict.ShouldReply() {
		return ""
	}

	if g.completions == nil {
		g.logger.Info("backend not configured, using fallback reply")
		return fallbackReply
	}

	text, err := g.completions.Complete(ctx, history)
	if err != nil {
		g.logger.Warn("completion failed, using fallback reply", "error", err.Error())
		return fallbackReply
	}
	return text
}
