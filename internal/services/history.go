package services

import (
	"strings"

	"github.com/mattdot/issueagent/internal/models"
)

// HistoryBuilder flattens an issue snapshot into the ordered message
// sequence the decision engine and response generator consume. The issue
// body and its comments become one uniform stream; downstream logic never
// distinguishes the two.
type HistoryBuilder struct {
	agentLogin string
}

// NewHistoryBuilder creates a builder that recognizes the agent's own turns.
func NewHistoryBuilder(agentLogin string) *HistoryBuilder {
	return &HistoryBuilder{agentLogin: agentLogin}
}

// BuildHistory converts the snapshot into messages: the issue title and body
// first, then each comment oldest to newest. A message is tagged Assistant
// when its author is the agent login itself or its body carries the hidden
// signature marker; the dual check still spots the agent's turns when the
// workflow posts under a different identity.
func (b *HistoryBuilder) BuildHistory(issue *models.IssueSnapshot) []models.ConversationMessage {
	if issue == nil {
		return nil
	}

	history := make([]models.ConversationMessage, 0, len(issue.LatestComments)+1)

	history = append(history, models.ConversationMessage{
		ID:        issue.ID,
		Role:      b.classify(issue.AuthorLogin, issue.Body),
		Author:    issue.AuthorLogin,
		Text:      issueText(issue),
		CreatedAt: issue.CreatedAt,
	})

	for _, comment := range issue.LatestComments {
		history = append(history, models.ConversationMessage{
			ID:        comment.ID,
			Role:      b.classify(comment.AuthorLogin, comment.BodyExcerpt),
			Author:    comment.AuthorLogin,
			Text:      comment.BodyExcerpt,
			CreatedAt: comment.CreatedAt,
		})
	}

	return history
}

func (b *HistoryBuilder) classify(authorLogin, body string) models.Role {
	if strings.EqualFold(authorLogin, b.agentLogin) || strings.Contains(body, models.SignatureMarker) {
		return models.RoleAssistant
	}
	return models.RoleUser
}

func issueText(issue *models.IssueSnapshot) string {
	if strings.TrimSpace(issue.Body) == "" {
		return issue.Title
	}
	return issue.Title + "\n\n" + issue.Body
}
