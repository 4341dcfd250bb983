package services

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
)

// DefaultSemanticWindow bounds how long after an agent question a human
// follow-up is still treated as an answer.
const DefaultSemanticWindow = 48 * time.Hour

// maxAcknowledgmentRunes is the length under which a message made only of
// acknowledgment tokens is dismissed.
const maxAcknowledgmentRunes = 20

// requestCues are phrases that mark an agent turn as asking for something.
var requestCues = []string{
	"please provide",
	"could you add",
	"could you share",
	"acceptance criteria",
	"constraints",
	"steps",
	"repro",
	"link",
	"screenshot",
	"expected behavior",
}

// followThroughPattern matches phrases that explicitly tie a message back to
// an earlier agent request.
var followThroughPattern = regexp.MustCompile(`(?i)(per your request|as you suggested|(^|\W)ac:)`)

// confirmationPattern matches words that signal the author acted on a request.
var confirmationPattern = regexp.MustCompile(`(?i)\b(yes|no|done|updated|pushed|added|completed|fixed)\b`)

// listLinePattern matches numbered, bulleted, and checklist lines.
var listLinePattern = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]\s+|[-*]\s+(?:\[[ xX]\]\s*)?)\S`)

// ackTokens are words that, alone, carry no content worth replying to.
var ackTokens = map[string]struct{}{
	"thanks": {}, "thank": {}, "thx": {}, "ty": {},
	"ok": {}, "okay": {}, "kk": {},
	"lgtm": {}, "ack": {}, "noted": {},
	"nice": {}, "cool": {}, "great": {}, "perfect": {},
	"sure": {}, "yep": {}, "yes": {}, "yeah": {},
	"you": {}, "it": {}, "got": {},
	"👍": {}, "🙏": {}, "+1": {},
}

// DecisionEngine is the pure policy over the conversation history. Given the
// same message sequence it always returns the same verdict and never mutates
// its input.
type DecisionEngine struct {
	handle         string
	semanticWindow time.Duration
}

// NewDecisionEngine creates an engine that reacts to @handle mentions and
// semantic follow-ups within the default window.
func NewDecisionEngine(handle string) *DecisionEngine {
	return &DecisionEngine{
		handle:         handle,
		semanticWindow: DefaultSemanticWindow,
	}
}

// ShouldRespond decides whether the agent should reply to the latest message.
func (e *DecisionEngine) ShouldRespond(history []models.ConversationMessage) models.ResponseDecisionResult {
	if len(history) == 0 {
		return models.ResponseDecisionResult{
			Verdict: models.VerdictSkip,
			Reason:  "no conversation history",
		}
	}

	latest := history[len(history)-1]

	// Never reply to our own last turn.
	if latest.Role == models.RoleAssistant {
		return models.ResponseDecisionResult{
			Verdict: models.VerdictSkip,
			Reason:  "latest message is from the agent",
		}
	}

	if e.containsMention(latest.Text) {
		return models.ResponseDecisionResult{
			Verdict: models.VerdictMustRespond,
			Reason:  "@mention detected",
		}
	}

	return e.semanticFollowUp(history, latest)
}

// semanticFollowUp checks whether the latest message answers a question the
// agent asked recently.
func (e *DecisionEngine) semanticFollowUp(history []models.ConversationMessage, latest models.ConversationMessage) models.ResponseDecisionResult {
	skip := func(reason string) models.ResponseDecisionResult {
		return models.ResponseDecisionResult{Verdict: models.VerdictSkip, Reason: reason}
	}

	var lastAgentTurn *models.ConversationMessage
	for i := len(history) - 2; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			lastAgentTurn = &history[i]
			break
		}
	}
	if lastAgentTurn == nil {
		return skip("no prior agent turn to follow up on")
	}

	if !asksQuestion(lastAgentTurn.Text) {
		return skip("agent's last turn did not ask for anything")
	}
	if !latest.CreatedAt.After(lastAgentTurn.CreatedAt) {
		return skip("latest message does not come after the agent's question")
	}
	if latest.CreatedAt.Sub(lastAgentTurn.CreatedAt) > e.semanticWindow {
		return skip("follow-up window has elapsed")
	}
	if isAcknowledgment(latest.Text) {
		return skip("latest message is a bare acknowledgment")
	}

	if answerLike(latest.Text) {
		return models.ResponseDecisionResult{
			Verdict: models.VerdictShouldRespond,
			Reason:  "semantic follow-up",
		}
	}

	return skip("latest message does not answer the agent's question")
}

// containsMention reports whether text mentions @handle outside of any
// backtick code span. An odd number of backticks before the match means the
// match sits inside an open span and is ignored. Both the search and the
// backtick count run over the lowered string: case mapping can change byte
// lengths, so offsets into it are not valid in the original text. Lowering
// preserves backticks, so the count is unaffected.
func (e *DecisionEngine) containsMention(text string) bool {
	needle := "@" + strings.ToLower(e.handle)
	lowered := strings.ToLower(text)

	for from := 0; from <= len(lowered)-len(needle); {
		i := strings.Index(lowered[from:], needle)
		if i < 0 {
			return false
		}
		pos := from + i
		end := pos + len(needle)

		boundaryOK := end == len(lowered) || !isWordByte(lowered[end])
		insideSpan := strings.Count(lowered[:pos], "`")%2 == 1
		if boundaryOK && !insideSpan {
			return true
		}
		from = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// asksQuestion reports whether an agent turn requested something from the
// humans on the thread.
func asksQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lowered := strings.ToLower(text)
	for _, cue := range requestCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

// isAcknowledgment reports whether the message is a thank-you or similar
// token with no content worth replying to.
func isAcknowledgment(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if utf8.RuneCountInString(trimmed) >= maxAcknowledgmentRunes {
		return false
	}

	words := strings.FieldsFunc(strings.ToLower(trimmed), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.' || r == '!'
	})
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if _, ok := ackTokens[w]; !ok {
			return false
		}
	}
	return true
}

// answerLike reports whether the message looks like a substantive answer:
// a confirmation word combined with a link, fenced code block, or list line;
// an explicit follow-through phrase; or a list on its own.
func answerLike(text string) bool {
	if followThroughPattern.MatchString(text) {
		return true
	}
	if listLinePattern.MatchString(text) {
		return true
	}

	hasConfirmation := confirmationPattern.MatchString(text)
	hasSubstance := strings.Contains(text, "http://") ||
		strings.Contains(text, "https://") ||
		strings.Contains(text, "```")
	return hasConfirmation && hasSubstance
}

var _ interfaces.DecisionEngine = (*DecisionEngine)(nil)
