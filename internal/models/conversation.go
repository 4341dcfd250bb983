package models

import "time"

// Role tags who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SignatureMarker is the hidden HTML comment appended to every comment the
// agent publishes. The history builder uses it to recognize the agent's own
// prior turns even when the workflow identity differs from the agent login.
const SignatureMarker = "<!-- issueagent:signature -->"

// ConversationMessage is a role-tagged unit of text derived from either the
// issue body or a comment. The ordered slice of these is the sole input to
// the decision engine and the response generator.
type ConversationMessage struct {
	ID        string
	Role      Role
	Author    string
	Text      string
	CreatedAt time.Time
}

// Verdict is the closed set of response decisions.
type Verdict string

const (
	VerdictMustRespond   Verdict = "must_respond"
	VerdictShouldRespond Verdict = "should_respond"
	VerdictSkip          Verdict = "skip"
)

// ShouldReply reports whether the verdict warrants publishing a comment.
func (v Verdict) ShouldReply() bool {
	return v == VerdictMustRespond || v == VerdictShouldRespond
}

// ResponseDecisionResult carries the verdict plus a human-readable reason for
// observability. Computed fresh on every call; never cached.
type ResponseDecisionResult struct {
	Verdict Verdict
	Reason  string
}
