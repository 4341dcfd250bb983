package models

import "encoding/json"

// GraphQLEnvelope is the standard {data, errors} response shape returned by
// the GitHub GraphQL API. The retrieval layer inspects Errors before touching
// Data; executors return the envelope as-is and never interpret it.
type GraphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is a single entry from the errors list.
type GraphQLError struct {
	Message    string            `json:"message"`
	Type       string            `json:"type"`
	Extensions GraphQLExtensions `json:"extensions"`
}

// GraphQLExtensions carries the machine-readable error code, when present.
type GraphQLExtensions struct {
	Code string `json:"code"`
}

// PermissionRelated reports whether the error signals a token scope or
// permission problem rather than a data problem.
func (e GraphQLError) PermissionRelated() bool {
	switch {
	case e.Extensions.Code == "INSUFFICIENT_SCOPES":
		return true
	case e.Type == "INSUFFICIENT_SCOPES" || e.Type == "FORBIDDEN":
		return true
	}
	return false
}
