package models

import "time"

// ConnectionErrorCategory is the closed set of backend bootstrap failures.
// Every category is terminal for the run; there are no retries.
type ConnectionErrorCategory string

const (
	CategoryMissingConfiguration  ConnectionErrorCategory = "missing_configuration"
	CategoryInvalidConfiguration  ConnectionErrorCategory = "invalid_configuration"
	CategoryAuthenticationFailure ConnectionErrorCategory = "authentication_failure"
	CategoryNetworkTimeout        ConnectionErrorCategory = "network_timeout"
	CategoryNetworkError          ConnectionErrorCategory = "network_error"
	CategoryModelNotFound         ConnectionErrorCategory = "model_not_found"
	CategoryQuotaExceeded         ConnectionErrorCategory = "quota_exceeded"
	CategoryAPIVersionUnsupported ConnectionErrorCategory = "api_version_unsupported"
	CategoryUnknownError          ConnectionErrorCategory = "unknown_error"
)

// endpointSuffixLen bounds how much of the endpoint may appear in logs and
// error messages.
const endpointSuffixLen = 20

// ConnectionResult is the terminal value of one backend bootstrap attempt.
// Client is non-nil iff IsSuccess. Duration is always recorded. Canceled is
// set only when the caller's own cancellation fired, which is deliberately
// kept apart from the category set so a timeout is never confused with an
// operator abort.
type ConnectionResult struct {
	IsSuccess      bool
	Client         any
	ErrorMessage   string
	Category       ConnectionErrorCategory
	Canceled       bool
	EndpointSuffix string
	AttemptedAt    time.Time
	Duration       time.Duration
}

// EndpointSuffix truncates an endpoint to its trailing characters so log
// lines can identify the target without echoing the full URL.
func EndpointSuffix(endpoint string) string {
	runes := []rune(endpoint)
	if len(runes) <= endpointSuffixLen {
		return endpoint
	}
	return "..." + string(runes[len(runes)-endpointSuffixLen:])
}
