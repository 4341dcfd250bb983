package foundry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mattdot/issueagent/internal/models"
)

// httpStatusError carries a non-2xx response so categorize can map it
// without re-reading the body.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d: %s", e.status, e.body)
}

// categorize maps a bootstrap failure to exactly one category. callerCtx is
// the context the caller handed in; opCtx is the bootstrap's own
// timeout-bounded child. The distinction matters: the caller aborting is not
// a network timeout and is reported as canceled instead of a category.
func categorize(err error, callerCtx, opCtx context.Context) (models.ConnectionErrorCategory, bool) {
	if callerCtx.Err() != nil && !errors.Is(callerCtx.Err(), context.DeadlineExceeded) {
		return "", true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return categorizeStatus(statusErr.status, statusErr.body), false
	}

	// Our own deadline fired.
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return models.CategoryNetworkTimeout, false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.CategoryNetworkError, false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.CategoryNetworkError, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.CategoryNetworkTimeout, false
		}
		return models.CategoryNetworkError, false
	}

	return models.CategoryUnknownError, false
}

// categorizeStatus maps an HTTP response code to its category.
func categorizeStatus(status int, body string) models.ConnectionErrorCategory {
	switch status {
	case 401, 403:
		return models.CategoryAuthenticationFailure
	case 404:
		return models.CategoryModelNotFound
	case 429:
		return models.CategoryQuotaExceeded
	case 400:
		if mentionsAPIVersion(body) {
			return models.CategoryAPIVersionUnsupported
		}
		return models.CategoryUnknownError
	default:
		return models.CategoryUnknownError
	}
}

func mentionsAPIVersion(body string) bool {
	lowered := strings.ToLower(body)
	return strings.Contains(lowered, "api-version") || strings.Contains(lowered, "api version") || strings.Contains(lowered, "apiversion")
}

// remediation returns the operator-facing recovery hint for a category.
// Every message is actionable and never echoes credential material.
func remediation(category models.ConnectionErrorCategory) string {
	switch category {
	case models.CategoryMissingConfiguration:
		return "supply the missing input or environment variable"
	case models.CategoryInvalidConfiguration:
		return "correct the configuration value"
	case models.CategoryAuthenticationFailure:
		return "check or rotate the backend credential"
	case models.CategoryNetworkTimeout:
		return "check connectivity to the backend endpoint"
	case models.CategoryNetworkError:
		return "check the endpoint hostname and network path"
	case models.CategoryModelNotFound:
		return "check the model deployment name"
	case models.CategoryQuotaExceeded:
		return "wait for quota to recover or request an increase"
	case models.CategoryAPIVersionUnsupported:
		return "update the API version to one the endpoint supports"
	default:
		return "inspect the error detail"
	}
}
