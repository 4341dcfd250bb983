// Package githubgql is a thin executor for the GitHub GraphQL API. It sends
// one query and hands back the raw {data, errors} envelope; interpreting the
// errors list is the retrieval service's job.
package githubgql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

const requestTimeout = 30 * time.Second

type Client struct {
	httpClient     *resty.Client
	circuitBreaker interfaces.CircuitBreaker
	logger         interfaces.Logger
	metrics        interfaces.MetricsCollector
}

// request is the JSON body sent to the GraphQL endpoint.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// NewClient creates a GraphQL executor authenticated with the given token.
// The client never retries; failures surface immediately.
func NewClient(token, url string, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Client {
	httpClient := resty.New().
		SetBaseURL(url).
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "github-graphql",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("GitHub GraphQL circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		httpClient:     httpClient,
		circuitBreaker: &circuitBreakerWrapper{cb: cb},
		logger:         logger,
		metrics:        metrics,
	}
}

// circuitBreakerWrapper implements interfaces.CircuitBreaker
type circuitBreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (w *circuitBreakerWrapper) Execute(req func() (any, error)) (any, error) {
	return w.cb.Execute(req)
}

func (w *circuitBreakerWrapper) Name() string {
	return w.cb.Name()
}

func (w *circuitBreakerWrapper) State() string {
	return w.cb.State().String()
}

// Execute posts one query and returns the raw envelope. A transport failure
// or non-200 status is an error; a populated errors list is not.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*models.GraphQLEnvelope, error) {
	result, err := c.circuitBreaker.Execute(func() (any, error) {
		return c.post(ctx, query, variables)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.GraphQLEnvelope), nil
}

func (c *Client) post(ctx context.Context, query string, variables map[string]any) (*models.GraphQLEnvelope, error) {
	var envelope models.GraphQLEnvelope

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request{Query: query, Variables: variables}).
		SetResult(&envelope).
		Post("")
	if err != nil {
		if isTimeout(err) {
			return nil, pkgerrors.NewTimeoutError("github-graphql", requestTimeout.String()).WithCause(err)
		}
		return nil, pkgerrors.NewExternalError("github-graphql", err.Error()).WithCause(err)
	}

	if resp.IsError() {
		c.logger.Warn("GitHub GraphQL returned non-200 status",
			"status_code", resp.StatusCode(),
		)
		return nil, pkgerrors.NewExternalError("github-graphql",
			fmt.Sprintf("HTTP %d from GraphQL endpoint", resp.StatusCode())).
			WithContext("status_code", resp.StatusCode())
	}

	return &envelope, nil
}

// isTimeout reports whether a transport error was a deadline rather than a
// connection or protocol failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ interfaces.GraphQLExecutor = (*Client)(nil)
