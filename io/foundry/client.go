// Package foundry bootstraps the Azure AI Foundry backend and serves chat
// completions over its OpenAI-compatible surface. The bootstrap is fail-fast:
// one validation pass, one authentication, one readiness probe, no retries.
package foundry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/mattdot/issueagent/internal/config"
	"github.com/mattdot/issueagent/internal/interfaces"
	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

const (
	maxReplyTokens = 800

	systemPrompt = "You are an automated GitHub issue triage agent. Reply to the " +
		"latest message in the conversation concisely and helpfully. Ask for " +
		"missing reproduction steps, acceptance criteria, or environment detail " +
		"when the report lacks them. Never invent repository facts."
)

// Client is the opaque handle produced by a successful bootstrap. It
// implements interfaces.CompletionClient.
type Client struct {
	httpClient     *resty.Client
	cfg            config.BackendConfiguration
	circuitBreaker interfaces.CircuitBreaker
	logger         interfaces.Logger
	metrics        interfaces.MetricsCollector
}

// InitializeBackend validates configuration, selects an authentication
// strategy, builds a client, and probes readiness - all bounded by the
// configured connection timeout. Every outcome, success or failure, carries
// the elapsed duration. It never retries and never returns an error: the
// ConnectionResult is the whole story.
func InitializeBackend(ctx context.Context, cfg config.BackendConfiguration, logger interfaces.Logger, metrics interfaces.MetricsCollector) models.ConnectionResult {
	started := time.Now()

	result := models.ConnectionResult{
		EndpointSuffix: models.EndpointSuffix(cfg.Endpoint),
		AttemptedAt:    started.UTC(),
	}

	finish := func(r models.ConnectionResult) models.ConnectionResult {
		r.Duration = time.Since(started)
		status := "failure"
		if r.IsSuccess {
			status = "success"
		}
		metrics.IncrementCounter("backend_connect_total", map[string]string{
			"status":   status,
			"category": string(r.Category),
		})
		metrics.RecordDuration("backend_connect_duration_seconds", r.Duration.Seconds(), map[string]string{
			"status": status,
		})
		return r
	}

	// Validating. Failures here involve zero network traffic.
	if err := cfg.Validate(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			result.Category = cfgErr.Category
		} else {
			result.Category = models.CategoryInvalidConfiguration
		}
		result.ErrorMessage = fmt.Sprintf("%s; %s", err.Error(), remediation(result.Category))
		logger.Error("backend configuration rejected", err, "category", string(result.Category))
		return finish(result)
	}

	opCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")).
		SetTimeout(cfg.ConnectionTimeout).
		SetRetryCount(0).
		SetQueryParam("api-version", cfg.APIVersion).
		SetHeader("Content-Type", "application/json")

	// Authenticating.
	strategy := selectStrategy(cfg)
	logger.Debug("authenticating to backend",
		"strategy", strategy.Name(),
		"endpoint", result.EndpointSuffix,
	)
	if err := strategy.Apply(opCtx, httpClient); err != nil {
		return finish(failedResult(result, err, ctx, opCtx, logger))
	}

	client := &Client{
		httpClient:     httpClient,
		cfg:            cfg,
		circuitBreaker: newBreaker(logger),
		logger:         logger,
		metrics:        metrics,
	}

	// ReadinessCheck: a read-only administrative call that creates nothing
	// server-side but surfaces transport and auth problems now, not later.
	if err := client.readinessProbe(opCtx); err != nil {
		return finish(failedResult(result, err, ctx, opCtx, logger))
	}

	result.IsSuccess = true
	result.Client = client
	logger.Info("backend ready",
		"endpoint", result.EndpointSuffix,
		"model_deployment", cfg.ModelDeployment,
		"api_version", cfg.APIVersion,
		"auth_strategy", strategy.Name(),
	)
	return finish(result)
}

func failedResult(result models.ConnectionResult, err error, callerCtx, opCtx context.Context, logger interfaces.Logger) models.ConnectionResult {
	category, canceled := categorize(err, callerCtx, opCtx)
	if canceled {
		result.Canceled = true
		result.ErrorMessage = "backend bootstrap canceled by the caller"
		logger.Warn("backend bootstrap canceled")
		return result
	}

	result.Category = category
	result.ErrorMessage = fmt.Sprintf("%v; %s", err, remediation(category))
	logger.Error("backend bootstrap failed", err,
		"category", string(category),
		"endpoint", result.EndpointSuffix,
	)
	return result
}

func newBreaker(logger interfaces.Logger) interfaces.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "foundry",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("backend circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &foundryCircuitBreaker{cb: cb}
}

type foundryCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func (w *foundryCircuitBreaker) Execute(req func() (any, error)) (any, error) {
	return w.cb.Execute(req)
}

func (w *foundryCircuitBreaker) Name() string { return w.cb.Name() }

func (w *foundryCircuitBreaker) State() string { return w.cb.State().String() }

// readinessProbe lists the endpoint's models. Listing is read-only, so the
// probe leaves no artifact behind.
func (c *Client) readinessProbe(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get("/models")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &httpStatusError{status: resp.StatusCode(), body: string(resp.Body())}
	}
	return nil
}

// chat wire types for the OpenAI-compatible completions surface.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates reply text for the conversation.
func (c *Client) Complete(ctx context.Context, history []models.ConversationMessage) (string, error) {
	started := time.Now()

	result, err := c.circuitBreaker.Execute(func() (any, error) {
		return c.complete(ctx, history)
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.IncrementCounter("completion_requests_total", map[string]string{"status": status})

	if err != nil {
		c.logger.Error("completion request failed", err,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return "", err
	}

	text := result.(string)
	c.logger.Info("completion generated",
		"reply_length", len(text),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return text, nil
}

func (c *Client) complete(ctx context.Context, history []models.ConversationMessage) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Text})
	}

	var completion chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(chatRequest{Messages: messages, MaxTokens: maxReplyTokens}).
		SetResult(&completion).
		Post(fmt.Sprintf("/openai/deployments/%s/chat/completions", c.cfg.ModelDeployment))
	if err != nil {
		return "", pkgerrors.NewExternalError("foundry", err.Error()).WithCause(err)
	}

	if resp.IsError() {
		category := categorizeStatus(resp.StatusCode(), string(resp.Body()))
		return "", pkgerrors.NewExternalError("foundry",
			fmt.Sprintf("completion returned HTTP %d; %s", resp.StatusCode(), remediation(category))).
			WithContext("category", string(category)).
			WithContext("status_code", resp.StatusCode())
	}

	if completion.Error != nil {
		return "", pkgerrors.NewExternalError("foundry", completion.Error.Message).
			WithContext("code", completion.Error.Code)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", pkgerrors.NewExternalError("foundry", "completion response contained no reply text")
	}

	return completion.Choices[0].Message.Content, nil
}

var _ interfaces.CompletionClient = (*Client)(nil)
