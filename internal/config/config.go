package config

import (
	"fmt"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mattdot/issueagent/internal/models"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

// Defaults applied by the boundary loader.
const (
	DefaultCommentsPageSize = 5
	DefaultAPIBaseURL       = "https://api.github.com"
	DefaultGraphQLURL       = "https://api.github.com/graphql"
	DefaultAgentLogin       = "issueagent"
)

// Config is the process-wide configuration, populated exactly once at start.
// No component outside this package reads the environment directly.
type Config struct {
	GitHub  GitHubConfig
	Backend BackendConfiguration
	Agent   AgentConfig
	Logging LoggingConfig
}

// GitHubConfig holds everything needed to reach the triggering issue.
type GitHubConfig struct {
	Token            string
	Owner            string
	Repo             string
	IssueNumber      int
	RunID            string
	EventType        models.EventType
	CommentsPageSize int
	APIBaseURL       string
	GraphQLURL       string
}

// AgentConfig identifies the automation itself: the account it comments as
// and the @handle humans use to summon it.
type AgentConfig struct {
	Login  string
	Handle string
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string
	Format string
}

// rawInputEnv captures action-style inputs. GitHub Actions surfaces an input
// named `azure_foundry_endpoint` as INPUT_AZURE_FOUNDRY_ENDPOINT.
type rawInputEnv struct {
	GitHubToken     string `env:"INPUT_GITHUB_TOKEN"`
	IssueNumber     int    `env:"INPUT_ISSUE_NUMBER"`
	EventType       string `env:"INPUT_EVENT_TYPE"`
	Endpoint        string `env:"INPUT_AZURE_FOUNDRY_ENDPOINT"`
	APIKey          string `env:"INPUT_AZURE_FOUNDRY_API_KEY"`
	ClientID        string `env:"INPUT_AZURE_FOUNDRY_CLIENT_ID"`
	TenantID        string `env:"INPUT_AZURE_FOUNDRY_TENANT_ID"`
	ModelDeployment string `env:"INPUT_AZURE_FOUNDRY_MODEL_DEPLOYMENT"`
	APIVersion      string `env:"INPUT_AZURE_FOUNDRY_API_VERSION"`
	Timeout         string `env:"INPUT_AZURE_FOUNDRY_TIMEOUT"`
}

// rawPlainEnv captures the plain environment-variable fallbacks.
type rawPlainEnv struct {
	GitHubToken      string `env:"GITHUB_TOKEN"`
	Repository       string `env:"GITHUB_REPOSITORY"`
	RunID            string `env:"GITHUB_RUN_ID"`
	APIBaseURL       string `env:"GITHUB_API_URL"`
	GraphQLURL       string `env:"GITHUB_GRAPHQL_URL"`
	IssueNumber      int    `env:"ISSUE_NUMBER"`
	EventType        string `env:"ISSUE_EVENT_TYPE"`
	CommentsPageSize int    `env:"ISSUE_COMMENTS_PAGE_SIZE"`
	AgentLogin       string `env:"AGENT_LOGIN"`
	AgentHandle      string `env:"AGENT_HANDLE"`
	Endpoint         string `env:"AZURE_FOUNDRY_ENDPOINT"`
	APIKey           string `env:"AZURE_FOUNDRY_API_KEY"`
	ClientID         string `env:"AZURE_FOUNDRY_CLIENT_ID"`
	TenantID         string `env:"AZURE_FOUNDRY_TENANT_ID"`
	ModelDeployment  string `env:"AZURE_FOUNDRY_MODEL_DEPLOYMENT"`
	APIVersion       string `env:"AZURE_FOUNDRY_API_VERSION"`
	Timeout          string `env:"AZURE_FOUNDRY_TIMEOUT"`
	LogLevel         string `env:"LOG_LEVEL"`
	LogFormat        string `env:"LOG_FORMAT"`
	OIDCRequestURL   string `env:"ACTIONS_ID_TOKEN_REQUEST_URL"`
	OIDCRequestToken string `env:"ACTIONS_ID_TOKEN_REQUEST_TOKEN"`
}

// Load builds the Config from action-style inputs and environment variables.
// Action inputs always take precedence over their plain-env counterparts.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	var inputs rawInputEnv
	if err := envparse.Parse(&inputs); err != nil {
		return nil, pkgerrors.NewValidationError("failed to parse action inputs").WithCause(err)
	}
	var plain rawPlainEnv
	if err := envparse.Parse(&plain); err != nil {
		return nil, pkgerrors.NewValidationError("failed to parse environment").WithCause(err)
	}

	owner, repo := splitRepository(plain.Repository)

	eventType, err := ParseEventType(firstNonEmpty(inputs.EventType, plain.EventType))
	if err != nil {
		return nil, err
	}

	timeout, err := parseTimeout(firstNonEmpty(inputs.Timeout, plain.Timeout))
	if err != nil {
		return nil, err
	}

	issueNumber := inputs.IssueNumber
	if issueNumber == 0 {
		issueNumber = plain.IssueNumber
	}

	pageSize := plain.CommentsPageSize
	if pageSize == 0 {
		pageSize = DefaultCommentsPageSize
	}

	cfg := &Config{
		GitHub: GitHubConfig{
			Token:            firstNonEmpty(inputs.GitHubToken, plain.GitHubToken),
			Owner:            owner,
			Repo:             repo,
			IssueNumber:      issueNumber,
			RunID:            plain.RunID,
			EventType:        eventType,
			CommentsPageSize: pageSize,
			APIBaseURL:       firstNonEmpty(plain.APIBaseURL, DefaultAPIBaseURL),
			GraphQLURL:       firstNonEmpty(plain.GraphQLURL, DefaultGraphQLURL),
		},
		Backend: BackendConfiguration{
			Endpoint:          firstNonEmpty(inputs.Endpoint, plain.Endpoint),
			APIKey:            firstNonEmpty(inputs.APIKey, plain.APIKey),
			ClientID:          firstNonEmpty(inputs.ClientID, plain.ClientID),
			TenantID:          firstNonEmpty(inputs.TenantID, plain.TenantID),
			ModelDeployment:   firstNonEmpty(inputs.ModelDeployment, plain.ModelDeployment),
			APIVersion:        firstNonEmpty(inputs.APIVersion, plain.APIVersion),
			ConnectionTimeout: timeout,
			OIDCRequestURL:    plain.OIDCRequestURL,
			OIDCRequestToken:  plain.OIDCRequestToken,
		},
		Agent: AgentConfig{
			Login:  firstNonEmpty(plain.AgentLogin, DefaultAgentLogin),
			Handle: firstNonEmpty(plain.AgentHandle, plain.AgentLogin, DefaultAgentLogin),
		},
		Logging: LoggingConfig{
			Level:  firstNonEmpty(plain.LogLevel, "info"),
			Format: firstNonEmpty(plain.LogFormat, "json"),
		},
	}

	return cfg, nil
}

// ParseEventType maps the enumerated event names. Empty input defaults to
// issue-opened so a bare manual invocation behaves like a fresh issue.
func ParseEventType(s string) (models.EventType, error) {
	switch strings.TrimSpace(s) {
	case "":
		return models.EventIssueOpened, nil
	case string(models.EventIssueOpened):
		return models.EventIssueOpened, nil
	case string(models.EventIssueReopened):
		return models.EventIssueReopened, nil
	case string(models.EventCommentCreated):
		return models.EventCommentCreated, nil
	}
	return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown event type %q: expected one of %s, %s, %s",
		s, models.EventIssueOpened, models.EventIssueReopened, models.EventCommentCreated))
}

// LogFields returns startup metadata for logging. Secret-bearing keys use
// names the redaction filter recognizes, so values are scrubbed at the sink.
func (c *Config) LogFields() map[string]any {
	return map[string]any{
		"owner":              c.GitHub.Owner,
		"repo":               c.GitHub.Repo,
		"issue_number":       c.GitHub.IssueNumber,
		"event_type":         string(c.GitHub.EventType),
		"run_id":             c.GitHub.RunID,
		"github_token":       c.GitHub.Token,
		"backend_configured": c.Backend.IsConfigured(),
		"backend_endpoint":   models.EndpointSuffix(c.Backend.Endpoint),
		"api_key":            c.Backend.APIKey,
		"model_deployment":   c.Backend.ModelDeployment,
		"api_version":        c.Backend.APIVersion,
		"agent_login":        c.Agent.Login,
	}
}

func splitRepository(full string) (owner, repo string) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func parseTimeout(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, pkgerrors.NewValidationError(fmt.Sprintf("invalid backend timeout %q: expected a Go duration such as 30s", s)).WithCause(err)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
