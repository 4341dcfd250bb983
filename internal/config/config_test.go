package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdot/issueagent/internal/models"
)

func TestLoad_PlainEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghs_envtoken")
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")
	t.Setenv("GITHUB_RUN_ID", "run-123")
	t.Setenv("ISSUE_NUMBER", "7")
	t.Setenv("ISSUE_EVENT_TYPE", "comment-created")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ghs_envtoken", cfg.GitHub.Token)
	assert.Equal(t, "acme", cfg.GitHub.Owner)
	assert.Equal(t, "widgets", cfg.GitHub.Repo)
	assert.Equal(t, 7, cfg.GitHub.IssueNumber)
	assert.Equal(t, "run-123", cfg.GitHub.RunID)
	assert.Equal(t, models.EventCommentCreated, cfg.GitHub.EventType)
	assert.Equal(t, DefaultCommentsPageSize, cfg.GitHub.CommentsPageSize)
	assert.Equal(t, DefaultAPIBaseURL, cfg.GitHub.APIBaseURL)
	assert.Equal(t, DefaultGraphQLURL, cfg.GitHub.GraphQLURL)
	assert.Equal(t, DefaultAgentLogin, cfg.Agent.Login)
}

func TestLoad_InputsTakePrecedence(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghs_envtoken")
	t.Setenv("INPUT_GITHUB_TOKEN", "ghs_inputtoken")
	t.Setenv("AZURE_FOUNDRY_ENDPOINT", "https://env.example/api/projects/env")
	t.Setenv("INPUT_AZURE_FOUNDRY_ENDPOINT", "https://input.example/api/projects/input")
	t.Setenv("ISSUE_NUMBER", "7")
	t.Setenv("INPUT_ISSUE_NUMBER", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ghs_inputtoken", cfg.GitHub.Token)
	assert.Equal(t, "https://input.example/api/projects/input", cfg.Backend.Endpoint)
	assert.Equal(t, 9, cfg.GitHub.IssueNumber)
}

func TestLoad_UnknownEventTypeFails(t *testing.T) {
	t.Setenv("ISSUE_EVENT_TYPE", "issue-closed")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue-closed")
}

func TestLoad_InvalidTimeoutFails(t *testing.T) {
	t.Setenv("AZURE_FOUNDRY_TIMEOUT", "ten seconds")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_TimeoutParsed(t *testing.T) {
	t.Setenv("AZURE_FOUNDRY_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Backend.ConnectionTimeout)
}

func TestLoad_EnterpriseURLsPassedThrough(t *testing.T) {
	t.Setenv("GITHUB_API_URL", "https://ghe.example/api/v3")
	t.Setenv("GITHUB_GRAPHQL_URL", "https://ghe.example/api/graphql")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example/api/v3", cfg.GitHub.APIBaseURL)
	assert.Equal(t, "https://ghe.example/api/graphql", cfg.GitHub.GraphQLURL)
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in      string
		want    models.EventType
		wantErr bool
	}{
		{"", models.EventIssueOpened, false},
		{"issue-opened", models.EventIssueOpened, false},
		{"issue-reopened", models.EventIssueReopened, false},
		{"comment-created", models.EventCommentCreated, false},
		{"pull-request-opened", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEventType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSplitRepository(t *testing.T) {
	owner, repo := splitRepository("acme/widgets")
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	owner, repo = splitRepository("missing-slash")
	assert.Empty(t, owner)
	assert.Empty(t, repo)
}

func TestLogFields_UsesRedactableKeys(t *testing.T) {
	cfg := &Config{
		GitHub:  GitHubConfig{Token: "ghs_secret", Owner: "acme"},
		Backend: BackendConfiguration{Endpoint: "https://my-project.services.ai.azure.com/api/projects/proj", APIKey: "abcdef0123456789"},
	}

	fields := cfg.LogFields()

	// Secret-bearing values sit under keys the log redactor scrubs.
	assert.Contains(t, fields, "github_token")
	assert.Contains(t, fields, "api_key")
	// The endpoint itself never appears whole.
	assert.NotContains(t, fields["backend_endpoint"], "my-project")
}
