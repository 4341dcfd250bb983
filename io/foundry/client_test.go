package foundry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdot/issueagent/internal/config"
	"github.com/mattdot/issueagent/internal/models"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, error, ...any) {}
func (nopLogger) Fatal(string, error, ...any) {}

type stubMetrics struct{}

func (stubMetrics) IncrementCounter(string, map[string]string)       {}
func (stubMetrics) RecordDuration(string, float64, map[string]string) {}
func (stubMetrics) SetGauge(string, float64, map[string]string)       {}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json"),
		cfg:            config.BackendConfiguration{ModelDeployment: "gpt-4o", APIVersion: "2024-10-21"},
		circuitBreaker: newBreaker(nopLogger{}),
		logger:         nopLogger{},
		metrics:        stubMetrics{},
	}
}

func TestInitializeBackend_MissingEndpoint(t *testing.T) {
	result := InitializeBackend(context.Background(), config.BackendConfiguration{}, nopLogger{}, stubMetrics{})

	assert.False(t, result.IsSuccess)
	assert.False(t, result.Canceled)
	assert.Equal(t, models.CategoryMissingConfiguration, result.Category)
	assert.Contains(t, result.ErrorMessage, "supply the missing input")
	assert.False(t, result.AttemptedAt.IsZero())
}

func TestInitializeBackend_ShortAPIKeyFailsWithoutNetwork(t *testing.T) {
	cfg := config.BackendConfiguration{
		Endpoint: "https://host.invalid/api/projects/proj",
		APIKey:   "abc12",
	}

	started := time.Now()
	result := InitializeBackend(context.Background(), cfg, nopLogger{}, stubMetrics{})

	assert.False(t, result.IsSuccess)
	assert.Equal(t, models.CategoryInvalidConfiguration, result.Category)
	assert.NotContains(t, result.ErrorMessage, "abc12")
	// Rejected during validation, before any dial; the whole attempt is
	// far quicker than any network timeout.
	assert.Less(t, time.Since(started), time.Second)
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   models.ConnectionErrorCategory
	}{
		{"unauthorized", 401, "", models.CategoryAuthenticationFailure},
		{"forbidden", 403, "", models.CategoryAuthenticationFailure},
		{"deployment missing", 404, "", models.CategoryModelNotFound},
		{"throttled", 429, "", models.CategoryQuotaExceeded},
		{"bad api version", 400, `{"error":{"message":"unsupported api-version"}}`, models.CategoryAPIVersionUnsupported},
		{"other bad request", 400, `{"error":{"message":"malformed body"}}`, models.CategoryUnknownError},
		{"server error", 500, "", models.CategoryUnknownError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeStatus(tt.status, tt.body))
		})
	}
}

func TestCategorize_CallerCancelIsNotACategory(t *testing.T) {
	callerCtx, cancel := context.WithCancel(context.Background())
	cancel()
	opCtx := context.Background()

	category, canceled := categorize(errors.New("request aborted"), callerCtx, opCtx)

	assert.True(t, canceled)
	assert.Empty(t, string(category))
}

func TestCategorize_OwnDeadlineIsNetworkTimeout(t *testing.T) {
	callerCtx := context.Background()
	opCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-opCtx.Done()

	category, canceled := categorize(context.DeadlineExceeded, callerCtx, opCtx)

	assert.False(t, canceled)
	assert.Equal(t, models.CategoryNetworkTimeout, category)
}

func TestCategorize_UnknownError(t *testing.T) {
	category, canceled := categorize(errors.New("something odd"), context.Background(), context.Background())

	assert.False(t, canceled)
	assert.Equal(t, models.CategoryUnknownError, category)
}

func TestReadinessProbe_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(server.URL)
	opCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.readinessProbe(opCtx)
	require.Error(t, err)

	category, canceled := categorize(err, context.Background(), opCtx)
	assert.False(t, canceled)
	assert.Equal(t, models.CategoryNetworkTimeout, category)
}

func TestReadinessProbe_StatusMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.readinessProbe(context.Background())
	require.Error(t, err)

	category, canceled := categorize(err, context.Background(), context.Background())
	assert.False(t, canceled)
	assert.Equal(t, models.CategoryAuthenticationFailure, category)
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Here is what I found."}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	text, err := client.Complete(context.Background(), []models.ConversationMessage{
		{Role: models.RoleUser, Text: "@issueagent please take a look"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Here is what I found.", text)
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Complete(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reply text")
}

func TestComplete_BreakerOpensAfterFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Complete(context.Background(), nil)
	require.Error(t, err)

	_, err = client.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "open", client.circuitBreaker.State())
}

func TestSelectStrategy(t *testing.T) {
	keyed := selectStrategy(config.BackendConfiguration{APIKey: "abcdef0123456789"})
	assert.Equal(t, "api-key", keyed.Name())

	federated := selectStrategy(config.BackendConfiguration{ClientID: "a", TenantID: "b"})
	assert.Equal(t, "federated-identity", federated.Name())

	// A key wins when both credential shapes are present.
	both := selectStrategy(config.BackendConfiguration{APIKey: "abcdef0123456789", ClientID: "a", TenantID: "b"})
	assert.Equal(t, "api-key", both.Name())
}

func TestAPIKeyStrategy_SetsHeader(t *testing.T) {
	client := resty.New()
	strategy := &apiKeyStrategy{key: "abcdef0123456789"}

	require.NoError(t, strategy.Apply(context.Background(), client))
	assert.Equal(t, "abcdef0123456789", client.Header.Get("api-key"))
}

func TestFederatedStrategy_RequiresOIDCEnvironment(t *testing.T) {
	strategy := &federatedIdentityStrategy{clientID: "a", tenantID: "b"}

	err := strategy.Apply(context.Background(), resty.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "id-token: write")
}

func TestRemediation_CoversEveryCategory(t *testing.T) {
	categories := []models.ConnectionErrorCategory{
		models.CategoryMissingConfiguration,
		models.CategoryInvalidConfiguration,
		models.CategoryAuthenticationFailure,
		models.CategoryNetworkTimeout,
		models.CategoryNetworkError,
		models.CategoryModelNotFound,
		models.CategoryQuotaExceeded,
		models.CategoryAPIVersionUnsupported,
		models.CategoryUnknownError,
	}
	for _, category := range categories {
		assert.NotEmpty(t, remediation(category), "category %s", category)
	}
}
