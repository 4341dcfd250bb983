package foundry

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/go-resty/resty/v2"

	"github.com/mattdot/issueagent/internal/config"
	pkgerrors "github.com/mattdot/issueagent/pkg/errors"
)

// tokenScope is the Entra ID scope for the AI backend's data plane.
const tokenScope = "https://cognitiveservices.azure.com/.default"

// oidcAudience is the audience GitHub mints workflow OIDC tokens for when
// they are exchanged against Entra ID.
const oidcAudience = "api://AzureADTokenExchange"

// credentialStrategy turns validated configuration into an authenticated
// HTTP client. Implementations attach whatever header or bearer token their
// credential shape requires; selection happens in one place, selectStrategy.
type credentialStrategy interface {
	Name() string
	Apply(ctx context.Context, client *resty.Client) error
}

// selectStrategy picks the strategy registered for the supplied credential
// shape. Config validation has already guaranteed exactly one shape is
// present; a key wins when both are.
func selectStrategy(cfg config.BackendConfiguration) credentialStrategy {
	if cfg.APIKey != "" {
		return &apiKeyStrategy{key: cfg.APIKey}
	}
	return &federatedIdentityStrategy{
		clientID:     cfg.ClientID,
		tenantID:     cfg.TenantID,
		requestURL:   cfg.OIDCRequestURL,
		requestToken: cfg.OIDCRequestToken,
	}
}

// apiKeyStrategy authenticates with a static api-key header.
type apiKeyStrategy struct {
	key string
}

func (s *apiKeyStrategy) Name() string { return "api-key" }

func (s *apiKeyStrategy) Apply(_ context.Context, client *resty.Client) error {
	client.SetHeader("api-key", s.key)
	return nil
}

// federatedIdentityStrategy exchanges the workflow's OIDC token for an Entra
// ID bearer token via a client-assertion credential. No client secret ever
// exists in the environment.
type federatedIdentityStrategy struct {
	clientID     string
	tenantID     string
	requestURL   string
	requestToken string
}

func (s *federatedIdentityStrategy) Name() string { return "federated-identity" }

func (s *federatedIdentityStrategy) Apply(ctx context.Context, client *resty.Client) error {
	if s.requestURL == "" || s.requestToken == "" {
		return pkgerrors.NewUnauthorizedError(
			"federated identity requires the workflow to grant id-token: write so an OIDC token can be requested")
	}

	cred, err := azidentity.NewClientAssertionCredential(s.tenantID, s.clientID, s.fetchAssertion, nil)
	if err != nil {
		return pkgerrors.NewUnauthorizedError("failed to construct federated identity credential").WithCause(err)
	}

	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{tokenScope}})
	if err != nil {
		return pkgerrors.NewUnauthorizedError(
			"Entra ID rejected the federated credential; check the app registration's federated credential subject").WithCause(err)
	}

	client.SetAuthToken(token.Token)
	return nil
}

// fetchAssertion requests a fresh OIDC token from the Actions runtime.
func (s *federatedIdentityStrategy) fetchAssertion(ctx context.Context) (string, error) {
	var payload struct {
		Value string `json:"value"`
	}

	resp, err := resty.New().R().
		SetContext(ctx).
		SetAuthToken(s.requestToken).
		SetQueryParam("audience", oidcAudience).
		SetResult(&payload).
		Get(s.requestURL)
	if err != nil {
		return "", fmt.Errorf("requesting workflow OIDC token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("workflow OIDC token endpoint returned HTTP %d", resp.StatusCode())
	}
	if payload.Value == "" {
		return "", fmt.Errorf("workflow OIDC token endpoint returned an empty token")
	}

	return payload.Value, nil
}
