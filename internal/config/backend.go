package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mattdot/issueagent/internal/models"
)

// Backend defaults and bounds.
const (
	DefaultModelDeployment   = "gpt-4o"
	DefaultAPIVersion        = "2024-10-21"
	DefaultConnectionTimeout = 30 * time.Second
	MaxConnectionTimeout     = 5 * time.Minute

	// minAPIKeyLength rejects obviously truncated keys before any network
	// traffic happens.
	minAPIKeyLength = 16
)

var (
	endpointPattern   = regexp.MustCompile(`^https://[^/\s]+/api/projects/[^/\s]+/?$`)
	deploymentPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	apiVersionPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(-preview)?$`)
)

// backendValidate carries the field-shape rules for BackendConfiguration.
var backendValidate = newBackendValidator()

func newBackendValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("foundry_endpoint", func(fl validator.FieldLevel) bool {
		return endpointPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("deployment_name", func(fl validator.FieldLevel) bool {
		return deploymentPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("api_version", func(fl validator.FieldLevel) bool {
		m := apiVersionPattern.FindStringSubmatch(fl.Field().String())
		if m == nil {
			return false
		}
		d, err := time.Parse("2006-01-02", m[1])
		if err != nil {
			return false
		}
		return !d.After(time.Now().UTC())
	})
	return v
}

// BackendConfiguration holds the AI backend connection settings. Validate
// fills defaults exactly once; after that the value is treated as immutable.
type BackendConfiguration struct {
	Endpoint          string `validate:"omitempty,foundry_endpoint"`
	APIKey            string
	ClientID          string `validate:"omitempty,uuid"`
	TenantID          string `validate:"omitempty,uuid"`
	ModelDeployment   string `validate:"omitempty,deployment_name"`
	APIVersion        string `validate:"omitempty,api_version"`
	ConnectionTimeout time.Duration

	// Federated-identity exchange inputs, populated by the loader from the
	// workflow's OIDC environment.
	OIDCRequestURL   string
	OIDCRequestToken string
}

// ConfigError reports a validation failure with its bootstrap category so
// the connection layer can fail closed without string matching.
type ConfigError struct {
	Category models.ConnectionErrorCategory
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend configuration %s: %s", e.Field, e.Reason)
}

// IsConfigured reports whether a backend endpoint was supplied at all. An
// absent endpoint means the backend is simply not configured, which is not
// an error; the pipeline falls back to deterministic reply text.
func (c *BackendConfiguration) IsConfigured() bool {
	return c.Endpoint != ""
}

// HasFederatedCredential reports whether the federated-identity pair is set.
func (c *BackendConfiguration) HasFederatedCredential() bool {
	return c.ClientID != "" && c.TenantID != ""
}

// Validate fills defaults and checks every field. Re-validating an already
// validated configuration is idempotent: defaults, once applied, are stable.
func (c *BackendConfiguration) Validate() error {
	// One-time default fill.
	if c.ModelDeployment == "" {
		c.ModelDeployment = DefaultModelDeployment
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}

	if c.Endpoint == "" {
		return &ConfigError{
			Category: models.CategoryMissingConfiguration,
			Field:    "endpoint",
			Reason:   "no endpoint supplied; set the azure_foundry_endpoint input or the AZURE_FOUNDRY_ENDPOINT environment variable",
		}
	}

	if c.APIKey == "" && !c.HasFederatedCredential() {
		switch {
		case c.ClientID != "":
			return &ConfigError{
				Category: models.CategoryMissingConfiguration,
				Field:    "tenant_id",
				Reason:   "client-id was supplied without a tenant-id; federated identity needs both",
			}
		case c.TenantID != "":
			return &ConfigError{
				Category: models.CategoryMissingConfiguration,
				Field:    "client_id",
				Reason:   "tenant-id was supplied without a client-id; federated identity needs both",
			}
		default:
			return &ConfigError{
				Category: models.CategoryMissingConfiguration,
				Field:    "credential",
				Reason:   "no credential supplied; set an API key, or a client-id/tenant-id pair for federated identity",
			}
		}
	}

	if c.APIKey != "" && len(c.APIKey) < minAPIKeyLength {
		return &ConfigError{
			Category: models.CategoryInvalidConfiguration,
			Field:    "api_key",
			Reason:   fmt.Sprintf("API key is %d characters, which is too short to be a real key; check for truncation", len(c.APIKey)),
		}
	}

	if c.ConnectionTimeout < 0 || c.ConnectionTimeout > MaxConnectionTimeout {
		return &ConfigError{
			Category: models.CategoryInvalidConfiguration,
			Field:    "connection_timeout",
			Reason:   fmt.Sprintf("timeout %s is outside (0s, %s]", c.ConnectionTimeout, MaxConnectionTimeout),
		}
	}

	if err := backendValidate.Struct(c); err != nil {
		return configErrorFromValidator(err)
	}

	return nil
}

func configErrorFromValidator(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ConfigError{
			Category: models.CategoryInvalidConfiguration,
			Field:    "backend",
			Reason:   err.Error(),
		}
	}

	fe := verrs[0]
	reason := map[string]string{
		"Endpoint":        "endpoint must look like https://<host>/api/projects/<project>",
		"ClientID":        "client-id must be a GUID",
		"TenantID":        "tenant-id must be a GUID",
		"ModelDeployment": "model deployment name must be 1-64 alphanumeric-or-hyphen characters",
		"APIVersion":      "API version must be YYYY-MM-DD or YYYY-MM-DD-preview and not future-dated",
	}[fe.StructField()]
	if reason == "" {
		reason = fmt.Sprintf("field failed %s validation", fe.Tag())
	}

	return &ConfigError{
		Category: models.CategoryInvalidConfiguration,
		Field:    fe.StructField(),
		Reason:   reason,
	}
}
