package domain

import "time"

// Auth schemes a provider template can declare.
const (
	AuthBearer    = "bearer"
	AuthHeaderKey = "header-key"
	AuthSigned    = "signed-request"
)

// ProviderTemplate describes how to talk to one provider family: where its
// endpoint lives, how requests are authenticated, and which transformer pair
// translates the unified schema to and from its wire format.
type ProviderTemplate struct {
	ProviderID   string `json:"provider_id" db:"provider_id"`
	ProviderName string `json:"provider_name" db:"provider_name"`
	BaseURL      string `json:"base_url" db:"base_url"`

	// EndpointPath may carry a {model} placeholder for providers that put
	// the model in the URL rather than the body.
	EndpointPath string `json:"endpoint_path" db:"endpoint_path"`

	AuthType string `json:"auth_type" db:"auth_type"`
	// AuthHeader names the header carrying the key for header-key auth.
	// Empty means the provider's conventional default.
	AuthHeader string `json:"auth_header" db:"auth_header"`

	RequestTransformerID  string `json:"request_transformer_id" db:"request_transformer_id"`
	ResponseTransformerID string `json:"response_transformer_id" db:"response_transformer_id"`

	DefaultTimeout time.Duration `json:"default_timeout"`
	MaxRetries     int           `json:"max_retries" db:"max_retries"`

	SupportsStreaming bool `json:"supports_streaming" db:"supports_streaming"`
	SupportsTools     bool `json:"supports_tools" db:"supports_tools"`
}

// EndpointConfig is one concrete, environment-scoped deployment of a
// provider: a model, a secret reference and routing metadata. CustomHeaders
// are applied to every outbound request before provider-mandated headers.
type EndpointConfig struct {
	EndpointID  string `json:"endpoint_id" db:"endpoint_id"`
	ProviderID  string `json:"provider_id" db:"provider_id"`
	Environment string `json:"environment" db:"environment"`
	Name        string `json:"name" db:"name"`
	ModelID     string `json:"model_id" db:"model_id"`

	// SecretPath references credential material in the secret store; the
	// material itself never appears in configuration.
	SecretPath string `json:"secret_path" db:"secret_path"`

	CustomHeaders map[string]string `json:"custom_headers,omitempty"`

	// RateLimit caps outbound requests per second for this endpoint.
	// Zero means unlimited.
	RateLimit float64 `json:"rate_limit" db:"rate_limit"`

	// Priority orders endpoints when a provider-level selector has to pick
	// one; higher wins.
	Priority int  `json:"priority" db:"priority"`
	Enabled  bool `json:"enabled" db:"enabled"`

	TestStatus string     `json:"test_status,omitempty" db:"test_status"`
	LastTested *time.Time `json:"last_tested,omitempty"`
}

// Credential is resolved secret material. It must never be logged or
// serialized into responses; only the cache layer persists it, and only
// inside its TTL.
type Credential struct {
	APIKey string `json:"api_key,omitempty"`

	// Signed-request credentials.
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
	Region          string `json:"region,omitempty"`
}

// Selector picks the endpoint a request targets. Exactly one field must be
// set.
type Selector struct {
	EndpointID string
	ProviderID string
	AgentID    string
}

// Validate enforces that exactly one selector field is set.
func (s Selector) Validate() error {
	set := 0
	for _, v := range []string{s.EndpointID, s.ProviderID, s.AgentID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return E(KindAmbiguousSelector,
			"exactly one of endpoint_id, provider_id or agent_id must be set (got %d)", set)
	}
	return nil
}

// Key returns the cache key for this selector.
func (s Selector) Key() string {
	switch {
	case s.EndpointID != "":
		return "endpoint:" + s.EndpointID
	case s.ProviderID != "":
		return "provider:" + s.ProviderID
	default:
		return "agent:" + s.AgentID
	}
}
