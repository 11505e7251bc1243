package gateway_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/cache"
	"github.com/agentforge/llm-gateway/internal/config"
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/gateway"
	"github.com/agentforge/llm-gateway/internal/httpclient"
	"github.com/agentforge/llm-gateway/internal/ratelimit"
	"github.com/agentforge/llm-gateway/internal/resolver"
	"github.com/agentforge/llm-gateway/internal/secretcache"
	"github.com/agentforge/llm-gateway/internal/secrets"
	"github.com/agentforge/llm-gateway/internal/store"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"

	_ "github.com/agentforge/llm-gateway/internal/transform/openai"
)

type statusWrite struct {
	endpointID string
	status     string
}

type fakeStore struct {
	templates   map[string]domain.ProviderTemplate
	endpoints   map[string]domain.EndpointConfig
	assignments map[string]string
	writes      []statusWrite
	writeErr    error
}

func (s *fakeStore) GetProviderTemplate(ctx context.Context, providerID string) (*domain.ProviderTemplate, error) {
	t, ok := s.templates[providerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *fakeStore) GetEndpoint(ctx context.Context, endpointID string) (*domain.EndpointConfig, error) {
	e, ok := s.endpoints[endpointID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *fakeStore) ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error) {
	var out []domain.EndpointConfig
	for _, e := range s.endpoints {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) EndpointsForProvider(ctx context.Context, providerID string) ([]domain.EndpointConfig, error) {
	var out []domain.EndpointConfig
	for _, e := range s.endpoints {
		if e.ProviderID == providerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetAgentAssignment(ctx context.Context, agentID string) (string, error) {
	id, ok := s.assignments[agentID]
	if !ok {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (s *fakeStore) UpdateTestStatus(ctx context.Context, endpointID, status string, testedAt time.Time) error {
	s.writes = append(s.writes, statusWrite{endpointID, status})
	return s.writeErr
}

func (s *fakeStore) Close() error { return nil }

type canned struct {
	status int
	body   string
}

type scriptedClient struct {
	responses []canned
	requests  []*http.Request
}

func (c *scriptedClient) Do(req *http.Request) (*http.Response, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	r := c.responses[i]
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
		Header:     make(http.Header),
	}, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: map[string]domain.ProviderTemplate{
			"openai": {
				ProviderID:            "openai",
				BaseURL:               "https://api.example.com",
				EndpointPath:          "/v1/chat/completions",
				AuthType:              domain.AuthBearer,
				RequestTransformerID:  "openai",
				ResponseTransformerID: "openai",
				SupportsTools:         true,
			},
		},
		endpoints: map[string]domain.EndpointConfig{
			"ep-1": {
				EndpointID: "ep-1",
				ProviderID: "openai",
				ModelID:    "gpt-4o-mini",
				SecretPath: "gw/test/key",
				Enabled:    true,
			},
		},
	}
}

func newService(t *testing.T, st *fakeStore, client httpclient.HTTPClient) gateway.Service {
	t.Helper()
	t.Setenv("GW_TEST_KEY", "sk-test")

	logger := zap.NewNop()
	res := resolver.New(st, cache.NewMemory(), time.Minute, transform.Known, logger)
	creds := secretcache.New(secrets.NewEnv(), cache.NewMemory(), time.Minute, logger)
	disp := httpclient.NewDispatcher(client, config.DispatchConfig{
		DefaultTimeout: 5 * time.Second,
		BackoffBase:    time.Millisecond,
		BackoffCap:     2 * time.Millisecond,
	}, ratelimit.NewRegistry(), logger)

	return gateway.NewService(logger, res, creds, disp, st)
}

const happyBody = `{
	"model": "gpt-4o-mini",
	"choices": [{"message": {"role": "assistant", "content": "pong"}}],
	"usage": {"prompt_tokens": 9, "completion_tokens": 1}
}`

func TestProcessRequest(t *testing.T) {
	client := &scriptedClient{responses: []canned{{200, happyBody}}}
	svc := newService(t, newFakeStore(), client)

	resp, err := svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "ep-1",
		Messages:   []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "ping"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "pong", resp.Message.Content.Text)
	assert.Equal(t, "ep-1", resp.EndpointUsed)
	assert.Equal(t, "ep-1", resp.Metadata.EndpointID)
	assert.Equal(t, "openai", resp.Metadata.Provider)
	assert.Equal(t, "gpt-4o-mini", resp.Metadata.ModelID)
	assert.Equal(t, 9, resp.Metadata.InputTokens)
	assert.NotNil(t, resp.FunctionCalls)

	// The resolved credential made it onto the wire.
	assert.Equal(t, "Bearer sk-test", client.requests[0].Header.Get("Authorization"))
}

func TestProcessRequest_SelectorErrors(t *testing.T) {
	svc := newService(t, newFakeStore(), &scriptedClient{responses: []canned{{200, happyBody}}})

	_, err := svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		Messages: []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "hi"}}},
	})
	assert.Equal(t, domain.KindAmbiguousSelector, domain.KindOf(err))

	_, err = svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "nope",
		Messages:   []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "hi"}}},
	})
	assert.Equal(t, domain.KindConfigNotFound, domain.KindOf(err))
}

func TestProcessRequest_DanglingToolResultNeverDispatched(t *testing.T) {
	client := &scriptedClient{responses: []canned{{200, happyBody}}}
	svc := newService(t, newFakeStore(), client)

	_, err := svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "ep-1",
		Messages: []api.Message{
			{Role: api.RoleTool, Content: api.Content{Parts: []api.Part{
				{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "ghost", Content: "?"}},
			}}},
		},
	})

	assert.Equal(t, domain.KindDanglingToolResult, domain.KindOf(err))
	assert.Empty(t, client.requests)
}

func TestProcessRequest_MissingSecret(t *testing.T) {
	st := newFakeStore()
	ep := st.endpoints["ep-1"]
	ep.SecretPath = "gw/absent/key"
	st.endpoints["ep-1"] = ep

	client := &scriptedClient{responses: []canned{{200, happyBody}}}
	svc := newService(t, st, client)

	_, err := svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "ep-1",
		Messages:   []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "hi"}}},
	})

	// A missing secret is a hard failure, not an unauthenticated dispatch.
	assert.Equal(t, domain.KindSecretNotFound, domain.KindOf(err))
	assert.Empty(t, client.requests)
}

func TestProcessRequest_CapabilityGates(t *testing.T) {
	st := newFakeStore()
	tmpl := st.templates["openai"]
	tmpl.SupportsTools = false
	st.templates["openai"] = tmpl

	svc := newService(t, st, &scriptedClient{responses: []canned{{200, happyBody}}})

	_, err := svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "ep-1",
		Messages:   []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "hi"}}},
		Tools:      []api.ToolSpec{{Name: "get_weather"}},
	})
	var problem *api.Problem
	require.ErrorAs(t, err, &problem)
	assert.Equal(t, 400, problem.Status)

	_, err = svc.ProcessRequest(context.Background(), &api.UnifiedRequest{
		EndpointID: "ep-1",
		Messages:   []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "hi"}}},
		Stream:     true,
	})
	require.ErrorAs(t, err, &problem)
	assert.Equal(t, 400, problem.Status)
}

func TestTestConnection_Success(t *testing.T) {
	st := newFakeStore()
	svc := newService(t, st, &scriptedClient{responses: []canned{{200, happyBody}}})

	result := svc.TestConnection(context.Background(), "ep-1")
	assert.True(t, result.Success)
	assert.Equal(t, "ep-1", result.EndpointID)
	assert.Empty(t, result.Error)

	require.Len(t, st.writes, 1)
	assert.Equal(t, statusWrite{"ep-1", gateway.TestStatusOK}, st.writes[0])
}

func TestTestConnection_Failure(t *testing.T) {
	st := newFakeStore()
	svc := newService(t, st, &scriptedClient{responses: []canned{{401, "bad key"}}})

	result := svc.TestConnection(context.Background(), "ep-1")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	require.Len(t, st.writes, 1)
	assert.Equal(t, gateway.TestStatusFailed, st.writes[0].status)
}

func TestTestConnection_WriteBackFailureDoesNotChangeOutcome(t *testing.T) {
	st := newFakeStore()
	st.writeErr = context.DeadlineExceeded
	svc := newService(t, st, &scriptedClient{responses: []canned{{200, happyBody}}})

	result := svc.TestConnection(context.Background(), "ep-1")
	assert.True(t, result.Success)
}

func TestTestConnection_Idempotent(t *testing.T) {
	st := newFakeStore()
	svc := newService(t, st, &scriptedClient{responses: []canned{{200, happyBody}}})

	first := svc.TestConnection(context.Background(), "ep-1")
	second := svc.TestConnection(context.Background(), "ep-1")

	assert.Equal(t, first.Success, second.Success)
	assert.Len(t, st.writes, 2)
}

func TestListEndpoints(t *testing.T) {
	svc := newService(t, newFakeStore(), &scriptedClient{responses: []canned{{200, happyBody}}})

	eps, err := svc.ListEndpoints(context.Background())
	require.NoError(t, err)
	assert.Len(t, eps, 1)
}
