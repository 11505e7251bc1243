package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/httpclient"
	"github.com/agentforge/llm-gateway/internal/resolver"
	"github.com/agentforge/llm-gateway/internal/secretcache"
	"github.com/agentforge/llm-gateway/internal/store"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"
)

// Test status values written back after a connection test.
const (
	TestStatusOK     = "ok"
	TestStatusFailed = "failed"
)

// Service sequences resolution, transformation, dispatch and response
// assembly for unified requests.
type Service interface {
	// ProcessRequest runs a unified request through the full pipeline. Errors
	// carry the stage they originated in.
	ProcessRequest(ctx context.Context, req *api.UnifiedRequest) (*api.UnifiedResponse, error)

	// TestConnection probes an endpoint with a minimal synthetic request and
	// writes the outcome back to the configuration store. It never returns an
	// error past its own boundary; failures are folded into the result.
	TestConnection(ctx context.Context, endpointID string) *api.TestResult

	// ListEndpoints exposes the configured endpoints for the admin surface.
	ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error)
}

type service struct {
	logger     *zap.Logger
	resolver   *resolver.Resolver
	secrets    *secretcache.Cache
	dispatcher *httpclient.Dispatcher
	store      store.ConfigStore
}

func NewService(logger *zap.Logger, res *resolver.Resolver, sec *secretcache.Cache, disp *httpclient.Dispatcher, st store.ConfigStore) Service {
	return &service{
		logger:     logger,
		resolver:   res,
		secrets:    sec,
		dispatcher: disp,
		store:      st,
	}
}

func (s *service) ProcessRequest(ctx context.Context, req *api.UnifiedRequest) (*api.UnifiedResponse, error) {
	sel := domain.Selector{
		EndpointID: req.EndpointID,
		ProviderID: req.ProviderID,
		AgentID:    req.AgentID,
	}

	resolved, err := s.resolver.Resolve(ctx, sel)
	if err != nil {
		s.logFailure("config resolution failed", sel.Key(), err)
		return nil, err
	}
	tmpl, ep := &resolved.Template, &resolved.Endpoint

	if err := s.checkCapabilities(req, tmpl); err != nil {
		return nil, err
	}

	cred, err := s.secrets.GetCredential(ctx, ep.SecretPath)
	if err != nil {
		s.logFailure("secret resolution failed", ep.EndpointID, err)
		return nil, err
	}

	// Dangling tool results must never reach the dispatcher, for any family.
	if err := transform.ValidateToolFlow(req.Messages); err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}

	reqAdapter, err := transform.Get(tmpl.RequestTransformerID)
	if err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}
	wire, err := reqAdapter.ToProviderRequest(req, ep)
	if err != nil {
		s.logFailure("request transformation failed", ep.EndpointID, err)
		return nil, err
	}

	start := time.Now()
	raw, err := s.dispatcher.Send(ctx, tmpl, ep, cred, wire)
	if err != nil {
		s.logFailure("dispatch failed", ep.EndpointID, err)
		return nil, err
	}
	latency := time.Since(start)

	respAdapter, err := transform.Get(tmpl.ResponseTransformerID)
	if err != nil {
		return nil, domain.AtStage(domain.StageTransformResponse, err)
	}
	resp, err := respAdapter.FromProviderResponse(raw)
	if err != nil {
		s.logFailure("response transformation failed", ep.EndpointID, err)
		return nil, err
	}

	resp.EndpointUsed = ep.EndpointID
	resp.Metadata.EndpointID = ep.EndpointID
	resp.Metadata.Provider = tmpl.ProviderID
	resp.Metadata.LatencyMS = latency.Milliseconds()
	if resp.Metadata.ModelID == "" {
		resp.Metadata.ModelID = ep.ModelID
	}

	s.logger.Info("request completed",
		zap.String("endpoint", ep.EndpointID),
		zap.String("provider", tmpl.ProviderID),
		zap.Int64("latency_ms", resp.Metadata.LatencyMS),
		zap.Int("input_tokens", resp.Metadata.InputTokens),
		zap.Int("output_tokens", resp.Metadata.OutputTokens),
		zap.Int("function_calls", len(resp.FunctionCalls)),
	)

	return resp, nil
}

// checkCapabilities gates optional request features on what the provider
// template declares.
func (s *service) checkCapabilities(req *api.UnifiedRequest, tmpl *domain.ProviderTemplate) error {
	if req.Stream && !tmpl.SupportsStreaming {
		return api.BadRequestError("provider " + tmpl.ProviderID + " does not support streaming")
	}
	if len(req.Tools) > 0 && !tmpl.SupportsTools {
		return api.BadRequestError("provider " + tmpl.ProviderID + " does not support tools")
	}
	return nil
}

var probeTemperature = 0.0

func (s *service) TestConnection(ctx context.Context, endpointID string) *api.TestResult {
	probe := &api.UnifiedRequest{
		EndpointID: endpointID,
		Messages: []api.Message{
			{Role: api.RoleUser, Content: api.Content{Text: "ping"}},
		},
		Temperature: &probeTemperature,
		MaxTokens:   16,
	}

	start := time.Now()
	_, err := s.ProcessRequest(ctx, probe)
	latency := time.Since(start)

	result := &api.TestResult{
		EndpointID: endpointID,
		Success:    err == nil,
		LatencyMS:  latency.Milliseconds(),
	}

	status := TestStatusOK
	if err != nil {
		status = TestStatusFailed
		result.Error = err.Error()
	}

	// Write-back is the one configuration mutation this core performs. A
	// failed write does not change the probe outcome.
	if uerr := s.store.UpdateTestStatus(ctx, endpointID, status, time.Now()); uerr != nil {
		s.logger.Warn("test status write-back failed",
			zap.String("endpoint", endpointID),
			zap.Error(uerr),
		)
	}

	return result
}

func (s *service) ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error) {
	return s.store.ListEndpoints(ctx)
}

func (s *service) logFailure(msg, key string, err error) {
	s.logger.Warn(msg,
		zap.String("key", key),
		zap.String("stage", string(domain.StageOf(err))),
		zap.String("kind", string(domain.KindOf(err))),
		zap.Error(err),
	)
}
