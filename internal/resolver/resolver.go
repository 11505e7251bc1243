package resolver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/cache"
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/store"
)

// Resolved is the template+endpoint pair a selector resolves to. It is the
// unit cached per selector key.
type Resolved struct {
	Template domain.ProviderTemplate `json:"template"`
	Endpoint domain.EndpointConfig   `json:"endpoint"`
}

// Resolver turns a request selector into concrete provider configuration,
// caching results so the configuration store is not hit on every call.
type Resolver struct {
	store  store.ConfigStore
	cache  cache.Service
	ttl    time.Duration
	logger *zap.Logger

	// validTransformer rejects templates whose transformer ids name no
	// registered adapter, at resolution time rather than at dispatch.
	validTransformer func(id string) bool
}

func New(st store.ConfigStore, c cache.Service, ttl time.Duration, validTransformer func(string) bool, logger *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		store:            st,
		cache:            c,
		ttl:              ttl,
		logger:           logger,
		validTransformer: validTransformer,
	}
}

// Resolve maps a selector to its ProviderTemplate and EndpointConfig.
// Cache hits return with no I/O; misses fetch from the store and populate
// the cache. Concurrent misses on the same key may fetch redundantly.
func (r *Resolver) Resolve(ctx context.Context, sel domain.Selector) (*Resolved, error) {
	if err := sel.Validate(); err != nil {
		return nil, domain.AtStage(domain.StageResolveConfig, err)
	}

	key := sel.Key()

	var cached Resolved
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		// A broken cache backend should not take resolution down with it.
		r.logger.Warn("config cache read failed", zap.String("key", key), zap.Error(err))
	}

	res, err := r.fetch(ctx, sel)
	if err != nil {
		return nil, domain.AtStage(domain.StageResolveConfig, err)
	}

	if err := r.cache.Set(ctx, key, res, r.ttl); err != nil {
		r.logger.Warn("config cache write failed", zap.String("key", key), zap.Error(err))
	}

	return res, nil
}

func (r *Resolver) fetch(ctx context.Context, sel domain.Selector) (*Resolved, error) {
	switch {
	case sel.EndpointID != "":
		ep, err := r.getEndpoint(ctx, sel.EndpointID)
		if err != nil {
			return nil, err
		}
		return r.withTemplate(ctx, ep)

	case sel.ProviderID != "":
		ep, err := r.pickEndpoint(ctx, sel.ProviderID)
		if err != nil {
			return nil, err
		}
		return r.withTemplate(ctx, ep)

	default:
		endpointID, err := r.store.GetAgentAssignment(ctx, sel.AgentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.E(domain.KindConfigNotFound, "no endpoint assigned to agent %q", sel.AgentID)
			}
			return nil, err
		}
		ep, err := r.getEndpoint(ctx, endpointID)
		if err != nil {
			return nil, err
		}
		return r.withTemplate(ctx, ep)
	}
}

func (r *Resolver) getEndpoint(ctx context.Context, endpointID string) (*domain.EndpointConfig, error) {
	ep, err := r.store.GetEndpoint(ctx, endpointID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.E(domain.KindConfigNotFound, "endpoint %q not found", endpointID)
		}
		return nil, err
	}
	return ep, nil
}

// pickEndpoint chooses the highest-priority enabled endpoint for a provider.
// Disabled endpoints are never selected here; they can only be targeted
// explicitly by endpoint id.
func (r *Resolver) pickEndpoint(ctx context.Context, providerID string) (*domain.EndpointConfig, error) {
	eps, err := r.store.EndpointsForProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var best *domain.EndpointConfig
	for i := range eps {
		if !eps[i].Enabled {
			continue
		}
		if best == nil || eps[i].Priority > best.Priority {
			best = &eps[i]
		}
	}
	if best == nil {
		return nil, domain.E(domain.KindNoEnabledEndpoint, "provider %q has no enabled endpoints", providerID)
	}
	return best, nil
}

func (r *Resolver) withTemplate(ctx context.Context, ep *domain.EndpointConfig) (*Resolved, error) {
	tmpl, err := r.store.GetProviderTemplate(ctx, ep.ProviderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.E(domain.KindConfigNotFound, "provider template %q not found", ep.ProviderID)
		}
		return nil, err
	}

	if r.validTransformer != nil {
		if !r.validTransformer(tmpl.RequestTransformerID) {
			return nil, domain.E(domain.KindConfigNotFound,
				"provider %q names unknown request transformer %q", tmpl.ProviderID, tmpl.RequestTransformerID)
		}
		if !r.validTransformer(tmpl.ResponseTransformerID) {
			return nil, domain.E(domain.KindConfigNotFound,
				"provider %q names unknown response transformer %q", tmpl.ProviderID, tmpl.ResponseTransformerID)
		}
	}

	return &Resolved{Template: *tmpl, Endpoint: *ep}, nil
}
