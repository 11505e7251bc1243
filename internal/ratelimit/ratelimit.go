package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Registry manages per-endpoint outbound limiters. An endpoint's configured
// rate_limit is requests per second; zero means unlimited.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*rate.Limiter)}
}

func (r *Registry) get(endpointID string, rps float64) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[endpointID]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = r.limiters[endpointID]; exists {
		return limiter
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(rps), burst)
	r.limiters[endpointID] = limiter

	return limiter
}

// Wait blocks until the endpoint's limiter grants a slot or the context
// expires. Endpoints without a configured limit pass through.
func (r *Registry) Wait(ctx context.Context, endpointID string, rps float64) error {
	if rps <= 0 {
		return nil
	}
	return r.get(endpointID, rps).Wait(ctx)
}
