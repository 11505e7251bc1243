package transform

import (
	"fmt"
	"sync"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/pkg/api"
)

// WireRequest is the provider-shaped request handed to the dispatcher. Body
// is marshaled as-is; Headers carry provider-specific additions (API version
// pins and the like) merged after auth headers.
type WireRequest struct {
	Body    any
	Headers map[string]string
}

// Adapter translates between the unified schema and one provider family's
// wire format. Implementations are stateless and safe for concurrent use.
type Adapter interface {
	// Family returns the transformer id the adapter registers under.
	Family() string

	// ToProviderRequest builds the provider wire request for a unified
	// request targeting the given endpoint.
	ToProviderRequest(req *api.UnifiedRequest, ep *domain.EndpointConfig) (*WireRequest, error)

	// FromProviderResponse normalizes a raw provider response body. The
	// returned response always has FunctionCalls populated (possibly empty)
	// and token counts extracted into Metadata where the provider reports
	// them; missing usage resolves to zero rather than an error.
	FromProviderResponse(raw []byte) (*api.UnifiedResponse, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Adapter)
)

// Register adds an adapter under its family id. Called from adapter package
// init functions; duplicate registration is a programming error.
func Register(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[a.Family()]; exists {
		panic(fmt.Sprintf("transform adapter %q already registered", a.Family()))
	}
	registry[a.Family()] = a
}

// Get returns the adapter registered under id.
func Get(id string) (Adapter, error) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := registry[id]
	if !ok {
		return nil, domain.E(domain.KindConfigNotFound, "no adapter registered for transformer id %q", id)
	}
	return a, nil
}

// Known reports whether id names a registered adapter. The resolver uses it
// to reject misconfigured templates before any dispatch happens.
func Known(id string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[id]
	return ok
}
