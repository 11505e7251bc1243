package store

import (
	"context"
	"errors"
	"time"

	"github.com/agentforge/llm-gateway/internal/domain"
)

// ErrNotFound is returned when a template, endpoint or assignment does not
// exist. Callers translate it into their own error taxonomy.
var ErrNotFound = errors.New("record not found")

// ConfigStore is the external configuration provider the gateway reads
// templates and endpoints from. Records are owned by external configuration
// management; the only write this core performs is the connection-test
// status update.
type ConfigStore interface {
	GetProviderTemplate(ctx context.Context, providerID string) (*domain.ProviderTemplate, error)
	GetEndpoint(ctx context.Context, endpointID string) (*domain.EndpointConfig, error)
	ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error)
	EndpointsForProvider(ctx context.Context, providerID string) ([]domain.EndpointConfig, error)

	// GetAgentAssignment resolves an agent id to its assigned endpoint id.
	GetAgentAssignment(ctx context.Context, agentID string) (string, error)

	// UpdateTestStatus records the outcome of a connection test.
	UpdateTestStatus(ctx context.Context, endpointID, status string, testedAt time.Time) error

	Close() error
}
