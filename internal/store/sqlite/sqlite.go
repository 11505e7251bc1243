package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/store"
)

// Store implements store.ConfigStore on sqlite.
type Store struct {
	db *sqlx.DB
}

func (s *Store) Close() error {
	return s.db.Close()
}

type templateRow struct {
	ProviderID            string `db:"provider_id"`
	ProviderName          string `db:"provider_name"`
	BaseURL               string `db:"base_url"`
	EndpointPath          string `db:"endpoint_path"`
	AuthType              string `db:"auth_type"`
	AuthHeader            string `db:"auth_header"`
	RequestTransformerID  string `db:"request_transformer_id"`
	ResponseTransformerID string `db:"response_transformer_id"`
	DefaultTimeoutMS      int64  `db:"default_timeout_ms"`
	MaxRetries            int    `db:"max_retries"`
	SupportsStreaming     bool   `db:"supports_streaming"`
	SupportsTools         bool   `db:"supports_tools"`
}

func (r templateRow) toDomain() *domain.ProviderTemplate {
	return &domain.ProviderTemplate{
		ProviderID:            r.ProviderID,
		ProviderName:          r.ProviderName,
		BaseURL:               r.BaseURL,
		EndpointPath:          r.EndpointPath,
		AuthType:              r.AuthType,
		AuthHeader:            r.AuthHeader,
		RequestTransformerID:  r.RequestTransformerID,
		ResponseTransformerID: r.ResponseTransformerID,
		DefaultTimeout:        time.Duration(r.DefaultTimeoutMS) * time.Millisecond,
		MaxRetries:            r.MaxRetries,
		SupportsStreaming:     r.SupportsStreaming,
		SupportsTools:         r.SupportsTools,
	}
}

type endpointRow struct {
	EndpointID    string       `db:"endpoint_id"`
	ProviderID    string       `db:"provider_id"`
	Environment   string       `db:"environment"`
	Name          string       `db:"name"`
	ModelID       string       `db:"model_id"`
	SecretPath    string       `db:"secret_path"`
	CustomHeaders string       `db:"custom_headers"`
	RateLimit     float64      `db:"rate_limit"`
	Priority      int          `db:"priority"`
	Enabled       bool         `db:"enabled"`
	TestStatus    string       `db:"test_status"`
	LastTested    sql.NullTime `db:"last_tested"`
}

func (r endpointRow) toDomain() domain.EndpointConfig {
	ep := domain.EndpointConfig{
		EndpointID:  r.EndpointID,
		ProviderID:  r.ProviderID,
		Environment: r.Environment,
		Name:        r.Name,
		ModelID:     r.ModelID,
		SecretPath:  r.SecretPath,
		RateLimit:   r.RateLimit,
		Priority:    r.Priority,
		Enabled:     r.Enabled,
		TestStatus:  r.TestStatus,
	}
	if r.LastTested.Valid {
		t := r.LastTested.Time
		ep.LastTested = &t
	}
	if r.CustomHeaders != "" {
		_ = json.Unmarshal([]byte(r.CustomHeaders), &ep.CustomHeaders)
	}
	return ep
}

func (s *Store) GetProviderTemplate(ctx context.Context, providerID string) (*domain.ProviderTemplate, error) {
	var row templateRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM provider_templates WHERE provider_id = ?`, providerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetEndpoint(ctx context.Context, endpointID string) (*domain.EndpointConfig, error) {
	var row endpointRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM endpoints WHERE endpoint_id = ?`, endpointID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ep := row.toDomain()
	return &ep, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error) {
	var rows []endpointRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM endpoints ORDER BY endpoint_id`); err != nil {
		return nil, err
	}
	eps := make([]domain.EndpointConfig, 0, len(rows))
	for _, r := range rows {
		eps = append(eps, r.toDomain())
	}
	return eps, nil
}

func (s *Store) EndpointsForProvider(ctx context.Context, providerID string) ([]domain.EndpointConfig, error) {
	var rows []endpointRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM endpoints WHERE provider_id = ? ORDER BY priority DESC`, providerID); err != nil {
		return nil, err
	}
	eps := make([]domain.EndpointConfig, 0, len(rows))
	for _, r := range rows {
		eps = append(eps, r.toDomain())
	}
	return eps, nil
}

func (s *Store) GetAgentAssignment(ctx context.Context, agentID string) (string, error) {
	var endpointID string
	err := s.db.GetContext(ctx, &endpointID,
		`SELECT endpoint_id FROM agent_assignments WHERE agent_id = ?`, agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return endpointID, nil
}

func (s *Store) UpdateTestStatus(ctx context.Context, endpointID, status string, testedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE endpoints SET test_status = ?, last_tested = ? WHERE endpoint_id = ?`,
		status, testedAt, endpointID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
