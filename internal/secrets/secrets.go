package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/agentforge/llm-gateway/internal/domain"
)

var (
	ErrNotFound     = errors.New("secret not found")
	ErrAccessDenied = errors.New("secret access denied")
)

// Provider fetches credential material from an external secret store.
// Implementations must never log the material they return.
type Provider interface {
	GetSecret(ctx context.Context, secretPath string) (*domain.Credential, error)
}

// ParseCredential accepts either a bare key string or a JSON document with
// the credential fields.
func ParseCredential(raw string) (*domain.Credential, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var cred domain.Credential
		if err := json.Unmarshal([]byte(trimmed), &cred); err != nil {
			return nil, err
		}
		return &cred, nil
	}
	return &domain.Credential{APIKey: trimmed}, nil
}

// Env resolves secret paths from process environment variables. The path is
// upper-cased and non-alphanumerics become underscores, so "prod/openai/key"
// reads PROD_OPENAI_KEY. Used for local development and tests.
type Env struct{}

func NewEnv() *Env { return &Env{} }

func (e *Env) GetSecret(ctx context.Context, secretPath string) (*domain.Credential, error) {
	name := strings.ToUpper(secretPath)
	for _, r := range []string{"/", "-", "."} {
		name = strings.ReplaceAll(name, r, "_")
	}
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return nil, ErrNotFound
	}
	return ParseCredential(raw)
}
