package secretcache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/cache"
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/secrets"
)

// Cache fronts a secret provider with a short TTL cache. The TTL is kept
// short because upstream credentials rotate. Credential material is never
// logged, including on error paths.
type Cache struct {
	provider secrets.Provider
	cache    cache.Service
	ttl      time.Duration
	logger   *zap.Logger
}

func New(provider secrets.Provider, c cache.Service, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{provider: provider, cache: c, ttl: ttl, logger: logger}
}

// GetCredential resolves credential material for a secret path, serving from
// cache while an entry is inside its TTL.
func (c *Cache) GetCredential(ctx context.Context, secretPath string) (*domain.Credential, error) {
	key := "secret:" + secretPath

	var cached domain.Credential
	if err := c.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("secret cache read failed", zap.String("path", secretPath), zap.Error(err))
	}

	cred, err := c.provider.GetSecret(ctx, secretPath)
	if err != nil {
		switch {
		case errors.Is(err, secrets.ErrNotFound):
			return nil, domain.AtStage(domain.StageResolveSecret,
				domain.E(domain.KindSecretNotFound, "secret %q not found", secretPath))
		case errors.Is(err, secrets.ErrAccessDenied):
			return nil, domain.AtStage(domain.StageResolveSecret,
				domain.E(domain.KindSecretAccessDenied, "access denied for secret %q", secretPath))
		}
		return nil, domain.AtStage(domain.StageResolveSecret,
			domain.Wrap(domain.KindSecretNotFound, err, "secret fetch failed for %q", secretPath))
	}

	if err := c.cache.Set(ctx, key, cred, c.ttl); err != nil {
		c.logger.Warn("secret cache write failed", zap.String("path", secretPath), zap.Error(err))
	}

	return cred, nil
}
