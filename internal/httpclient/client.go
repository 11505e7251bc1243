package httpclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/config"
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/ratelimit"
	"github.com/agentforge/llm-gateway/internal/transform"
)

// HTTPClient defines the interface for an HTTP client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher issues outbound provider calls with timeout, classified errors
// and retry with exponential backoff. Only transport-class failures are
// retried; client and auth errors propagate immediately.
type Dispatcher struct {
	client  HTTPClient
	cfg     config.DispatchConfig
	limits  *ratelimit.Registry
	logger  *zap.Logger
	sleepFn func(ctx context.Context, d time.Duration) error // test hook
}

func NewDispatcher(client HTTPClient, cfg config.DispatchConfig, limits *ratelimit.Registry, logger *zap.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 5 * time.Second
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	return &Dispatcher{
		client:  client,
		cfg:     cfg,
		limits:  limits,
		logger:  logger,
		sleepFn: sleep,
	}
}

// Rate-limited responses back off on their own, longer schedule, capped
// separately from the generic transport retry cap.
const rateLimitBackoffCap = 15 * time.Second

// Send marshals the wire request, applies auth and custom headers, and calls
// the provider endpoint. The effective deadline is the sooner of the
// caller's deadline and the template's default timeout; it bounds all
// attempts including backoff sleeps.
func (d *Dispatcher) Send(ctx context.Context, tmpl *domain.ProviderTemplate, ep *domain.EndpointConfig, cred *domain.Credential, wire *transform.WireRequest) ([]byte, error) {
	body, err := marshalBody(wire.Body)
	if err != nil {
		return nil, domain.AtStage(domain.StageDispatch,
			domain.Wrap(domain.KindUpstreamBadRequest, err, "failed to marshal request body"))
	}

	timeout := tmpl.DefaultTimeout
	if timeout <= 0 {
		timeout = d.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if d.limits != nil {
		if err := d.limits.Wait(ctx, ep.EndpointID, ep.RateLimit); err != nil {
			return nil, domain.AtStage(domain.StageDispatch,
				domain.E(domain.KindTimeout, "deadline exceeded waiting for endpoint rate limit"))
		}
	}

	url := buildURL(tmpl, ep)

	maxRetries := tmpl.MaxRetries
	if maxRetries < 0 {
		maxRetries = d.cfg.MaxRetries
	}

	var lastErr *domain.Error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := d.backoff(attempt-1, lastErr.Kind)
			if err := d.sleepFn(ctx, backoff); err != nil {
				// Caller's budget ran out mid-retry: stop, report Timeout.
				return nil, domain.AtStage(domain.StageDispatch, &domain.Error{
					Kind:    domain.KindTimeout,
					Msg:     "deadline exceeded during retry backoff",
					Retries: attempt - 1,
					Err:     lastErr,
				})
			}
			d.logger.Debug("retrying dispatch",
				zap.String("endpoint", ep.EndpointID),
				zap.Int("attempt", attempt),
				zap.String("last_error", string(lastErr.Kind)),
			)
		}

		respBody, derr := d.attempt(ctx, url, body, tmpl, ep, cred, wire.Headers)
		if derr == nil {
			return respBody, nil
		}

		lastErr = derr
		if !derr.Kind.Retryable() {
			derr.Stage = domain.StageDispatch
			return nil, derr
		}
	}

	lastErr.Stage = domain.StageDispatch
	lastErr.Retries = maxRetries
	return nil, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, url string, body []byte, tmpl *domain.ProviderTemplate, ep *domain.EndpointConfig, cred *domain.Credential, extraHeaders map[string]string) ([]byte, *domain.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamBadRequest, err, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range ep.CustomHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	if err := applyAuth(ctx, req, body, tmpl, cred); err != nil {
		return nil, domain.Wrap(domain.KindAuthFailed, err, "failed to apply auth")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, domain.Wrap(domain.KindTimeout, err, "request to %s timed out", url)
		}
		// Connection resets and friends: retryable transport failure.
		return nil, domain.Wrap(domain.KindUpstreamServerError, err, "request to %s failed", url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamServerError, err, "failed to read response from %s", url)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	upstream := &UpstreamError{StatusCode: resp.StatusCode, Body: respBody, URL: url}
	return nil, classify(resp.StatusCode, upstream)
}

func classify(status int, cause *UpstreamError) *domain.Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.Wrap(domain.KindAuthFailed, cause, "upstream rejected credentials (%d)", status)
	case status == http.StatusTooManyRequests:
		return domain.Wrap(domain.KindRateLimited, cause, "upstream rate limited (%d)", status)
	case status >= 500:
		return domain.Wrap(domain.KindUpstreamServerError, cause, "upstream server error (%d)", status)
	default:
		return domain.Wrap(domain.KindUpstreamBadRequest, cause, "upstream rejected request (%d)", status)
	}
}

func (d *Dispatcher) backoff(attempt int, kind domain.Kind) time.Duration {
	base := d.cfg.BackoffBase
	limit := d.cfg.BackoffCap
	if kind == domain.KindRateLimited {
		base = time.Second
		limit = rateLimitBackoffCap
	}
	backoff := base * time.Duration(1<<uint(attempt))
	if backoff > limit {
		backoff = limit
	}
	return backoff
}

func applyAuth(ctx context.Context, req *http.Request, body []byte, tmpl *domain.ProviderTemplate, cred *domain.Credential) error {
	switch tmpl.AuthType {
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+cred.APIKey)
		return nil

	case domain.AuthHeaderKey:
		header := tmpl.AuthHeader
		if header == "" {
			header = "x-api-key"
		}
		req.Header.Set(header, cred.APIKey)
		return nil

	case domain.AuthSigned:
		hash := sha256.Sum256(body)
		signer := v4.NewSigner()
		return signer.SignHTTP(ctx, aws.Credentials{
			AccessKeyID:     cred.AccessKeyID,
			SecretAccessKey: cred.SecretAccessKey,
			SessionToken:    cred.SessionToken,
		}, req, hex.EncodeToString(hash[:]), "bedrock", cred.Region, time.Now())

	default:
		return errors.New("unknown auth type " + tmpl.AuthType)
	}
}

// buildURL joins the template's base URL and endpoint path, substituting the
// endpoint's model id into a {model} placeholder when the provider carries
// the model in the path.
func buildURL(tmpl *domain.ProviderTemplate, ep *domain.EndpointConfig) string {
	path := strings.ReplaceAll(tmpl.EndpointPath, "{model}", ep.ModelID)
	return strings.TrimRight(tmpl.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func isTimeout(err error) bool {
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func marshalBody(body any) ([]byte, error) {
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}
