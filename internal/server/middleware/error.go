package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/pkg/api"
)

// ErrorHandler translates errors attached by handlers into responses:
// Problems render as RFC 9457 bodies, domain errors map onto a Problem
// carrying the error kind and originating stage, and anything else becomes
// a plain 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("request failed", zap.Error(problem.Log))
			}
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		var derr *domain.Error
		if errors.As(err, &derr) {
			p := api.NewError(statusFor(derr.Kind), "Gateway Error", derr.Msg,
				api.WithExtension("error_kind", string(derr.Kind)),
				api.WithExtension("stage", string(derr.Stage)),
			)
			if derr.Retries > 0 {
				p.Extensions["retries"] = derr.Retries
			}
			c.JSON(p.Status, p)
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindConfigNotFound, domain.KindNoEnabledEndpoint, domain.KindSecretNotFound:
		return http.StatusNotFound
	case domain.KindAmbiguousSelector, domain.KindUnsupportedToolFormat, domain.KindDanglingToolResult:
		return http.StatusBadRequest
	case domain.KindSecretAccessDenied, domain.KindAuthFailed:
		return http.StatusBadGateway
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
