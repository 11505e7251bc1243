package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentforge/llm-gateway/internal/gateway"
	"github.com/agentforge/llm-gateway/internal/server/validator"
	"github.com/agentforge/llm-gateway/pkg/api"
)

type InvokeHandler struct {
	service gateway.Service
}

func NewInvokeHandler(service gateway.Service) *InvokeHandler {
	return &InvokeHandler{service: service}
}

// Invoke accepts a unified chat request, routes it to the configured
// upstream provider, and returns the unified response.
func (h *InvokeHandler) Invoke(c *gin.Context) {
	var req api.UnifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// returns RFC compliant error
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	resp, err := h.service.ProcessRequest(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
