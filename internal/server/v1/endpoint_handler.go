package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentforge/llm-gateway/internal/gateway"
	"github.com/agentforge/llm-gateway/pkg/api"
)

type EndpointHandler struct {
	service gateway.Service
}

func NewEndpointHandler(service gateway.Service) *EndpointHandler {
	return &EndpointHandler{service: service}
}

// List returns the configured endpoints.
func (h *EndpointHandler) List(c *gin.Context) {
	endpoints, err := h.service.ListEndpoints(c.Request.Context())
	if err != nil {
		_ = c.Error(api.InternalError("Failed to list endpoints", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   endpoints,
	})
}

// Test probes an endpoint with a synthetic request and reports the outcome.
// A failed probe is still a 200: the result carries the failure detail.
func (h *EndpointHandler) Test(c *gin.Context) {
	endpointID := c.Param("id")
	if endpointID == "" {
		_ = c.Error(api.BadRequestError("Missing endpoint id"))
		return
	}

	result := h.service.TestConnection(c.Request.Context(), endpointID)
	c.JSON(http.StatusOK, result)
}
