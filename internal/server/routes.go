package server

import (
	"github.com/agentforge/llm-gateway/internal/server/middleware"
	v1 "github.com/agentforge/llm-gateway/internal/server/v1"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Tracing("llm-gateway"))
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	api.Use(middleware.RateLimit(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger))
	{
		invokeHandler := v1.NewInvokeHandler(s.service)
		api.POST("/invoke", invokeHandler.Invoke)

		endpointHandler := v1.NewEndpointHandler(s.service)
		api.GET("/endpoints", endpointHandler.List)
		api.POST("/endpoints/:id/test", endpointHandler.Test)
	}
}
