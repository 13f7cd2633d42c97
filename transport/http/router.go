package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runash/turnauth/ports"
	"github.com/runash/turnauth/service"
)

// SetupRouter sets up the Gin router. tokenizer may be nil to serve credentials without session auth.
// Forwarding headers are honoured only from trustedProxies; nil trusts none.
func SetupRouter(
	credentialService *service.CredentialService,
	tokenizer ports.Tokenizer,
	reg *prometheus.Registry,
	trustedProxies []string,
) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), LoggingMiddleware())

	handlers := NewCredentialHandlers(credentialService, NewMetrics(reg))

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer))
	{
		api.GET("/turn-credentials", handlers.TurnCredentials)
	}

	return router, nil
}
