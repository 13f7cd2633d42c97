package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/service"
)

// CredentialResponse is the JSON body returned to streaming clients
type CredentialResponse struct {
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	TTL        int64    `json:"ttl"`
	Timestamp  int64    `json:"timestamp"`
	URIs       []string `json:"uris,omitempty"`
}

// CredentialHandlers contains HTTP handlers for credential endpoints
type CredentialHandlers struct {
	credentialService *service.CredentialService
	metrics           *Metrics
}

// NewCredentialHandlers creates new credential handlers
func NewCredentialHandlers(credentialService *service.CredentialService, metrics *Metrics) *CredentialHandlers {
	return &CredentialHandlers{
		credentialService: credentialService,
		metrics:           metrics,
	}
}

// TurnCredentials issues a fresh TURN credential
func (h *CredentialHandlers) TurnCredentials(c *gin.Context) {
	cred, err := h.credentialService.IssueCredential(c.Request.Context(), subjectFrom(c))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "failed to generate credentials"
		reason := "internal"

		switch {
		case errors.Is(err, core.ErrRateLimited):
			statusCode = http.StatusTooManyRequests
			errorMsg = "too many requests"
			reason = "rate_limited"
		case service.IsConfigurationError(err):
			reason = "configuration"
			log.WithError(err).Error("credential issuance is misconfigured")
		default:
			log.WithError(err).Error("failed to issue turn credential")
		}

		h.metrics.failed(reason)
		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	h.metrics.issued()

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, CredentialResponse{
		Username:   cred.Username,
		Credential: cred.Credential,
		TTL:        int64(cred.TTL.Seconds()),
		Timestamp:  cred.IssuedAt.UnixMilli(),
		URIs:       cred.URIs,
	})
}

// Health reports liveness
func (h *CredentialHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
