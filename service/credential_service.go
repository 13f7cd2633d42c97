package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

// DefaultCredentialTTL is how long issued credentials stay valid
const DefaultCredentialTTL = 12 * time.Hour

// Config is fixed at startup and never mutated afterwards
type Config struct {
	CredentialTTL time.Duration
	URIs          []string
	RateLimit     int
	RateWindow    time.Duration
}

// CredentialService issues and verifies TURN REST API credentials
type CredentialService struct {
	signer   ports.Signer
	clock    ports.Clock
	limiter  ports.Limiter
	eventPub ports.EventPublisher

	ttl        time.Duration
	uris       []string
	rateLimit  int
	rateWindow time.Duration
}

// NewCredentialService creates a new credential service. limiter and eventPub may be nil.
func NewCredentialService(
	cfg Config,
	signer ports.Signer,
	clock ports.Clock,
	limiter ports.Limiter,
	eventPub ports.EventPublisher,
) *CredentialService {
	ttl := cfg.CredentialTTL
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}

	return &CredentialService{
		signer:     signer,
		clock:      clock,
		limiter:    limiter,
		eventPub:   eventPub,
		ttl:        ttl,
		uris:       append([]string(nil), cfg.URIs...),
		rateLimit:  cfg.RateLimit,
		rateWindow: cfg.RateWindow,
	}
}

// TTL returns the validity window of issued credentials
func (s *CredentialService) TTL() time.Duration {
	return s.ttl
}

// IssueCredential generates a credential that expires TTL from now.
// subject identifies the caller for rate limiting and auditing only.
func (s *CredentialService) IssueCredential(ctx context.Context, subject string) (*core.TurnCredential, error) {
	if err := s.checkRate(ctx, subject); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if now.IsZero() {
		return nil, core.ErrClockUnavailable
	}

	username := core.FormatUsername(now.Add(s.ttl))

	credential, err := s.signer.Sign(username)
	if err != nil {
		return nil, fmt.Errorf("failed to sign username: %w", err)
	}

	cred := &core.TurnCredential{
		Username:   username,
		Credential: credential,
		TTL:        s.ttl,
		IssuedAt:   now,
		URIs:       s.uris,
	}

	if s.eventPub != nil {
		expiresAt, _ := cred.ExpiresAt()
		event := core.IssuedEvent{
			Subject:   subject,
			Username:  username,
			ExpiresAt: expiresAt,
			IssuedAt:  now,
		}
		if err := s.eventPub.PublishIssued(ctx, event); err != nil {
			// the credential is valid regardless of the audit trail
			log.WithError(err).Warn("failed to publish credential issued event")
		}
	}

	return cred, nil
}

func (s *CredentialService) checkRate(ctx context.Context, subject string) error {
	if s.limiter == nil || s.rateLimit <= 0 {
		return nil
	}

	allowed, err := s.limiter.Allow(ctx, subject, s.rateLimit, s.rateWindow)
	if err != nil {
		log.WithError(err).Warn("rate limiter unavailable, allowing issuance")
		return nil
	}
	if !allowed {
		return core.ErrRateLimited
	}

	return nil
}

// Authenticate returns the credential a relay expects for username,
// provided the expiry it encodes has not passed
func (s *CredentialService) Authenticate(username string) (string, error) {
	expiresAt, err := core.ParseUsername(username)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	if now.IsZero() {
		return "", core.ErrClockUnavailable
	}

	if now.After(expiresAt) {
		return "", core.ErrCredentialExpired
	}

	credential, err := s.signer.Sign(username)
	if err != nil {
		return "", fmt.Errorf("failed to sign username: %w", err)
	}

	return credential, nil
}

// Verify checks a presented username/credential pair the way a TURN relay does
func (s *CredentialService) Verify(username, credential string) error {
	expected, err := s.Authenticate(username)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(expected), []byte(credential)) != 1 {
		return core.ErrInvalidCredential
	}

	return nil
}

// IsConfigurationError reports whether err means issuance cannot work until reconfigured
func IsConfigurationError(err error) bool {
	return errors.Is(err, core.ErrSecretNotConfigured) || errors.Is(err, core.ErrClockUnavailable)
}
