package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

// HMACSigner implements the Signer interface with base64(HMAC-SHA1(secret, username)),
// the password derivation TURN servers apply to time-windowed usernames
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer. An empty secret is accepted here so that
// every Sign call fails closed with core.ErrSecretNotConfigured.
func NewHMACSigner(secret string) ports.Signer {
	return &HMACSigner{secret: []byte(secret)}
}

// Sign computes the credential for username
func (s *HMACSigner) Sign(username string) (string, error) {
	if len(s.secret) == 0 {
		return "", core.ErrSecretNotConfigured
	}

	mac := hmac.New(sha1.New, s.secret)
	if _, err := mac.Write([]byte(username)); err != nil {
		return "", fmt.Errorf("failed to compute hmac: %w", err)
	}

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
