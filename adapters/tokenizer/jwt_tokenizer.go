package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/runash/turnauth/core"
	"github.com/runash/turnauth/ports"
)

const AudienceSession = "runash:session"

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	signKey []byte
	now     func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey []byte) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, now: time.Now}
}

// SubjectToToken issues a session token for subject
func (j *JWTTokenizer) SubjectToToken(subject string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// TokenToSubject validates a session token and returns its subject
func (j *JWTTokenizer) TokenToSubject(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.signKey, nil
	},
		jwt.WithAudience(AudienceSession),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", core.ErrTokenExpired
		}
		return "", fmt.Errorf("failed to parse session token: %w", core.ErrInvalidToken)
	}

	if !token.Valid {
		return "", core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return "", core.ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject: %w", core.ErrInvalidToken)
	}

	return claims.Subject, nil
}
