package core

import (
	"strconv"
	"strings"
	"time"
)

// TurnCredential is a time-limited TURN REST API credential pair
type TurnCredential struct {
	Username   string        // Expiry as unix seconds, per the TURN REST API convention
	Credential string        // base64(HMAC-SHA1(secret, Username))
	TTL        time.Duration // Validity window from IssuedAt
	IssuedAt   time.Time     // Informational only
	URIs       []string      // TURN servers the credential is meant for
}

// ExpiresAt returns the expiry encoded in the username
func (c *TurnCredential) ExpiresAt() (time.Time, error) {
	return ParseUsername(c.Username)
}

// IssuedEvent describes a successful issuance. It never carries the credential itself.
type IssuedEvent struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// FormatUsername encodes an expiry instant as a TURN REST username
func FormatUsername(expiry time.Time) string {
	return strconv.FormatInt(expiry.Unix(), 10)
}

// ParseUsername decodes the expiry from a TURN REST username.
// Usernames of the form "<expiry>:<user>" are accepted as well.
func ParseUsername(username string) (time.Time, error) {
	ts, _, _ := strings.Cut(username, ":")
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, ErrMalformedUsername
	}

	return time.Unix(sec, 0), nil
}
