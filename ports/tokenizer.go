package ports

import "time"

// Tokenizer converts between session subjects and bearer tokens
type Tokenizer interface {
	SubjectToToken(subject string, ttl time.Duration) (string, error)
	TokenToSubject(token string) (string, error)
}
