package ports

// Signer computes the shared-secret credential for a TURN username
type Signer interface {
	Sign(username string) (string, error)
}
