package coordinator

import "math/rand"

const (
	identifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	identifierLength   = 15
)

// newIdentifier returns the random correlation id attached to a fresh report.
// The channel may override it with its own id in the submit acknowledgement.
func newIdentifier() string {
	b := make([]byte, identifierLength)
	for i := range b {
		b[i] = identifierAlphabet[rand.Intn(len(identifierAlphabet))]
	}
	return string(b)
}
