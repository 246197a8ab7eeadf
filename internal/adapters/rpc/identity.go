package rpc

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

// newIdentity mints the opaque connection identity handed out at handshake.
// Stable for the lifetime of the connection, meaningless afterwards.
func newIdentity() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "qa1" + base58.Encode(buf), nil
}
