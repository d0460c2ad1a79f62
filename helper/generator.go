package helper

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/oklog/ulid"
)

// secretBytes is the entropy of a signing secret: 32 bytes, 256 bits.
const secretBytes = 32

// GenerateSecret generates a per-principal signing secret: 32 random
// bytes, hex encoded.
func GenerateSecret() string {
	bytes := make([]byte, secretBytes)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GenerateRandomString generates a cryptographically secure random
// hex string of the given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:length]
}

// GenerateTokenID returns a sortable unique id, used as the jti claim
// of issued tokens.
func GenerateTokenID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
