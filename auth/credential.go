package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/stephnangue/gatehouse/logger"
	"github.com/stephnangue/gatehouse/principal"
)

// bcrypt hash prefixes that mark an already-upgraded credential.
var bcryptPrefixes = []string{"$2a$", "$2b$"}

// CredentialVerifier checks a presented password against a principal's
// stored credential. Stored values without a bcrypt prefix are treated
// as legacy plaintext-equivalent credentials and upgraded to bcrypt in
// place on the first successful match.
type CredentialVerifier struct {
	store principal.Store
	log   logger.Logger
}

// NewCredentialVerifier creates a verifier backed by the given store.
func NewCredentialVerifier(store principal.Store, log logger.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		store: store,
		log:   log.WithSubsystem("credential"),
	}
}

// Verify reports whether the presented password matches the stored
// credential. It never returns an error: any mismatch, including an
// absent stored credential, is false.
func (c *CredentialVerifier) Verify(ctx context.Context, p *principal.Principal, presented string) bool {
	stored := p.PasswordHash
	if stored == "" {
		return false
	}

	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}

	// Legacy plaintext-equivalent credential: exact equality, constant
	// time. Upgrade happens only on a match, never on a mismatch.
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return false
	}

	upgraded, err := HashPassword(presented)
	if err != nil {
		c.log.Error("legacy credential upgrade failed", logger.Err(err),
			logger.String("principal_id", p.ID))
		return true
	}
	if err := c.store.UpdatePasswordHash(ctx, p.ID, upgraded); err != nil {
		c.log.Error("persisting upgraded credential failed", logger.Err(err),
			logger.String("principal_id", p.ID))
		return true
	}
	p.PasswordHash = upgraded
	return true
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(stored string) bool {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(stored, prefix) {
			return true
		}
	}
	return false
}
