// Password hashing for stored credentials.
//
// New passwords are hashed with bcrypt, which salts every hash and embeds
// the salt and cost in its output:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version
//
// Credential files written by the earlier version of the application store
// an unsalted SHA-256 hex digest instead. Those still verify, and
// NeedsRehash reports them so the login path can replace them with bcrypt.

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used when none is configured.
const defaultCost = 12

// legacyDigestLen is the length of a hex-encoded SHA-256 digest.
const legacyDigestLen = sha256.Size * 2

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
type PasswordService struct {
	cost int
}

// NewPasswordServiceWithCost creates a PasswordService with the configured
// cost. Values outside bcrypt's accepted range fall back to the default.
// Tests pass bcrypt.MinCost to keep hashing fast.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns an error if the plaintext is longer than bcrypt's 72-byte limit.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates passwords longer than 72 bytes.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored hash.
//
// Returns nil if they match, ErrPasswordMismatch if they don't, and any
// other error when the stored hash is unreadable.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if isLegacyDigest(hash) {
		if subtle.ConstantTimeCompare([]byte(LegacyDigest(plaintext)), []byte(hash)) == 1 {
			return nil
		}
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// NeedsRehash reports whether hash should be replaced by a fresh bcrypt
// hash: legacy SHA-256 digests, and bcrypt hashes made at another cost.
func (p *PasswordService) NeedsRehash(hash string) bool {
	if isLegacyDigest(hash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != p.cost
}

// LegacyDigest is the unsalted SHA-256 hex digest used by old credential
// files. It exists only to verify those records.
func LegacyDigest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func isLegacyDigest(hash string) bool {
	if len(hash) != legacyDigestLen {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
