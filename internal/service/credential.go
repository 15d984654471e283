package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialGuard hashes and checks file passwords. It holds no mutable
// state and is safe for concurrent use.
type CredentialGuard struct {
	cost int
}

// NewCredentialGuard returns a guard hashing at the given bcrypt cost.
// Out of range costs fall back to bcrypt.DefaultCost.
func NewCredentialGuard(cost int) *CredentialGuard {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialGuard{cost: cost}
}

// Protect hashes a raw password.
func (g *CredentialGuard) Protect(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), g.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", ErrInvalidInput)
		}
		return "", err
	}
	return string(hash), nil
}

// Verify compares raw against hash. A mismatch is (false, nil); only a
// malformed hash is an error.
func (g *CredentialGuard) Verify(raw, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: password hash: %v", ErrCorruptState, err)
	}
}
