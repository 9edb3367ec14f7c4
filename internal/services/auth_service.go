package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadKey = errors.New("invalid admin key")

// AdminAuth checks the shared admin key against a bcrypt hash. An empty hash
// disables every admin operation.
type AdminAuth struct {
	hash []byte
}

func NewAdminAuth(hash string) *AdminAuth {
	return &AdminAuth{hash: []byte(strings.TrimSpace(hash))}
}

func (a *AdminAuth) Enabled() bool { return len(a.hash) > 0 }

func (a *AdminAuth) Verify(key string) error {
	if !a.Enabled() || key == "" {
		return ErrBadKey
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(key)) != nil {
		return ErrBadKey
	}
	return nil
}

// HashKey produces a value suitable for ADMIN_KEY_HASH.
func HashKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}
