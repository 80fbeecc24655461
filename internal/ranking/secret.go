package ranking

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrForbidden is returned when a rebuild request carries a wrong secret.
var ErrForbidden = errors.New("forbidden")

// Secret guards the rebuild endpoint. Either a plain shared secret or a
// bcrypt hash of it may be configured; with neither, every check fails.
type Secret struct {
	Plain string
	Hash  string
}

func (s Secret) Configured() bool {
	return s.Plain != "" || s.Hash != ""
}

func (s Secret) Check(given string) error {
	if given == "" || !s.Configured() {
		return ErrForbidden
	}
	if s.Hash != "" && bcrypt.CompareHashAndPassword([]byte(s.Hash), []byte(given)) == nil {
		return nil
	}
	if s.Plain != "" && subtle.ConstantTimeCompare([]byte(s.Plain), []byte(given)) == 1 {
		return nil
	}
	return ErrForbidden
}

// HashSecret produces a value suitable for Secret.Hash.
func HashSecret(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
