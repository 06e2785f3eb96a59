// Package security hashes and checks user passwords.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch means the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrPasswordTooLong  = fmt.Errorf("password longer than %d bytes", MaxPasswordBytes)
)

const (
	// Cost is the bcrypt work factor for new hashes.
	Cost = 12
	// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
	MaxPasswordBytes = 72
)

func HashPassword(pw string) (string, error) {
	if len(pw) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// ComparePassword returns ErrPasswordMismatch for a wrong password and other
// errors for a hash that cannot be read.
func ComparePassword(hash, pw string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
