// Package auth provides credential primitives for user registration.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// PASSWORD HASHER
// ══════════════════════════════════════════════════════════════════════════════

// ErrPasswordMismatch is returned by Verify for a wrong password.
var ErrPasswordMismatch = errors.New("auth: password does not match")

// PasswordHasher hashes passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

// Verify checks password against hash.
func (h *PasswordHasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// PASS CODES
// ══════════════════════════════════════════════════════════════════════════════

// PassCodeGenerator issues numeric assistant pass codes.
type PassCodeGenerator struct {
	length int
}

// NewPassCodeGenerator creates a generator; length <= 0 means 6 digits.
func NewPassCodeGenerator(length int) *PassCodeGenerator {
	if length <= 0 {
		length = 6
	}
	return &PassCodeGenerator{length: length}
}

var ten = big.NewInt(10)

// Generate returns a random code of decimal digits. Leading zeros are kept.
func (g *PassCodeGenerator) Generate() (string, error) {
	code := make([]byte, g.length)
	for i := range code {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("auth: generate pass code: %w", err)
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}
