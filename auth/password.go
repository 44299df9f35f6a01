// Package auth protects the update endpoint: bcrypt-hashed API keys, signed
// bearer tokens and a journal of applied updates.
package auth

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// MinAPIKeyLength is the shortest key hash-key accepts
	MinAPIKeyLength = 16
)

var validSubject = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)

// HashAPIKey hashes a key using bcrypt
func HashAPIKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckAPIKey verifies a key against a bcrypt hash
func CheckAPIKey(key, hash string) bool {
	if key == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// ValidateAPIKey checks that a key is long enough to be worth hashing
func ValidateAPIKey(key string) error {
	if len(key) < MinAPIKeyLength {
		return errors.New("API key is too short")
	}
	return nil
}

// ValidateSubject checks the subject name put into a token
func ValidateSubject(subject string) error {
	if len(subject) < 3 {
		return errors.New("subject must be at least 3 characters")
	}
	if len(subject) > 50 {
		return errors.New("subject must be at most 50 characters")
	}
	if !validSubject.MatchString(subject) {
		return errors.New("subject can only contain letters, numbers, '.', '@', underscore, and hyphen")
	}
	return nil
}
