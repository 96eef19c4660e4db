package devconnect

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for new hashes
var PasswordCost = bcrypt.DefaultCost

// HashPassword will generate a salted password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummyHash burns one bcrypt comparison for emails with no account
func compareDummyHash(password string) {
	dummyHashOnce.Do(func() {
		h, err := HashPassword(uuid.NewString())
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash == "" {
		return
	}
	_ = ComparePasswordAndHash(password, dummyHash)
}

// BcryptAuthenticator adapts the package helpers to PasswordAuthenticator
type BcryptAuthenticator struct{}

func (BcryptAuthenticator) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (BcryptAuthenticator) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}
