package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLen mirrors the register DTO validation; hashing shorter input is
// always a programming error upstream.
const minPasswordLen = 8

type HashServiceInterface interface {
	HashPassword(password string) (string, error)
	ComparePassword(hashedPassword, password string) bool
}

type HashService struct{}

func (b *HashService) HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", errors.New("password is too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *HashService) ComparePassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
