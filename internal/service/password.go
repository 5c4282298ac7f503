package service

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	generatedPasswordLength   = 8
	generatedPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// generatePassword returns a random password of uppercase letters and digits.
func generatePassword() (string, error) {
	max := big.NewInt(int64(len(generatedPasswordAlphabet)))
	buf := make([]byte, generatedPasswordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = generatedPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
