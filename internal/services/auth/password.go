package auth

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Legacy "salt:hash" PBKDF2 parameters
const (
	pbkdf2Iterations = 10000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 32
)

type passwordScheme int

const (
	schemePlaintext passwordScheme = iota
	schemeBcrypt
	schemePBKDF2
)

func detectScheme(stored string) passwordScheme {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return schemeBcrypt
		}
	}
	if _, _, ok := splitPBKDF2(stored); ok {
		return schemePBKDF2
	}
	return schemePlaintext
}

func splitPBKDF2(stored string) (salt, hash []byte, ok bool) {
	saltB64, hashB64, found := strings.Cut(stored, ":")
	if !found {
		return nil, nil, false
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil || len(salt) != pbkdf2SaltLen {
		return nil, nil, false
	}
	hash, err = base64.StdEncoding.DecodeString(hashB64)
	if err != nil || len(hash) != pbkdf2KeyLen {
		return nil, nil, false
	}
	return salt, hash, true
}

// checkPassword compares password against a stored value, which may be a
// bcrypt hash, a PBKDF2 "salt:hash" pair or plaintext
func checkPassword(stored, password string) bool {
	switch detectScheme(stored) {
	case schemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	case schemePBKDF2:
		salt, want, _ := splitPBKDF2(stored)
		got := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha1.New)
		return subtle.ConstantTimeCompare(got, want) == 1
	default:
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	}
}

// HashPassword returns a bcrypt hash suitable for the credentials file
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
