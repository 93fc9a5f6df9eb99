// Package random supplies the opaque tokens handed out as session ids
package random

import (
	"crypto/rand"
)

// TokenAlphabet is the URL- and cookie-safe alphabet tokens are drawn from
const TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// rejectAbove is the largest multiple of len(TokenAlphabet) that fits a byte.
// Bytes at or above it are discarded so every symbol is equally likely.
const rejectAbove = 256 - 256%len(TokenAlphabet)

// Random produces session tokens
type Random interface {
	// Token returns n symbols from TokenAlphabet
	Token(n int) string
}

// CryptoRandom draws tokens from crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token returns n uniformly chosen symbols from TokenAlphabet
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		// crypto/rand.Read never returns an error on supported platforms
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
