package auth

import (
	"crypto/sha1"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestCheckPasswordPlaintext(t *testing.T) {
	assert.True(t, checkPassword("admin123", "admin123"))
	assert.False(t, checkPassword("admin123", "admin1234"))
	assert.False(t, checkPassword("admin123", ""))
}

func TestCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.Equal(t, schemeBcrypt, detectScheme(hash))
	assert.True(t, checkPassword(hash, "s3cret"))
	assert.False(t, checkPassword(hash, "S3cret"))
}

func TestCheckPasswordPBKDF2(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := pbkdf2.Key([]byte("legacy"), salt, pbkdf2Iterations, pbkdf2KeyLen, sha1.New)
	stored := base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(key)

	assert.Equal(t, schemePBKDF2, detectScheme(stored))
	assert.True(t, checkPassword(stored, "legacy"))
	assert.False(t, checkPassword(stored, "Legacy"))
}

func TestColonInPlaintextIsNotPBKDF2(t *testing.T) {
	assert.Equal(t, schemePlaintext, detectScheme("pass:word"))
	assert.True(t, checkPassword("pass:word", "pass:word"))
}
