package cryptopackage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndCompare(t *testing.T) {
	hash, err := GenerateFromPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := ComparePasswordAndHash("correct horse battery staple", hash)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong password", hash)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := GenerateFromPassword("same password")
	assert.NoError(t, err)
	h2, err := GenerateFromPassword("same password")
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestCompareRejectsMalformedHash(t *testing.T) {
	_, err := ComparePasswordAndHash("password", "not-a-hash")
	assert.Error(t, err)

	_, err = ComparePasswordAndHash("password", "$argon2id$v=19$m=65536$short")
	assert.Error(t, err)
}
