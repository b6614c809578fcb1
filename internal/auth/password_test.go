package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPassword("s3cret-password", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
	assert.False(t, CheckPassword("s3cret-password", "not-a-bcrypt-hash"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	first, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	second, err := HashPassword("s3cret-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword("s3cret-password", first))
	assert.True(t, CheckPassword("s3cret-password", second))
}
