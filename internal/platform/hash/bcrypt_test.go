package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	t.Parallel()
	h := NewBcrypt(bcrypt.MinCost)

	digest, err := h.Hash("SecurePassword123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2"), "bcrypt digests start with $2")
	assert.NotEqual(t, "SecurePassword123", digest)

	assert.NoError(t, h.Compare(digest, "SecurePassword123"))
	assert.Error(t, h.Compare(digest, "wrong-password"))
}

func TestBcrypt_RandomSalt(t *testing.T) {
	t.Parallel()
	h := NewBcrypt(bcrypt.MinCost)

	d1, err := h.Hash("same-password")
	require.NoError(t, err)
	d2, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestBcrypt_IsDigest(t *testing.T) {
	t.Parallel()
	h := NewBcrypt(bcrypt.MinCost)
	digest, err := h.Hash("password123")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "digest", in: digest, want: true},
		{name: "plaintext", in: "password123", want: false},
		{name: "empty", in: "", want: false},
		{name: "dollar prefix only", in: "$2a$10$short", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.IsDigest(tt.in))
		})
	}
}

func TestNewBcrypt_CostOutOfRange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcrypt(12).cost)
}
