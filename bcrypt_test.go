package identity_test

import (
	"testing"

	"github.com/coursekit/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := identity.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = identity.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := identity.HashPassword("correct-horse")
	require.NoError(t, err)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, identity.ComparePasswordAndHash("correct-horse", hash))
	})

	t.Run("wrong password comes back as invalid credentials", func(t *testing.T) {
		err := identity.ComparePasswordAndHash("battery-staple", hash)
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("garbage hash", func(t *testing.T) {
		err := identity.ComparePasswordAndHash("correct-horse", "not-a-bcrypt-hash")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}
