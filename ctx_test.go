package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/identity"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	who := &testIdentity{id: "11111111-2222-3333-4444-555555555555", email: "peyton@example.com", verified: true}

	ctx := identity.WithIdentityContext(context.Background(), who)

	got, ok := identity.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, who.ID(), got.ID())
	assert.Equal(t, who.Email(), got.Email())
}

func TestIdentityFromContextMissing(t *testing.T) {
	_, ok := identity.IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	who := &testIdentity{id: "11111111-2222-3333-4444-555555555555", email: "peyton@example.com", verified: true}
	claims := identity.NewSessionClaims(who)

	ctx := identity.WithClaimsContext(context.Background(), claims)

	got, ok := identity.ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, who.ID(), got.UserID())
	assert.Equal(t, who.Email(), got.Email())
}

func TestClaimsFromContextMissing(t *testing.T) {
	_, ok := identity.ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
