package jwtware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubValidator struct{}

func (stubValidator) Validate(ctx context.Context, tokenString string) (AuthClaims, error) {
	return nil, nil
}

func TestGetExtractorsParsesLookupString(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		count  int
	}{
		{"single header source", "header:Authorization", 1},
		{"header and query", "header:Authorization,query:token", 2},
		{"all four sources", "header:Authorization,cookie:jwt,query:auth_token,param:token", 4},
		{"whitespace around parts", " header : Authorization , cookie : jwt ", 2},
		{"unknown source is skipped", "body:token", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			extractors := GetExtractors(tc.lookup, "Bearer")
			assert.Len(t, extractors, tc.count)
		})
	}
}

func TestGetDefaultConfigFillsDefaults(t *testing.T) {
	cfg := GetDefaultConfig(Config{TokenValidator: stubValidator{}})

	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, defaultTokenLookup, cfg.TokenLookup)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.NotNil(t, cfg.SuccessHandler)
	assert.NotNil(t, cfg.ErrorHandler)
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		GetDefaultConfig(Config{})
	})
}
