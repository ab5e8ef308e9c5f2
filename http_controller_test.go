package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/identity"
)

func TestRegisterPayloadValidate(t *testing.T) {
	valid := identity.RegisterPayload{
		FirstName: "Pepe",
		LastName:  "Rone",
		Email:     "pepe.rone@example.com",
		Password:  "secret-password",
	}

	tests := []struct {
		name    string
		mutate  func(p *identity.RegisterPayload)
		wantErr bool
	}{
		{"valid payload", func(p *identity.RegisterPayload) {}, false},
		{"missing first name", func(p *identity.RegisterPayload) { p.FirstName = "" }, true},
		{"first name too short", func(p *identity.RegisterPayload) { p.FirstName = "P" }, true},
		{"last name too long", func(p *identity.RegisterPayload) {
			p.LastName = "Roooooooooooooooooooooooooooooooooooooooooooooooone"
		}, true},
		{"missing email", func(p *identity.RegisterPayload) { p.Email = "" }, true},
		{"malformed email", func(p *identity.RegisterPayload) { p.Email = "not-an-email" }, true},
		{"password too short", func(p *identity.RegisterPayload) { p.Password = "short" }, true},
		{"six char password passes", func(p *identity.RegisterPayload) { p.Password = "sixsix" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifyOTPPayloadValidate(t *testing.T) {
	valid := identity.VerifyOTPPayload{
		Email: "pepe.rone@example.com",
		OTP:   "123456",
	}

	tests := []struct {
		name    string
		mutate  func(p *identity.VerifyOTPPayload)
		wantErr bool
	}{
		{"valid payload", func(p *identity.VerifyOTPPayload) {}, false},
		{"missing otp", func(p *identity.VerifyOTPPayload) { p.OTP = "" }, true},
		{"otp too short", func(p *identity.VerifyOTPPayload) { p.OTP = "12345" }, true},
		{"otp too long", func(p *identity.VerifyOTPPayload) { p.OTP = "1234567" }, true},
		{"otp with letters", func(p *identity.VerifyOTPPayload) { p.OTP = "12a456" }, true},
		{"missing email", func(p *identity.VerifyOTPPayload) { p.Email = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoginPayloadValidate(t *testing.T) {
	assert.NoError(t, identity.LoginPayload{Email: "a@b.co", Password: "x"}.Validate())
	assert.Error(t, identity.LoginPayload{Email: "", Password: "x"}.Validate())
	assert.Error(t, identity.LoginPayload{Email: "a@b.co", Password: ""}.Validate())
	assert.Error(t, identity.LoginPayload{Email: "nope", Password: "x"}.Validate())
}

func TestResendOTPPayloadValidate(t *testing.T) {
	assert.NoError(t, identity.ResendOTPPayload{Email: "a@b.co"}.Validate())
	assert.Error(t, identity.ResendOTPPayload{Email: ""}.Validate())
}

func TestProfileUpdatePayloadValidate(t *testing.T) {
	assert.NoError(t, identity.ProfileUpdatePayload{FirstName: "Pepe", LastName: "Rone"}.Validate())
	assert.Error(t, identity.ProfileUpdatePayload{FirstName: "", LastName: "Rone"}.Validate())
	assert.Error(t, identity.ProfileUpdatePayload{FirstName: "P", LastName: "Rone"}.Validate())
}

func TestFormatValidationErrorToMap(t *testing.T) {
	err := identity.RegisterPayload{Email: "nope", Password: "secret-password"}.Validate()
	assert.Error(t, err)

	m := identity.FormatValidationErrorToMap(err)
	assert.Contains(t, m, "email")
	assert.Contains(t, m, "first_name")
	assert.NotContains(t, m, "password")

	assert.Empty(t, identity.FormatValidationErrorToMap(nil))
}

func newTestAuthController(t *testing.T, repo *MockRepositoryManager, notifier *MockNotifier, tokens identity.TokenService) *identity.AuthController {
	t.Helper()

	provider := identity.NewCredentialProvider(repo)
	httpAuth, err := identity.NewHTTPAuthenticator(identity.NewAuthenticator(provider, tokens), testConfig{})
	require.NoError(t, err)

	return identity.NewAuthController(
		identity.WithControllerRepo(repo),
		identity.WithControllerAuther(httpAuth),
		identity.WithControllerConfig(testConfig{}),
		identity.WithControllerNotifier(notifier),
		identity.WithControllerTokens(tokens),
	)
}

// Completing verification opens the first session: the response carries a
// freshly minted token alongside the public credential.
func TestVerifyOTPIssuesSessionToken(t *testing.T) {
	now := time.Now()
	code := "123456"

	cred := &identity.Credential{
		ID:           uuid.New(),
		FirstName:    "Pepe",
		LastName:     "Rone",
		Email:        "pepe.rone@example.com",
		OTPCode:      strptr(code),
		OTPExpiresAt: timeptr(now.Add(identity.OTPLifetime)),
	}

	repo := NewMockRepositoryManager()
	repo.credentials.On("GetByEmailTx", mock.Anything, cred.Email).Return(cred, nil)
	repo.credentials.On("ConsumeOTPAndVerifyTx", mock.Anything, cred.ID, code).Return(true, nil)

	notifier := &MockNotifier{}
	notifier.On("Send", mock.Anything, identity.NotificationWelcome, cred.Email, mock.Anything).Return(nil)

	tokens := identity.NewTokenService([]byte(testConfig{}.GetSigningKey()), 168, "identityd", nil, nil)
	controller := newTestAuthController(t, repo, notifier, tokens)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		p := args.Get(0).(*identity.VerifyOTPPayload)
		p.Email = cred.Email
		p.OTP = code
	}).Return(nil)
	ctx.On("Context").Return(context.Background())

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.VerifyOTP(ctx))
	require.NotNil(t, payload)

	token, ok := payload["token"].(string)
	require.True(t, ok, "response carries a session token")
	require.NotEmpty(t, token)

	user, ok := payload["user"].(*identity.PublicCredential)
	require.True(t, ok, "response carries the public credential")
	assert.Equal(t, cred.Email, user.Email)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, cred.ID.String(), claims.Subject())
	assert.Equal(t, cred.Email, claims.Email())
}

func TestVerifyOTPExpiredCodeIssuesNoToken(t *testing.T) {
	now := time.Now()
	code := "123456"

	cred := &identity.Credential{
		ID:           uuid.New(),
		FirstName:    "Pepe",
		LastName:     "Rone",
		Email:        "pepe.rone@example.com",
		OTPCode:      strptr(code),
		OTPExpiresAt: timeptr(now.Add(-time.Minute)),
	}

	repo := NewMockRepositoryManager()
	repo.credentials.On("GetByEmailTx", mock.Anything, cred.Email).Return(cred, nil)

	notifier := &MockNotifier{}
	tokens := identity.NewTokenService([]byte(testConfig{}.GetSigningKey()), 168, "identityd", nil, nil)
	controller := newTestAuthController(t, repo, notifier, tokens)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		p := args.Get(0).(*identity.VerifyOTPPayload)
		p.Email = cred.Email
		p.OTP = code
	}).Return(nil)
	ctx.On("Context").Return(context.Background())

	var status int
	var payload map[string]any
	ctx.On("JSON", mock.AnythingOfType("int"), mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.VerifyOTP(ctx))
	assert.Equal(t, router.StatusBadRequest, status)
	_, hasToken := payload["token"]
	assert.False(t, hasToken)
	repo.credentials.AssertNotCalled(t, "ConsumeOTPAndVerifyTx", mock.Anything, mock.Anything, mock.Anything)
}
