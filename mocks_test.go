package identity_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/coursekit/identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockCredentials stubs the credential repository. It embeds the interface so
// only the methods a test exercises need expectations.
type MockCredentials struct {
	identity.Credentials
	mock.Mock
}

func (m *MockCredentials) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*identity.Credential, error) {
	args := m.Called(ctx, email)
	if cred, ok := args.Get(0).(*identity.Credential); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentials) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*identity.Credential, error) {
	args := m.Called(ctx, email)
	if cred, ok := args.Get(0).(*identity.Credential); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentials) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*identity.Credential, error) {
	args := m.Called(ctx, id)
	if cred, ok := args.Get(0).(*identity.Credential); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentials) Register(ctx context.Context, record *identity.Credential) (*identity.Credential, error) {
	args := m.Called(ctx, record)
	if cred, ok := args.Get(0).(*identity.Credential); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

// RegisterTx echoes the inserted record when the expectation returns a nil
// credential with no error, matching what the real repository does.
func (m *MockCredentials) RegisterTx(ctx context.Context, tx bun.IDB, record *identity.Credential) (*identity.Credential, error) {
	args := m.Called(ctx, record)
	if cred, ok := args.Get(0).(*identity.Credential); ok {
		return cred, args.Error(1)
	}
	if args.Error(1) == nil {
		return record, nil
	}
	return nil, args.Error(1)
}

func (m *MockCredentials) SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, id, code, expiresAt)
	return args.Error(0)
}

func (m *MockCredentials) SetOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, id, code, expiresAt)
	return args.Error(0)
}

func (m *MockCredentials) ConsumeOTPAndVerify(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, id, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentials) ConsumeOTPAndVerifyTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, id, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentials) RecordFailure(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCredentials) RecordSuccess(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRepositoryManager implements identity.RepositoryManager backed fully by
// mocks. RunInTx runs the function with a zero transaction, so no database is
// touched.
type MockRepositoryManager struct {
	credentials *MockCredentials
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		credentials: &MockCredentials{},
	}
}

func (m *MockRepositoryManager) Credentials() identity.Credentials {
	return m.credentials
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}

// MockNotifier records outbound notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, kind identity.NotificationKind, toEmail string, payload map[string]any) error {
	args := m.Called(ctx, kind, toEmail, payload)
	return args.Error(0)
}

// MockTokenService implements identity.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(id identity.Identity) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) SignClaims(claims *identity.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (identity.AuthClaims, error) {
	args := m.Called(tokenString)
	if claims, ok := args.Get(0).(identity.AuthClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if id, ok := args.Get(0).(identity.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByID(ctx context.Context, id uuid.UUID) (identity.Identity, error) {
	args := m.Called(ctx, id)
	if ident, ok := args.Get(0).(identity.Identity); ok {
		return ident, args.Error(1)
	}
	return nil, args.Error(1)
}

// testConfig is a canned identity.Config for wiring auth components in tests.
type testConfig struct{}

func (testConfig) GetSigningKey() string    { return "test-signing-key-0123456789" }
func (testConfig) GetSigningMethod() string { return "HS256" }
func (testConfig) GetContextKey() string    { return "user" }
func (testConfig) GetTokenExpiration() int  { return 168 }
func (testConfig) GetTokenLookup() string   { return "header:Authorization" }
func (testConfig) GetAuthScheme() string    { return "Bearer" }
func (testConfig) GetIssuer() string        { return "identityd" }
func (testConfig) GetAudience() []string    { return nil }

// testIdentity is a plain identity.Identity value for tests.
type testIdentity struct {
	id       string
	email    string
	verified bool
}

func (t testIdentity) ID() string     { return t.id }
func (t testIdentity) Email() string  { return t.email }
func (t testIdentity) Verified() bool { return t.verified }

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }
