package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther issues and validates session tokens backed by live credential
// records.
type Auther struct {
	provider IdentityProvider
	tokens   TokenService
	logger   Logger
}

func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider: provider,
		tokens:   tokens,
		logger:   defLogger{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Login authenticates the email and password pair and mints a session token
// for the resolved identity.
func (a *Auther) Login(ctx context.Context, email, password string) (string, Identity, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := a.tokens.Generate(identity)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	return token, identity, nil
}

// IdentityFromToken validates the raw token and re-resolves the credential
// it names. A token whose record was deleted or un-verified since issuance
// is rejected, which is how sessions get revoked.
func (a *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		a.logger.Debug("identity from token: bad subject: %v", err)
		return nil, ErrInvalidToken
	}

	identity, err := a.provider.FindIdentityByID(ctx, id)
	if err != nil {
		if goerrors.Is(err, ErrCredentialNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if !identity.Verified() {
		return nil, ErrInvalidToken
	}

	return identity, nil
}
