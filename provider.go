package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// CredentialProvider verifies submitted credentials against the store and
// records the outcome of every password check.
type CredentialProvider struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewCredentialProvider(repo RepositoryManager) *CredentialProvider {
	return &CredentialProvider{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (p *CredentialProvider) WithLogger(logger Logger) *CredentialProvider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func (p *CredentialProvider) WithClock(clock func() time.Time) *CredentialProvider {
	if clock != nil {
		p.now = clock
	}
	return p
}

// VerifyIdentity authenticates an email and password pair. An unknown email
// and a wrong password both come back as ErrInvalidCredentials so callers
// cannot tell which addresses are registered. A locked account rejects
// before the password is even checked, and a failed password check is
// recorded against the lockout counter.
func (p *CredentialProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	addr := NormalizeEmail(email)

	cred, err := p.repo.Credentials().GetByEmail(ctx, addr)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			p.logger.Debug("verify identity: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch credential")
	}

	now := p.now()

	if cred.IsLocked(now) {
		p.logger.Info("verify identity: account locked email=%s until=%s", addr, cred.LockedUntil)
		return nil, ErrAccountLocked
	}

	if !cred.EmailValidated {
		return nil, ErrNotVerified
	}

	if err := ComparePasswordAndHash(password, cred.PasswordHash); err != nil {
		if rerr := p.repo.Credentials().RecordFailure(ctx, cred.ID); rerr != nil {
			p.logger.Error("verify identity: record failure: %v", rerr)
		}
		return nil, ErrInvalidCredentials
	}

	if err := p.repo.Credentials().RecordSuccess(ctx, cred.ID); err != nil {
		p.logger.Error("verify identity: record success: %v", err)
	}

	return credIdentity{cred}, nil
}

// FindIdentityByID re-resolves a credential by its primary key. Tokens are
// only as good as the record behind them, so session validation calls this
// on every request.
func (p *CredentialProvider) FindIdentityByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	cred, err := p.repo.Credentials().GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrCredentialNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch credential")
	}
	return credIdentity{cred}, nil
}

type credIdentity struct {
	cred *Credential
}

func (c credIdentity) ID() string     { return c.cred.ID.String() }
func (c credIdentity) Email() string  { return c.cred.Email }
func (c credIdentity) Verified() bool { return c.cred.EmailValidated }

// Record exposes the underlying credential for handlers that need the
// public projection.
func (c credIdentity) Record() *Credential { return c.cred }
