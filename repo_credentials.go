package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// recordFailureSQL bumps the failure counter and, once the threshold is
// reached, resets it and arms the lock in the same statement so two
// concurrent failures cannot race past the threshold.
var recordFailureSQL = `UPDATE "credentials" AS "cred"
SET
	"failed_attempts" = CASE
		WHEN "cred"."failed_attempts" + 1 >= ? THEN 0
		ELSE "cred"."failed_attempts" + 1
	END,
	"locked_until" = CASE
		WHEN "cred"."failed_attempts" + 1 >= ? THEN ?
		ELSE "cred"."locked_until"
	END
WHERE
	"cred"."id" = ?
	AND "cred"."deleted_at" IS NULL;`

// recordSuccessSQL stamps the login and resets the failure counter. It does
// not touch locked_until; an armed lock runs out on its own clock.
var recordSuccessSQL = `UPDATE "credentials" AS "cred"
SET
	"last_login_at" = ?,
	"failed_attempts" = 0
WHERE
	"cred"."id" = ?
	AND "cred"."deleted_at" IS NULL;`

// setOTPSQL replaces any outstanding code. It refuses to touch verified
// records so a stray resend can never re-open a finished verification.
var setOTPSQL = `UPDATE "credentials" AS "cred"
SET
	"otp_code" = ?,
	"otp_expires_at" = ?
WHERE
	"cred"."id" = ?
	AND "cred"."is_verified" = FALSE
	AND "cred"."deleted_at" IS NULL;`

// consumeOTPSQL flips the record to verified only if it still holds the
// submitted code. Zero rows affected means another request got there first.
var consumeOTPSQL = `UPDATE "credentials" AS "cred"
SET
	"is_verified" = TRUE,
	"otp_code" = NULL,
	"otp_expires_at" = NULL
WHERE
	"cred"."id" = ?
	AND "cred"."is_verified" = FALSE
	AND "cred"."otp_code" = ?
	AND "cred"."deleted_at" IS NULL;`

type Credentials interface {
	repository.Repository[*Credential]

	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Credential, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Credential, error)

	Register(ctx context.Context, record *Credential) (*Credential, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error)

	SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	SetOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error

	ConsumeOTPAndVerify(ctx context.Context, id uuid.UUID, code string) (bool, error)
	ConsumeOTPAndVerifyTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (bool, error)

	RecordFailure(ctx context.Context, id uuid.UUID) error
	RecordFailureTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	RecordSuccess(ctx context.Context, id uuid.UUID) error
	RecordSuccessTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type credentials struct {
	repository.Repository[*Credential]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Credentials                        = (*credentials)(nil)
	_ repository.Repository[*Credential] = (*credentials)(nil)
)

type CredentialsOption func(*credentials)

func WithCredentialsClock(clock func() time.Time) CredentialsOption {
	return func(c *credentials) {
		if clock != nil {
			c.now = clock
		}
	}
}

func NewCredentialsRepository(db *bun.DB, opts ...CredentialsOption) Credentials {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	creds := &credentials{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(creds)
		}
	}

	return creds
}

func (c *credentials) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Credential, error) {
	return c.GetByEmailTx(ctx, c.db, email, criteria...)
}

func (c *credentials) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Credential, error) {
	addr := NormalizeEmail(email)

	record := &Credential{}
	q := tx.NewSelect().Model(record)

	for _, crit := range criteria {
		q.Apply(crit)
	}

	err := q.
		Where("lower(?TableAlias.email) = ?", addr).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": addr,
				})
		}
		return nil, err
	}

	return record, nil
}

func (c *credentials) Register(ctx context.Context, record *Credential) (*Credential, error) {
	return c.RegisterTx(ctx, c.db, record)
}

func (c *credentials) RegisterTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error) {
	prepareCredentialDefaults(record)
	return c.Repository.CreateTx(ctx, tx, record)
}

func (c *credentials) SetOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	return c.SetOTPTx(ctx, c.db, id, code, expiresAt)
}

func (c *credentials) SetOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	res, err := tx.NewRaw(setOTPSQL, code, expiresAt, id).Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAlreadyVerified
	}

	return nil
}

func (c *credentials) ConsumeOTPAndVerify(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	return c.ConsumeOTPAndVerifyTx(ctx, c.db, id, code)
}

func (c *credentials) ConsumeOTPAndVerifyTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (bool, error) {
	res, err := tx.NewRaw(consumeOTPSQL, id, code).Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *credentials) RecordFailure(ctx context.Context, id uuid.UUID) error {
	return c.RecordFailureTx(ctx, c.db, id)
}

func (c *credentials) RecordFailureTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	lockedUntil := c.now().Add(LockoutPeriod)
	_, err := tx.NewRaw(recordFailureSQL, MaxFailedAttempts, MaxFailedAttempts, lockedUntil, id).Exec(ctx)
	return err
}

func (c *credentials) RecordSuccess(ctx context.Context, id uuid.UUID) error {
	return c.RecordSuccessTx(ctx, c.db, id)
}

func (c *credentials) RecordSuccessTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewRaw(recordSuccessSQL, c.now(), id).Exec(ctx)
	return err
}

func prepareCredentialDefaults(record *Credential) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
