package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterCredentialMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterCredentialResponse)
}

func (e RegisterCredentialMessage) Type() string { return "credential.register" }

type RegisterCredentialResponse struct {
	Credential *Credential
	Success    bool
}

type RegisterCredentialHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

func NewRegisterCredentialHandler(repo RepositoryManager, notifier Notifier) *RegisterCredentialHandler {
	return &RegisterCredentialHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *RegisterCredentialHandler) WithLogger(logger Logger) *RegisterCredentialHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterCredentialHandler) WithClock(clock func() time.Time) *RegisterCredentialHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *RegisterCredentialHandler) Execute(ctx context.Context, event RegisterCredentialMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during credential registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterCredentialHandler) execute(ctx context.Context, event RegisterCredentialMessage) error {
	cred := &Credential{}
	resp := &RegisterCredentialResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	addr := NormalizeEmail(event.Email)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Credentials().GetByEmailTx(ctx, tx, addr)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing credential")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		cred.FirstName = event.FirstName
		cred.LastName = event.LastName
		cred.Email = addr
		cred.PasswordHash = hash
		if event.UseHashid {
			if id, err := hashid.NewUUID(addr); err == nil {
				cred.ID = id
			}
		}

		code, expiresAt, err := NewPendingOTP(h.now())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
		}
		cred.OTPCode = &code
		cred.OTPExpiresAt = &expiresAt

		if cred, err = h.repo.Credentials().RegisterTx(ctx, tx, cred); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create credential")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential registration transaction failed")
	}

	notifyBestEffort(h.notifier, h.logger, NotificationOTP, cred.Email, map[string]any{
		"firstName": cred.FirstName,
		"otp":       *cred.OTPCode,
	})

	resp.Credential = cred
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
