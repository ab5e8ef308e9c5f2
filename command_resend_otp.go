package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ResendOTPMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *ResendOTPResponse)
}

func (e ResendOTPMessage) Type() string { return "credential.resend_otp" }

type ResendOTPResponse struct {
	Email   string
	Success bool
}

type ResendOTPHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

func NewResendOTPHandler(repo RepositoryManager, notifier Notifier) *ResendOTPHandler {
	return &ResendOTPHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *ResendOTPHandler) WithLogger(logger Logger) *ResendOTPHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendOTPHandler) WithClock(clock func() time.Time) *ResendOTPHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *ResendOTPHandler) Execute(ctx context.Context, event ResendOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification code resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendOTPHandler) execute(ctx context.Context, event ResendOTPMessage) error {
	cred := &Credential{}
	resp := &ResendOTPResponse{}

	var code string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		cred, err = h.repo.Credentials().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrCredentialNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve credential for resend")
		}

		if cred.EmailValidated {
			return ErrAlreadyVerified
		}

		var expiresAt time.Time
		if code, expiresAt, err = NewPendingOTP(h.now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
		}

		// replaces any outstanding code, previous ones stop working
		if err := h.repo.Credentials().SetOTPTx(ctx, tx, cred.ID, code, expiresAt); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification code resend transaction failed")
	}

	notifyBestEffort(h.notifier, h.logger, NotificationOTP, cred.Email, map[string]any{
		"firstName": cred.FirstName,
		"otp":       code,
	})

	resp.Email = cred.Email
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
