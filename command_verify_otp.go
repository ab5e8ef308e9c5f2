package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyOTPMessage struct {
	Email      string `json:"email"`
	Code       string `json:"otp"`
	OnResponse func(resp *VerifyOTPResponse)
}

func (e VerifyOTPMessage) Type() string { return "credential.verify_otp" }

type VerifyOTPResponse struct {
	Credential *Credential
	Success    bool
}

type VerifyOTPHandler struct {
	repo     RepositoryManager
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

func NewVerifyOTPHandler(repo RepositoryManager, notifier Notifier) *VerifyOTPHandler {
	return &VerifyOTPHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (h *VerifyOTPHandler) WithLogger(logger Logger) *VerifyOTPHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyOTPHandler) WithClock(clock func() time.Time) *VerifyOTPHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, event VerifyOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyOTPHandler) execute(ctx context.Context, event VerifyOTPMessage) error {
	cred := &Credential{}
	resp := &VerifyOTPResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		cred, err = h.repo.Credentials().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrCredentialNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve credential for verification")
		}

		if err := ValidateOTP(cred, event.Code, h.now()); err != nil {
			return err
		}

		consumed, err := h.repo.Credentials().ConsumeOTPAndVerifyTx(ctx, tx, cred.ID, event.Code)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
		}
		// another request verified this credential between the read and
		// the conditional update
		if !consumed {
			return ErrAlreadyVerified
		}

		cred.EmailValidated = true
		cred.OTPCode = nil
		cred.OTPExpiresAt = nil

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	notifyBestEffort(h.notifier, h.logger, NotificationWelcome, cred.Email, map[string]any{
		"firstName": cred.FirstName,
	})

	resp.Credential = cred
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
