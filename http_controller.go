package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// RegisterAuthRoutes mounts the credential lifecycle endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)
	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")
	app.Post(controller.Routes.VerifyOTP, controller.VerifyOTP).
		SetName("auth.verify-otp")
	app.Post(controller.Routes.ResendOTP, controller.ResendOTP).
		SetName("auth.resend-otp")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")

	app.Get(controller.Routes.Me, controller.Me, protected).
		SetName("auth.me")
	app.Post(controller.Routes.Logout, controller.Logout, protected).
		SetName("auth.logout")

	app.Get(controller.Routes.Profile, controller.ProfileShow, protected).
		SetName("users.profile.get")
	app.Put(controller.Routes.Profile, controller.ProfileUpdate, protected).
		SetName("users.profile.put")
}

type AuthControllerRoutes struct {
	Register  string
	VerifyOTP string
	ResendOTP string
	Login     string
	Logout    string
	Me        string
	Profile   string
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *AuthControllerRoutes
	Auther   *RouteAuthenticator
	Config   Config
	Notifier Notifier
	Tokens   TokenService
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Notifier: NoopNotifier{},
		Routes: &AuthControllerRoutes{
			Register:  "/auth/register",
			VerifyOTP: "/auth/verify-otp",
			ResendOTP: "/auth/resend-otp",
			Login:     "/auth/login",
			Logout:    "/auth/logout",
			Me:        "/auth/me",
			Profile:   "/users/profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerNotifier(notifier Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if notifier != nil {
			c.Notifier = notifier
		}
		return c
	}
}

func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegisterPayload is the registration request body
type RegisterPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register validate payload: %v", err)
		return RespondWithError(ctx, ValidationError(FormatValidationErrorToMap(err)))
	}

	if a.Debug {
		fmt.Println("======= REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=======================")
	}

	var res *RegisterCredentialResponse

	req := RegisterCredentialMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterCredentialResponse) {
			res = resp
		},
	}

	register := NewRegisterCredentialHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("%s execute: %v", req.Type(), err)
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "Registration successful. Please check your email for the verification code.",
		"email":   res.Credential.Email,
	})
}

// VerifyOTPPayload is the email verification request body
type VerifyOTPPayload struct {
	Email string `form:"email" json:"email"`
	OTP   string `form:"otp" json:"otp"`
}

// Validate will run validation rules
func (r VerifyOTPPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(OTPLength, OTPLength), is.Digit),
	)
}

func (a *AuthController) VerifyOTP(ctx router.Context) error {
	payload := new(VerifyOTPPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify otp parse payload: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, ValidationError(FormatValidationErrorToMap(err)))
	}

	var res *VerifyOTPResponse

	req := VerifyOTPMessage{
		Email: payload.Email,
		Code:  payload.OTP,
		OnResponse: func(resp *VerifyOTPResponse) {
			res = resp
		},
	}

	verify := NewVerifyOTPHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("%s execute: %v", req.Type(), err)
		return RespondWithError(ctx, err)
	}

	// verification completes signup, so it opens the first session
	token, err := a.Tokens.Generate(res.Credential.Identity())
	if err != nil {
		a.Logger.Error("verify otp token: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Email verified successfully.",
		"token":   token,
		"user":    res.Credential.Public(),
	})
}

// ResendOTPPayload is the resend request body
type ResendOTPPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ResendOTPPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendOTP(ctx router.Context) error {
	payload := new(ResendOTPPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend otp parse payload: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, ValidationError(FormatValidationErrorToMap(err)))
	}

	var res *ResendOTPResponse

	req := ResendOTPMessage{
		Email: payload.Email,
		OnResponse: func(resp *ResendOTPResponse) {
			res = resp
		},
	}

	resend := NewResendOTPHandler(a.Repo, a.Notifier).WithLogger(a.Logger)
	if err := resend.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("%s execute: %v", req.Type(), err)
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "A new verification code has been sent.",
		"email":   res.Email,
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, ValidationError(FormatValidationErrorToMap(err)))
	}

	token, identity, err := a.Auther.auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Info("login rejected: %v", err)
		return RespondWithError(ctx, err)
	}

	user, err := a.publicByID(ctx, identity.ID())
	if err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Login successful.",
		"token":   token,
		"user":    user,
	})
}

func (a *AuthController) Me(ctx router.Context) error {
	claims, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return RespondWithError(ctx, err)
	}

	user, err := a.publicByID(ctx, claims.UserID())
	if err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": user,
	})
}

// Logout acknowledges the end of a session. Tokens are stateless, so the
// client drops the token and server-side revocation happens by deleting or
// un-verifying the credential.
func (a *AuthController) Logout(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out successfully.",
	})
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	return a.Me(ctx)
}

// ProfileUpdatePayload is the profile update request body
type ProfileUpdatePayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
}

// Validate will run validation rules
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 50)),
	)
}

func (a *AuthController) ProfileUpdate(ctx router.Context) error {
	claims, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return RespondWithError(ctx, err)
	}

	payload := new(ProfileUpdatePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("profile update parse payload: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, ValidationError(FormatValidationErrorToMap(err)))
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return RespondWithError(ctx, ErrInvalidToken)
	}

	record := &Credential{
		ID:        id,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}

	updated, err := a.Repo.Credentials().Update(ctx.Context(), record, repository.UpdateByID(id.String()))
	if err != nil {
		a.Logger.Error("profile update: %v", err)
		return RespondWithError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": updated.Public(),
	})
}

func (a *AuthController) publicByID(ctx router.Context, id string) (*PublicCredential, error) {
	cred, err := a.Repo.Credentials().GetByID(ctx.Context(), id)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrCredentialNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch credential")
	}
	return cred.Public(), nil
}
