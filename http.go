package identity

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/coursekit/identity/middleware/jwtware"
)

// SessionClaims is what protected handlers find under the context key. It
// carries the re-resolved identity, not just the token payload.
type SessionClaims struct {
	identity Identity
}

func NewSessionClaims(identity Identity) *SessionClaims {
	return &SessionClaims{identity: identity}
}

func (s *SessionClaims) Subject() string    { return s.identity.ID() }
func (s *SessionClaims) UserID() string     { return s.identity.ID() }
func (s *SessionClaims) Email() string      { return s.identity.Email() }
func (s *SessionClaims) Identity() Identity { return s.identity }

var _ jwtware.AuthClaims = (*SessionClaims)(nil)

// GetRouterSession returns the session claims the JWT middleware stored for
// the current request.
func GetRouterSession(c router.Context, key string) (*SessionClaims, error) {
	local := c.Locals(key)
	if local == nil {
		return nil, goerrors.New("no session in request context", goerrors.CategoryAuth).
			WithTextCode(textCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := local.(*SessionClaims)
	if claims == nil || !ok {
		return nil, goerrors.New("unable to decode session claims", goerrors.CategoryAuth).
			WithTextCode(textCodeInvalidToken).
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}

type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute guards a route with the JWT middleware. Every request
// re-resolves the credential behind the token.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		TokenValidator: &routeTokenValidator{auth: a.auth},
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			sc, ok := claims.(*SessionClaims)
			if !ok {
				return c
			}
			return WithIdentityContext(WithClaimsContext(c, sc), sc.Identity())
		},
	})
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *goerrors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid authentication token").
				WithTextCode(textCodeInvalidToken).
				WithCode(goerrors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	return RespondWithError(c, err)
}

// routeTokenValidator adapts the authenticator to the middleware contract.
type routeTokenValidator struct {
	auth Authenticator
}

func (v *routeTokenValidator) Validate(ctx context.Context, tokenString string) (jwtware.AuthClaims, error) {
	identity, err := v.auth.IdentityFromToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return NewSessionClaims(identity), nil
}

// RespondWithError renders any error as the JSON error envelope, using the
// rich error code as the HTTP status when one is attached.
func RespondWithError(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if len(richErr.Metadata) > 0 {
		body["details"] = richErr.Metadata
	}

	return c.JSON(status, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors to a field to
// message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if ok := goerrors.As(err, &verrs); !ok {
		out["error"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}

	return out
}
