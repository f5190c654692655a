package accounts

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SignupRequest is the signup payload.
type SignupRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Age      int    `json:"age" form:"age"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 32)),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Age, validation.Required, validation.Min(1)),
	)
}

// SigninRequest is the signin payload.
type SigninRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r SigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateUserRequest is a partial profile patch; absent fields stay as is.
type UpdateUserRequest struct {
	Email *string `json:"email" form:"email"`
	Name  *string `json:"name" form:"name"`
	Age   *int    `json:"age" form:"age"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Age, validation.Min(1)),
	)
}

// AccountController exposes the account service over HTTP.
type AccountController struct {
	Logger     Logger
	Service    *AccountService
	CookieName string
	CookieTTL  time.Duration
	ContextKey string
	// Protected guards the /users routes; leave nil to register them open.
	Protected router.MiddlewareFunc
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:     defLogger{},
		CookieName: "refreshToken",
		CookieTTL:  time.Hour * 24 * 30,
		ContextKey: "user",
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Service == nil {
		panic("ACCOUNTS: controller configuration: Service is required.")
	}

	return c
}

func WithControllerService(service *AccountService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Service = service
		return c
	}
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerCookie(name string, ttl time.Duration) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if name != "" {
			c.CookieName = name
		}
		if ttl > 0 {
			c.CookieTTL = ttl
		}
		return c
	}
}

func WithControllerContextKey(key string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithControllerProtected(mw router.MiddlewareFunc) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Protected = mw
		return c
	}
}

// RegisterRoutes mounts the account routes on the given group. The literal
// /users/me route registers before /users/:id so it wins the match.
func (a *AccountController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/signup", a.Signup)
	group.Post("/signin", a.Signin)
	group.Post("/logout", a.Logout)
	group.Get("/refresh", a.Refresh)

	mw := []router.MiddlewareFunc{}
	if a.Protected != nil {
		mw = append(mw, a.Protected)
	}

	group.Get("/users", a.ListUsers, mw...)
	group.Get("/users/me", a.Me, mw...)
	group.Get("/users/:id", a.GetUser, mw...)
	group.Patch("/users/:id", a.UpdateUser, mw...)
	group.Delete("/users/:id", a.DeleteUser, mw...)
}

// Signup creates an account and signs the user in.
func (a *AccountController) Signup(ctx router.Context) error {
	payload := &SignupRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse signup payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	res, err := a.Service.Signup(ctx.Context(), SignupMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		Age:      payload.Age,
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	a.setRefreshCookie(ctx, res.RefreshToken)

	return ctx.JSON(router.StatusOK, res)
}

// Signin verifies credentials and issues a token pair.
func (a *AccountController) Signin(ctx router.Context) error {
	payload := &SigninRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse signin payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	res, err := a.Service.Signin(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.handleError(ctx, err)
	}

	a.setRefreshCookie(ctx, res.RefreshToken)

	return ctx.JSON(router.StatusOK, res)
}

// Logout revokes the refresh token from the cookie and clears it.
func (a *AccountController) Logout(ctx router.Context) error {
	token := ctx.Cookies(a.CookieName)

	record, err := a.Service.Logout(ctx.Context(), token)
	if err != nil {
		return a.handleError(ctx, err)
	}

	a.clearRefreshCookie(ctx)

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": record,
	})
}

// Refresh rotates the refresh token from the cookie.
func (a *AccountController) Refresh(ctx router.Context) error {
	token := ctx.Cookies(a.CookieName)

	res, err := a.Service.Refresh(ctx.Context(), token)
	if err != nil {
		return a.handleError(ctx, err)
	}

	a.setRefreshCookie(ctx, res.RefreshToken)

	return ctx.JSON(router.StatusOK, res)
}

// Me returns the account behind the verified access token.
func (a *AccountController) Me(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return a.handleError(ctx, ErrUnauthorized)
	}

	user, err := a.Service.GetUser(ctx.Context(), claims.UserID())
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AccountController) ListUsers(ctx router.Context) error {
	users, err := a.Service.ListUsers(ctx.Context())
	if err != nil {
		return a.handleError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, users)
}

func (a *AccountController) GetUser(ctx router.Context) error {
	user, err := a.Service.GetUser(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return a.handleError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, user)
}

func (a *AccountController) UpdateUser(ctx router.Context) error {
	payload := &UpdateUserRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse update payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	user, err := a.Service.UpdateUser(ctx.Context(), ctx.Param("id"), UpdateUserMessage{
		Email: payload.Email,
		Name:  payload.Name,
		Age:   payload.Age,
	})
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AccountController) DeleteUser(ctx router.Context) error {
	if _, err := a.Service.DeleteUser(ctx.Context(), ctx.Param("id")); err != nil {
		return a.handleError(ctx, err)
	}
	return ctx.Status(http.StatusNoContent).SendString("")
}

// AuthErrorHandler collapses every middleware failure, missing header
// included, into a 401 response.
func (a *AccountController) AuthErrorHandler(ctx router.Context, err error) error {
	a.Logger.Debug("auth middleware rejection: %v", err)
	return ctx.JSON(router.StatusUnauthorized, map[string]any{
		"message": ErrUnauthorized.Message,
	})
}

func (a *AccountController) setRefreshCookie(ctx router.Context, value string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(a.CookieTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func (a *AccountController) clearRefreshCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func (a *AccountController) validationError(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"message": "invalid request payload",
		"errors":  formatValidationErrors(err),
	})
}

func (a *AccountController) handleError(ctx router.Context, err error) error {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		rich = errors.Wrap(err, errors.CategoryInternal, "unexpected server error").
			WithCode(errors.CodeInternal)
	}

	status := int(rich.Code)
	if status == 0 {
		switch rich.Category {
		case errors.CategoryAuth:
			status = http.StatusUnauthorized
		case errors.CategoryValidation, errors.CategoryBadInput:
			status = http.StatusBadRequest
		case errors.CategoryConflict:
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}
	}

	if status >= http.StatusInternalServerError {
		a.Logger.Error("account controller error: %v", err)
		return ctx.JSON(status, map[string]any{
			"message": "unexpected server error, try again later",
		})
	}

	return ctx.JSON(status, map[string]any{
		"message": rich.Message,
	})
}

func formatValidationErrors(err error) map[string]string {
	out := map[string]string{}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["_"] = err.Error()
	}

	return out
}
