package oasis

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HTTPAuthenticator is the part of RouteAuthenticator the controller uses.
type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) (DecisionOutcome, error)
	Logout(c router.Context) string
	GetRedirect(c router.Context, def ...string) string
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(controller.Routes.Me, controller.Me, controller.Auther.ProtectedRoute(jsonUnauthorized)).
		SetName("me.get")
}

type AuthControllerRoutes struct {
	Login  string
	Logout string
	Me     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defaultLogger("oasis.controller"),
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:  "/login",
			Logout: "/logout",
			Me:     "/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

// LoginRequest payload. Identifier is an email or a local username.
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			validation.Length(1, 254),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Info("login validate payload", "error", err)
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"success":    false,
			"message":    MessageUnrecognized,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= OASIS LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(router.ViewContext{"identifier": payload.Identifier}))
		fmt.Println("==========================")
	}

	outcome, err := a.Auther.Login(ctx, payload)
	if err != nil || !outcome.Success {
		return ctx.JSON(statusForKind(outcome.Kind), router.ViewContext{
			"success": false,
			"message": outcome.Message,
		})
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"success":  true,
		"member":   outcome.Member,
		"account":  outcome.Account,
		"redirect": a.Auther.GetRedirect(ctx, "/"),
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	target := a.Auther.Logout(ctx)
	return ctx.Redirect(target, router.StatusTemporaryRedirect)
}

// Me returns the logged in account and its member marker, never the token.
func (a *AuthController) Me(ctx router.Context) error {
	account, ok := AccountFromContext(ctx.Context())
	if !ok {
		return jsonUnauthorized(ctx, ErrUnauthenticated)
	}

	res := router.ViewContext{
		"account": account,
		"member":  false,
	}

	if session, ok := SessionFromContext(ctx.Context()); ok {
		if marker, ok := ReadMarker(session); ok {
			res["member"] = true
			res["member_id"] = marker.MemberID
			res["reg_category"] = marker.RegCategory
			res["orchard_roles"] = marker.OrchardRoles
		}
	}

	return ctx.JSON(http.StatusOK, res)
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case KindInvalidInput, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindServiceUnavailable, KindInvalidResponse:
		return http.StatusServiceUnavailable
	case KindSessionConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func jsonUnauthorized(c router.Context, err error) error {
	return c.JSON(http.StatusUnauthorized, router.ViewContext{
		"success": false,
		"message": err.Error(),
	})
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(http.StatusBadRequest, router.ViewContext{
		"success": false,
		"message": err.Error(),
	})
}
