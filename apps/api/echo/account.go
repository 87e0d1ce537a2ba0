package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
)

const errNoPermsToSetRoles = "not enough rights to set these roles"

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (s *server) registerAccountAPI(g *echo.Group, jwt, limiter echo.MiddlewareFunc) {
	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/login", s.login, limiter)
	ag.POST("/password-reset", s.requestPasswordReset, limiter)
	ag.POST("/password-reset-confirm", s.confirmPasswordReset, limiter)

	// authed endpoints
	authed := ag.Group("", jwt)
	authed.POST("/token-refresh", s.refreshToken)
	authed.GET("/me", s.me)
	authed.GET("", s.queryAccounts, adminMiddleware())
	authed.POST("", s.createAccount, adminMiddleware())
	authed.GET("/roles", s.queryRoles, adminMiddleware())
	authed.GET("/search", s.searchAccounts, adminMiddleware())
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := s.opts.Validator.Struct(data); err != nil {
		return err
	}

	acc, err := s.opts.AccountSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrNotFound:
			return errAuthenticationFailed
		case account.ErrInactiveLogin:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := s.auth.generateToken(s.auth.claims(acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *server) refreshToken(ctx echo.Context) error {
	token, err := s.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *server) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := s.opts.Validator.Struct(data); err != nil {
		return err
	}

	err := s.opts.AccountSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		s.opts.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := s.opts.AccountSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *server) me(ctx echo.Context) error {
	acc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (s *server) queryAccounts(ctx echo.Context) error {
	var filter account.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	orderings, err := bindOrdering(ctx, accountOrderingFields)
	if err != nil {
		return err
	}

	accounts, err := s.opts.AccountSvc.Query(ctx.Request().Context(), filter, orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accounts == nil {
		accounts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accounts)
}

func (s *server) createAccount(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	// the context account cannot grant a role above their own
	ctxAcc, err := s.auth.contextAccount(ctx)
	if err != nil {
		return err
	}
	if account.MaxRolePriority(data.Roles) > account.MaxRolePriority(ctxAcc.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	acc, err := s.opts.AccountSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (s *server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, account.Roles)
}

// searchAccounts looks up the students & instructors matching `searchkey`.
func (s *server) searchAccounts(ctx echo.Context) error {
	res, err := s.opts.SearchSvc.Search(ctx.Request().Context(), ctx.QueryParam("searchkey"))
	if err != nil {
		return errors.Wrap(err, "searching accounts")
	}
	return ctx.JSON(http.StatusOK, res)
}
