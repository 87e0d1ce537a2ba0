package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
)

const (
	contextTokenKey   = "accountToken"
	contextAccountKey = "account"
	tokenAudience     = "Teamfeed"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsInstructor bool     `json:"is_instructor,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// tokenAuth issues and checks the JWTs of the API.
type tokenAuth struct {
	conf     *core.Config
	accounts *account.Service
}

func newTokenAuth(conf *core.Config, accounts *account.Service) *tokenAuth {
	return &tokenAuth{conf: conf, accounts: accounts}
}

func (ta *tokenAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(ta.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
}

func (ta *tokenAuth) claims(acc account.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ta.conf.AppName,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ta.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         acc.Name,
		Email:        acc.Email,
		IsStudent:    acc.IsStudent(),
		IsInstructor: acc.IsInstructor(),
		IsAdmin:      acc.IsAdmin(),
		Roles:        acc.Roles,
	}
}

// generateToken generates a signed JWT token string representing the account Claims.
func (ta *tokenAuth) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(ta.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateToken returns a fresh API token for acc.
func GenerateToken(conf *core.Config, acc account.Account) (string, error) {
	ta := tokenAuth{conf: conf}
	return ta.generateToken(ta.claims(acc))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (ta *tokenAuth) contextAccount(ctx echo.Context, clms ...Claims) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "getting context claims")
		}
	}

	acc, err := ta.accounts.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	if !acc.IsActive {
		return account.Account{}, errAccountDeactivated
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		owned := append([]string(nil), claims.Roles...)
		sort.Strings(owned)
		for _, role := range roles {
			if i := sort.SearchStrings(owned, role); i < len(owned) && owned[i] == role {
				return true
			}
		}
	}
	return false
}

func (ta *tokenAuth) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := ta.contextAccount(ctx, claims)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ta.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	return ta.generateToken(ta.claims(acc, claims.OrigIssuedAt))
}
