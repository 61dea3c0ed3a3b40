package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const (
	tokenCookieName = "token"
	contextUserKey  = "user"
	contextClaimKey = "claims"
	tokenAudience   = "Academia"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role,omitempty"`
}

// JWTIssuer signs and parses the API's HS256 tokens.
type JWTIssuer struct {
	conf *core.Config
}

func NewJWTIssuer(conf *core.Config) *JWTIssuer {
	return &JWTIssuer{conf: conf}
}

// Claims builds the claims of usr. origIat carries the original issue time over token refreshes.
func (iss *JWTIssuer) Claims(usr user.User, origIat ...int64) *Claims {
	now := core.NowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.conf.AppName,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (iss *JWTIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(iss.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (iss *JWTIssuer) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		new(Claims),
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errUnexpectedSigningMethod
			}
			return []byte(iss.conf.SecretKey), nil
		},
		jwt.WithIssuer(iss.conf.AppName),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(core.NowFunc),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// tokenFromRequest reads the bearer token, falling back to the auth cookie.
func tokenFromRequest(req *http.Request) string {
	if auth := req.Header.Get(echo.HeaderAuthorization); auth != "" {
		scheme, token, found := strings.Cut(auth, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := req.Cookie(tokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (iss *JWTIssuer) setCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   iss.conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  core.NowFunc().Add(iss.conf.Server.JWTExpirationDelta),
	})
}

func (iss *JWTIssuer) clearCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   iss.conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// authMiddleware authenticates the request's token and loads its still active user in the context.
func authMiddleware(iss *JWTIssuer, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := tokenFromRequest(ctx.Request())
			if token == "" {
				return errUnauthorized
			}
			claims, err := iss.Parse(token)
			if err != nil {
				return errInvalidToken
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errInvalidToken
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}

			ctx.Set(contextClaimKey, *claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimKey).(Claims); ok {
		return claims, nil
	}
	return Claims{}, errUnauthorized
}

func refreshToken(ctx echo.Context, iss *JWTIssuer) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(iss.conf.Server.JWTRefreshExpirationDelta)
	if core.NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := iss.GenerateToken(iss.Claims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
