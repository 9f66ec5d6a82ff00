// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. Tokens are HS256 JWTs issued by the
// external auth provider; the subject claim is the user id, and the optional
// email and role claims feed the moderator check. Local setups and tests can
// enable trusted X-User-* headers instead.
//
// Authenticate is installed globally and only rejects malformed or invalid
// credentials; anonymous requests pass through. RequireUser and
// RequireModerator guard the routes that need an identity.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by Authenticate.
const (
	ctxKeyUserID   = "userID"
	ctxKeyIdentity = "identity"
)

// Development identity headers, honoured only when AuthOptions.DevHeader is set.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// AuthOptions configures token verification and the moderator check.
type AuthOptions struct {
	Secret         []byte
	DevHeader      bool
	ModeratorRoles []string
	AdminEmails    []string
}

// IsModerator reports whether id holds a moderator role or is on the admin
// e-mail allowlist.
func (o AuthOptions) IsModerator(id Identity) bool {
	for _, r := range o.ModeratorRoles {
		if id.Role != "" && strings.EqualFold(r, id.Role) {
			return true
		}
	}
	if id.Email == "" {
		return false
	}
	for _, e := range o.AdminEmails {
		if strings.EqualFold(e, id.Email) {
			return true
		}
	}
	return false
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var errNoCredentials = errors.New("no credentials")

// Authenticate attaches the caller identity when credentials are present.
// A bad bearer token yields 401; no credentials at all is not an error.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	return func(c *gin.Context) {
		id, err := identify(c, parser, opts)
		switch {
		case errors.Is(err, errNoCredentials):
		case err != nil:
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		default:
			c.Set(ctxKeyUserID, id.UserID)
			c.Set(ctxKeyIdentity, id)
			lg := LoggerFrom(c).With().Str("user_id", id.UserID).Logger()
			setRequestLogger(c, &lg)
		}
		c.Next()
	}
}

func identify(c *gin.Context, parser *jwt.Parser, opts AuthOptions) (Identity, error) {
	if h := c.GetHeader("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" || len(opts.Secret) == 0 {
			return Identity{}, errors.New("malformed authorization header")
		}
		var cl claims
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &cl, func(*jwt.Token) (any, error) {
			return opts.Secret, nil
		})
		if err != nil {
			return Identity{}, err
		}
		if cl.Subject == "" {
			return Identity{}, errors.New("token has no subject")
		}
		return Identity{UserID: cl.Subject, Email: strings.ToLower(cl.Email), Role: cl.Role}, nil
	}

	if opts.DevHeader {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			return Identity{
				UserID: uid,
				Email:  strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserEmail))),
				Role:   strings.TrimSpace(c.GetHeader(HeaderUserRole)),
			}, nil
		}
	}
	return Identity{}, errNoCredentials
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireModerator rejects anonymous requests with 401 and non-moderators
// with 403.
func RequireModerator(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !opts.IsModerator(id) {
			abortJSON(c, http.StatusForbidden, "forbidden", "moderator access required")
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// UserID returns the caller's user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return asString(c.Value(ctxKeyUserID))
}

// abortJSON writes the standard error envelope and stops the chain.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": asString(c.Value(requestIDKey)),
		"code":       code,
		"message":    msg,
	})
}
