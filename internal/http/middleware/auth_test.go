package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, cl jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, cl).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Authenticate(opts))
	r.GET("/public", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/me", RequireUser(), func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/mod", RequireModerator(opts), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_BearerToken(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})

	tok := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "user-1", "email": "A@X.EDU", "exp": time.Now().Add(time.Hour).Unix(),
	})
	w := get(r, "/me", map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK || w.Body.String() != "user-1" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}

	bad := map[string]string{
		"expired":      "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
		"wrong secret": "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u"}),
		"no subject":   "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"email": "a@x.edu"}),
		"alg none":     "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "u"}),
		"not bearer":   "Token abc",
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, h := range bad {
		w := get(r, "/public", map[string]string{"Authorization": h})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d; want 401", name, w.Code)
			continue
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["code"] != "unauthorized" || body["request_id"] == "" {
			t.Errorf("%s: body = %v", name, body)
		}
	}
}

func TestAuthenticate_AnonymousAndDevHeaders(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})
	if w := get(r, "/public", nil); w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("anonymous public: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me = %d", w.Code)
	}
	// Dev headers are ignored unless enabled.
	if w := get(r, "/me", map[string]string{HeaderUserID: "dev"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("dev header accepted while disabled: %d", w.Code)
	}

	r = authRouter(AuthOptions{DevHeader: true})
	if w := get(r, "/me", map[string]string{HeaderUserID: "dev"}); w.Code != http.StatusOK || w.Body.String() != "dev" {
		t.Fatalf("dev header: %d %q", w.Code, w.Body.String())
	}
}

func TestRequireModerator(t *testing.T) {
	opts := AuthOptions{DevHeader: true, ModeratorRoles: []string{"admin", "moderator"}, AdminEmails: []string{"dean@uni.edu"}}
	r := authRouter(opts)

	cases := []struct {
		name string
		hdr  map[string]string
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"plain user", map[string]string{HeaderUserID: "u"}, http.StatusForbidden},
		{"role", map[string]string{HeaderUserID: "u", HeaderUserRole: "Moderator"}, http.StatusOK},
		{"admin email", map[string]string{HeaderUserID: "u", HeaderUserEmail: "Dean@Uni.edu"}, http.StatusOK},
		{"other email", map[string]string{HeaderUserID: "u", HeaderUserEmail: "student@uni.edu"}, http.StatusForbidden},
	}
	for _, c := range cases {
		if w := get(r, "/mod", c.hdr); w.Code != c.want {
			t.Errorf("%s: status = %d; want %d", c.name, w.Code, c.want)
		}
	}
}

func TestIsModerator(t *testing.T) {
	o := AuthOptions{ModeratorRoles: []string{"admin"}, AdminEmails: []string{"x@y.z"}}
	if o.IsModerator(Identity{UserID: "u"}) {
		t.Fatalf("empty identity is not a moderator")
	}
	if !o.IsModerator(Identity{UserID: "u", Role: "ADMIN"}) || !o.IsModerator(Identity{UserID: "u", Email: "x@y.z"}) {
		t.Fatalf("role or email should grant moderation")
	}
}
