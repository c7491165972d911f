package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-auth-secret"

type staticSecret string

func (s staticSecret) AuthSecret() string { return string(s) }

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T, subject string) string {
	return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	w.Write([]byte(userID))
}

func TestSessionGate_Middleware(t *testing.T) {
	gate := NewSessionGate(staticSecret(testSecret), nil)
	handler := gate.Middleware(http.HandlerFunc(echoUser))

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
		req.Header.Set("Authorization", "Bearer "+validToken(t, "user-1"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-1", w.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: validToken(t, "user-2")})
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "user-2", w.Body.String())
	})

	t.Run("user_id claim", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "user-3"})
		req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "user-3", w.Body.String())
	})

	rejected := map[string]func(r *http.Request){
		"no token": func(r *http.Request) {},
		"malformed header": func(r *http.Request) {
			r.Header.Set("Authorization", "Token abc")
		},
		"wrong secret": func(r *http.Request) {
			token := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user-1"})
			r.Header.Set("Authorization", "Bearer "+token)
		},
		"expired": func(r *http.Request) {
			token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(-time.Minute).Unix(),
			})
			r.Header.Set("Authorization", "Bearer "+token)
		},
		"other algorithm": func(r *http.Request) {
			token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "user-1"})
			r.Header.Set("Authorization", "Bearer "+token)
		},
		"no subject": func(r *http.Request) {
			token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "admin"})
			r.Header.Set("Authorization", "Bearer "+token)
		},
	}
	for name, prepare := range rejected {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
			prepare(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"unauthenticated"`)
		})
	}

	t.Run("secret not configured", func(t *testing.T) {
		unconfigured := NewSessionGate(staticSecret(""), nil).Middleware(http.HandlerFunc(echoUser))
		req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
		req.Header.Set("Authorization", "Bearer "+validToken(t, "user-1"))
		w := httptest.NewRecorder()

		unconfigured.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSessionGate_Revocation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	gate := NewSessionGate(staticSecret(testSecret), client)
	token := validToken(t, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, err := gate.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, mr.Set("session:revoked:"+token, "1"))
	_, err = gate.Resolve(req)
	assert.Error(t, err)

	// an unreachable Redis does not lock everyone out
	down := NewSessionGate(staticSecret(testSecret), redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	userID, err = down.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestUserIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(req.Context(), ""))
	assert.False(t, ok)

	userID, ok := UserIDFromContext(WithUserID(req.Context(), "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}
