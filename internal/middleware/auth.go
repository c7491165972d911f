package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/services"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const userIDKey contextKey = "userID"

// SessionCookie is the cookie the auth provider sets alongside the bearer header.
const SessionCookie = "session_token"

// SecretSource supplies the current session signing secret.
type SecretSource interface {
	AuthSecret() string
}

// SessionGate resolves the caller from a session token issued by the auth provider.
type SessionGate struct {
	secrets SecretSource
	redis   *redis.Client
}

func NewSessionGate(secrets SecretSource, redisClient *redis.Client) *SessionGate {
	return &SessionGate{secrets: secrets, redis: redisClient}
}

func (g *SessionGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.Resolve(r)
		if err != nil {
			log.Printf("[SESSION] Rejected request to %s: %v", r.URL.Path, err)
			services.WriteError(w, models.ErrUnauthenticated)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// Resolve returns the user id carried by the request's session token.
func (g *SessionGate) Resolve(r *http.Request) (string, error) {
	token, err := extractToken(r)
	if err != nil {
		return "", err
	}

	userID, err := validateToken(token, g.secrets.AuthSecret())
	if err != nil {
		return "", err
	}

	if g.redis != nil {
		revoked, err := g.redis.Exists(r.Context(), "session:revoked:"+token).Result()
		if err != nil {
			log.Printf("[SESSION] Revocation lookup failed, trusting token: %v", err)
		} else if revoked > 0 {
			return "", errors.New("session revoked")
		}
	}

	return userID, nil
}

func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", errors.New("no session token")
}

func validateToken(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("auth secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	for _, key := range []string{"sub", "user_id"} {
		if v, ok := claims[key]; ok && v != nil {
			if id := fmt.Sprintf("%v", v); id != "" {
				return id, nil
			}
		}
	}
	return "", errors.New("token has no subject")
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
