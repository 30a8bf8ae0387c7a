package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
	"github.com/hasan-mia/techstore-ui/pkg/httputil"
	"github.com/hasan-mia/techstore-ui/pkg/logger"
)

// SessionHeader identifies an anonymous shopper.
const SessionHeader = "X-Session-ID"

const maxGuestIDLen = 128

type contextKeyType string

const (
	sessionIDKey contextKeyType = "session_id"
	userIDKey    contextKeyType = "user_id"
)

// ErrInvalidToken is returned by token validators for any rejected token.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims extracted by the session middleware.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// NewJWTValidator returns a TokenValidator for HMAC-signed JWTs. The user ID
// is read from the user_id claim, falling back to sub.
func NewJWTValidator(secret string) TokenValidator {
	key := []byte(secret)
	return func(tokenString string) (*Claims, error) {
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}

		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, ErrInvalidToken
		}

		claims := &Claims{}
		claims.UserID, _ = mc["user_id"].(string)
		if claims.UserID == "" {
			claims.UserID, _ = mc["sub"].(string)
		}
		if claims.UserID == "" {
			return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
		}
		claims.Email, _ = mc["email"].(string)
		claims.Role, _ = mc["role"].(string)
		return claims, nil
	}
}

// Session resolves the shopper identity for a request. A valid bearer token
// yields "user:<id>"; otherwise the X-Session-ID header yields "guest:<id>".
// Requests with neither, or with a rejected token, get 401. A nil validator
// disables bearer tokens.
func Session(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var sessionID string

			if authHeader := r.Header.Get("Authorization"); authHeader != "" && validate != nil {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), l)
					return
				}

				claims, err := validate(strings.TrimSpace(parts[1]))
				if err != nil {
					l.WarnContext(ctx, "rejected bearer token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), l)
					return
				}

				sessionID = "user:" + claims.UserID
				ctx = context.WithValue(ctx, userIDKey, claims.UserID)
			} else {
				guestID := strings.TrimSpace(r.Header.Get(SessionHeader))
				if !validGuestID(guestID) {
					httputil.WriteError(w, r, apperrors.Unauthorized("a bearer token or X-Session-ID header is required"), l)
					return
				}
				sessionID = "guest:" + guestID
			}

			ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			ctx = logger.WithSessionID(ctx, sessionID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("session_id", sessionID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validGuestID(id string) bool {
	if id == "" || len(id) > maxGuestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// SessionIDFromContext returns the resolved session identity, or "".
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// UserIDFromContext returns the authenticated user ID, or "" for guests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
