package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "govportal/pkg/domain"
	"govportal/pkg/requestcontext"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session"

// SessionValidator validates a session token and returns its claims.
type SessionValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionClaims represents the claims we expect from the session validator
type SessionClaims struct {
	UserID string
	Email  string
	JTI    string // token ID for revocation tracking
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// TokenFromRequest reads the session cookie, falling back to a Bearer header
// for non-browser clients.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

type authFailure struct {
	status int
	code   string
	desc   string
	msg    string
	err    error
}

func authenticate(ctx context.Context, r *http.Request, validator SessionValidator, revocationChecker TokenRevocationChecker) (context.Context, *authFailure) {
	token := TokenFromRequest(r)
	if token == "" {
		return ctx, &authFailure{http.StatusUnauthorized, "unauthorized", "Not authenticated", "unauthorized access - missing session", nil}
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return ctx, &authFailure{http.StatusUnauthorized, "unauthorized", "Invalid or expired session", "unauthorized access - invalid session", err}
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return ctx, &authFailure{http.StatusUnauthorized, "unauthorized", "Invalid or expired session", "unauthorized access - invalid subject", err}
	}

	if revocationChecker != nil {
		if claims.JTI == "" {
			return ctx, &authFailure{http.StatusUnauthorized, "unauthorized", "Invalid or expired session", "unauthorized access - missing token jti", nil}
		}
		revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
		if err != nil {
			return ctx, &authFailure{http.StatusInternalServerError, "internal_error", "Failed to validate session", "failed to check token revocation", err}
		}
		if revoked {
			return ctx, &authFailure{http.StatusUnauthorized, "unauthorized", "Session has been revoked", "unauthorized access - token revoked", nil}
		}
	}

	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithEmail(ctx, claims.Email)
	ctx = requestcontext.WithTokenID(ctx, claims.JTI)
	return ctx, nil
}

// RequireAuth rejects requests without a valid, unrevoked session.
func RequireAuth(validator SessionValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, fail := authenticate(r.Context(), r, validator, revocationChecker)
			if fail != nil {
				args := []any{"request_id", requestcontext.RequestID(ctx)}
				if fail.err != nil {
					args = append(args, "error", fail.err)
				}
				if fail.status >= http.StatusInternalServerError {
					logger.ErrorContext(ctx, fail.msg, args...)
				} else {
					logger.WarnContext(ctx, fail.msg, args...)
				}
				writeJSONError(w, fail.status, fail.code, fail.desc)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the session identity when present and valid, and
// otherwise passes the request through anonymously.
func OptionalAuth(validator SessionValidator, revocationChecker TokenRevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, fail := authenticate(r.Context(), r, validator, revocationChecker)
			if fail != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
