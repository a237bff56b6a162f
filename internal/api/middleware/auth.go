package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"librarian/internal/common"
	"librarian/internal/common/security"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

// Authenticator requires a Bearer access token, verifies it and puts the
// subject id and role into the request context. Expiry and malformedness are
// surfaced as distinct 401 messages so clients know whether to refresh.
func Authenticator(tokens *security.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
				return
			}

			claims, err := tokens.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					common.RespondWithJSON(w, http.StatusUnauthorized, "Access token expired", nil)
				} else {
					common.RespondWithJSON(w, http.StatusUnauthorized, "Invalid access token", nil)
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleCtxKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated role is
// on the allow-list. Must sit behind Authenticator.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(UserRoleCtxKey).(string)
			if !ok {
				common.RespondWithJSON(w, http.StatusUnauthorized, "Access token required", nil)
				return
			}
			if _, ok := allowed[role]; !ok {
				common.RespondWithJSON(w, http.StatusForbidden, "Access denied: insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleCtxKey).(string)
	return role, ok
}
