package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
)

// AttachRoleFromDB replaces the token role with the one stored for the phone.
// Tokens for phones without a users row keep their claim role only when
// allowClaimFallback is set (dev/offline).
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE phone=$1`, sub).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case allowClaimFallback && (err == nil || errors.Is(err, sql.ErrNoRows)):
				next.ServeHTTP(w, r)
			default:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}` + "\n"))
			}
		})
	}
}
