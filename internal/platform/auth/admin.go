package auth

import (
	"net/http"
	"strings"

	"github.com/example/lecture-platform/internal/platform/api"
	"github.com/example/lecture-platform/internal/platform/httpserver"
)

const RoleAdmin = "admin"

// RequireRole lets a request through only if RequireUser already put the
// given role (case-insensitive) into the context.
func RequireRole(role string) func(next http.Handler) http.Handler {
	want := strings.ToLower(strings.TrimSpace(role))
	code := strings.ToUpper(want) + "_REQUIRED"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ := RoleFromContext(r.Context())
			if strings.ToLower(strings.TrimSpace(got)) != want {
				api.Forbidden(w, code, "role "+want+" required", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards transcript uploads.
var RequireAdmin = RequireRole(RoleAdmin)
