package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Guard enforces role capabilities on API routes. Tokens are verified with
// HMAC-SHA256 and the "role" claim selects the grant row consulted for each
// request.
type Guard struct {
	auth    *jwtauth.JWTAuth
	service simplecms.Service
	store   simplecms.CapabilityStore
}

// NewGuard creates a guard that signs and verifies tokens with the given secret.
func NewGuard(secret []byte, service simplecms.Service, store simplecms.CapabilityStore) *Guard {
	return &Guard{
		auth:    jwtauth.New("HS256", secret, nil),
		service: service,
		store:   store,
	}
}

// TokenAuth returns the underlying JWT authority, e.g. for minting tokens.
func (g *Guard) TokenAuth() *jwtauth.JWTAuth {
	return g.auth
}

// RoleFromContext extracts the role claim from a verified request context.
func RoleFromContext(ctx context.Context) (simplecms.Role, bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", false
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", false
	}
	return simplecms.Role(role), true
}

// RequireEdit gates a route on the edit capability of the post type named in
// the request URL.
func (g *Guard) RequireEdit() func(http.Handler) http.Handler {
	return g.require(typeFromURL, func(caps simplecms.CapabilitySet) string { return caps.EditMany })
}

// RequireDelete gates a route on the delete capability of the post type named
// in the request URL.
func (g *Guard) RequireDelete() func(http.Handler) http.Handler {
	return g.require(typeFromURL, func(caps simplecms.CapabilitySet) string { return caps.Delete })
}

// RequireEditType gates a route on the edit capability of a fixed post type.
func (g *Guard) RequireEditType(typeKey string) func(http.Handler) http.Handler {
	return g.require(fixedType(typeKey), func(caps simplecms.CapabilitySet) string { return caps.EditMany })
}

// RequireDeleteType gates a route on the delete capability of a fixed post type.
func (g *Guard) RequireDeleteType(typeKey string) func(http.Handler) http.Handler {
	return g.require(fixedType(typeKey), func(caps simplecms.CapabilitySet) string { return caps.Delete })
}

// RequireAdmin restricts a route to the administrator role.
func (g *Guard) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				http.Error(w, "missing role claim", http.StatusForbidden)
				return
			}
			if role != simplecms.RoleAdministrator {
				slog.Warn("Administrator route denied", "role", role, "path", r.URL.Path)
				http.Error(w, "administrator role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether the request's role holds the given capability.
func (g *Guard) Can(r *http.Request, capability string) bool {
	role, ok := RoleFromContext(r.Context())
	if !ok {
		return false
	}
	allowed, err := g.store.Allowed(r.Context(), string(role), capability)
	if err != nil {
		slog.Error("Capability check failed", "role", role, "capability", capability, "error", err)
		return false
	}
	return allowed
}

func typeFromURL(r *http.Request) string {
	return chi.URLParam(r, "type")
}

func fixedType(typeKey string) func(*http.Request) string {
	return func(*http.Request) string { return typeKey }
}

func (g *Guard) require(typeKey func(*http.Request) string, pick func(simplecms.CapabilitySet) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				http.Error(w, "missing role claim", http.StatusForbidden)
				return
			}

			mgr, err := g.service.Type(typeKey(r))
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}

			capability := pick(mgr.Capabilities())
			allowed, err := g.store.Allowed(r.Context(), string(role), capability)
			if err != nil {
				slog.Error("Capability check failed", "role", role, "capability", capability, "error", err)
				http.Error(w, "capability check failed", http.StatusInternalServerError)
				return
			}
			if !allowed {
				slog.Warn("Capability denied", "role", role, "capability", capability, "path", r.URL.Path)
				http.Error(w, "insufficient capabilities", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
