package site

import (
	"net/http"

	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/domain/model"
)

// AccessDeniedPath is where the guard sends unauthenticated visitors.
const AccessDeniedPath = "/access-denied"

// Guard renders next only for a signed-in visitor. With enforceRoles set, a
// visitor whose cached role differs from required is turned away as well;
// a visitor without a cached role is let through.
func Guard(required model.Role, enforceRoles bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, ok := websession.FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, AccessDeniedPath, http.StatusFound)
			return
		}
		if _, signedIn := e.Session.Current(); !signedIn {
			http.Redirect(w, r, AccessDeniedPath, http.StatusFound)
			return
		}
		if enforceRoles {
			if role, known := e.Session.Role(); known && role != required {
				http.Redirect(w, r, AccessDeniedPath, http.StatusFound)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
