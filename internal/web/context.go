package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/healthdash/internal/core"
)

// sessionMiddleware attaches the browser session to the request context and
// issues a new cookie when the session is new or has expired.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		sess := s.service.Sessions().Get(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := core.ContextWithSessionID(r.Context(), sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the request's remote IP without the port. RemoteAddr has
// already been rewritten by TrustedRealIP for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
