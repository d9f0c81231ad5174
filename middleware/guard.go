package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/authstate"
)

const (
	DefaultLoginPath   = "/auth/login"
	DefaultLandingPath = "/dashboard"
)

// ViewSource supplies the current authentication view. *authstate.Engine
// and *authstate.Reconciler satisfy it through Auth and View respectively;
// use ViewFunc to adapt the latter.
type ViewSource interface {
	Auth() authstate.View
}

// ViewFunc adapts a function to ViewSource.
type ViewFunc func() authstate.View

func (f ViewFunc) Auth() authstate.View { return f() }

type viewContextKey struct{}

// ViewFromContext returns the view a guard attached to the request.
func ViewFromContext(ctx context.Context) (authstate.View, bool) {
	v, ok := ctx.Value(viewContextKey{}).(authstate.View)
	return v, ok
}

// RequireAuthenticated guards a protected route. While the view is loading
// the guard answers 503 with Retry-After; an unauthenticated request is
// redirected to loginPath with the original path in the "from" parameter.
func RequireAuthenticated(src ViewSource, loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			view := src.Auth()
			if view.IsLoading {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "authentication in progress", http.StatusServiceUnavailable)
				return
			}
			if !view.IsAuthenticated {
				target := loginPath + "?" + url.Values{"from": {r.URL.RequestURI()}}.Encode()
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), viewContextKey{}, view)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectAuthenticated guards a public route such as the login page. An
// authenticated visitor is redirected to the local "from" path, or to
// fallback when none is given.
func RedirectAuthenticated(src ViewSource, fallback string) func(http.Handler) http.Handler {
	if fallback == "" {
		fallback = DefaultLandingPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src != nil && src.Auth().IsAuthenticated {
				target := r.URL.Query().Get("from")
				if !isLocalPath(target) {
					target = fallback
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isLocalPath rejects absolute and scheme-relative URLs so "from" cannot be
// used as an open redirect.
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
