package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/core/claims"
)

const (
	sessionUserID = "userID"
	sessionRole   = "role"
)

// LoadAndSave adapts the session manager's http.Handler middleware to the
// web.Handler chain. It must be the outermost middleware so every handler
// sees a loaded session and writes are committed to the cookie.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))
			sh.ServeHTTP(w, r)

			return err
		}
		return h
	}
	return m
}

// Identify puts claims on the context when a session identity exists and
// lets the request through either way. For routes that behave differently
// for known users but stay open to everyone.
func Identify(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if id := session.GetString(r.Context(), sessionUserID); id != "" {
				clm := claims.Claims{
					UserID: id,
					Role:   session.GetString(r.Context(), sessionRole),
				}
				ctx = claims.Set(ctx, clm)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Authenticate rejects requests without a session identity.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			id := session.GetString(r.Context(), sessionUserID)
			if id == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: id,
				Role:   session.GetString(r.Context(), sessionRole),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin allows admins only.
func Admin(session *scs.SessionManager) web.Middleware {
	return requireRole(session, claims.RoleAdmin)
}

// Instructor allows instructors and admins.
func Instructor(session *scs.SessionManager) web.Middleware {
	return requireRole(session, claims.RoleInstructor, claims.RoleAdmin)
}

func requireRole(session *scs.SessionManager, roles ...string) web.Middleware {
	authen := Authenticate(session)

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			for _, role := range roles {
				if clm.Role == role {
					return handler(ctx, w, r)
				}
			}

			return weberr.Forbidden(errors.New("role is not allowed to access this resource"))
		}
		return h
	}

	return func(handler web.Handler) web.Handler {
		return authen(m(handler))
	}
}
