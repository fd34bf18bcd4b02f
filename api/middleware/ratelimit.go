package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/rate"
)

// RateLimit throttles a route per client, keyed by user when authenticated
// and by remote address otherwise.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}
			if clm, err := claims.Get(ctx); err == nil {
				key = clm.UserID
			}

			if !lim.Check(key) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
