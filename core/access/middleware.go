package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/jmoiron/sqlx"
)

// Authorize guards routes carrying a {course_id} path parameter. A missing
// course is a 404, a caller without access a 403; the wrapped handler only
// ever runs for callers that passed the Granted rule.
func Authorize(db *sqlx.DB) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			courseID := web.Param(r, "course_id")

			ok, err := Granted(ctx, db, courseID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return weberr.NotFound(err)
				}
				return fmt.Errorf("checking access to course[%s]: %w", courseID, err)
			}

			if !ok {
				return weberr.Forbidden(errors.New("course has not been purchased"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
