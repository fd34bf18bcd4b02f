package course

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/core/access"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/core/file"
	"github.com/alihussnain1122/cyberoide/database"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/jmoiron/sqlx"
)

type listed struct {
	Course
	HasAccess bool `json:"hasAccess"`
}

// detail embeds materials only when the caller has access; everyone else
// gets the redacted summary.
type detail struct {
	Course
	HasAccess bool        `json:"hasAccess"`
	Materials []file.File `json:"materials,omitempty"`
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if cn.Currency == "" {
			cn.Currency = "usd"
		}

		now := time.Now().UTC()
		crs := Course{
			ID:           validate.GenerateID(),
			Title:        cn.Title,
			Description:  cn.Description,
			Price:        cn.Price,
			Currency:     cn.Currency,
			InstructorID: clm.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := Create(ctx, db, crs); err != nil {
			return err
		}

		return web.Respond(ctx, w, crs, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		// Read-modify-write: the fetch and the conditional write must see
		// the same row.
		var crs Course
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if crs, err = Fetch(ctx, tx, id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return weberr.NotFound(err)
				}
				return err
			}

			if clm.Role != claims.RoleAdmin && clm.UserID != crs.InstructorID {
				return weberr.Forbidden(errors.New("only the course instructor may update it"))
			}

			if cu.Title != nil {
				crs.Title = *cu.Title
			}
			if cu.Description != nil {
				crs.Description = *cu.Description
			}
			if cu.Price != nil {
				crs.Price = *cu.Price
			}
			crs.UpdatedAt = time.Now().UTC()

			return Update(ctx, tx, crs)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

// HandleList returns every course with a per-course access flag for the
// caller. Anonymous callers simply get hasAccess false everywhere.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courses, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		var paid map[string]bool
		clm, authed := claims.Claims{}, false
		if c, err := claims.Get(ctx); err == nil {
			clm, authed = c, true
			if paid, err = access.PaidCourseIDs(ctx, db, clm.UserID); err != nil {
				return err
			}
		}

		out := make([]listed, 0, len(courses))
		for _, crs := range courses {
			granted := authed &&
				(clm.Role == claims.RoleAdmin || clm.UserID == crs.InstructorID || paid[crs.ID])
			out = append(out, listed{Course: crs, HasAccess: granted})
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleShow returns the course with full materials when the caller has
// access and the redacted summary otherwise.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		granted, err := access.Granted(ctx, db, crs.ID)
		if err != nil {
			return err
		}

		d := detail{Course: crs, HasAccess: granted}
		if granted {
			if d.Materials, err = file.FetchByCourse(ctx, db, crs.ID); err != nil {
				return err
			}
		}

		return web.Respond(ctx, w, d, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := FetchOwned(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleSales(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")

		crs, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if clm.Role != claims.RoleAdmin && clm.UserID != crs.InstructorID {
			return weberr.Forbidden(errors.New("only the course instructor may view sales"))
		}

		sales, err := FetchSales(ctx, db, crs)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, sales, http.StatusOK)
	}
}
