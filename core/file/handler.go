package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/storage"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// urlTTL bounds the exposure of a leaked retrieval link.
const urlTTL = 15 * time.Minute

// HandleUpload commits a new course material: bytes go to the object store
// first, the ledger row is written only after the storage write succeeded.
func HandleUpload(db *sqlx.DB, store storage.ObjectStore, log logrus.FieldLogger, maxBytes int64) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		instructorID, err := fetchCourseOwner(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if clm.Role != claims.RoleAdmin && clm.UserID != instructorID {
			return weberr.Forbidden(errors.New("only the course instructor may upload materials"))
		}

		// Reject oversized bodies while they stream in rather than after
		// buffering them. The slack covers multipart framing.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024*1024)

		src, header, err := r.FormFile("file")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return weberr.TooLarge(err)
			}
			return weberr.BadRequest(fmt.Errorf("reading multipart file: %w", err))
		}
		defer src.Close()

		if header.Size > maxBytes {
			return weberr.TooLarge(fmt.Errorf("file of %d bytes exceeds the %d byte limit", header.Size, maxBytes))
		}

		mimeType := header.Header.Get("Content-Type")
		if !TypeAllowed(mimeType) {
			return weberr.UnsupportedMedia(fmt.Errorf("mime type %q is not allowed", mimeType))
		}

		now := time.Now().UTC()
		key := StorageKey(courseID, now, header.Filename)

		if err := store.Put(ctx, key, src, header.Size, mimeType); err != nil {
			if errors.Is(err, storage.ErrNotConfigured) {
				return weberr.Unavailable(err)
			}
			return fmt.Errorf("storing upload under key[%s]: %w", key, err)
		}

		f := File{
			ID:           validate.GenerateID(),
			CourseID:     courseID,
			InstructorID: instructorID,
			StorageKey:   key,
			Filename:     header.Filename,
			MimeType:     mimeType,
			SizeBytes:    header.Size,
			UploadedAt:   now,
		}

		if err := Create(ctx, db, f); err != nil {
			// The bytes are already stored; leave the object for a later
			// cleanup sweep rather than failing the cleanup path too.
			log.WithFields(logrus.Fields{
				"course_id":   courseID,
				"storage_key": key,
			}).Error("upload stored but ledger write failed, object orphaned")
			return fmt.Errorf("recording upload under key[%s]: %w", key, err)
		}

		return web.Respond(ctx, w, f, http.StatusCreated)
	}
}

// HandleSignedURL issues a fresh short-lived retrieval link for a material.
// Course access has already been enforced by the route's access guard.
func HandleSignedURL(db *sqlx.DB, store storage.ObjectStore) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		fileID := web.Param(r, "file_id")

		f, err := Fetch(ctx, db, fileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if f.CourseID != courseID {
			return weberr.BadRequest(fmt.Errorf("file[%s] does not belong to course[%s]", fileID, courseID))
		}

		url, err := store.SignedGet(ctx, f.StorageKey, urlTTL)
		if err != nil {
			if errors.Is(err, storage.ErrNotConfigured) {
				return weberr.Unavailable(err)
			}
			return fmt.Errorf("signing url for file[%s]: %w", fileID, err)
		}

		grant := Grant{
			URL:       url,
			ExpiresAt: time.Now().UTC().Add(urlTTL),
			Filename:  f.Filename,
			MimeType:  f.MimeType,
		}

		return web.Respond(ctx, w, grant, http.StatusOK)
	}
}

// HandleListByCourse lists a course's materials in upload order. Guarded by
// the course access middleware.
func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")

		files, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, files, http.StatusOK)
	}
}

// HandleDelete removes a material: the ledger row first, then the stored
// object best-effort. A storage failure must not resurrect the row.
func HandleDelete(db *sqlx.DB, store storage.ObjectStore, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		fileID := web.Param(r, "file_id")

		f, err := Fetch(ctx, db, fileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if f.CourseID != courseID {
			return weberr.BadRequest(fmt.Errorf("file[%s] does not belong to course[%s]", fileID, courseID))
		}

		if clm.Role != claims.RoleAdmin && clm.UserID != f.InstructorID {
			return weberr.Forbidden(errors.New("only the course instructor may delete materials"))
		}

		if err := Delete(ctx, db, fileID); err != nil {
			return err
		}

		if err := store.Delete(ctx, f.StorageKey); err != nil {
			log.WithFields(logrus.Fields{
				"file_id":     fileID,
				"storage_key": f.StorageKey,
				"message":     err,
			}).Error("file row deleted but storage object removal failed")
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
