package file

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, f File) error {
	const q = `
	INSERT INTO files (file_id, course_id, instructor_id, storage_key, filename, mime_type, size_bytes, uploaded_at)
	VALUES (:file_id, :course_id, :instructor_id, :storage_key, :filename, :mime_type, :size_bytes, :uploaded_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, f); err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (File, error) {
	const q = `SELECT * FROM files WHERE file_id = $1`

	var f File
	if err := sqlx.GetContext(ctx, db, &f, q, id); err != nil {
		return File{}, fmt.Errorf("selecting file[%s]: %w", id, err)
	}

	return f, nil
}

// FetchByCourse returns a course's materials in upload order.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]File, error) {
	const q = `SELECT * FROM files WHERE course_id = $1 ORDER BY uploaded_at, file_id`

	files := []File{}
	if err := sqlx.SelectContext(ctx, db, &files, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting files of course[%s]: %w", courseID, err)
	}

	return files, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM files WHERE file_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting file[%s]: %w", id, err)
	}

	return nil
}

// fetchCourseOwner resolves the instructor of a course. The file package
// keeps its own query instead of importing the course package, which imports
// this one for course materials.
func fetchCourseOwner(ctx context.Context, db sqlx.ExtContext, courseID string) (string, error) {
	const q = `SELECT instructor_id FROM courses WHERE course_id = $1`

	var instructorID string
	if err := sqlx.GetContext(ctx, db, &instructorID, q, courseID); err != nil {
		return "", fmt.Errorf("selecting course[%s] owner: %w", courseID, err)
	}

	return instructorID, nil
}
