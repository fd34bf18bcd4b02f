package course

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	INSERT INTO courses (course_id, title, description, price, currency, instructor_id, created_at, updated_at)
	VALUES (:course_id, :title, :description, :price, :currency, :instructor_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`

	var crs Course
	if err := sqlx.GetContext(ctx, db, &crs, q, id); err != nil {
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}

	return crs, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Course, error) {
	const q = `SELECT * FROM courses ORDER BY created_at`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}

	return courses, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	UPDATE courses
	SET title = :title, description = :description, price = :price,
		updated_at = :updated_at, version = version + 1
	WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
	}

	return nil
}

// FetchOwned returns the courses the user holds a paid purchase for.
func FetchOwned(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses AS c
	JOIN purchases AS p ON p.course_id = c.course_id
	WHERE p.user_id = $1 AND p.status = 'paid'
	ORDER BY p.paid_at DESC`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q, userID); err != nil {
		return nil, fmt.Errorf("selecting courses owned by user[%s]: %w", userID, err)
	}

	return courses, nil
}

// FetchSales aggregates the paid purchases of one course.
func FetchSales(ctx context.Context, db sqlx.ExtContext, crs Course) (Sales, error) {
	const qTot = `
	SELECT COUNT(*), COALESCE(SUM(amount), 0)
	FROM purchases
	WHERE course_id = $1 AND status = 'paid'`

	s := Sales{CourseID: crs.ID, Title: crs.Title}
	row := db.QueryRowxContext(ctx, qTot, crs.ID)
	if err := row.Scan(&s.TotalSales, &s.TotalRevenue); err != nil {
		return Sales{}, fmt.Errorf("aggregating sales of course[%s]: %w", crs.ID, err)
	}

	const qRecent = `
	SELECT p.purchase_id, u.name, u.email, p.amount, p.paid_at
	FROM purchases AS p
	JOIN users AS u ON u.user_id = p.user_id
	WHERE p.course_id = $1 AND p.status = 'paid'
	ORDER BY p.paid_at DESC
	LIMIT 5`

	s.Recent = []RecentSale{}
	if err := sqlx.SelectContext(ctx, db, &s.Recent, qRecent, crs.ID); err != nil {
		return Sales{}, fmt.Errorf("selecting recent sales of course[%s]: %w", crs.ID, err)
	}

	return s, nil
}
