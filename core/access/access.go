// Package access decides whether a request identity may read the content of
// a course. The purchase ledger is the single source of truth for paid
// access; every read path goes through this package instead of re-deriving
// the rule.
package access

import (
	"context"
	"fmt"

	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/jmoiron/sqlx"
)

// Granted reports whether the identity in ctx may read the content of the
// course. The rule, short-circuiting in order: admins always may, the
// course's instructor may, anyone holding a paid purchase for the course
// may, nobody else. An unauthenticated context is simply not granted; it is
// never an error.
func Granted(ctx context.Context, db sqlx.ExtContext, courseID string) (bool, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return false, nil
	}

	if clm.Role == claims.RoleAdmin {
		return true, nil
	}

	const qc = `SELECT instructor_id FROM courses WHERE course_id = $1`

	var instructorID string
	if err := sqlx.GetContext(ctx, db, &instructorID, qc, courseID); err != nil {
		return false, fmt.Errorf("selecting course[%s] owner: %w", courseID, err)
	}

	if clm.UserID == instructorID {
		return true, nil
	}

	const qp = `
	SELECT EXISTS (
		SELECT 1 FROM purchases
		WHERE user_id = $1 AND course_id = $2 AND status = 'paid'
	)`

	var paid bool
	if err := sqlx.GetContext(ctx, db, &paid, qp, clm.UserID, courseID); err != nil {
		return false, fmt.Errorf("selecting paid purchase for user[%s] course[%s]: %w", clm.UserID, courseID, err)
	}

	return paid, nil
}

// PaidCourseIDs returns the set of courses the user holds a paid purchase
// for, used to flag whole course listings without one query per course.
func PaidCourseIDs(ctx context.Context, db sqlx.ExtContext, userID string) (map[string]bool, error) {
	const q = `SELECT course_id FROM purchases WHERE user_id = $1 AND status = 'paid'`

	var ids []string
	if err := sqlx.SelectContext(ctx, db, &ids, q, userID); err != nil {
		return nil, fmt.Errorf("selecting paid courses for user[%s]: %w", userID, err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
