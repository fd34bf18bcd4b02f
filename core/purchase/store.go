package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FetchPaid returns the paid purchase for the pair, sql.ErrNoRows if the
// pair was never paid.
func FetchPaid(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Purchase, error) {
	const q = `
	SELECT * FROM purchases
	WHERE user_id = $1 AND course_id = $2 AND status = 'paid'`

	var p Purchase
	if err := sqlx.GetContext(ctx, db, &p, q, userID, courseID); err != nil {
		return Purchase{}, fmt.Errorf("selecting paid purchase for user[%s] course[%s]: %w", userID, courseID, err)
	}

	return p, nil
}

func FetchBySession(ctx context.Context, db sqlx.ExtContext, provider string, sessionID string) (Purchase, error) {
	const q = `
	SELECT * FROM purchases
	WHERE provider = $1 AND provider_session_id = $2`

	var p Purchase
	if err := sqlx.GetContext(ctx, db, &p, q, provider, sessionID); err != nil {
		return Purchase{}, fmt.Errorf("selecting purchase bound to payment[%s]: %w", sessionID, err)
	}

	return p, nil
}

// UpsertPending records checkout intent for a pair. An existing pending or
// failed row is reused and refreshed in place; a paid row is left untouched.
// Single conditional statement, no read-then-write gap.
func UpsertPending(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, currency, status, provider, provider_session_id, created_at, updated_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount, :currency, 'pending', :provider, :provider_session_id, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE
	SET amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		status = 'pending',
		provider = EXCLUDED.provider,
		provider_session_id = EXCLUDED.provider_session_id,
		updated_at = EXCLUDED.updated_at
	WHERE purchases.status <> 'paid'`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("upserting pending purchase: %w", err)
	}

	return nil
}

// MarkPaid settles the pair: a pending or failed row transitions to paid, a
// missing row is created directly as paid (the webhook may race ahead of the
// local checkout write), and a row that is already paid stays exactly as it
// is. Duplicate deliveries of the same event therefore converge on a single
// paid row. Single conditional statement, atomic on the (user, course) key.
func MarkPaid(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, currency, status, provider, provider_session_id, paid_at, created_at, updated_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount, :currency, 'paid', :provider, :provider_session_id, :paid_at, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE
	SET status = 'paid',
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		provider = EXCLUDED.provider,
		provider_session_id = EXCLUDED.provider_session_id,
		paid_at = EXCLUDED.paid_at,
		updated_at = EXCLUDED.updated_at
	WHERE purchases.status IN ('pending', 'failed')`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("marking purchase paid: %w", err)
	}

	return nil
}

// MarkFailed transitions a pending pair to failed. No matching pending row
// is a no-op, not an error.
func MarkFailed(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) error {
	const q = `
	UPDATE purchases
	SET status = 'failed', updated_at = $3
	WHERE user_id = $1 AND course_id = $2 AND status = 'pending'`

	if _, err := db.ExecContext(ctx, q, userID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("marking purchase failed: %w", err)
	}

	return nil
}
