package purchase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alihussnain1122/cyberoide/core/course"
	"github.com/alihussnain1122/cyberoide/core/user"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
)

// reconcileCompleted settles a verified checkout.session.completed event.
// Delivery is at-least-once with arbitrary reordering, so every outcome must
// be safe to repeat; the ledger write is the conditional MarkPaid upsert
// keyed on (user, course), not on the event. Failures are terminal for the
// event and logged with enough correlation data for manual reconciliation.
func reconcileCompleted(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, session stripe.CheckoutSession) {
	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	log = log.WithFields(logrus.Fields{
		"provider":   "stripe",
		"session_id": session.ID,
		"email":      email,
	})

	courseID := session.Metadata["courseId"]
	if courseID == "" {
		log.Error("dropping completed checkout: no courseId in metadata")
		return
	}
	log = log.WithField("course_id", courseID)

	usr, err := resolvePayer(ctx, db, session.Metadata["userId"], email)
	if err != nil {
		// The payment went through externally but cannot be attributed
		// locally. Needs an operator, not a silent success.
		log.WithField("message", err).Error("dropping completed checkout: paying user does not resolve")
		return
	}
	log = log.WithField("user_id", usr.ID)

	crs, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		log.WithField("message", err).Error("dropping completed checkout: course does not resolve")
		return
	}

	currency := string(session.Currency)
	if currency == "" {
		currency = crs.Currency
	}

	now := time.Now().UTC()
	p := Purchase{
		ID:                validate.GenerateID(),
		UserID:            usr.ID,
		CourseID:          crs.ID,
		Amount:            int(session.AmountTotal),
		Currency:          currency,
		Status:            Paid,
		Provider:          "stripe",
		ProviderSessionID: session.ID,
		PaidAt:            &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := MarkPaid(ctx, db, p); err != nil {
		log.WithField("message", err).Error("settling completed checkout failed")
		return
	}

	log.Info("purchase settled")
}

// reconcileFailed flips a pending purchase to failed. Events without full
// correlation metadata or without a matching pending row are no-ops.
func reconcileFailed(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, intent stripe.PaymentIntent) {
	courseID := intent.Metadata["courseId"]
	userID := intent.Metadata["userId"]

	log = log.WithFields(logrus.Fields{
		"provider":  "stripe",
		"intent_id": intent.ID,
		"course_id": courseID,
		"user_id":   userID,
	})

	if courseID == "" || userID == "" {
		log.Debug("ignoring failed payment without correlation metadata")
		return
	}

	if err := MarkFailed(ctx, db, userID, courseID); err != nil {
		log.WithField("message", err).Error("recording failed payment")
		return
	}

	log.Info("purchase marked failed")
}

func resolvePayer(ctx context.Context, db sqlx.ExtContext, userID string, email string) (user.User, error) {
	if userID != "" {
		return user.Fetch(ctx, db, userID)
	}

	if email == "" {
		return user.User{}, errors.New("event carries neither userId metadata nor a customer email")
	}

	usr, err := user.FetchByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, errors.New("no local user matches the customer email")
		}
		return user.User{}, err
	}

	return usr, nil
}
