package purchase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alihussnain1122/cyberoide/api/background"
	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/config"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/core/course"
	"github.com/alihussnain1122/cyberoide/core/user"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// HandleStripeCheckout starts a checkout for one course: it records the
// intent as a pending ledger row and returns the provider's redirect URL.
// The course id and, when known, the buyer's user id travel as session
// metadata and come back on the webhook.
func HandleStripeCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, db, cn.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		buyer, known, err := resolveBuyer(ctx, db, cn.Email)
		if err != nil {
			return err
		}

		email := cn.Email
		if known {
			email = buyer.Email

			if _, err := FetchPaid(ctx, db, buyer.ID, crs.ID); err == nil {
				return weberr.Conflict(errors.New("purchase already settled"), "course already owned")
			} else if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		if email == "" {
			err := errors.New("an email address is required to check out")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL:    stripe.String(cfg.SuccessURL),
			CancelURL:     stripe.String(cfg.CancelURL),
			Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
			CustomerEmail: stripe.String(email),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(crs.Currency),
					UnitAmount: stripe.Int64(int64(crs.Price)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(crs.Title),
						Description: stripe.String(crs.Description),
					},
				},
			}},
		}

		params.AddMetadata("courseId", crs.ID)
		if known {
			params.AddMetadata("userId", buyer.ID)
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if known {
			now := time.Now().UTC()
			p := Purchase{
				ID:                validate.GenerateID(),
				UserID:            buyer.ID,
				CourseID:          crs.ID,
				Amount:            crs.Price,
				Currency:          crs.Currency,
				Status:            Pending,
				Provider:          "stripe",
				ProviderSessionID: s.ID,
				CreatedAt:         now,
				UpdatedAt:         now,
			}

			if err := UpsertPending(ctx, db, p); err != nil {
				return fmt.Errorf("recording checkout bound to payment[%s]: %w", s.ID, err)
			}
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

// HandleStripeWebhook consumes provider notifications. The provider is
// acknowledged as soon as the body has been read: processing outcomes never
// reach it and must not provoke its retry loop. Verification is synchronous;
// ledger reconciliation runs on the background runner.
func HandleStripeWebhook(db *sqlx.DB, bg *background.Background, log logrus.FieldLogger, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		ack := struct {
			Received bool `json:"received"`
		}{true}
		if err := web.Respond(ctx, w, ack, http.StatusOK); err != nil {
			log.WithField("message", err).Error("acknowledging webhook")
		}

		// Everything below is fire-and-forget relative to the response.
		// Unverified events must never touch the ledger.
		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			log.Error("dropping unsigned webhook event")
			return nil
		}

		if cfg.WebhookSecret == "" {
			log.Error("dropping webhook event: webhook secret not configured")
			return nil
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			log.WithField("message", err).Error("dropping webhook event: signature verification failed")
			return nil
		}

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				log.WithField("message", err).Error("dropping webhook event: undecodable checkout session")
				return nil
			}

			bg.Add(func(ctx context.Context) {
				ctx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				reconcileCompleted(ctx, db, log, session)
			})

		case "payment_intent.payment_failed":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				log.WithField("message", err).Error("dropping webhook event: undecodable payment intent")
				return nil
			}

			bg.Add(func(ctx context.Context) {
				ctx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				reconcileFailed(ctx, db, log, intent)
			})

		default:
			log.WithField("type", event.Type).Debug("ignoring webhook event")
		}

		return nil
	}
}

// HandlePaypalCheckout is the capture-style alternative to the Stripe flow.
func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, db, cn.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if _, err := FetchPaid(ctx, db, clm.UserID, crs.ID); err == nil {
			return weberr.Conflict(errors.New("purchase already settled"), "course already owned")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		cur := paypalCurrency(crs.Currency)
		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    "1",
				Name:        crs.Title,
				Description: crs.Description,

				UnitAmount: &paypal.Money{
					Currency: cur,
					Value:    majorUnits(crs.Price),
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: cur,
				Value:    majorUnits(crs.Price),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: cur,
					Value:    majorUnits(crs.Price),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		now := time.Now().UTC()
		p := Purchase{
			ID:                validate.GenerateID(),
			UserID:            clm.UserID,
			CourseID:          crs.ID,
			Amount:            crs.Price,
			Currency:          crs.Currency,
			Status:            Pending,
			Provider:          "paypal",
			ProviderSessionID: ord.ID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if err := UpsertPending(ctx, db, p); err != nil {
			return fmt.Errorf("recording checkout bound to payment[%s]: %w", ord.ID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		p, err := FetchBySession(ctx, db, "paypal", providerID)
		if err != nil {
			return fmt.Errorf("the order was payed but no ledger row matches payment[%s]: %w", providerID, err)
		}

		now := time.Now().UTC()
		p.PaidAt = &now
		p.UpdatedAt = now

		if err := MarkPaid(ctx, db, p); err != nil {
			return fmt.Errorf("the order was payed but its settlement failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// resolveBuyer identifies the paying user from the session claims when
// present, else by the submitted email. Checkout stays open to buyers with
// no local account; the webhook attributes those by email later.
func resolveBuyer(ctx context.Context, db sqlx.ExtContext, email string) (user.User, bool, error) {
	if clm, err := claims.Get(ctx); err == nil {
		usr, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return user.User{}, false, err
		}
		return usr, true, nil
	}

	if email != "" {
		usr, err := user.FetchByEmail(ctx, db, email)
		if err == nil {
			return usr, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return user.User{}, false, err
		}
	}

	return user.User{}, false, nil
}

// majorUnits renders cents the way PayPal wants amounts: "2500" -> "25.00".
func majorUnits(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func paypalCurrency(currency string) string {
	if currency == "" {
		currency = "usd"
	}
	b := []byte(currency)
	for i := range b {
		if 'a' <= b[i] && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}
