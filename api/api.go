package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/alihussnain1122/cyberoide/api/background"
	"github.com/alihussnain1122/cyberoide/api/middleware"
	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/config"
	"github.com/alihussnain1122/cyberoide/core/access"
	"github.com/alihussnain1122/cyberoide/core/auth"
	"github.com/alihussnain1122/cyberoide/core/course"
	"github.com/alihussnain1122/cyberoide/core/file"
	"github.com/alihussnain1122/cyberoide/core/purchase"
	"github.com/alihussnain1122/cyberoide/core/user"
	"github.com/alihussnain1122/cyberoide/rate"
	"github.com/alihussnain1122/cyberoide/storage"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Background       *background.Background
	Storage          storage.ObjectStore
	Paypal           *paypal.Client
	Stripe           *stripecl.API
	StripeCfg        config.Stripe
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	UploadMaxBytes   int64
	CheckoutLimiter  *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	identify := auth.Identify(cfg.Session)
	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	instructor := auth.Instructor(cfg.Session)
	granted := access.Authorize(cfg.DB)
	limited := middleware.RateLimit(cfg.CheckoutLimiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users", user.HandleList(cfg.DB), admin)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/files/{file_id}/signed-url", file.HandleSignedURL(cfg.DB, cfg.Storage), authen, granted)
	a.Handle(http.MethodDelete, "/courses/{course_id}/files/{file_id}", file.HandleDelete(cfg.DB, cfg.Storage, cfg.Log), instructor)
	a.Handle(http.MethodGet, "/courses/{course_id}/files", file.HandleListByCourse(cfg.DB), authen, granted)
	a.Handle(http.MethodPost, "/courses/{course_id}/files", file.HandleUpload(cfg.DB, cfg.Storage, cfg.Log, cfg.UploadMaxBytes), instructor)
	a.Handle(http.MethodGet, "/courses/{id}/sales", course.HandleSales(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB), identify)
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB), identify)
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), instructor)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), instructor)

	a.Handle(http.MethodPost, "/checkout/stripe", purchase.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg), identify, limited)
	a.Handle(http.MethodPost, "/checkout/paypal", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen, limited)
	a.Handle(http.MethodPost, "/checkout/paypal/{id}/capture", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)

	a.Handle(http.MethodPost, "/webhooks/stripe", purchase.HandleStripeWebhook(cfg.DB, cfg.Background, cfg.Log, cfg.StripeCfg))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
