package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alihussnain1122/cyberoide/api"
	"github.com/alihussnain1122/cyberoide/api/background"
	"github.com/alihussnain1122/cyberoide/config"
	"github.com/alihussnain1122/cyberoide/core/auth"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/core/user"
	"github.com/alihussnain1122/cyberoide/database"
	"github.com/alihussnain1122/cyberoide/rate"
	"github.com/alihussnain1122/cyberoide/storage"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

type TestEnv struct {
	Server *httptest.Server
	URL    string
	DB     *sqlx.DB
	Log    *logrus.Logger

	Storage *storage.Memory
	Stripe  *mockStripe
	Paypal  *mockPaypal

	WebhookSecret string

	AdminEmail      string
	AdminPass       string
	Admin           user.User
	InstructorEmail string
	InstructorPass  string
	Instructor      user.User
	UserEmail       string
	UserPass        string
	User            user.User

	client *http.Client
}

// NewTestEnv spins up a Postgres container, migrates it, seeds one user per
// role and serves the full API mux against mocked payment providers and an
// in-memory object store.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { pool.Purge(res) })

	dbCfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       res.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = database.Open(dbCfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	logger := logrus.New()

	env := &TestEnv{
		DB:            db,
		Log:           logger,
		Storage:       storage.NewMemory(),
		Stripe:        &mockStripe{},
		Paypal:        &mockPaypal{},
		WebhookSecret: "whsec_" + name,

		AdminEmail:      "admin@test.com",
		AdminPass:       "admin-pass-123",
		InstructorEmail: "instructor@test.com",
		InstructorPass:  "instructor-pass-123",
		UserEmail:       "student@test.com",
		UserPass:        "student-pass-123",
	}

	if env.Admin, err = seedUser(db, "Admin", env.AdminEmail, env.AdminPass, claims.RoleAdmin); err != nil {
		return nil, err
	}
	if env.Instructor, err = seedUser(db, "Instructor", env.InstructorEmail, env.InstructorPass, claims.RoleInstructor); err != nil {
		return nil, err
	}
	if env.User, err = seedUser(db, "Student", env.UserEmail, env.UserPass, claims.RoleStudent); err != nil {
		return nil, err
	}

	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_mock", &stripe.Backends{API: backend, Uploads: backend, Connect: backend})

	paypalSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("test-client", "test-secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("fetching paypal token from mock: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:             logger,
		DB:              db,
		Session:         sessionManager,
		Background:      background.New(logger),
		Storage:         env.Storage,
		Paypal:          pp,
		Stripe:          strp,
		StripeCfg:       config.Stripe{WebhookSecret: env.WebhookSecret, SuccessURL: "http://front/success", CancelURL: "http://front/cancel"},
		Providers:       map[string]auth.Provider{},
		UploadMaxBytes:  1 << 20,
		CheckoutLimiter: rate.NewLimiter(1000, 100, rate.Every(time.Microsecond)),
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)
	env.URL = env.Server.URL

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}
	env.client = &http.Client{Jar: jar}

	return env, nil
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

func seedUser(db *sqlx.DB, name string, email string, pass string, role string) (user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), db, usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func Login(te *TestEnv, email string, pass string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": pass})
	if err != nil {
		return err
	}

	w, err := te.Client().Post(te.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login as %s: status code %s", email, w.Status)
	}
	return nil
}

func Logout(te *TestEnv) error {
	w, err := te.Client().Post(te.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout: status code %s", w.Status)
	}
	return nil
}

// waitFor polls cond until it holds or the deadline passes. Webhook
// reconciliation is asynchronous, assertions on its outcome need this.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
