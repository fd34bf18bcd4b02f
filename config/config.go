package config

import "time"

type Config struct {
	Web     Web
	Cors    Cors
	DB      DB
	Auth    Auth
	Oauth   Oauth
	Stripe  Stripe
	Paypal  Paypal
	Storage Storage
	Upload  Upload
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:cyberoide"`
	DisableTLS bool   `conf:"default:true"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/success"`
	CancelURL     string `conf:"default:http://localhost:3000/cancel"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

// Storage configures the object store holding course materials. When
// Endpoint is empty the server starts with storage disabled: uploads and
// signed-url requests fail with a not-configured error instead of crashing.
type Storage struct {
	Endpoint  string
	AccessKey string
	SecretKey string `conf:"mask"`
	Bucket    string `conf:"default:courses"`
	UseSSL    bool   `conf:"default:true"`
}

type Upload struct {
	MaxBytes int64 `conf:"default:52428800"`
}
