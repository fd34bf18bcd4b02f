package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/alihussnain1122/cyberoide/api/weberr"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/core/user"
	"github.com/alihussnain1122/cyberoide/random"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const sessionOauthState = "oauthState"

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// MakeProviders runs OIDC discovery for the configured login providers.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfgs))

	for _, c := range cfgs {
		if c.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, c.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering oidc provider[%s]: %w", c.Name, err)
		}

		providers[c.Name] = Provider{
			config: &oauth2.Config{
				ClientID:     c.Client,
				ClientSecret: c.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  c.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: c.Client}),
		}
	}

	return providers, nil
}

func HandleOauthLogin(session *scs.SessionManager, providers map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := random.String(32)
		session.Put(r.Context(), sessionOauthState, state)

		http.Redirect(w, r, prov.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, providers map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := session.PopString(r.Context(), sessionOauthState)
		if state == "" || state != r.URL.Query().Get("state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := prov.config.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("exchanging oauth code: %w", err))
		}

		rawID, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("token response carries no id_token"))
		}

		idTok, err := prov.verifier.Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var profile struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := idTok.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}

		usr, err := findOrCreate(ctx, db, profile.Name, profile.Email)
		if err != nil {
			return err
		}

		if err := login(r.Context(), session, usr); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}

// findOrCreate maps an external identity onto a local user, provisioning a
// student account with an unusable password on first login.
func findOrCreate(ctx context.Context, db *sqlx.DB, name string, email string) (user.User, error) {
	usr, err := user.FetchByEmail(ctx, db, email)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return user.User{}, err
	}

	secret, err := random.StringSecure(32)
	if err != nil {
		return user.User{}, fmt.Errorf("generating placeholder password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hashing placeholder password: %w", err)
	}

	now := time.Now().UTC()
	usr = user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         claims.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(ctx, db, usr); err != nil {
		return user.User{}, err
	}

	return usr, nil
}
