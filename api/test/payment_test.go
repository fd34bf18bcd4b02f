package test

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/alihussnain1122/cyberoide/api/web"
	"github.com/gorilla/mux"
	mock "github.com/stripe/stripe-mock/param"
)

type mockStripe struct {
	// expectedPrice is the unit amount, in minor units, the next checkout
	// session must carry.
	expectedPrice int
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		lines, ok := params["line_items"].(map[string]any)
		if !ok || len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			amount, err := strconv.Atoi(pd["unit_amount"].(string))
			if err != nil || amount != m.expectedPrice {
				web.Respond(context.Background(), w, nil, 400)
				return
			}
		}

		randID := fmt.Sprintf("cs_test_%d", rand.Intn(100000))
		session := map[string]any{
			"id":  randID,
			"url": "https://checkout.stripe.local/pay/" + randID,
		}
		web.Respond(context.Background(), w, session, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

type mockPaypal struct{}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "mock-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := map[string]any{"id": fmt.Sprintf("paypal-%d", rand.Intn(100000))}
		web.Respond(context.Background(), w, ord, 201)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := map[string]any{"id": web.Param(r, "id"), "status": "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}
