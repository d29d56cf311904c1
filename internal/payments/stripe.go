package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// stripeAPI is the narrow slice of the Stripe client the gateway needs;
// tests inject a fake.
type stripeAPI interface {
	SearchCustomers(params *stripe.CustomerSearchParams) ([]*stripe.Customer, error)
	CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	CreatePaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error)
}

type liveAPI struct {
	sc *client.API
}

func (a liveAPI) SearchCustomers(params *stripe.CustomerSearchParams) ([]*stripe.Customer, error) {
	iter := a.sc.Customers.Search(params)
	var out []*stripe.Customer
	for iter.Next() {
		out = append(out, iter.Customer())
	}
	return out, iter.Err()
}

func (a liveAPI) CreateCustomer(params *stripe.CustomerParams) (*stripe.Customer, error) {
	return a.sc.Customers.New(params)
}

func (a liveAPI) CreatePaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return a.sc.PaymentIntents.New(params)
}

func (a liveAPI) CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	return a.sc.Refunds.New(params)
}

// Gateway implements the orchestrator's payment capability on Stripe.
type Gateway struct {
	api stripeAPI
	log zerolog.Logger
}

type GatewayConfig struct {
	APIKey string
	Logger zerolog.Logger

	// API overrides the live Stripe client, for tests.
	API stripeAPI
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	api := cfg.API
	if api == nil {
		key := strings.TrimSpace(cfg.APIKey)
		if key == "" {
			return nil, errors.New("stripe: api key is required")
		}
		api = liveAPI{sc: client.New(key, nil)}
	}
	return &Gateway{api: api, log: cfg.Logger}, nil
}

// FindOrCreateCustomer looks a customer up by email and creates one with the
// given metadata when absent.
func (g *Gateway) FindOrCreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	search := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("email:'%s'", email),
			Context: ctx,
		},
	}
	existing, err := g.api.SearchCustomers(search)
	if err != nil {
		return "", fmt.Errorf("search customers: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	created, err := g.api.CreateCustomer(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return created.ID, nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, customerID string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(currency),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	intent, err := g.api.CreatePaymentIntent(params)
	if err != nil {
		return "", "", fmt.Errorf("create payment intent: %w", err)
	}
	return intent.ClientSecret, intent.ID, nil
}

func (g *Gateway) Refund(ctx context.Context, intentID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if _, err := g.api.CreateRefund(params); err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}
