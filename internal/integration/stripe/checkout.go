// Package stripe builds guest checkout sessions on a tenant's connected
// account.
package stripe

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"

	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

const Provider = "stripe"

// SessionCreator is the slice of the stripe client checkout needs.
type SessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

type Factory struct {
	newSessions func(secretKey string) SessionCreator
}

// NewFactory builds one stripe client per bundle so each platform key stays
// with its own calls.
func NewFactory() *Factory {
	return &Factory{newSessions: func(secretKey string) SessionCreator {
		return stripe.NewClient(secretKey).V1CheckoutSessions
	}}
}

// NewFactoryWithSessions swaps the stripe client, for tests.
func NewFactoryWithSessions(fn func(secretKey string) SessionCreator) *Factory {
	return &Factory{newSessions: fn}
}

func (f *Factory) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationPayment
}

func (f *Factory) Provider() string { return Provider }

func (f *Factory) New(bundle credentialdomain.Bundle) (integrationdomain.Client, error) {
	if bundle.Integration != credentialdomain.IntegrationPayment {
		return nil, integrationdomain.ErrInvalidBundle
	}
	if !bundle.ConnectMode || strings.TrimSpace(bundle.AccountID) == "" {
		return nil, credentialdomain.ErrMissingPaymentAccount
	}
	currency := strings.ToLower(strings.TrimSpace(bundle.Currency))
	if currency == "" {
		currency = "usd"
	}
	secretKey := strings.TrimSpace(bundle.Secret(credentialdomain.SecretSecretKey))
	return &CheckoutClient{
		sessions:  f.newSessions(secretKey),
		secretKey: secretKey,
		accountID: strings.TrimSpace(bundle.AccountID),
		currency:  currency,
	}, nil
}

type CheckoutClient struct {
	sessions  SessionCreator
	secretKey string
	accountID string
	currency  string
}

func (c *CheckoutClient) Name() string { return Provider }

func (c *CheckoutClient) Capabilities() []integrationdomain.Capability {
	return []integrationdomain.Capability{integrationdomain.CapabilityCheckout}
}

func (c *CheckoutClient) Ready() bool {
	return c.secretKey != "" && c.accountID != "" && c.sessions != nil
}

func (c *CheckoutClient) AccountID() string { return c.accountID }

// CreateCheckout opens a one-off payment session on the connected account.
// Amounts are in major units and rounded to the minor unit.
func (c *CheckoutClient) CreateCheckout(ctx context.Context, req integrationdomain.CheckoutRequest) (*integrationdomain.CheckoutSession, error) {
	if !c.Ready() {
		return nil, integrationdomain.ErrClientNotReady
	}
	if !req.Amount.IsPositive() || strings.TrimSpace(req.SuccessURL) == "" || strings.TrimSpace(req.CancelURL) == "" {
		return nil, integrationdomain.ErrInvalidRequest
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = c.currency
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Stay payment"
	}
	unitAmount := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		params.ClientReferenceID = stripe.String(ref)
		params.SetIdempotencyKey("checkout:" + c.accountID + ":" + ref)
	}
	params.SetStripeAccount(c.accountID)

	sess, err := c.sessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.ID == "" {
		return nil, integrationdomain.ErrUpstream
	}
	return &integrationdomain.CheckoutSession{ID: sess.ID, URL: sess.URL, Provider: Provider}, nil
}
