package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

type sessionsFunc func(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)

func (f sessionsFunc) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return f(ctx, params)
}

func staticSessions(fn sessionsFunc) *Factory {
	return NewFactoryWithSessions(func(string) SessionCreator { return fn })
}

func paymentBundle(account string) credentialdomain.Bundle {
	return credentialdomain.Bundle{
		Integration: credentialdomain.IntegrationPayment,
		Provider:    Provider,
		ConnectMode: true,
		AccountID:   account,
		Currency:    "EUR",
		Secrets:     map[string]string{credentialdomain.SecretSecretKey: "sk_test_platform"},
	}
}

func TestCheckoutClient_CreateCheckout(t *testing.T) {
	var (
		captured *stripe.CheckoutSessionCreateParams
		usedKey  string
	)
	factory := NewFactoryWithSessions(func(secretKey string) SessionCreator {
		usedKey = secretKey
		return sessionsFunc(func(_ context.Context, p *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
			captured = p
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
		})
	})

	client, err := factory.New(paymentBundle("acct_hotel"))
	require.NoError(t, err)
	require.True(t, client.Ready())

	sess, err := client.(*CheckoutClient).CreateCheckout(context.Background(), integrationdomain.CheckoutRequest{
		Amount:      decimal.RequireFromString("120.505"),
		Description: "Deluxe room, 2 nights",
		Reference:   "booking-77",
		SuccessURL:  "https://hotel.example/ok",
		CancelURL:   "https://hotel.example/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "sk_test_platform", usedKey)

	require.NotNil(t, captured)
	require.NotNil(t, captured.StripeAccount)
	assert.Equal(t, "acct_hotel", *captured.StripeAccount)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *captured.Mode)
	assert.Equal(t, "booking-77", *captured.ClientReferenceID)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, int64(12051), *captured.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "eur", *captured.LineItems[0].PriceData.Currency)
	assert.Empty(t, stripe.Key)
}

func TestFactory_KeepsKeysPerBundle(t *testing.T) {
	keys := map[string]string{}
	factory := NewFactoryWithSessions(func(secretKey string) SessionCreator {
		return sessionsFunc(func(_ context.Context, p *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
			keys[*p.StripeAccount] = secretKey
			return &stripe.CheckoutSession{ID: "cs_" + *p.StripeAccount}, nil
		})
	})

	first := paymentBundle("acct_one")
	second := paymentBundle("acct_two")
	second.Secrets = map[string]string{credentialdomain.SecretSecretKey: "sk_test_other"}

	for _, b := range []credentialdomain.Bundle{first, second} {
		client, err := factory.New(b)
		require.NoError(t, err)
		_, err = client.(*CheckoutClient).CreateCheckout(context.Background(), integrationdomain.CheckoutRequest{
			Amount:     decimal.NewFromInt(50),
			SuccessURL: "https://a",
			CancelURL:  "https://b",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]string{"acct_one": "sk_test_platform", "acct_two": "sk_test_other"}, keys)
}

func TestFactory_RequiresConnectedAccount(t *testing.T) {
	_, err := NewFactory().New(paymentBundle(""))
	assert.ErrorIs(t, err, credentialdomain.ErrMissingPaymentAccount)
}

func TestCheckoutClient_InvalidAmount(t *testing.T) {
	client, err := staticSessions(func(context.Context, *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
		t.Fatal("session must not be created")
		return nil, nil
	}).New(paymentBundle("acct_hotel"))
	require.NoError(t, err)

	_, err = client.(*CheckoutClient).CreateCheckout(context.Background(), integrationdomain.CheckoutRequest{
		Amount:     decimal.Zero,
		SuccessURL: "https://a",
		CancelURL:  "https://b",
	})
	assert.ErrorIs(t, err, integrationdomain.ErrInvalidRequest)
}

func TestCheckoutClient_PropagatesStripeError(t *testing.T) {
	client, err := staticSessions(func(context.Context, *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("card_declined")
	}).New(paymentBundle("acct_hotel"))
	require.NoError(t, err)

	_, err = client.(*CheckoutClient).CreateCheckout(context.Background(), integrationdomain.CheckoutRequest{
		Amount:     decimal.NewFromInt(10),
		SuccessURL: "https://a",
		CancelURL:  "https://b",
	})
	assert.EqualError(t, err, "card_declined")
}
