package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

// CheckoutRequest charges a guest on the tenant's connected account.
type CheckoutRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
	// Reference is usually the booking or folio number.
	Reference  string `json:"reference"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type Service interface {
	// Checkout returns credentialdomain.ErrMissingPaymentAccount when the
	// tenant has not linked a connected account.
	Checkout(ctx context.Context, tenantID snowflake.ID, req CheckoutRequest) (*integrationdomain.CheckoutSession, error)
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrMissingReference = errors.New("missing_reference")
	ErrInvalidRedirect  = errors.New("invalid_redirect_url")
)
