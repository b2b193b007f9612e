//go:generate mockgen -destination=../mock/clients.go -package=mock . MessagingClient,CompletionClient,PaymentClient

package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
)

type Capability string

const (
	CapabilitySendMessage  Capability = "send_message"
	CapabilitySendTemplate Capability = "send_template"
	CapabilityComplete     Capability = "complete"
	CapabilityCheckout     Capability = "checkout"
)

// Client is the shape every integration variant shares.
type Client interface {
	Name() string
	Capabilities() []Capability
	Ready() bool
}

type MessagingClient interface {
	Client
	SendMessage(ctx context.Context, msg Message) (*Receipt, error)
	SendTemplate(ctx context.Context, msg TemplateMessage) (*Receipt, error)
}

type CompletionClient interface {
	Client
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

type PaymentClient interface {
	Client
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Factory builds a client for one provider from a resolved credential bundle.
type Factory interface {
	Integration() credentialdomain.Integration
	Provider() string
	New(bundle credentialdomain.Bundle) (Client, error)
}

type Message struct {
	To      string       `json:"to"`
	Channel tier.Channel `json:"channel"`
	Body    string       `json:"body"`
}

type TemplateMessage struct {
	To        string            `json:"to"`
	Channel   tier.Channel      `json:"channel"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables,omitempty"`
}

type Receipt struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Shared   bool   `json:"shared"`
}

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Completion struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

var (
	ErrProviderNotFound  = errors.New("provider_not_found")
	ErrInvalidBundle     = errors.New("invalid_bundle")
	ErrClientNotReady    = errors.New("client_not_ready")
	ErrCapabilityMissing = errors.New("capability_missing")
	ErrUpstream          = errors.New("upstream_error")
	ErrInvalidRequest    = errors.New("invalid_request")
)

func HasCapability(c Client, want Capability) bool {
	if c == nil {
		return false
	}
	for _, got := range c.Capabilities() {
		if got == want {
			return true
		}
	}
	return false
}
