// Package strategy holds the per-integration credential rules: messaging is
// bring-your-own-optional, payment is bring-your-own-mandatory and AI is
// platform-only.
package strategy

import (
	"strings"

	"github.com/smallbiznis/staydesk/internal/config"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

type MessagingStrategy struct {
	platform *config.PlatformCredentialsHolder
}

func NewMessagingStrategy(platform *config.PlatformCredentialsHolder) *MessagingStrategy {
	return &MessagingStrategy{platform: platform}
}

func (s *MessagingStrategy) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationMessaging
}

// Resolve uses the tenant's own account only when the plan allows it and the
// stored credentials are complete. Anything else falls back to the platform.
func (s *MessagingStrategy) Resolve(t tenantdomain.Tenant) (credentialdomain.Bundle, error) {
	shared := s.platform.Get().Messaging
	own := t.Credentials.Messaging

	if t.Subscription.Features.OwnMessagingAccount && own.Complete() {
		return credentialdomain.Bundle{
			Integration: credentialdomain.IntegrationMessaging,
			Provider:    shared.Provider,
			IsShared:    false,
			AccountID:   strings.TrimSpace(own.AccountSID),
			BaseURL:     shared.BaseURL,
			Secrets: map[string]string{
				credentialdomain.SecretAccountSID: strings.TrimSpace(own.AccountSID),
				credentialdomain.SecretAuthToken:  strings.TrimSpace(own.AuthToken),
				credentialdomain.SecretFromNumber: strings.TrimSpace(own.FromNumber),
			},
		}, nil
	}

	return credentialdomain.Bundle{
		Integration: credentialdomain.IntegrationMessaging,
		Provider:    shared.Provider,
		IsShared:    true,
		AccountID:   shared.AccountSID,
		BaseURL:     shared.BaseURL,
		Secrets: map[string]string{
			credentialdomain.SecretAccountSID: shared.AccountSID,
			credentialdomain.SecretAuthToken:  shared.AuthToken,
			credentialdomain.SecretFromNumber: shared.FromNumber,
		},
	}, nil
}

type PaymentStrategy struct {
	platform *config.PlatformCredentialsHolder
}

func NewPaymentStrategy(platform *config.PlatformCredentialsHolder) *PaymentStrategy {
	return &PaymentStrategy{platform: platform}
}

func (s *PaymentStrategy) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationPayment
}

// Resolve fails with ErrMissingPaymentAccount until the tenant links a
// connected account. Funds settle to that account, so there is no fallback.
func (s *PaymentStrategy) Resolve(t tenantdomain.Tenant) (credentialdomain.Bundle, error) {
	accountID := strings.TrimSpace(t.Credentials.PaymentAccountID)
	if accountID == "" {
		return credentialdomain.Bundle{}, credentialdomain.ErrMissingPaymentAccount
	}

	platform := s.platform.Get().Payment
	return credentialdomain.Bundle{
		Integration: credentialdomain.IntegrationPayment,
		Provider:    platform.Provider,
		IsShared:    false,
		ConnectMode: true,
		AccountID:   accountID,
		Currency:    platform.Currency,
		Secrets: map[string]string{
			credentialdomain.SecretSecretKey: platform.SecretKey,
		},
	}, nil
}

type AIStrategy struct {
	platform *config.PlatformCredentialsHolder
}

func NewAIStrategy(platform *config.PlatformCredentialsHolder) *AIStrategy {
	return &AIStrategy{platform: platform}
}

func (s *AIStrategy) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationAI
}

// Resolve always returns the platform bundle. Tenant-stored AI keys are
// ignored; consumption is metered through the usage ledger instead.
func (s *AIStrategy) Resolve(tenantdomain.Tenant) (credentialdomain.Bundle, error) {
	platform := s.platform.Get().AI
	return credentialdomain.Bundle{
		Integration: credentialdomain.IntegrationAI,
		Provider:    platform.Provider,
		IsShared:    true,
		BaseURL:     platform.BaseURL,
		Model:       platform.Model,
		Secrets: map[string]string{
			credentialdomain.SecretAPIKey: platform.APIKey,
		},
	}, nil
}
