package domain

import (
	"errors"

	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
)

type Integration string

const (
	IntegrationMessaging Integration = "messaging"
	IntegrationPayment   Integration = "payment"
	IntegrationAI        Integration = "ai"
)

func Integrations() []Integration {
	return []Integration{IntegrationMessaging, IntegrationPayment, IntegrationAI}
}

const (
	SecretAccountSID = "account_sid"
	SecretAuthToken  = "auth_token"
	SecretFromNumber = "from_number"
	SecretAPIKey     = "api_key"
	SecretSecretKey  = "secret_key"
)

// Bundle is the credential scope an integration client is built from.
type Bundle struct {
	Integration Integration
	Provider    string
	// IsShared marks platform-owned credentials billed to the operator.
	IsShared bool
	// ConnectMode means calls act on behalf of AccountID.
	ConnectMode bool
	AccountID   string
	BaseURL     string
	Model       string
	Currency    string
	Secrets     map[string]string
}

func (b Bundle) Secret(key string) string {
	return b.Secrets[key]
}

// Strategy decides whose credentials an integration runs under.
type Strategy interface {
	Integration() Integration
	Resolve(t tenantdomain.Tenant) (Bundle, error)
}

var (
	ErrMissingPaymentAccount = errors.New("missing_payment_account")
	ErrUnknownIntegration    = errors.New("unknown_integration")
)
