package strategy

import (
	"testing"

	"github.com/smallbiznis/staydesk/internal/config"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func platform() *config.PlatformCredentialsHolder {
	creds := config.DefaultPlatformCredentials()
	creds.Messaging.AccountSID = "AC_platform"
	creds.Messaging.AuthToken = "platform-token"
	creds.Messaging.FromNumber = "+15550000"
	creds.AI.APIKey = "sk-platform"
	creds.Payment.SecretKey = "sk_test_platform"
	return config.NewStaticPlatformCredentials(creds)
}

func enterpriseTenant(t *testing.T) tenantdomain.Tenant {
	t.Helper()
	features, err := tier.FeaturesFor(tier.Enterprise)
	require.NoError(t, err)
	return tenantdomain.Tenant{
		ID: 1,
		Subscription: tenantdomain.Subscription{
			Tier:     tier.Enterprise,
			Status:   tenantdomain.StatusActive,
			Features: features,
		},
		Credentials: tenantdomain.Credentials{
			Messaging: &tenantdomain.MessagingCredentials{
				AccountSID: "AC_tenant",
				AuthToken:  "tenant-token",
				FromNumber: "+15551234",
			},
		},
		IsActive: true,
	}
}

func TestMessagingUsesTenantAccountWhenAllowedAndComplete(t *testing.T) {
	s := NewMessagingStrategy(platform())
	tn := enterpriseTenant(t)

	b, err := s.Resolve(tn)
	require.NoError(t, err)
	assert.False(t, b.IsShared)
	assert.Equal(t, "AC_tenant", b.AccountID)
	assert.Equal(t, "tenant-token", b.Secret(credentialdomain.SecretAuthToken))
}

func TestMessagingFallsBackWhenFlagOff(t *testing.T) {
	s := NewMessagingStrategy(platform())
	tn := enterpriseTenant(t)
	tn.Subscription.Features.OwnMessagingAccount = false

	b, err := s.Resolve(tn)
	require.NoError(t, err)
	assert.True(t, b.IsShared)
	assert.Equal(t, "AC_platform", b.AccountID)
	assert.Equal(t, "+15550000", b.Secret(credentialdomain.SecretFromNumber))
}

func TestMessagingFallsBackOnPartialCredentials(t *testing.T) {
	s := NewMessagingStrategy(platform())

	for name, creds := range map[string]*tenantdomain.MessagingCredentials{
		"nil":        nil,
		"no token":   {AccountSID: "AC_tenant", FromNumber: "+1555"},
		"blank from": {AccountSID: "AC_tenant", AuthToken: "tok", FromNumber: "  "},
	} {
		tn := enterpriseTenant(t)
		tn.Credentials.Messaging = creds
		b, err := s.Resolve(tn)
		require.NoError(t, err, name)
		assert.True(t, b.IsShared, name)
	}
}

func TestPaymentRequiresLinkedAccount(t *testing.T) {
	s := NewPaymentStrategy(platform())
	tn := enterpriseTenant(t)

	_, err := s.Resolve(tn)
	require.ErrorIs(t, err, credentialdomain.ErrMissingPaymentAccount)

	tn.Credentials.PaymentAccountID = "acct_123"
	b, err := s.Resolve(tn)
	require.NoError(t, err)
	assert.True(t, b.ConnectMode)
	assert.False(t, b.IsShared)
	assert.Equal(t, "acct_123", b.AccountID)
	assert.Equal(t, "usd", b.Currency)
}

func TestAIAlwaysShared(t *testing.T) {
	s := NewAIStrategy(platform())
	tn := enterpriseTenant(t)
	tn.Credentials.AI = &tenantdomain.AICredentials{Provider: "custom", APIKey: "sk-tenant"}

	b, err := s.Resolve(tn)
	require.NoError(t, err)
	assert.True(t, b.IsShared)
	assert.Equal(t, "sk-platform", b.Secret(credentialdomain.SecretAPIKey))
}

func TestSelector(t *testing.T) {
	sel := NewDefaultSelector(platform())
	tn := enterpriseTenant(t)

	for _, integration := range []credentialdomain.Integration{credentialdomain.IntegrationMessaging, credentialdomain.IntegrationAI} {
		b, err := sel.Resolve(integration, tn)
		require.NoError(t, err)
		assert.Equal(t, integration, b.Integration)
	}

	_, err := sel.Resolve(credentialdomain.IntegrationPayment, tn)
	require.ErrorIs(t, err, credentialdomain.ErrMissingPaymentAccount)

	_, err = sel.Resolve(credentialdomain.Integration("fax"), tn)
	require.ErrorIs(t, err, credentialdomain.ErrUnknownIntegration)
}
