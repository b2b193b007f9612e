package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	auditrepo "github.com/smallbiznis/staydesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/staydesk/internal/audit/service"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	"github.com/smallbiznis/staydesk/internal/credential/strategy"
	"github.com/smallbiznis/staydesk/internal/gate"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	"github.com/smallbiznis/staydesk/internal/integration/mock"
	"github.com/smallbiznis/staydesk/internal/integration/registry"
	paymentdomain "github.com/smallbiznis/staydesk/internal/payment/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/staydesk/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/staydesk/internal/tenant/service"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	usagerepo "github.com/smallbiznis/staydesk/internal/usage/repository"
	usageservice "github.com/smallbiznis/staydesk/internal/usage/service"
)

type paymentFactory struct {
	client integrationdomain.Client
	seen   []credentialdomain.Bundle
}

func (f *paymentFactory) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationPayment
}
func (f *paymentFactory) Provider() string { return "stripe" }
func (f *paymentFactory) New(b credentialdomain.Bundle) (integrationdomain.Client, error) {
	f.seen = append(f.seen, b)
	return f.client, nil
}

type env struct {
	svc     paymentdomain.Service
	tenants tenantdomain.Service
	audit   auditdomain.Service
	client  *mock.MockPaymentClient
	factory *paymentFactory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&tenantdomain.Record{}, &usagedomain.Counter{}, &auditdomain.EntityEvent{}))

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	usage := usageservice.NewService(usageservice.ServiceParam{DB: db, Log: log, Clock: clk, Repo: usagerepo.Provide()})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})
	tenants := tenantservice.New(tenantservice.Params{
		DB: db, Log: log, Cfg: config.Config{}, GenID: node, Clock: clk,
		Repo: tenantrepo.Provide(), Usage: usage, Audit: audit,
	})

	ctrl := gomock.NewController(t)
	client := mock.NewMockPaymentClient(ctrl)
	client.EXPECT().Ready().Return(true).AnyTimes()
	factory := &paymentFactory{client: client}

	platform := config.NewStaticPlatformCredentials(config.PlatformCredentials{
		Payment: config.PlatformPayment{Provider: "stripe", SecretKey: "sk_test_platform", Currency: "usd"},
	})
	connector := registry.NewConnector(strategy.NewDefaultSelector(platform), registry.NewRegistry(factory))

	svc := NewService(Params{
		Log: log, Tenants: tenants, Audit: audit,
		Gate: gate.New(gate.Params{Log: log}), Connector: connector,
	})
	return &env{svc: svc, tenants: tenants, audit: audit, client: client, factory: factory}
}

func validRequest() paymentdomain.CheckoutRequest {
	return paymentdomain.CheckoutRequest{
		Amount:     decimal.RequireFromString("189.90"),
		Reference:  "folio-1042",
		SuccessURL: "https://hotel.example/paid",
		CancelURL:  "https://hotel.example/cancel",
	}
}

func TestCheckoutOnConnectedAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "Harbor Inn"})
	require.NoError(t, err)
	_, err = e.tenants.LinkPaymentAccount(ctx, tenant.ID, "acct_harbor123")
	require.NoError(t, err)

	e.client.EXPECT().
		CreateCheckout(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req integrationdomain.CheckoutRequest) (*integrationdomain.CheckoutSession, error) {
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("189.90")))
			assert.Equal(t, "folio-1042", req.Reference)
			return &integrationdomain.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1", Provider: "stripe"}, nil
		})

	session, err := e.svc.Checkout(ctx, tenant.ID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	require.Len(t, e.factory.seen, 1)
	assert.Equal(t, "acct_harbor123", e.factory.seen[0].AccountID)
	assert.True(t, e.factory.seen[0].ConnectMode)

	events, err := e.audit.List(ctx, auditdomain.ListRequest{TenantID: tenant.ID, EntityType: auditdomain.EntityPayment})
	require.NoError(t, err)
	require.Len(t, events.Events, 1)
	assert.Equal(t, "payment.checkout_created", events.Events[0].Action)
	assert.Equal(t, "189.9", events.Events[0].Metadata["amount"])
}

func TestCheckoutWithoutAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "No Account Lodge"})
	require.NoError(t, err)

	_, err = e.svc.Checkout(ctx, tenant.ID, validRequest())
	assert.ErrorIs(t, err, credentialdomain.ErrMissingPaymentAccount)
	assert.Empty(t, e.factory.seen)
}

func TestCheckoutUpstreamErrorPassesThrough(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "Cliff House"})
	require.NoError(t, err)
	_, err = e.tenants.LinkPaymentAccount(ctx, tenant.ID, "acct_cliff")
	require.NoError(t, err)

	e.client.EXPECT().CreateCheckout(gomock.Any(), gomock.Any()).Return(nil, integrationdomain.ErrUpstream)

	_, err = e.svc.Checkout(ctx, tenant.ID, validRequest())
	assert.True(t, errors.Is(err, integrationdomain.ErrUpstream))

	events, err := e.audit.List(ctx, auditdomain.ListRequest{TenantID: tenant.ID, EntityType: auditdomain.EntityPayment})
	require.NoError(t, err)
	assert.Empty(t, events.Events)
}

func TestCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := validRequest()
	req.Amount = decimal.Zero
	_, err := e.svc.Checkout(ctx, 1, req)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	req = validRequest()
	req.Reference = "  "
	_, err = e.svc.Checkout(ctx, 1, req)
	assert.ErrorIs(t, err, paymentdomain.ErrMissingReference)

	req = validRequest()
	req.SuccessURL = "hotel.example/paid"
	_, err = e.svc.Checkout(ctx, 1, req)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidRedirect)

	_, err = e.svc.Checkout(ctx, 999, validRequest())
	assert.ErrorIs(t, err, tenantdomain.ErrTenantNotFound)
}
