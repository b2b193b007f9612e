package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang/mock/gomock"
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
	messagingdomain "github.com/smallbiznis/staydesk/internal/messaging/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/staydesk/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/staydesk/internal/tenant/service"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	usagerepo "github.com/smallbiznis/staydesk/internal/usage/repository"
	usageservice "github.com/smallbiznis/staydesk/internal/usage/service"
)

type messagingFactory struct {
	client integrationdomain.Client
	seen   []credentialdomain.Bundle
}

func (f *messagingFactory) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationMessaging
}
func (f *messagingFactory) Provider() string { return "gateway" }
func (f *messagingFactory) New(b credentialdomain.Bundle) (integrationdomain.Client, error) {
	f.seen = append(f.seen, b)
	return f.client, nil
}

type env struct {
	svc     messagingdomain.Service
	tenants tenantdomain.Service
	audit   auditdomain.Service
	client  *mock.MockMessagingClient
	factory *messagingFactory
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

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 7, 30, 0, 0, time.UTC))
	log := zap.NewNop()

	usage := usageservice.NewService(usageservice.ServiceParam{DB: db, Log: log, Clock: clk, Repo: usagerepo.Provide()})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})
	tenants := tenantservice.New(tenantservice.Params{
		DB: db, Log: log, Cfg: config.Config{}, GenID: node, Clock: clk,
		Repo: tenantrepo.Provide(), Usage: usage, Audit: audit,
	})

	ctrl := gomock.NewController(t)
	client := mock.NewMockMessagingClient(ctrl)
	client.EXPECT().Ready().Return(true).AnyTimes()
	client.EXPECT().Name().Return("gateway").AnyTimes()
	factory := &messagingFactory{client: client}

	platform := config.NewStaticPlatformCredentials(config.PlatformCredentials{
		Messaging: config.PlatformMessaging{Provider: "gateway", BaseURL: "http://msg.local", AccountSID: "AC_platform", AuthToken: "pt", FromNumber: "+15550000"},
	})
	connector := registry.NewConnector(strategy.NewDefaultSelector(platform), registry.NewRegistry(factory))

	svc := NewService(Params{
		Log: log, Tenants: tenants, Audit: audit,
		Gate: gate.New(gate.Params{Log: log}), Connector: connector,
	})
	return &env{svc: svc, tenants: tenants, audit: audit, client: client, factory: factory}
}

func TestSendOnAllowedChannelUsesSharedAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "Dune Hostel"})
	require.NoError(t, err)

	e.client.EXPECT().
		SendMessage(gomock.Any(), integrationdomain.Message{To: "+15557777", Channel: tier.ChannelWhatsApp, Body: "Welcome!"}).
		Return(&integrationdomain.Receipt{ID: "msg_1", Status: "queued", Shared: true}, nil)

	receipt, err := e.svc.Send(ctx, tenant.ID, messagingdomain.SendRequest{Channel: "whatsapp", To: "+15557777", Body: "Welcome!"})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", receipt.ID)
	require.Len(t, e.factory.seen, 1)
	assert.True(t, e.factory.seen[0].IsShared)

	events, err := e.audit.List(ctx, auditdomain.ListRequest{TenantID: tenant.ID, EntityType: auditdomain.EntityMessage})
	require.NoError(t, err)
	require.Len(t, events.Events, 1)
	assert.Equal(t, "whatsapp", events.Events[0].Metadata["channel"])
	assert.NotEqual(t, "+15557777", events.Events[0].Metadata["to"])
}

func TestSendOnMissingChannelIsDenied(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "Quiet Motel"})
	require.NoError(t, err)

	_, err = e.svc.Send(ctx, tenant.ID, messagingdomain.SendRequest{Channel: "sms", To: "+1", Body: "hi"})
	var denied *gate.DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, gate.CodeFeatureUnavailable, denied.Decision.Code)
	assert.Equal(t, "feature sms not available in current plan", denied.Decision.Reason)
	assert.Empty(t, e.factory.seen)
}

func TestEnterpriseTemplateUsesOwnAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, err := e.tenants.Signup(ctx, tenantdomain.SignupRequest{Name: "Summit Resort"})
	require.NoError(t, err)
	_, err = e.tenants.UpdateSubscription(ctx, tenant.ID, tier.Enterprise)
	require.NoError(t, err)
	_, err = e.tenants.SetMessagingCredentials(ctx, tenant.ID, tenantdomain.MessagingCredentials{
		AccountSID: "AC_summit", AuthToken: "secret", FromNumber: "+15551234",
	})
	require.NoError(t, err)

	e.client.EXPECT().
		SendTemplate(gomock.Any(), gomock.Any()).
		Return(&integrationdomain.Receipt{ID: "msg_t"}, nil)

	_, err = e.svc.Send(ctx, tenant.ID, messagingdomain.SendRequest{
		Channel:   "sms",
		To:        "+15550101",
		Template:  "checkout_reminder",
		Variables: map[string]string{"time": "11:00"},
	})
	require.NoError(t, err)
	require.Len(t, e.factory.seen, 1)
	assert.False(t, e.factory.seen[0].IsShared)
	assert.Equal(t, "AC_summit", e.factory.seen[0].Secret(credentialdomain.SecretAccountSID))
}

func TestSendValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Send(ctx, 1, messagingdomain.SendRequest{Channel: "pigeon", To: "x", Body: "y"})
	assert.ErrorIs(t, err, tier.ErrUnknownChannel)
	_, err = e.svc.Send(ctx, 1, messagingdomain.SendRequest{Channel: "email", Body: "y"})
	assert.ErrorIs(t, err, messagingdomain.ErrMissingRecipient)
	_, err = e.svc.Send(ctx, 1, messagingdomain.SendRequest{Channel: "email", To: "x"})
	assert.ErrorIs(t, err, messagingdomain.ErrMissingContent)
}
