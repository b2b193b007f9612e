package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	auditrepo "github.com/smallbiznis/staydesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/staydesk/internal/audit/service"
	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	"github.com/smallbiznis/staydesk/internal/gate"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
	"github.com/smallbiznis/staydesk/internal/room/repository"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/staydesk/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/staydesk/internal/tenant/service"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	usagerepo "github.com/smallbiznis/staydesk/internal/usage/repository"
	usageservice "github.com/smallbiznis/staydesk/internal/usage/service"
)

type env struct {
	svc     roomdomain.Service
	tenants tenantdomain.Service
	usage   usagedomain.Service
	audit   auditdomain.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&tenantdomain.Record{}, &usagedomain.Counter{}, &auditdomain.EntityEvent{}, &roomdomain.Room{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	usage := usageservice.NewService(usageservice.ServiceParam{DB: db, Log: log, Clock: clk, Repo: usagerepo.Provide()})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})
	tenants := tenantservice.New(tenantservice.Params{
		DB: db, Log: log, Cfg: config.Config{}, GenID: node, Clock: clk,
		Repo: tenantrepo.Provide(), Usage: usage, Audit: audit,
	})
	svc := NewService(Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: repository.Provide(), Tenants: tenants, Usage: usage, Audit: audit,
		Gate: gate.New(gate.Params{Log: log}),
	})
	return &env{svc: svc, tenants: tenants, usage: usage, audit: audit}
}

func (e *env) signup(t *testing.T, name string) *tenantdomain.Tenant {
	t.Helper()
	created, err := e.tenants.Signup(context.Background(), tenantdomain.SignupRequest{Name: name})
	require.NoError(t, err)
	return created
}

func TestCreateAndDeleteMoveCounterWithEntity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.signup(t, "Seaview Hotel")

	room, err := e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "101", Name: "Deluxe", Floor: 1})
	require.NoError(t, err)

	rooms, err := e.usage.CurrentValue(ctx, tenant.ID, usagedomain.ResourceRooms)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rooms)

	require.NoError(t, e.svc.Delete(ctx, tenant.ID, room.ID))
	rooms, err = e.usage.CurrentValue(ctx, tenant.ID, usagedomain.ResourceRooms)
	require.NoError(t, err)
	assert.Zero(t, rooms)

	assert.ErrorIs(t, e.svc.Delete(ctx, tenant.ID, room.ID), roomdomain.ErrRoomNotFound)

	events, err := e.audit.List(ctx, auditdomain.ListRequest{TenantID: tenant.ID, EntityType: auditdomain.EntityRoom, EntityID: room.ID.String()})
	require.NoError(t, err)
	require.Len(t, events.Events, 2)
	actions := []string{events.Events[0].Action, events.Events[1].Action}
	assert.ElementsMatch(t, []string{"room.created", "room.deleted"}, actions)
}

func TestDuplicateNumberLeavesCounterUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.signup(t, "Duplicate Inn")

	_, err := e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "7"})
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "7"})
	assert.ErrorIs(t, err, roomdomain.ErrRoomExists)

	rooms, err := e.usage.CurrentValue(ctx, tenant.ID, usagedomain.ResourceRooms)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rooms)
}

func TestCreateDeniedAtLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.signup(t, "Full House")

	_, err := e.usage.Increment(ctx, tenant.ID, usagedomain.ResourceRooms, 49)
	require.NoError(t, err)

	_, err = e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "50"})
	require.NoError(t, err)

	_, err = e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "51"})
	var denied *gate.DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, gate.CodeLimitExceeded, denied.Decision.Code)
	assert.Equal(t, "resource rooms limit reached", denied.Decision.Reason)

	rooms, err := e.usage.CurrentValue(ctx, tenant.ID, usagedomain.ResourceRooms)
	require.NoError(t, err)
	assert.EqualValues(t, 50, rooms)
}

func TestConcurrentCreatesNeverExceedLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.signup(t, "Race Resort")

	_, err := e.usage.Increment(ctx, tenant.ID, usagedomain.ResourceRooms, 48)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: fmt.Sprintf("R%d", i)}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	rooms, err := e.usage.CurrentValue(ctx, tenant.ID, usagedomain.ResourceRooms)
	require.NoError(t, err)
	assert.EqualValues(t, 50, rooms)

	list, err := e.svc.List(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEnterpriseHasNoRoomCeiling(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant := e.signup(t, "Grand Palace")
	_, err := e.tenants.UpdateSubscription(ctx, tenant.ID, tier.Enterprise)
	require.NoError(t, err)

	_, err = e.usage.Increment(ctx, tenant.ID, usagedomain.ResourceRooms, 10_000)
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, tenant.ID, roomdomain.CreateRequest{Number: "PH"})
	require.NoError(t, err)
}

func TestCreateValidatesInput(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(context.Background(), 42, roomdomain.CreateRequest{Number: " "})
	assert.ErrorIs(t, err, roomdomain.ErrInvalidNumber)

	_, err = e.svc.Create(context.Background(), 42, roomdomain.CreateRequest{Number: "1"})
	assert.ErrorIs(t, err, tenantdomain.ErrTenantNotFound)
}
