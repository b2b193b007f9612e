package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
)

var now = time.Date(2026, time.April, 4, 8, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&usagedomain.Counter{}))
	return db
}

// A caller that read the counter before another writer filled it must still
// be refused: the limit check runs inside the UPDATE.
func TestAddWithinRechecksAfterStaleRead(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()
	tenantID := snowflake.ID(3)
	require.NoError(t, r.Init(ctx, db, tenantID, usagedomain.PeriodStart(now), now))

	_, err := r.Add(ctx, db, tenantID, usagedomain.ResourceAIResponses, 4, now)
	require.NoError(t, err)

	seenByA, err := r.Get(ctx, db, tenantID, usagedomain.ResourceAIResponses)
	require.NoError(t, err)
	require.EqualValues(t, 4, seenByA.Value)

	value, ok, err := r.AddWithin(ctx, db, tenantID, usagedomain.ResourceAIResponses, 1, 5, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5, value)

	value, ok, err = r.AddWithin(ctx, db, tenantID, usagedomain.ResourceAIResponses, 1, 5, now)
	require.NoError(t, err)
	require.False(t, ok)
	require.EqualValues(t, 5, value)
}

func TestAddWithinRefusesOversizedDelta(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	value, ok, err := r.AddWithin(ctx, db, 8, usagedomain.ResourceAIResponses, 3, 5, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, value)

	value, ok, err = r.AddWithin(ctx, db, 8, usagedomain.ResourceAIResponses, 3, 5, now)
	require.NoError(t, err)
	require.False(t, ok)
	require.EqualValues(t, 3, value)

	value, ok, err = r.AddWithin(ctx, db, 8, usagedomain.ResourceAIResponses, 2, 5, now)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5, value)
}

func TestAddWithinZeroLimitWithoutRow(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	value, ok, err := r.AddWithin(ctx, db, 9, usagedomain.ResourceAIResponses, 1, 0, now)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, value)

	counter, err := r.Get(ctx, db, 9, usagedomain.ResourceAIResponses)
	require.NoError(t, err)
	require.NotNil(t, counter)
	require.Zero(t, counter.Value)
}

func TestAddFloorsAtZero(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	value, err := r.Add(ctx, db, 4, usagedomain.ResourceRooms, 2, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, value)

	value, err = r.Add(ctx, db, 4, usagedomain.ResourceRooms, -5, now)
	require.NoError(t, err)
	require.Zero(t, value)
}

func TestInitIsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	require.NoError(t, r.Init(ctx, db, 5, usagedomain.PeriodStart(now), now))
	_, err := r.Add(ctx, db, 5, usagedomain.ResourceUsers, 2, now)
	require.NoError(t, err)
	require.NoError(t, r.Init(ctx, db, 5, usagedomain.PeriodStart(now), now))

	counters, err := r.List(ctx, db, 5)
	require.NoError(t, err)
	require.Len(t, counters, len(usagedomain.Resources()))
	for _, c := range counters {
		if c.Resource == usagedomain.ResourceUsers {
			require.EqualValues(t, 2, c.Value)
		}
	}
}
