// Package redisledger keeps periodic usage counters in redis.
package redisledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
)

const keyPrefix = "staydesk:usage"

// Returns {applied, value}. A negative limit is unlimited.
const guardedIncrScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if limit >= 0 and current + amount > limit then
  return {0, current}
end
return {1, redis.call("INCRBY", KEYS[1], amount)}
`

var ErrUnsupportedResource = errors.New("unsupported_resource")

type Ledger struct {
	client *redis.Client
	script *redis.Script
}

func New(client *redis.Client) *Ledger {
	if client == nil {
		return nil
	}
	return &Ledger{
		client: client,
		script: redis.NewScript(guardedIncrScript),
	}
}

func Key(tenantID snowflake.ID, resource usagedomain.Resource) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID.String(), resource)
}

// Supports reports whether resource is held in redis. Live entity counts
// stay in the database next to their rows.
func (l *Ledger) Supports(resource usagedomain.Resource) bool {
	return l != nil && resource.Periodic()
}

func (l *Ledger) Increment(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource, amount int64) (int64, error) {
	if err := l.check(resource); err != nil {
		return 0, err
	}
	value, err := l.client.IncrBy(ctx, Key(tenantID, resource), amount).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return value, nil
}

func (l *Ledger) TryIncrement(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource, amount, limit int64) (int64, error) {
	if err := l.check(resource); err != nil {
		return 0, err
	}
	res, err := l.script.Run(ctx, l.client, []string{Key(tenantID, resource)}, amount, limit).Int64Slice()
	if err != nil {
		return 0, unavailable(err)
	}
	if len(res) != 2 {
		return 0, unavailable(fmt.Errorf("unexpected script reply %v", res))
	}
	if res[0] == 0 {
		return res[1], usagedomain.ErrLimitReached
	}
	return res[1], nil
}

func (l *Ledger) Reset(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource) error {
	if err := l.check(resource); err != nil {
		return err
	}
	if err := l.client.Del(ctx, Key(tenantID, resource)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (l *Ledger) CurrentValue(ctx context.Context, tenantID snowflake.ID, resource usagedomain.Resource) (int64, error) {
	if err := l.check(resource); err != nil {
		return 0, err
	}
	value, err := l.client.Get(ctx, Key(tenantID, resource)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable(err)
	}
	return value, nil
}

func (l *Ledger) check(resource usagedomain.Resource) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("%w: redis client not configured", usagedomain.ErrLedgerUnavailable)
	}
	if !resource.Periodic() {
		return ErrUnsupportedResource
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", usagedomain.ErrLedgerUnavailable, err)
}
