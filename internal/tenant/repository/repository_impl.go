package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tenants WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindByProcessorSubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM tenants WHERE processor_subscription_id = ?`,
		strings.TrimSpace(subscriptionID),
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ReplaceSubscription(ctx context.Context, db *gorm.DB, id snowflake.ID, t tier.Tier, features tier.FeatureSet, price decimal.Decimal, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET tier = ?, features = ?, monthly_price = ?, updated_at = ?
		 WHERE id = ?`,
		t,
		datatypes.NewJSONType(features),
		price,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, change domain.StateChange, now time.Time) (bool, error) {
	updates := map[string]any{
		"updated_at": now,
	}
	if change.Status != "" {
		updates["status"] = change.Status
	}
	if change.Deactivate {
		updates["is_active"] = false
	}
	if change.CurrentPeriodStart != nil {
		updates["current_period_start"] = change.CurrentPeriodStart.UTC()
	}
	if change.CurrentPeriodEnd != nil {
		updates["current_period_end"] = change.CurrentPeriodEnd.UTC()
	}
	if change.CancelAtPeriodEnd != nil {
		updates["cancel_at_period_end"] = *change.CancelAtPeriodEnd
	}

	res := db.WithContext(ctx).Model(&domain.Record{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) LinkProcessor(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID, subscriptionID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET processor_customer_id = ?, processor_subscription_id = ?, updated_at = ?
		 WHERE id = ?`,
		nullable(customerID),
		nullable(subscriptionID),
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetPaymentAccount(ctx context.Context, db *gorm.DB, id snowflake.ID, accountID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tenants SET payment_account_id = ?, updated_at = ? WHERE id = ?`,
		accountID,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetMessagingCredentials(ctx context.Context, db *gorm.DB, id snowflake.ID, creds domain.MessagingCredentials, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET messaging_account_sid = ?, messaging_auth_token = ?, messaging_from_number = ?, updated_at = ?
		 WHERE id = ?`,
		creds.AccountSID,
		creds.AuthToken,
		creds.FromNumber,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func nullable(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
