package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keyID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE api_keys
		 SET is_active = ?, expires_at = ?, updated_at = ?
		 WHERE tenant_id = ? AND key_id = ? AND is_active = ?`,
		false,
		now,
		now,
		tenantID,
		keyID,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByKeyID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keyID string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, key_id, name, kind, key_hash, is_active, created_at, updated_at, expires_at, rotated_from_key_id
		 FROM api_keys WHERE tenant_id = ? AND key_id = ?`,
		tenantID,
		keyID,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) FindActiveByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, key_id, name, kind, key_hash, is_active, created_at, updated_at, expires_at, rotated_from_key_id
		 FROM api_keys
		 WHERE key_hash = ?
		   AND is_active = ?
		   AND (expires_at IS NULL OR expires_at > ?)
		 LIMIT 1`,
		hash,
		true,
		now,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, key_id, name, kind, key_hash, is_active, created_at, updated_at, expires_at, rotated_from_key_id
		 FROM api_keys WHERE tenant_id = ? ORDER BY created_at DESC, id DESC`,
		tenantID,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
