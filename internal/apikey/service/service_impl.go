package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "sd_live_"
	apiKeySecretBytes = 32
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  apikeydomain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  apikeydomain.Repository
	audit auditdomain.Service
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Issue(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	if tenantID == 0 {
		return nil, apikeydomain.ErrInvalidTenant
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}
	kind, err := apikeydomain.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}

	var result *apikeydomain.SecretResponse
	err = s.inTx(ctx, tx, func(tx *gorm.DB) error {
		key, plain, err := s.newKey(tenantID, name, kind, nil)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, key); err != nil {
			return err
		}
		if err := s.record(ctx, tx, key, "api_key.issued"); err != nil {
			return err
		}
		result = &apikeydomain.SecretResponse{KeyID: key.KeyID, Kind: key.Kind, APIKey: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID) ([]apikeydomain.Response, error) {
	if tenantID == 0 {
		return nil, apikeydomain.ErrInvalidTenant
	}
	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

// Rotate replaces a key in one transaction. The old secret stops working
// immediately.
func (s *Service) Rotate(ctx context.Context, tenantID snowflake.ID, keyID string) (*apikeydomain.SecretResponse, error) {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return nil, apikeydomain.ErrInvalidKeyID
	}

	var result *apikeydomain.SecretResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByKeyID(ctx, tx, tenantID, trimmed)
		if err != nil {
			return err
		}
		if current == nil || !current.IsActive {
			return apikeydomain.ErrKeyNotFound
		}

		ok, err := s.repo.Deactivate(ctx, tx, tenantID, current.KeyID, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apikeydomain.ErrKeyNotFound
		}

		rotatedFrom := current.KeyID
		next, plain, err := s.newKey(tenantID, current.Name, current.Kind, &rotatedFrom)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, next); err != nil {
			return err
		}
		if err := s.record(ctx, tx, next, "api_key.rotated"); err != nil {
			return err
		}
		result = &apikeydomain.SecretResponse{KeyID: next.KeyID, Kind: next.Kind, APIKey: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke disables an integration key. Owner keys can only be rotated so the
// tenant never loses account access.
func (s *Service) Revoke(ctx context.Context, tenantID snowflake.ID, keyID string) error {
	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key, err := s.repo.FindByKeyID(ctx, tx, tenantID, trimmed)
		if err != nil {
			return err
		}
		if key == nil || !key.IsActive {
			return apikeydomain.ErrKeyNotFound
		}
		if key.Kind == apikeydomain.KindOwner {
			return apikeydomain.ErrOwnerKeyProtected
		}
		if _, err := s.repo.Deactivate(ctx, tx, tenantID, key.KeyID, s.clock.Now().UTC()); err != nil {
			return err
		}
		return s.record(ctx, tx, key, "api_key.revoked")
	})
}

func (s *Service) Authenticate(ctx context.Context, raw string) (*apikeydomain.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, apiKeyPrefix) {
		return nil, apikeydomain.ErrUnauthorized
	}

	hash := apikeydomain.HashAPIKey(raw)
	key, err := s.repo.FindActiveByHash(ctx, s.db, hash, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return nil, apikeydomain.ErrUnauthorized
	}
	return key, nil
}

func (s *Service) newKey(tenantID snowflake.ID, name string, kind apikeydomain.Kind, rotatedFrom *string) (*apikeydomain.APIKey, string, error) {
	id := s.genID.Generate()
	keyID := newKeyID(id)
	plain, hash, err := generateAPIKey(keyID)
	if err != nil {
		return nil, "", err
	}
	now := s.clock.Now().UTC()
	return &apikeydomain.APIKey{
		ID:               id,
		TenantID:         tenantID,
		KeyID:            keyID,
		Name:             name,
		Kind:             kind,
		KeyHash:          hash,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
		RotatedFromKeyID: rotatedFrom,
	}, plain, nil
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, key *apikeydomain.APIKey, action string) error {
	return s.audit.Record(ctx, tx, auditdomain.Entry{
		TenantID:   key.TenantID,
		EntityType: auditdomain.EntityAPIKey,
		EntityID:   key.KeyID,
		Action:     action,
		ActorType:  auditdomain.ActorTenant,
		Metadata: map[string]any{
			"kind": string(key.Kind),
			"name": key.Name,
		},
	})
}

func (s *Service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		KeyID:            key.KeyID,
		Name:             key.Name,
		Kind:             key.Kind,
		IsActive:         key.IsActive,
		CreatedAt:        key.CreatedAt,
		ExpiresAt:        key.ExpiresAt,
		RotatedFromKeyID: key.RotatedFromKeyID,
	}
}

func generateAPIKey(keyID string) (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	plain := fmt.Sprintf("%s%s_%s", apiKeyPrefix, strings.TrimPrefix(keyID, "key_"), hex.EncodeToString(secret))
	return plain, apikeydomain.HashAPIKey(plain), nil
}

func newKeyID(id snowflake.ID) string {
	return "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}
