package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
)

type apiKeysRepo struct {
	q dbtx
}

func (r *apiKeysRepo) GetAPIKeyByKey(ctx context.Context, key string) (domain.APIKey, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, org_id, key, allowed_origins, active, created_at, updated_at
		FROM api_keys WHERE key = ?`, key)

	var k domain.APIKey
	var origins string
	if err := row.Scan(&k.ID, &k.OrgID, &k.Key, &origins, &k.Active, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	k.AllowedOrigins = splitOrigins(origins)
	return k, nil
}

func (r *apiKeysRepo) CreateAPIKey(ctx context.Context, k domain.APIKey) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO api_keys (id, org_id, key, allowed_origins, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.OrgID, k.Key, joinOrigins(k.AllowedOrigins), k.Active, k.CreatedAt, k.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *apiKeysRepo) UpdateAllowedOrigins(ctx context.Context, keyID string, origins []string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE api_keys SET allowed_origins = ?, updated_at = ? WHERE id = ?`,
		joinOrigins(origins), time.Now().UTC(), keyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *apiKeysRepo) SetAPIKeyActive(ctx context.Context, keyID string, active bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE api_keys SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), keyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
