package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dkmverify/internal/model"
)

// Load 读取门户凭证，未保存时返回空凭证
func (s *Store) Load(ctx context.Context) (model.Credential, error) {
	var (
		cred      model.Credential
		updatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT cookie, identity, username, password, updated_at
		FROM credentials WHERE id = 1
	`).Scan(&cred.Cookie, &cred.Identity, &cred.Username, &cred.Password, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, nil
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to load credential: %w", err)
	}
	if updatedAt.Valid {
		cred.UpdatedAt = updatedAt.Time
	}
	return cred, nil
}

// Save 保存门户凭证（覆盖）
func (s *Store) Save(ctx context.Context, cred model.Credential) error {
	updatedAt := cred.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, cookie, identity, username, password, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cookie = excluded.cookie,
			identity = excluded.identity,
			username = excluded.username,
			password = excluded.password,
			updated_at = excluded.updated_at
	`, cred.Cookie, cred.Identity, cred.Username, cred.Password, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}
