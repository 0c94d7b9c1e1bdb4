package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/dbx"
	"github.com/dmogilev/docmill/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Artifact) error {
	query :=
		`INSERT INTO artifacts (id, token, user_id, file_name, storage_key, size_bytes, created_at, expire_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Token, a.UserID, a.FileName, a.StorageKey, a.Size, a.CreatedAt, a.ExpireAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.Artifact, error) {
	query :=
		`SELECT id, token, user_id, file_name, storage_key, size_bytes, created_at, expire_at FROM artifacts
		 WHERE token = $1
		 `

	a := &models.Artifact{}
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&a.ID, &a.Token, &a.UserID, &a.FileName, &a.StorageKey, &a.Size, &a.CreatedAt, &a.ExpireAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Artifact, error) {
	query :=
		`SELECT id, token, user_id, file_name, storage_key, size_bytes, created_at, expire_at FROM artifacts
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM artifacts
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) SelectExpired(ctx context.Context, before time.Time, limit int) ([]*models.Artifact, error) {
	query :=
		`SELECT id, token, user_id, file_name, storage_key, size_bytes, created_at, expire_at FROM artifacts
		 WHERE expire_at < $1
		 ORDER BY expire_at
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func scanArtifacts(rows *sql.Rows) ([]*models.Artifact, error) {
	var out []*models.Artifact
	for rows.Next() {
		a := &models.Artifact{}
		if err := rows.Scan(&a.ID, &a.Token, &a.UserID, &a.FileName, &a.StorageKey, &a.Size, &a.CreatedAt, &a.ExpireAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
