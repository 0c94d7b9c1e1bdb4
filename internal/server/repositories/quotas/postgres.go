package quotas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserQuota, error) {
	query :=
		`SELECT user_id, plan, daily_usage, last_reset FROM user_quotas
		 WHERE user_id = $1
		 FOR UPDATE
		 `

	q := &models.UserQuota{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&q.UserID, &q.Plan, &q.DailyUsage, &q.LastReset)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return q, nil
}

func (r *PostgresRepository) Create(ctx context.Context, quota *models.UserQuota) error {
	query :=
		`INSERT INTO user_quotas (user_id, plan, daily_usage, last_reset)
		 VALUES ($1, $2, $3, $4)
		 `

	_, err := r.db.ExecContext(ctx, query,
		quota.UserID, quota.Plan, quota.DailyUsage, quota.LastReset)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, quota *models.UserQuota) error {
	query :=
		`UPDATE user_quotas SET plan = $2, daily_usage = $3, last_reset = $4
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		quota.UserID, quota.Plan, quota.DailyUsage, quota.LastReset)

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
