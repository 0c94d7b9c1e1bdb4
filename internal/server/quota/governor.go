// Package quota enforces per-user daily operation allowances. This file
// implements Governor, which admits requests against the user's plan tier
// and commits usage only after the produced artifact has been persisted.
package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/dbx"
	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/server/models"
	"github.com/dmogilev/docmill/internal/server/repositories/repomanager"
)

// Governor decides whether a user may run another operation today.
type Governor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	dailyLimit  int
	log         logging.Logger
}

func NewGovernor(db *sql.DB, m repomanager.RepositoryManager, dailyLimit int, log logging.Logger) *Governor {
	return &Governor{
		db:          db,
		repomanager: m,
		dailyLimit:  dailyLimit,
		log:         log,
	}
}

// nowFunc is a seam for tests.
var nowFunc = time.Now

// Admit loads the user's quota, creating a free-tier row on first contact,
// applies the daily reset if the stored date is stale, and checks the
// remaining allowance, all in one transaction so the row lock holds.
// It returns the reconciled quota so callers can use
// the plan tier later in the request. The usage counter is NOT incremented
// here; call Commit after the operation's output has been persisted.
func (g *Governor) Admit(ctx context.Context, userID string) (*models.UserQuota, error) {
	now := nowFunc()

	var q *models.UserQuota
	err := dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := g.repomanager.Quotas(tx)

		var err error
		q, err = repo.GetForUpdate(ctx, userID)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("error loading quota: %w", err)
			}
			q = &models.UserQuota{UserID: userID, Plan: models.PlanFree, LastReset: now}
			if err := repo.Create(ctx, q); err != nil {
				return fmt.Errorf("error creating quota: %w", err)
			}
		}

		if q.NeedsReset(now) {
			q.Reset(now)
			if err := repo.Save(ctx, q); err != nil {
				return fmt.Errorf("error resetting quota: %w", err)
			}
		}

		if q.Plan.Unlimited() {
			return nil
		}
		if q.DailyUsage >= g.dailyLimit {
			g.log.Info(ctx, "quota exhausted", "user_id", userID, "usage", q.DailyUsage)
			return common.ErrQuotaExceeded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Commit records one completed operation against the user's allowance.
// It re-reads the row under a lock so concurrent requests from the same
// user cannot lose increments. A same-moment date rollover is reconciled
// here too, counting the finished operation against the new day.
func (g *Governor) Commit(ctx context.Context, userID string) error {
	now := nowFunc()
	return dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := g.repomanager.Quotas(tx)
		q, err := repo.GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("error loading quota: %w", err)
		}
		if q.NeedsReset(now) {
			q.Reset(now)
		}
		q.DailyUsage++
		if err := repo.Save(ctx, q); err != nil {
			return fmt.Errorf("error saving quota: %w", err)
		}
		return nil
	})
}
