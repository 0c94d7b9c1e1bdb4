// Package artifacts implements the ephemeral result store: every
// finished operation is persisted as a single artifact addressed by an
// opaque token, with an expiry derived from the owner's plan tier.
package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/server/blob"
	"github.com/dmogilev/docmill/internal/server/models"
	"github.com/dmogilev/docmill/internal/server/repositories/repomanager"
)

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blob.Store
	log         logging.Logger
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, store blob.Store, log logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log,
	}
}

// nowFunc is a seam for tests.
var nowFunc = time.Now

// Put stores the result bytes and records the artifact row, returning the
// stored artifact with its freshly minted token. The expiry is computed
// from the owner's plan at storage time. If the metadata write fails after
// the bytes were stored, the orphaned object is removed best-effort.
func (s *Service) Put(ctx context.Context, userID string, plan models.Plan, fileName string, r io.Reader, size int64) (*models.Artifact, error) {
	now := nowFunc()
	a := &models.Artifact{
		ID:         uuid.NewString(),
		Token:      uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		StorageKey: blob.NewStorageKey(),
		Size:       size,
		CreatedAt:  now,
		ExpireAt:   now.Add(plan.Retention()),
	}

	if err := s.store.Put(ctx, a.StorageKey, r, size); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	repo := s.repomanager.Artifacts(s.db)
	if err := repo.Create(ctx, a); err != nil {
		if derr := s.store.Delete(ctx, a.StorageKey); derr != nil {
			s.log.Warn(ctx, "orphaned object cleanup failed", "key", a.StorageKey, "error", derr)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	s.log.Info(ctx, "artifact stored", "token", a.Token, "user_id", userID, "bytes", size)
	return a, nil
}

// Resolve maps a token to its artifact and an open reader over the bytes.
// A token that was never issued (or whose record has been swept) yields
// ErrorNotFound; a token whose artifact exists but has passed its expiry
// yields the artifact alongside ErrArtifactExpired so callers can
// distinguish the two cases.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Artifact, io.ReadCloser, error) {
	repo := s.repomanager.Artifacts(s.db)

	a, err := repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("error resolving token: %w", err)
	}

	if a.Expired(nowFunc()) {
		return a, nil, common.ErrArtifactExpired
	}

	rc, err := s.store.Get(ctx, a.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Record without bytes: treat as gone.
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	return a, rc, nil
}

// ListByUser returns the caller's artifacts, newest first. Expired
// entries stay in the listing until the sweeper removes them; callers
// report expiry per item via models.Artifact.Expired.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.Artifact, error) {
	repo := s.repomanager.Artifacts(s.db)
	all, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing artifacts: %w", err)
	}
	return all, nil
}

// Delete removes an artifact addressed by token on behalf of userID. Only
// the owner may delete; anyone else gets ErrForbidden without learning
// whether the bytes still exist.
func (s *Service) Delete(ctx context.Context, userID, token string) error {
	repo := s.repomanager.Artifacts(s.db)

	a, err := repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return common.ErrForbidden
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		return fmt.Errorf("error deleting artifact: %w", err)
	}
	if err := s.store.Delete(ctx, a.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "object delete failed", "key", a.StorageKey, "error", err)
	}
	return nil
}

// SweepExpired deletes up to limit artifacts whose expiry has passed,
// returning how many were removed. Per-artifact failures are logged and
// skipped so one bad row cannot stall the sweep.
func (s *Service) SweepExpired(ctx context.Context, limit int) (int, error) {
	repo := s.repomanager.Artifacts(s.db)

	expired, err := repo.SelectExpired(ctx, nowFunc(), limit)
	if err != nil {
		return 0, fmt.Errorf("error selecting expired artifacts: %w", err)
	}

	removed := 0
	for _, a := range expired {
		if err := s.store.Delete(ctx, a.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "sweep: object delete failed", "key", a.StorageKey, "error", err)
			continue
		}
		if err := repo.Delete(ctx, a.ID); err != nil {
			s.log.Warn(ctx, "sweep: record delete failed", "id", a.ID, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info(ctx, "expired artifacts swept", "count", removed)
	}
	return removed, nil
}
