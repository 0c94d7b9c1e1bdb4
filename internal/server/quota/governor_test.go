package quota

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/dbx"
	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/server/models"
	"github.com/dmogilev/docmill/internal/server/repositories/artifacts"
	"github.com/dmogilev/docmill/internal/server/repositories/quotas"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger { return l }

// fakeQuotaRepo is an in-memory quotas.Repository recording calls.
type fakeQuotaRepo struct {
	row       *models.UserQuota
	getErr    error
	createErr error
	saveErr   error

	created int
	saved   int
}

func (f *fakeQuotaRepo) GetForUpdate(ctx context.Context, userID string) (*models.UserQuota, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.row == nil || f.row.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *f.row
	return &cp, nil
}

func (f *fakeQuotaRepo) Create(ctx context.Context, q *models.UserQuota) error {
	f.created++
	if f.createErr != nil {
		return f.createErr
	}
	cp := *q
	f.row = &cp
	return nil
}

func (f *fakeQuotaRepo) Save(ctx context.Context, q *models.UserQuota) error {
	f.saved++
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *q
	f.row = &cp
	return nil
}

type fakeRepoManager struct {
	quotas *fakeQuotaRepo
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Quotas(dbx.DBTX) quotas.Repository { return f.quotas }
func (f *fakeRepoManager) Artifacts(dbx.DBTX) artifacts.Repository { return nil }

func newGovernor(t *testing.T, repo *fakeQuotaRepo, limit int) (*Governor, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	g := NewGovernor(db, &fakeRepoManager{quotas: repo}, limit, nopLogger{})
	return g, mock, db
}

func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func TestAdmit_FirstContactCreatesFreeRow(t *testing.T) {
	repo := &fakeQuotaRepo{}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	q, err := g.Admit(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if q.Plan != models.PlanFree || q.DailyUsage != 0 {
		t.Fatalf("unexpected quota: %+v", q)
	}
	if repo.created != 1 {
		t.Fatalf("expected 1 create, got %d", repo.created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestAdmit_FreeUnderLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, DailyUsage: 4, LastReset: now,
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	if _, err := g.Admit(context.Background(), "u-1"); err != nil {
		t.Fatalf("Admit error: %v", err)
	}
}

func TestAdmit_FreeAtLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, DailyUsage: 5, LastReset: now,
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := g.Admit(context.Background(), "u-1")
	if !errors.Is(err, common.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestAdmit_StaleDateResetsCounter(t *testing.T) {
	now := time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, DailyUsage: 5,
		LastReset: now.Add(-2 * time.Minute), // previous calendar day
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	q, err := g.Admit(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if q.DailyUsage != 0 {
		t.Fatalf("expected reset counter, got %d", q.DailyUsage)
	}
	if repo.saved != 1 {
		t.Fatalf("expected reset to be persisted, got %d saves", repo.saved)
	}
}

func TestAdmit_ProIgnoresLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanPro, DailyUsage: 9000, LastReset: now,
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	if _, err := g.Admit(context.Background(), "u-1"); err != nil {
		t.Fatalf("Admit error: %v", err)
	}
}

func TestAdmit_RepoError(t *testing.T) {
	repo := &fakeQuotaRepo{getErr: errors.New("db down")}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	if _, err := g.Admit(context.Background(), "u-1"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestCommit_IncrementsInsideTx(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, DailyUsage: 2, LastReset: now,
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	if err := g.Commit(context.Background(), "u-1"); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if repo.row.DailyUsage != 3 {
		t.Fatalf("expected usage 3, got %d", repo.row.DailyUsage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestCommit_RollsBackOnSaveError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{
		row:     &models.UserQuota{UserID: "u-1", Plan: models.PlanFree, DailyUsage: 2, LastReset: now},
		saveErr: errors.New("write failed"),
	}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	if err := g.Commit(context.Background(), "u-1"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestCommit_RolloverCountsAgainstNewDay(t *testing.T) {
	now := time.Date(2025, 6, 2, 0, 0, 5, 0, time.UTC)
	fixNow(t, now)

	repo := &fakeQuotaRepo{row: &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, DailyUsage: 4,
		LastReset: now.Add(-time.Hour),
	}}
	g, mock, db := newGovernor(t, repo, 5)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	if err := g.Commit(context.Background(), "u-1"); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if repo.row.DailyUsage != 1 {
		t.Fatalf("expected usage 1 after rollover, got %d", repo.row.DailyUsage)
	}
}
