package quotas

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetForUpdate_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,\s*plan,\s*daily_usage,\s*last_reset\s+FROM\s+user_quotas\s+WHERE\s+user_id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`

	reset := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "plan", "daily_usage", "last_reset"}).
		AddRow("u-1", "free", 3, reset)
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetForUpdate(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}
	if got.UserID != "u-1" || got.Plan != models.PlanFree || got.DailyUsage != 3 {
		t.Fatalf("unexpected quota: %+v", got)
	}
}

func TestGetForUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+user_id`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+user_quotas\s*\(user_id,\s*plan,\s*daily_usage,\s*last_reset\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`

	reset := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(q).
		WithArgs("u-1", models.PlanFree, 0, reset).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.UserQuota{
		UserID: "u-1", Plan: models.PlanFree, LastReset: reset,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestSave_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+user_quotas`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.UserQuota{UserID: "ghost"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSave_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+user_quotas`).WillReturnError(errors.New("db down"))

	err := repo.Save(context.Background(), &models.UserQuota{UserID: "u-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
