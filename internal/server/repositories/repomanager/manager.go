package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmogilev/docmill/internal/dbx"
	"github.com/dmogilev/docmill/internal/server/repositories/artifacts"
	"github.com/dmogilev/docmill/internal/server/repositories/quotas"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Quotas(db dbx.DBTX) quotas.Repository
	Artifacts(db dbx.DBTX) artifacts.Repository
}
