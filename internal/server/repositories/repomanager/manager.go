// Package repomanager vends repository implementations bound to a database
// handle or transaction, and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/server/repositories/children"
	"github.com/dwianugrah/keepsake/internal/server/repositories/grants"
	"github.com/dwianugrah/keepsake/internal/server/repositories/letters"
	"github.com/dwianugrah/keepsake/internal/server/repositories/media"
	"github.com/dwianugrah/keepsake/internal/server/repositories/vaults"
)

// RepositoryManager builds repositories over an arbitrary DBTX so services
// can run the same code on a *sql.DB or inside a transaction.
type RepositoryManager interface {
	Children(db dbx.DBTX) children.Repository
	Vaults(db dbx.DBTX) vaults.Repository
	Media(db dbx.DBTX) media.Repository
	Grants(db dbx.DBTX) grants.Repository
	Letters(db dbx.DBTX) letters.Repository

	RunMigrations(ctx context.Context, db *sql.DB) error
}
