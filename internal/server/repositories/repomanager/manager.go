package repomanager

import (
	"context"

	"github.com/dmitrijs2005/flashboard/internal/dbx"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/roles"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle and runs units of
// work. Repositories obtained from the handle passed to WithTx's callback
// take part in that transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Conn returns the non-transactional handle.
	Conn() dbx.DBTX
	WithTx(ctx context.Context, fn dbx.TxFunc) error

	Users(db dbx.DBTX) users.Repository
	Roles(db dbx.DBTX) roles.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}
