// Package memory is an in-process RepositoryManager. It keeps every table in
// maps guarded by one lock. A transaction records the previous version of
// each row it writes and replays those versions when the unit of work fails,
// so writes made outside the transaction survive its rollback. Transactions
// are serialised, and id sequences are never rolled back.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/flashboard/internal/dbx"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/roles"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory: SQL is not supported")

// handle satisfies dbx.DBTX so in-memory repositories fit the same call
// sites as SQL-backed ones. Issuing SQL through it always fails.
type handle struct{}

func (handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type grantKey struct {
	userID int64
	roleID int64
}

type tables struct {
	users  map[int64]models.User
	roles  map[int64]models.Role
	grants map[grantKey]int64
	tokens map[int64]models.Token

	nextUser, nextRole, nextGrant, nextToken int64
}

func newTables() tables {
	return tables{
		users:  make(map[int64]models.User),
		roles:  make(map[int64]models.Role),
		grants: make(map[grantKey]int64),
		tokens: make(map[int64]models.Token),
	}
}

func usersOf(t *tables) map[int64]models.User { return t.users }
func rolesOf(t *tables) map[int64]models.Role { return t.roles }
func grantsOf(t *tables) map[grantKey]int64 { return t.grants }
func tokensOf(t *tables) map[int64]models.Token { return t.tokens }

// txHandle is the DBTX given to a unit of work. It carries the undo log.
type txHandle struct {
	handle
	undo []func(*tables)
}

// txOf returns the transaction behind db, or nil outside a transaction.
func txOf(db dbx.DBTX) *txHandle {
	tx, _ := db.(*txHandle)
	return tx
}

// remember logs how to put back the row at key before it is written. The
// caller holds the store lock. It is a no-op outside a transaction.
func remember[K comparable, V any](tx *txHandle, t *tables, table func(*tables) map[K]V, key K) {
	if tx == nil {
		return
	}
	old, existed := table(t)[key]
	tx.undo = append(tx.undo, func(t *tables) {
		if existed {
			table(t)[key] = old
		} else {
			delete(table(t), key)
		}
	})
}

type store struct {
	mu sync.RWMutex
	t  tables
}

// Counts is a row count per table.
type Counts struct {
	Users  int
	Roles  int
	Grants int
	Tokens int
}

// Manager implements repomanager.RepositoryManager in memory.
type Manager struct {
	txMu sync.Mutex
	s    *store
}

func NewManager() *Manager {
	return &Manager{s: &store{t: newTables()}}
}

func (m *Manager) RunMigrations(context.Context) error { return nil }

func (m *Manager) Conn() dbx.DBTX { return handle{} }

// WithTx runs fn and reverts the rows it wrote when fn returns an error or
// panics.
func (m *Manager) WithTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &txHandle{}
	rollback := func() {
		m.s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i](&m.s.t)
		}
		m.s.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
		if err != nil {
			rollback()
		}
	}()

	return fn(ctx, tx)
}

func (m *Manager) Users(db dbx.DBTX) users.Repository {
	return &userRepo{s: m.s, tx: txOf(db)}
}

func (m *Manager) Roles(db dbx.DBTX) roles.Repository {
	return &roleRepo{s: m.s, tx: txOf(db)}
}

func (m *Manager) Tokens(db dbx.DBTX) tokens.Repository {
	return &tokenRepo{s: m.s, tx: txOf(db)}
}

// Counts reports the current number of rows in each table.
func (m *Manager) Counts() Counts {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return Counts{
		Users:  len(m.s.t.users),
		Roles:  len(m.s.t.roles),
		Grants: len(m.s.t.grants),
		Tokens: len(m.s.t.tokens),
	}
}
