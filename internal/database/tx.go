package database

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

type hooksKey struct{}

// commitHooks collects callbacks registered while a transaction is open
type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *commitHooks) add(fns ...func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fns...)
	h.mu.Unlock()
}

func (h *commitHooks) take() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := h.fns
	h.fns = nil
	return fns
}

// WithTx returns a context carrying an open transaction.
// Repositories called with this context join the transaction.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn returns the handle a repository should use for ctx: the active
// transaction when there is one, otherwise db.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// RunInTx runs fn inside a transaction. A transaction already carried by ctx
// is reused through a savepoint, so calls nest.
//
// Callbacks registered with AfterCommit inside fn run once the outermost
// RunInTx commits. They are dropped when fn or any enclosing transaction fails.
func RunInTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	parent, _ := ctx.Value(hooksKey{}).(*commitHooks)
	hooks := &commitHooks{}

	err := Conn(ctx, db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(WithTx(ctx, tx), hooksKey{}, hooks))
	})
	if err != nil {
		return err
	}

	if parent != nil {
		parent.add(hooks.take()...)
		return nil
	}
	for _, f := range hooks.take() {
		f()
	}
	return nil
}

// AfterCommit runs f once the transaction carried by ctx commits. Outside
// RunInTx, f runs immediately.
func AfterCommit(ctx context.Context, f func()) {
	if hooks, ok := ctx.Value(hooksKey{}).(*commitHooks); ok {
		hooks.add(f)
		return
	}
	f()
}

// TxRunner binds RunInTx to a database handle
type TxRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a TxRunner for db
func NewTxRunner(db *gorm.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run executes fn in a transaction
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, r.db, fn)
}
