package postgres

import (
	"context"

	"gorm.io/gorm"
)

type transactionContextKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// getTx returns the transaction carried by ctx, or the pool.
func (s *Store) getTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(transactionContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// WithinTransaction runs fn in a database transaction. Repository calls made with the ctx passed to fn join it.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}
