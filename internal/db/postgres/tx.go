package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx выполняет fn в одной транзакции.
// Репозитории, которые берут соединение через Conn, работают внутри неё,
// их собственные Begin становятся точками сохранения.
// Вложенный вызов переиспользует уже открытую транзакцию.
func WithTx(ctx context.Context, db DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита: %w", err)
	}
	return nil
}

// Conn возвращает транзакцию из ctx, если она открыта через WithTx, иначе db.
func Conn(ctx context.Context, db DB) DB {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}
