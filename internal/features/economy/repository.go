// Package economy — repository.go хранит счета аккаунтов (balances)
// и журнал движений монет (transactions).
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

// Repository — доступ к счетам и журналу монет.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий счетов.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func noBalance(userID int64) error {
	return fmt.Errorf("счёт не найден (user_id=%d): %w", userID, common.ErrAccountNotFound)
}

// CreateBalance открывает пустой счёт аккаунту. Повторное открытие игнорируется.
func (r *Repository) CreateBalance(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO balances (user_id, balance, total_earned, total_spent)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка открытия счёта: %w", err)
	}
	return nil
}

// GetBalance возвращает остаток на счёте.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM balances WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, noBalance(userID)
		}
		return 0, fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	return balance, nil
}

// AddBalance зачисляет amount монет (награда за привычку, бонус серии, выдача админом)
// и пишет движение в журнал. Внутри WithTx становится частью внешней транзакции.
func (r *Repository) AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error {
	tx, err := postgres.Conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE balances
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка зачисления монет: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return noBalance(userID)
	}

	if err := insertTransaction(ctx, tx, userID, amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeductBalance снимает amount монет, если их хватает.
// Остаток читается под FOR UPDATE, так что две покупки не уведут счёт в минус.
func (r *Repository) DeductBalance(ctx context.Context, userID int64, amount int64, txType, description string) error {
	tx, err := postgres.Conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var have int64
	err = tx.QueryRow(ctx, `SELECT balance FROM balances WHERE user_id = $1 FOR UPDATE`, userID).Scan(&have)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return noBalance(userID)
		}
		return fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	if have < amount {
		return fmt.Errorf("нужно %d, есть %d: %w", amount, have, common.ErrInsufficientBalance)
	}

	_, err = tx.Exec(ctx, `
		UPDATE balances
		SET balance = balance - $2, total_spent = total_spent + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка списания монет: %w", err)
	}

	if err := insertTransaction(ctx, tx, userID, -amount, txType, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// insertTransaction пишет строку журнала; amount со знаком.
func insertTransaction(ctx context.Context, tx pgx.Tx, userID, amount int64, txType, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, txType, description)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал монет: %w", err)
	}
	return nil
}

// GetTransactions — последние limit движений, новые первыми.
func (r *Repository) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала монет: %w", err)
	}
	defer rows.Close()

	var list []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.TransactionType, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка разбора движения: %w", err)
		}
		list = append(list, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала монет: %w", err)
	}
	return list, nil
}

// GetTotalStats — счёт целиком: остаток, заработано и потрачено за всё время.
func (r *Repository) GetTotalStats(ctx context.Context, userID int64) (*Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM balances
		WHERE user_id = $1
	`, userID).Scan(&b.ID, &b.UserID, &b.Balance, &b.TotalEarned, &b.TotalSpent, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, noBalance(userID)
		}
		return nil, fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	return &b, nil
}
