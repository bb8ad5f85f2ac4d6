// Package accounts — repository.go отвечает за все операции с таблицей accounts в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

const accountColumns = `id, telegram_id, telegram_username, email, password_hash,
	display_name, is_banned, created_at, updated_at`

// uniqueViolation — код ошибки PostgreSQL при нарушении UNIQUE.
const uniqueViolation = "23505"

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTelegram создаёт аккаунт по Telegram ID или обновляет username/имя существующего.
// created == true, если аккаунт только что создан.
func (r *Repository) UpsertTelegram(ctx context.Context, p TelegramProfile) (*Account, bool, error) {
	query := `
		INSERT INTO accounts (telegram_id, telegram_username, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE
		SET telegram_username = EXCLUDED.telegram_username,
		    display_name = EXCLUDED.display_name,
		    updated_at = NOW()
		RETURNING ` + accountColumns + `, (xmax = 0) AS inserted
	`
	var created bool
	acc, err := scanAccountWith(r.db.QueryRow(ctx, query, p.TelegramID, p.Username, p.DisplayName()), &created)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка создания/обновления аккаунта (telegram_id=%d): %w", p.TelegramID, err)
	}
	return acc, created, nil
}

// CreateWithEmail создаёт аккаунт с email и хешем пароля.
// Занятый email — common.ErrEmailTaken.
func (r *Repository) CreateWithEmail(ctx context.Context, email, passwordHash, displayName string) (*Account, error) {
	query := `
		INSERT INTO accounts (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns
	acc, err := scanAccount(r.db.QueryRow(ctx, query, email, passwordHash, displayName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return acc, nil
}

// GetByID: если не найден — common.ErrAccountNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByTelegramID: если не найден — common.ErrAccountNotFound.
func (r *Repository) GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`
	return r.getOne(ctx, query, telegramID)
}

// GetByTelegramUsername ищет без учёта регистра.
func (r *Repository) GetByTelegramUsername(ctx context.Context, username string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(telegram_username) = LOWER($1)`
	return r.getOne(ctx, query, username)
}

// GetByEmail ищет без учёта регистра.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.getOne(ctx, query, email)
}

// SetBanned ставит или снимает блокировку.
func (r *Repository) SetBanned(ctx context.Context, id int64, banned bool) error {
	query := `UPDATE accounts SET is_banned = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, banned)
	if err != nil {
		return fmt.Errorf("ошибка обновления блокировки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*Account, error) {
	acc, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения аккаунта: %w", err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	return scanAccountWith(row)
}

func scanAccountWith(row pgx.Row, extra ...any) (*Account, error) {
	var a Account
	dest := []any{
		&a.ID, &a.TelegramID, &a.TelegramUsername, &a.Email, &a.PasswordHash,
		&a.DisplayName, &a.IsBanned, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
