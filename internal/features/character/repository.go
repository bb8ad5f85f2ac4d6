// Package character — repository.go работает с таблицей characters.
package character

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

const characterColumns = `user_id, level, experience, life_points,
	strength, defense, intelligence, agility, health, created_at, updated_at`

// Repository предоставляет методы для работы с персонажами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий персонажей.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Create создаёт персонажа первого уровня. Повторный вызов ничего не меняет.
func (r *Repository) Create(ctx context.Context, userID int64, lifePoints int) error {
	query := `
		INSERT INTO characters (user_id, level, experience, life_points)
		VALUES ($1, 1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, lifePoints); err != nil {
		return fmt.Errorf("ошибка создания персонажа: %w", err)
	}
	return nil
}

// GetByUserID возвращает персонажа аккаунта.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE user_id = $1`
	c, err := scanCharacter(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("персонаж не найден (user_id=%d): %w", userID, common.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("ошибка получения персонажа: %w", err)
	}
	return c, nil
}

// Update блокирует строку персонажа, применяет к нему fn и сохраняет результат.
// Если fn вернула ошибку — изменения не сохраняются.
// Внутри postgres.WithTx сохранение откатится вместе с внешней транзакцией.
func (r *Repository) Update(ctx context.Context, userID int64, fn func(c *Character) error) (*Character, error) {
	tx, err := postgres.Conn(ctx, r.db).Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + characterColumns + ` FROM characters WHERE user_id = $1 FOR UPDATE`
	c, err := scanCharacter(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("персонаж не найден (user_id=%d): %w", userID, common.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("ошибка получения персонажа: %w", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE characters
		SET level = $2, experience = $3, life_points = $4,
		    strength = $5, defense = $6, intelligence = $7, agility = $8, health = $9,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, c.Level, c.Experience, c.LifePoints,
		c.Stats.Strength, c.Stats.Defense, c.Stats.Intelligence, c.Stats.Agility, c.Stats.Health)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения персонажа: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	return c, nil
}

func scanCharacter(row pgx.Row) (*Character, error) {
	var c Character
	err := row.Scan(
		&c.UserID, &c.Level, &c.Experience, &c.LifePoints,
		&c.Stats.Strength, &c.Stats.Defense, &c.Stats.Intelligence, &c.Stats.Agility, &c.Stats.Health,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
