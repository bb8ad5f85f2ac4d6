// Package badges — repository.go работает с таблицей user_badges.
package badges

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

// Repository хранит открытые значки пользователей.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий значков.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Unlock записывает значок. Возвращает false, если он уже был открыт.
func (r *Repository) Unlock(ctx context.Context, userID int64, badgeID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("ошибка открытия значка: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Unlocked возвращает открытые значки пользователя: id → когда открыт.
func (r *Repository) Unlocked(ctx context.Context, userID int64) (map[string]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT badge_id, unlocked_at FROM user_badges WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения значков: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значка: %w", err)
		}
		out[id] = at
	}
	return out, rows.Err()
}
