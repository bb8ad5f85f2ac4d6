// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую сессию администратора, закрывая прежние.
func (r *Repository) CreateSession(ctx context.Context, session *AdminSession) error {
	if err := r.DeactivateSession(ctx, session.TelegramID); err != nil {
		return err
	}
	query := `
		INSERT INTO admin_sessions (telegram_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
	`
	_, err := r.db.Exec(ctx, query, session.TelegramID, session.SessionToken, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetActiveSession возвращает активную сессию пользователя.
func (r *Repository) GetActiveSession(ctx context.Context, telegramID int64) (*AdminSession, error) {
	query := `
		SELECT id, telegram_id, session_token, authenticated_at, expires_at, last_activity, is_active
		FROM admin_sessions
		WHERE telegram_id = $1 AND is_active = TRUE AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1
	`
	var s AdminSession
	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&s.ID, &s.TelegramID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("активная сессия не найдена: %w", err)
	}
	return &s, nil
}

// DeactivateSession деактивирует сессии пользователя.
func (r *Repository) DeactivateSession(ctx context.Context, telegramID int64) error {
	query := `UPDATE admin_sessions SET is_active = FALSE WHERE telegram_id = $1 AND is_active = TRUE`
	if _, err := r.db.Exec(ctx, query, telegramID); err != nil {
		return fmt.Errorf("ошибка закрытия сессии: %w", err)
	}
	return nil
}

// UpdateActivity обновляет время последней активности.
func (r *Repository) UpdateActivity(ctx context.Context, telegramID int64) error {
	query := `UPDATE admin_sessions SET last_activity = NOW() WHERE telegram_id = $1 AND is_active = TRUE`
	_, err := r.db.Exec(ctx, query, telegramID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, telegramID int64, success bool) error {
	query := `INSERT INTO admin_login_attempts (telegram_id, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, telegramID, success)
	return err
}

// CountFailedAttempts возвращает количество неудачных попыток за последние window.
// Окно считается на стороне БД, в тех же часах, что и attempt_time.
func (r *Repository) CountFailedAttempts(ctx context.Context, telegramID int64, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE telegram_id = $1 AND success = FALSE
		  AND attempt_time >= NOW() - ($2 * INTERVAL '1 second')
	`
	var count int
	if err := r.db.QueryRow(ctx, query, telegramID, int(window.Seconds())).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return count, nil
}
