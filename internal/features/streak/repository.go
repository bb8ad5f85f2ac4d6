// Package streak — repository.go выполняет операции с таблицей streaks.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"serotonyl.ru/lifeleveling/internal/db/postgres"
)

const streakColumns = `s.reminder_id, s.user_id, s.period, s.current_streak, s.longest_streak,
	s.total_completions, s.last_period_start, s.created_at, s.updated_at`

// Repository предоставляет методы для работы с таблицей streaks.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Update блокирует серию напоминания (создавая её при первом выполнении),
// применяет fn и сохраняет результат.
func (r *Repository) Update(ctx context.Context, reminderID uuid.UUID, userID int64, period Period, fn func(s *Streak) error) (*Streak, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO streaks (reminder_id, user_id, period)
		VALUES ($1, $2, $3)
		ON CONFLICT (reminder_id) DO NOTHING
	`, reminderID, userID, string(period))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания стрика: %w", err)
	}

	s, err := scanStreak(tx.QueryRow(ctx, `
		SELECT `+streakColumns+`
		FROM streaks s
		WHERE s.reminder_id = $1
		FOR UPDATE
	`, reminderID))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения стрика: %w", err)
	}

	// Период мог поменяться в настройках напоминания
	s.SetPeriod(period)
	if err := fn(s); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE streaks
		SET period = $2, current_streak = $3, longest_streak = $4,
		    total_completions = $5, last_period_start = $6, updated_at = NOW()
		WHERE reminder_id = $1
	`, reminderID, string(s.Period), s.CurrentStreak, s.LongestStreak, s.TotalCompletions, s.LastPeriodStart)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления стрика: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	return s, nil
}

// ListByUser возвращает серии пользователя вместе с названиями напоминаний.
// Сначала самые длинные.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Streak, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+streakColumns+`, rm.title
		FROM streaks s
		JOIN reminders rm ON rm.id = s.reminder_id
		WHERE s.user_id = $1
		ORDER BY s.current_streak DESC, s.longest_streak DESC, rm.title
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения стриков: %w", err)
	}
	defer rows.Close()

	var streaks []*Streak
	for rows.Next() {
		var s Streak
		var period string
		if err := rows.Scan(
			&s.ReminderID, &s.UserID, &period, &s.CurrentStreak, &s.LongestStreak,
			&s.TotalCompletions, &s.LastPeriodStart, &s.CreatedAt, &s.UpdatedAt, &s.Title,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования стрика: %w", err)
		}
		s.Period = Period(period)
		streaks = append(streaks, &s)
	}
	return streaks, rows.Err()
}

// LongestByUser возвращает лучший рекорд пользователя среди всех серий.
func (r *Repository) LongestByUser(ctx context.Context, userID int64) (int, error) {
	var longest int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(longest_streak), 0) FROM streaks WHERE user_id = $1
	`, userID).Scan(&longest)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения рекорда: %w", err)
	}
	return longest, nil
}

// ListActive возвращает все серии с ненулевой длиной.
func (r *Repository) ListActive(ctx context.Context) ([]*Streak, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+streakColumns+`
		FROM streaks s
		WHERE s.current_streak > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных стриков: %w", err)
	}
	defer rows.Close()

	var streaks []*Streak
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования стрика: %w", err)
		}
		streaks = append(streaks, s)
	}
	return streaks, rows.Err()
}

// Break обнуляет текущие серии у перечисленных напоминаний.
func (r *Repository) Break(ctx context.Context, reminderIDs []uuid.UUID) (int64, error) {
	if len(reminderIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(reminderIDs))
	for i, id := range reminderIDs {
		ids[i] = id.String()
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE streaks
		SET current_streak = 0, updated_at = NOW()
		WHERE reminder_id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса стриков: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanStreak(row pgx.Row) (*Streak, error) {
	var s Streak
	var period string
	var last *time.Time
	err := row.Scan(
		&s.ReminderID, &s.UserID, &period, &s.CurrentStreak, &s.LongestStreak,
		&s.TotalCompletions, &last, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("стрик не найден: %w", err)
		}
		return nil, err
	}
	s.Period = Period(period)
	s.LastPeriodStart = last
	return &s, nil
}
