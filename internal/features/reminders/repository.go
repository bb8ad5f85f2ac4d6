// Package reminders — repository.go работает с таблицами reminders и completions.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
	"serotonyl.ru/lifeleveling/internal/features/streak"
)

const reminderColumns = `r.id, r.user_id, r.title, r.description, r.start_date, r.time_of_day,
	r.repeat_kind, r.repeat_count, r.repeat_unit, r.streak_period, r.notify,
	r.last_notified_on, r.created_at, r.updated_at`

// Repository предоставляет методы для работы с напоминаниями.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт новый репозиторий напоминаний.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое напоминание.
func (r *Repository) Create(ctx context.Context, rem *Reminder) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO reminders (id, user_id, title, description, start_date, time_of_day,
		                       repeat_kind, repeat_count, repeat_unit, streak_period, notify)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, rem.ID, rem.UserID, rem.Title, rem.Description, rem.StartDate, rem.TimeOfDay,
		string(rem.Rule.Kind), rem.Rule.Count, string(rem.Rule.Unit), string(rem.StreakPeriod), rem.Notify,
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания напоминания: %w", err)
	}
	return nil
}

// Get возвращает напоминание владельца. Чужое напоминание считается ненайденным.
func (r *Repository) Get(ctx context.Context, userID int64, id uuid.UUID) (*Reminder, error) {
	rem, err := scanReminder(r.db.QueryRow(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders r
		WHERE r.id = $1 AND r.user_id = $2
	`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrReminderNotFound
		}
		return nil, fmt.Errorf("ошибка получения напоминания: %w", err)
	}
	return rem, nil
}

// FindByPrefix ищет напоминание владельца по началу UUID (короткий ID из бота).
func (r *Repository) FindByPrefix(ctx context.Context, userID int64, prefix string) (*Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders r
		WHERE r.user_id = $1 AND r.id::text LIKE $2 || '%'
		LIMIT 2
	`, userID, prefix)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска напоминания: %w", err)
	}
	list, err := collectReminders(rows)
	if err != nil {
		return nil, err
	}

	switch len(list) {
	case 0:
		return nil, common.ErrReminderNotFound
	case 1:
		return list[0], nil
	default:
		return nil, common.ErrAmbiguousReminder
	}
}

// List возвращает все напоминания пользователя, сначала ближайшие по дате начала.
func (r *Repository) List(ctx context.Context, userID int64) ([]*Reminder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders r
		WHERE r.user_id = $1
		ORDER BY r.start_date, r.time_of_day, r.title
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения напоминаний: %w", err)
	}
	return collectReminders(rows)
}

// Update сохраняет изменённые поля напоминания.
func (r *Repository) Update(ctx context.Context, rem *Reminder) error {
	err := r.db.QueryRow(ctx, `
		UPDATE reminders
		SET title = $3, description = $4, start_date = $5, time_of_day = $6,
		    repeat_kind = $7, repeat_count = $8, repeat_unit = $9,
		    streak_period = $10, notify = $11, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`, rem.ID, rem.UserID, rem.Title, rem.Description, rem.StartDate, rem.TimeOfDay,
		string(rem.Rule.Kind), rem.Rule.Count, string(rem.Rule.Unit), string(rem.StreakPeriod), rem.Notify,
	).Scan(&rem.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrReminderNotFound
		}
		return fmt.Errorf("ошибка обновления напоминания: %w", err)
	}
	return nil
}

// Delete удаляет напоминание владельца вместе с выполнениями и серией.
func (r *Repository) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления напоминания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrReminderNotFound
	}
	return nil
}

// InTx выполняет fn в одной транзакции с записью выполнения.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, r.db, fn)
}

// RecordCompletion записывает выполнение. Повтор на ту же дату — ErrAlreadyCompleted.
func (r *Repository) RecordCompletion(ctx context.Context, rem *Reminder, date time.Time, xp float64, coins int64) error {
	tag, err := postgres.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO completions (reminder_id, user_id, due_date, experience, coins)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reminder_id, due_date) DO NOTHING
	`, rem.ID, rem.UserID, date, xp, coins)
	if err != nil {
		return fmt.Errorf("ошибка записи выполнения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAlreadyCompleted
	}
	return nil
}

// CountCompletions возвращает общее число выполнений пользователя.
func (r *Repository) CountCompletions(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM completions WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта выполнений: %w", err)
	}
	return n, nil
}

// CompletedBetween возвращает выполнения пользователя в диапазоне дат [from, to]:
// id напоминания → множество дат.
func (r *Repository) CompletedBetween(ctx context.Context, userID int64, from, to time.Time) (map[uuid.UUID]map[time.Time]bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT reminder_id, due_date
		FROM completions
		WHERE user_id = $1 AND due_date BETWEEN $2 AND $3
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения выполнений: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]map[time.Time]bool)
	for rows.Next() {
		var id uuid.UUID
		var d time.Time
		if err := rows.Scan(&id, &d); err != nil {
			return nil, fmt.Errorf("ошибка сканирования выполнения: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[time.Time]bool)
		}
		out[id][common.DateOf(d)] = true
	}
	return out, rows.Err()
}

// ListNotifiable возвращает кандидатов на уведомление сегодня: уведомления включены,
// время задано, сегодня ещё не уведомляли и не выполняли, у владельца есть Telegram.
// Расписание и время суток проверяет сервис.
func (r *Repository) ListNotifiable(ctx context.Context, today time.Time) ([]*Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reminderColumns+`, a.telegram_id
		FROM reminders r
		JOIN accounts a ON a.id = r.user_id
		WHERE r.notify
		  AND r.time_of_day <> ''
		  AND r.start_date <= $1
		  AND (r.last_notified_on IS NULL OR r.last_notified_on < $1)
		  AND a.telegram_id IS NOT NULL
		  AND NOT a.is_banned
		  AND NOT EXISTS (
		      SELECT 1 FROM completions c WHERE c.reminder_id = r.id AND c.due_date = $1
		  )
	`, today)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения напоминаний для уведомления: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		rem, err := scanReminderWith(rows, &n.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования напоминания: %w", err)
		}
		n.Reminder = rem
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkNotified отмечает, что сегодня уведомление уже отправлено.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID, day time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE reminders SET last_notified_on = $2 WHERE id = $1`, id, day)
	if err != nil {
		return fmt.Errorf("ошибка отметки уведомления: %w", err)
	}
	return nil
}

func collectReminders(rows pgx.Rows) ([]*Reminder, error) {
	defer rows.Close()
	var out []*Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования напоминания: %w", err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения напоминаний: %w", err)
	}
	return out, nil
}

func scanReminder(row pgx.Row) (*Reminder, error) {
	return scanReminderWith(row)
}

// scanReminderWith сканирует колонки напоминания и дополнительные колонки extra.
func scanReminderWith(row pgx.Row, extra ...any) (*Reminder, error) {
	var rem Reminder
	var kind, unit, period string
	dest := []any{
		&rem.ID, &rem.UserID, &rem.Title, &rem.Description, &rem.StartDate, &rem.TimeOfDay,
		&kind, &rem.Rule.Count, &unit, &period, &rem.Notify,
		&rem.LastNotifiedOn, &rem.CreatedAt, &rem.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	rem.Rule.Kind = Kind(kind)
	rem.Rule.Unit = Unit(unit)
	rem.StreakPeriod = streak.Period(period)
	rem.StartDate = common.DateOf(rem.StartDate)
	return &rem, nil
}
