// Package reminders управляет напоминаниями (привычками): созданием, расписанием,
// выполнением с наградами и уведомлениями в Telegram.
// models.go описывает структуры напоминаний и результатов.
package reminders

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/streak"
)

// MaxTitleLength — максимальная длина названия в символах.
const MaxTitleLength = 200

// ShortIDLength — длина короткого ID, который показывает бот.
const ShortIDLength = 8

// Reminder — напоминание пользователя.
type Reminder struct {
	ID             uuid.UUID     `json:"id"`
	UserID         int64         `json:"user_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	StartDate      time.Time     `json:"start_date"`
	TimeOfDay      string        `json:"time_of_day"` // "ЧЧ:ММ" или пусто
	Rule           Rule          `json:"rule"`
	StreakPeriod   streak.Period `json:"streak_period"`
	Notify         bool          `json:"notify"`
	LastNotifiedOn *time.Time    `json:"last_notified_on,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ShortID — первые 8 символов UUID для команд бота.
func (r *Reminder) ShortID() string {
	return r.ID.String()[:ShortIDLength]
}

// IsDue сообщает, запланировано ли напоминание на дату.
func (r *Reminder) IsDue(date time.Time) bool {
	return IsDue(r.Rule, r.StartDate, date)
}

// Input — поля, которые пользователь задаёт при создании и изменении.
type Input struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	StartDate    time.Time     `json:"start_date"`
	TimeOfDay    string        `json:"time_of_day"`
	Rule         Rule          `json:"rule"`
	StreakPeriod streak.Period `json:"streak_period"`
	Notify       bool          `json:"notify"`
}

// Normalize обрезает пробелы, проставляет значения по умолчанию и проверяет поля.
func (in *Input) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return common.ErrEmptyTitle
	}
	if in.StartDate.IsZero() {
		return common.ErrInvalidDate
	}
	in.StartDate = common.DateOf(in.StartDate)

	tod, err := common.ParseTimeOfDay(in.TimeOfDay)
	if err != nil {
		return err
	}
	in.TimeOfDay = tod

	if in.Rule.Kind == "" {
		in.Rule.Kind = KindOnce
	}
	if in.Rule.Kind != KindFinite {
		in.Rule.Count, in.Rule.Unit = 0, ""
	}
	if err := in.Rule.Validate(); err != nil {
		return err
	}

	period, err := streak.ParsePeriod(string(in.StreakPeriod))
	if err != nil {
		return err
	}
	in.StreakPeriod = period
	return nil
}

// DueItem — напоминание на конкретную дату с отметкой о выполнении.
type DueItem struct {
	Reminder  *Reminder `json:"reminder"`
	Completed bool      `json:"completed"`
}

// CalendarDay — напоминания, запланированные на один день месяца.
type CalendarDay struct {
	Date      time.Time   `json:"date"`
	Reminders []*Reminder `json:"reminders"`
}

// CompletionResult — всё, что произошло при выполнении напоминания.
type CompletionResult struct {
	Reminder   *Reminder          `json:"reminder"`
	Date       time.Time          `json:"date"`
	Experience float64            `json:"experience"`
	Coins      int64              `json:"coins"`
	LevelUp    *character.LevelUp `json:"level_up"`
	Streak     *streak.Result     `json:"streak,omitempty"`
	Badges     []badges.Badge     `json:"badges,omitempty"`
}

// Notification — напоминание, о котором пора сообщить в Telegram.
type Notification struct {
	Reminder   *Reminder
	TelegramID int64
}
