// Package streak управляет сериями (огоньками) по напоминаниям.
// Серия растёт, если напоминание выполняется в каждом периоде (неделе или месяце) подряд.
// models.go описывает структуру серии и правила её продвижения.
package streak

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/lifeleveling/internal/common"
)

// Period — длина периода серии.
type Period string

const (
	PeriodWeekly  Period = "weekly"  // Неделя с понедельника
	PeriodMonthly Period = "monthly" // Календарный месяц
)

// ParsePeriod разбирает период. Пустая строка — неделя.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "weekly", "week", "неделя":
		return PeriodWeekly, nil
	case "monthly", "month", "месяц":
		return PeriodMonthly, nil
	default:
		return "", common.ErrInvalidRule
	}
}

// Start возвращает начало периода, в который попадает дата d.
// Неделя начинается с понедельника (ISO), месяц — с первого числа.
func (p Period) Start(d time.Time) time.Time {
	d = common.DateOf(d)
	if p == PeriodMonthly {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(d.Weekday()) + 6) % 7 // понедельник = 0
	return d.AddDate(0, 0, -offset)
}

// Next возвращает начало периода, следующего за периодом с началом start.
func (p Period) Next(start time.Time) time.Time {
	if p == PeriodMonthly {
		return start.AddDate(0, 1, 0)
	}
	return start.AddDate(0, 0, 7)
}

// Title возвращает название периода для сообщений.
func (p Period) Title() string {
	if p == PeriodMonthly {
		return "мес."
	}
	return "нед."
}

// Streak — серия по одному напоминанию.
type Streak struct {
	ReminderID       uuid.UUID  `json:"reminder_id" db:"reminder_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	Title            string     `json:"title,omitempty"` // Название напоминания (только для чтения)
	Period           Period     `json:"period" db:"period"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`       // Периодов подряд
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`       // Личный рекорд
	TotalCompletions int        `json:"total_completions" db:"total_completions"` // Всего выполнений
	LastPeriodStart  *time.Time `json:"last_period_start,omitempty" db:"last_period_start"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Advance учитывает выполнение на дату d и сообщает, выросла ли (или началась заново) серия.
//
// Правила (p — начало периода даты d, last — начало последнего засчитанного периода):
//
//	нет last           → серия = 1
//	p == last          → без изменений (период уже засчитан)
//	p == следующий     → серия + 1
//	p позже следующего → серия = 1 (был пропуск)
//	p раньше last      → без изменений (выполнение задним числом)
func (s *Streak) Advance(d time.Time) bool {
	s.TotalCompletions++
	p := s.Period.Start(d)

	switch {
	case s.LastPeriodStart == nil:
		s.CurrentStreak = 1
	case p.Equal(*s.LastPeriodStart), p.Before(*s.LastPeriodStart):
		return false
	case p.Equal(s.Period.Next(*s.LastPeriodStart)):
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}

	s.LastPeriodStart = &p
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	return true
}

// SetPeriod меняет период серии. Начало последнего периода
// переводится в границы нового.
func (s *Streak) SetPeriod(p Period) {
	if s.Period == p {
		return
	}
	s.Period = p
	if s.LastPeriodStart != nil {
		start := p.Start(*s.LastPeriodStart)
		s.LastPeriodStart = &start
	}
}

// IsStale сообщает, что на дату today серия уже прервана: следующий
// после последнего засчитанного период закончился без выполнения.
func (s *Streak) IsStale(today time.Time) bool {
	if s.CurrentStreak == 0 || s.LastPeriodStart == nil {
		return false
	}
	return s.Period.Start(today).After(s.Period.Next(*s.LastPeriodStart))
}

// StreakRewards — бонус в монетах по длине серии.
// Индекс массива = длина серии - 1. Начиная с 7-го периода — 70 монет.
var StreakRewards = []int64{10, 20, 30, 40, 50, 60, 70}

// GetReward возвращает бонус за серию длиной current.
// 1 → 10, 2 → 20, ..., 7+ → 70
func GetReward(current int) int64 {
	if current < 1 {
		return 0
	}
	if current-1 < len(StreakRewards) {
		return StreakRewards[current-1]
	}
	return StreakRewards[len(StreakRewards)-1]
}

// Result — итог учёта выполнения в серии.
type Result struct {
	Streak   *Streak `json:"streak"`
	Advanced bool    `json:"advanced"` // Серия выросла или началась заново
	Bonus    int64   `json:"bonus"`    // Начисленный бонус (0, если серия не изменилась)
}
