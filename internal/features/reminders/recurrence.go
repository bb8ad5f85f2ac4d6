// Package reminders — recurrence.go решает, запланировано ли напоминание на дату.
package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"serotonyl.ru/lifeleveling/internal/common"
)

// Kind — вид правила повтора.
type Kind string

const (
	KindOnce     Kind = "once"     // Только в день начала
	KindDaily    Kind = "daily"    // Каждый день без срока
	KindFinite   Kind = "finite"   // Каждый день в течение Count единиц Unit
	KindInfinite Kind = "infinite" // Каждый день бессрочно
)

// Unit — единица длительности для конечного повтора.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// Rule — правило повтора напоминания.
// Count и Unit используются только для KindFinite.
type Rule struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count,omitempty"`
	Unit  Unit `json:"unit,omitempty"`
}

// Validate проверяет, что правило осмысленно.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindOnce, KindDaily, KindInfinite:
		return nil
	case KindFinite:
		if r.Count <= 0 {
			return common.ErrInvalidRule
		}
		switch r.Unit {
		case UnitDays, UnitWeeks, UnitMonths, UnitYears:
			return nil
		}
	}
	return common.ErrInvalidRule
}

// IsDue сообщает, запланировано ли напоминание с началом start на дату target.
// Сравниваются только календарные даты, время суток отбрасывается.
func IsDue(rule Rule, start, target time.Time) bool {
	start, target = common.DateOf(start), common.DateOf(target)
	if target.Before(start) {
		return false
	}

	switch rule.Kind {
	case KindOnce:
		return target.Equal(start)
	case KindDaily, KindInfinite:
		return true
	case KindFinite:
		return !target.After(EndDate(start, rule.Count, rule.Unit))
	default:
		return false
	}
}

// EndDate возвращает последний день конечного повтора: start + count единиц unit.
//
// Месяцы и годы прибавляются календарно. Если в целевом месяце нет такого числа,
// берётся последний день месяца:
//
//	31.01 + 1 месяц = 28.02 (29.02 в високосный год)
//	29.02 + 1 год   = 28.02
func EndDate(start time.Time, count int, unit Unit) time.Time {
	start = common.DateOf(start)
	switch unit {
	case UnitDays:
		return start.AddDate(0, 0, count)
	case UnitWeeks:
		return start.AddDate(0, 0, 7*count)
	case UnitMonths:
		return addMonthsClamped(start, count)
	case UnitYears:
		return addMonthsClamped(start, 12*count)
	default:
		return start
	}
}

// addMonthsClamped прибавляет месяцы без перескока в следующий месяц
// (time.AddDate превратил бы 31.01 + 1 месяц в 03.03).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ruleAliases — словесные правила, которые понимает ParseRule.
var ruleAliases = map[string]Rule{
	"once": {Kind: KindOnce}, "разово": {Kind: KindOnce}, "однажды": {Kind: KindOnce},
	"daily": {Kind: KindDaily}, "ежедневно": {Kind: KindDaily},
	"forever": {Kind: KindInfinite}, "всегда": {Kind: KindInfinite}, "бессрочно": {Kind: KindInfinite},
}

var unitSuffixes = map[string]Unit{
	"d": UnitDays, "д": UnitDays,
	"w": UnitWeeks, "н": UnitWeeks,
	"m": UnitMonths, "м": UnitMonths,
	"y": UnitYears, "г": UnitYears,
}

// ParseRule разбирает правило из команды бота.
//
// Примеры: "once", "daily", "forever", "10d", "3w", "6m", "1y", "ежедневно", "2н".
func ParseRule(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if r, ok := ruleAliases[s]; ok {
		return r, nil
	}

	runes := []rune(s)
	if len(runes) < 2 {
		return Rule{}, common.ErrInvalidRule
	}
	unit, ok := unitSuffixes[string(runes[len(runes)-1])]
	if !ok {
		return Rule{}, common.ErrInvalidRule
	}
	count, err := strconv.Atoi(string(runes[:len(runes)-1]))
	if err != nil || count <= 0 {
		return Rule{}, common.ErrInvalidRule
	}
	return Rule{Kind: KindFinite, Count: count, Unit: unit}, nil
}

// String возвращает правило в человекочитаемом виде.
func (r Rule) String() string {
	switch r.Kind {
	case KindOnce:
		return "разово"
	case KindDaily:
		return "ежедневно"
	case KindInfinite:
		return "бессрочно"
	case KindFinite:
		return fmt.Sprintf("ежедневно, %d %s", r.Count, unitWord(r.Count, r.Unit))
	default:
		return string(r.Kind)
	}
}

func unitWord(n int, u Unit) string {
	switch u {
	case UnitDays:
		return common.PluralizeDays(n)
	case UnitWeeks:
		return common.PluralizeWeeks(n)
	case UnitMonths:
		return common.PluralizeMonths(n)
	case UnitYears:
		return common.Pluralize(int64(n), "год", "года", "лет")
	default:
		return string(u)
	}
}
