// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с датами и часовым поясом.
package common

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DateLayout — формат дат в командах бота и в API.
const DateLayout = "2006-01-02"

var (
	locMu sync.RWMutex
	loc   = time.FixedZone("MSK", 3*60*60)
)

// SetTimezone задаёт часовой пояс приложения (APP_TIMEZONE).
// Если зону не удалось загрузить — остаётся UTC+3.
func SetTimezone(name string) error {
	l, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("не удалось загрузить часовой пояс %q: %w", name, err)
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
	return nil
}

// Location возвращает часовой пояс приложения.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// Now возвращает текущее время в часовом поясе приложения.
func Now() time.Time {
	return time.Now().In(Location())
}

// Today возвращает только дату (без времени) в часовом поясе приложения.
func Today() time.Time {
	return DateOf(Now())
}

// DateOf отбрасывает время суток, оставляя календарную дату.
// Результат всегда в UTC: так даты из БД (DATE) и из команд сравниваются без сюрпризов.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату из команды или запроса.
// Понимает "2006-01-02", а также "сегодня"/"today" и "завтра"/"tomorrow".
func ParseDate(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "сегодня", "today":
		return Today(), nil
	case "завтра", "tomorrow":
		return Today().AddDate(0, 0, 1), nil
	case "вчера", "yesterday":
		return Today().AddDate(0, 0, -1), nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseTimeOfDay проверяет формат "ЧЧ:ММ". Пустая строка и "-" означают «без времени».
func ParseTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return "", nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format("15:04"), nil
}

// FormatDate форматирует дату в формат "02.01.2006".
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат транзакций.
func FormatDateTime(t time.Time) string {
	return t.In(Location()).Format("02.01.2006 15:04")
}

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(150) → "150 монет"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizeCoins(balance))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
