// Package common — pluralize.go содержит функции
// для правильного склонения русских числительных.
package common

import "fmt"

// Pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	Pluralize(1, "монета", "монеты", "монет")  → "монета"
//	Pluralize(3, "монета", "монеты", "монет")  → "монеты"
//	Pluralize(11, "монета", "монеты", "монет") → "монет"
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeCoins возвращает правильную форму слова «монета».
func PluralizeCoins(n int64) string {
	return Pluralize(n, "монета", "монеты", "монет")
}

// PluralizeDays возвращает правильную форму слова «день».
func PluralizeDays(n int) string {
	return Pluralize(int64(n), "день", "дня", "дней")
}

// PluralizeWeeks возвращает правильную форму слова «неделя».
func PluralizeWeeks(n int) string {
	return Pluralize(int64(n), "неделя", "недели", "недель")
}

// PluralizeMonths возвращает правильную форму слова «месяц».
func PluralizeMonths(n int) string {
	return Pluralize(int64(n), "месяц", "месяца", "месяцев")
}

// PluralizePoints возвращает правильную форму слова «очко».
func PluralizePoints(n int) string {
	return Pluralize(int64(n), "очко", "очка", "очков")
}

// FormatCoinsAmount создаёт строку вида "+100 монет" или "-50 монет".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatCoinsAmount(100) → "+100 монет"
//	FormatCoinsAmount(-50) → "-50 монет"
//	FormatCoinsAmount(1)   → "+1 монета"
func FormatCoinsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizeCoins(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizeCoins(amount))
}
