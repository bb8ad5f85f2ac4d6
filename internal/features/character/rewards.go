// Package character — rewards.go содержит расчёт наград за выполнение привычки.
package character

import "math"

// Weights — вклад каждой характеристики в награду.
type Weights struct {
	Strength     float64
	Defense      float64
	Intelligence float64
	Agility      float64
	Health       float64
}

// ExperienceWeights — опыт растёт от силы, защиты и ловкости.
var ExperienceWeights = Weights{Strength: 0.02, Defense: 0.01, Agility: 0.015}

// CoinWeights — монеты растут от защиты, интеллекта и ловкости.
var CoinWeights = Weights{Defense: 0.01, Intelligence: 0.02, Agility: 0.01}

// Reward считает награду: base * (1 + Σ вес_i * стат_i).
func Reward(base float64, s Stats, w Weights) float64 {
	bonus := w.Strength*float64(s.Strength) +
		w.Defense*float64(s.Defense) +
		w.Intelligence*float64(s.Intelligence) +
		w.Agility*float64(s.Agility) +
		w.Health*float64(s.Health)
	return base * (1 + bonus)
}

// ExperienceReward — опыт за выполнение. Остаётся дробным.
//
// Пример: base=10, сила 10 → 10 * (1 + 0.2) = 12
func ExperienceReward(base float64, s Stats) float64 {
	return Reward(base, s, ExperienceWeights)
}

// CoinReward — монеты за выполнение, округлённые до целого.
//
// Пример: base=5, интеллект 10 → 5 * (1 + 0.2) = 6
func CoinReward(base float64, s Stats) int64 {
	return int64(math.Round(Reward(base, s, CoinWeights)))
}
