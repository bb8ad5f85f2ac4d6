// Package economy управляет виртуальной валютой — монетами.
// models.go описывает структуры для балансов и транзакций.
package economy

import "time"

// Balance представляет баланс пользователя.
// Каждый аккаунт имеет ровно одну запись в таблице balances.
type Balance struct {
	ID          int64     `json:"-" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`           // ID аккаунта
	Balance     int64     `json:"balance" db:"balance"`           // Текущий баланс (начинается с 0)
	TotalEarned int64     `json:"total_earned" db:"total_earned"` // Сколько всего заработано
	TotalSpent  int64     `json:"total_spent" db:"total_spent"`   // Сколько всего потрачено
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction представляет одну операцию с монетами.
// Все движения монет (награды, бонусы, покупки, выдачи админом) записываются сюда.
type Transaction struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	Amount          int64     `json:"amount" db:"amount"`                     // Положительная — начисление, отрицательная — списание
	TransactionType string    `json:"transaction_type" db:"transaction_type"` // Тип: 'habit_reward', 'streak_bonus', и т.д.
	Description     string    `json:"description" db:"description"`           // Описание для отображения
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Допустимые типы транзакций
const (
	TxTypeHabitReward       = "habit_reward"         // Награда за выполненную привычку
	TxTypeStreakBonus       = "streak_bonus"         // Бонус за серию
	TxTypeLifePointPurchase = "life_points_purchase" // Покупка очков жизни
	TxTypeAdminGive         = "admin_give"           // Выдача админом
	TxTypeAdminTake         = "admin_take"           // Изъятие админом
)
