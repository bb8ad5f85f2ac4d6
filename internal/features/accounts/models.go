// Package accounts управляет аккаунтами: вход через Telegram и по email с паролем,
// токены сессий для HTTP API и блокировки.
// models.go описывает структуры данных для работы с таблицей accounts.
package accounts

import (
	"strings"
	"time"
)

// Account — аккаунт пользователя. Telegram и email — два независимых способа входа,
// заполнен хотя бы один из них.
type Account struct {
	ID               int64     `db:"id"`
	TelegramID       *int64    `db:"telegram_id"`       // Telegram user ID (nil для аккаунтов API)
	TelegramUsername string    `db:"telegram_username"` // @username без @ (может быть пустым)
	Email            *string   `db:"email"`             // nil для аккаунтов из Telegram
	PasswordHash     string    `db:"password_hash"`     // Argon2id, пусто если пароль не задан
	DisplayName      string    `db:"display_name"`
	IsBanned         bool      `db:"is_banned"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Name возвращает отображаемое имя: display_name, иначе @username, иначе email.
func (a *Account) Name() string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.TelegramUsername != "":
		return "@" + a.TelegramUsername
	case a.Email != nil:
		return *a.Email
	}
	return "аккаунт #" + formatID(a.ID)
}

// TelegramProfile — данные пользователя Telegram, из которых собирается аккаунт.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// DisplayName склеивает имя и фамилию. Если их нет — берёт username.
func (p TelegramProfile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return p.Username
	}
	return name
}
