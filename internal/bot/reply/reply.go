// Package reply отправляет ответы пользователям в Telegram.
// Обработчики фич зависят от интерфейса Sender, а не от клиента Telegram напрямую.
package reply

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender отправляет текстовые сообщения в чат.
type Sender interface {
	// Send отправляет обычный текст.
	Send(ctx context.Context, chatID int64, text string) error
	// SendHTML отправляет текст с HTML-разметкой (спойлеры, жирный шрифт).
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// Telego — реализация Sender поверх telego.
type Telego struct {
	bot *telego.Bot
}

// NewTelego создаёт отправителя.
func NewTelego(bot *telego.Bot) *Telego {
	return &Telego{bot: bot}
}

// Send отправляет обычный текст.
func (t *Telego) Send(ctx context.Context, chatID int64, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки сообщения (chat_id=%d): %w", chatID, err)
	}
	return nil
}

// SendHTML отправляет текст с HTML-разметкой.
// Если Telegram отверг разметку — повторяет без неё.
func (t *Telego) SendHTML(ctx context.Context, chatID int64, text string) error {
	msg := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if _, err := t.bot.SendMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("HTML не принят, отправляем без разметки")
		return t.Send(ctx, chatID, text)
	}
	return nil
}

// Text отправляет текст и только логирует ошибку.
// Удобно в обработчиках команд, где ответить об ошибке отправки уже некому.
func Text(ctx context.Context, s Sender, chatID int64, text string) {
	if err := s.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// HTML — то же, что Text, но с HTML-разметкой.
func HTML(ctx context.Context, s Sender, chatID int64, text string) {
	if err := s.SendHTML(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
