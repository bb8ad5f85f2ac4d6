// Package middleware содержит промежуточные обработчики для логирования
// и восстановления после паники.
package middleware

import (
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// maxLoggedText — сколько символов текста попадает в лог.
const maxLoggedText = 50

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
func LogMessage(message *telego.Message) {
	if message == nil {
		return
	}

	fields := log.Fields{
		"chat_id": message.Chat.ID,
		"text":    Truncate(message.Text, maxLoggedText),
		"time":    time.Now().Format("15:04:05"),
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.Username
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}

// Truncate обрезает строку до n символов (не байт) и добавляет многоточие.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
