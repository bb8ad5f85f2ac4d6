// Package badges — handlers.go обрабатывает команду !значки.
package badges

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
)

// Handler обрабатывает команды значков.
type Handler struct {
	service *Service
	sender  reply.Sender
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleBadges показывает все значки: открытые и ещё закрытые.
func (h *Handler) HandleBadges(ctx context.Context, chatID, userID int64) {
	list, err := h.service.List(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения значков")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения значков")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatList(list))
}

// FormatList собирает текст для !значки.
func FormatList(list []Status) string {
	opened := 0
	var sb strings.Builder
	for _, st := range list {
		if st.Unlocked {
			opened++
			sb.WriteString(fmt.Sprintf("\n%s %s — %s", st.Icon, st.Name, st.Description))
		} else {
			sb.WriteString(fmt.Sprintf("\n🔒 %s — %s", st.Name, st.Description))
		}
	}
	return fmt.Sprintf("🏅 Значки: %d из %d\n", opened, len(list)) + sb.String()
}

// FormatUnlocked — строка о новых значках для ответа на выполнение.
func FormatUnlocked(list []Badge) string {
	if len(list) == 0 {
		return ""
	}
	names := make([]string, len(list))
	for i, b := range list {
		names[i] = b.Icon + " " + b.Name
	}
	return "🏅 Новые значки: " + strings.Join(names, ", ")
}
