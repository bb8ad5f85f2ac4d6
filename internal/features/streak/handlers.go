// Package streak — handlers.go обрабатывает команду !огонек.
// Показывает серии по всем напоминаниям: текущую, рекорд и следующий бонус.
package streak

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
)

// Handler обрабатывает команды стрик-системы.
type Handler struct {
	service *Service
	sender  reply.Sender
}

// NewHandler создаёт новый обработчик стрик-команд.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleOgonek обрабатывает команду !огонек.
//
// Формат ответа:
//
//	🔥 Твои огоньки
//
//	Зарядка: 3 нед. подряд (рекорд 5), следующий бонус 40 монет
//	Чтение: 0 мес. подряд (рекорд 2), следующий бонус 10 монет
func (h *Handler) HandleOgonek(ctx context.Context, chatID int64, userID int64) {
	streaks, err := h.service.List(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения стриков")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения данных стрика")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatStreaks(streaks))
}

// FormatStreaks собирает текст для !огонек.
func FormatStreaks(streaks []*Streak) string {
	if len(streaks) == 0 {
		return "🔥 Огоньков пока нет. Выполни напоминание, чтобы зажечь первый!"
	}

	var sb strings.Builder
	sb.WriteString("🔥 Твои огоньки\n")
	for _, st := range streaks {
		sb.WriteString(fmt.Sprintf("\n%s: %d %s подряд (рекорд %d), следующий бонус %s",
			st.Title, st.CurrentStreak, st.Period.Title(), st.LongestStreak,
			common.FormatBalance(GetReward(st.CurrentStreak+1)),
		))
	}
	return sb.String()
}
