// Package economy — handlers.go обрабатывает команды:
// !монеты (баланс), !транзакции (история).
package economy

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service     // Сервис экономики
	sender  reply.Sender // Отправка ответов в Telegram
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{
		service: service,
		sender:  sender,
	}
}

// HandleBalance обрабатывает команду !монеты — показывает баланс.
//
// Формат ответа:
//
//	💰 Баланс: 150 монет
//	Заработано всего: 200 монет
//	Потрачено: 50 монет
func (h *Handler) HandleBalance(ctx context.Context, chatID int64, userID int64) {
	stats, err := h.service.GetStats(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf("💰 Баланс: %s\nЗаработано всего: %s\nПотрачено: %s",
		common.FormatBalance(stats.Balance),
		common.FormatBalance(stats.TotalEarned),
		common.FormatBalance(stats.TotalSpent),
	)
	reply.Text(ctx, h.sender, chatID, text)
}

// HandleTransactions обрабатывает команду !транзакции — показывает историю.
func (h *Handler) HandleTransactions(ctx context.Context, chatID int64, userID int64) {
	history, err := h.service.GetTransactionHistory(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения транзакций")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения истории транзакций")
		return
	}

	// HTML нужен для спойлера с хвостом истории
	reply.HTML(ctx, h.sender, chatID, history)
}
