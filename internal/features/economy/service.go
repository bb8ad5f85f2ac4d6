// Package economy — service.go содержит бизнес-логику экономики.
// Валидация, начисления, списания, получение баланса и истории транзакций.
package economy

import (
	"context"
	"fmt"
	"html"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
)

// historyLimit — сколько транзакций показываем в истории.
const historyLimit = 10

// Service управляет монетами.
type Service struct {
	repo *Repository // Репозиторий для работы с БД
}

// NewService создаёт новый сервис экономики.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateBalance создаёт начальный баланс для нового аккаунта (0 монет).
func (s *Service) CreateBalance(ctx context.Context, userID int64) error {
	return s.repo.CreateBalance(ctx, userID)
}

// GetBalance возвращает текущий баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// GetStats возвращает баланс вместе с суммами заработанного и потраченного.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Balance, error) {
	return s.repo.GetTotalStats(ctx, userID)
}

// AddBalance начисляет монеты пользователю.
// Используется для наград за привычки, бонусов серий и выдачи админом.
func (s *Service) AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.repo.AddBalance(ctx, userID, amount, txType, description); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"type":    txType,
	}).Debug("Монеты начислены")
	return nil
}

// DeductBalance списывает монеты.
// Используется для покупки очков жизни и изъятия админом.
func (s *Service) DeductBalance(ctx context.Context, userID int64, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.repo.DeductBalance(ctx, userID, amount, txType, description)
}

// GetTransactions возвращает последние транзакции (для API).
func (s *Service) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = historyLimit
	}
	return s.repo.GetTransactions(ctx, userID, limit)
}

// GetTransactionHistory возвращает отформатированную историю транзакций для бота (HTML).
// Последние 10 транзакций. Если больше 5 — хвост прячется под спойлер.
func (s *Service) GetTransactionHistory(ctx context.Context, userID int64) (string, error) {
	transactions, err := s.repo.GetTransactions(ctx, userID, historyLimit)
	if err != nil {
		return "", err
	}
	return FormatHistory(transactions), nil
}

// FormatHistory собирает текст истории транзакций в разметке HTML для Telegram.
func FormatHistory(transactions []*Transaction) string {
	if len(transactions) == 0 {
		return "📋 У вас пока нет транзакций"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d транзакций:\n\n", len(transactions)))

	lines := make([]string, 0, len(transactions))
	for i, tx := range transactions {
		lines = append(lines, fmt.Sprintf("%d. %s | %s | %s",
			i+1,
			common.FormatDateTime(tx.CreatedAt),
			common.FormatCoinsAmount(tx.Amount),
			html.EscapeString(tx.Description),
		))
	}

	if len(lines) > 5 {
		// Первые 5 показываем открыто, остальные в спойлере
		sb.WriteString(strings.Join(lines[:5], "\n"))
		sb.WriteString("\n\n<tg-spoiler>")
		sb.WriteString(strings.Join(lines[5:], "\n"))
		sb.WriteString("</tg-spoiler>")
	} else {
		sb.WriteString(strings.Join(lines, "\n"))
	}

	return sb.String()
}
