// Package character — handlers.go обрабатывает команды:
// !профиль, !прокачать <стат> [очки], !купить [n].
package character

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
)

// Handler обрабатывает команды персонажа.
type Handler struct {
	service *Service
	sender  reply.Sender
}

// NewHandler создаёт обработчик команд персонажа.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleProfile обрабатывает команду !профиль.
//
// Формат ответа:
//
//	🧙 Уровень 3
//	⭐ Опыт: 120.5 / 300
//	❤️ Очки жизни: 5
//	💰 Монеты: 150
//
//	Сила: 2 ...
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64) {
	p, err := h.service.Profile(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения профиля")
		reply.Text(ctx, h.sender, chatID, "❌ Ошибка получения профиля")
		return
	}
	reply.Text(ctx, h.sender, chatID, FormatProfile(p))
}

// FormatProfile собирает текст профиля.
func FormatProfile(p *Profile) string {
	c := p.Character
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧙 Уровень %d\n", c.Level))
	sb.WriteString(fmt.Sprintf("⭐ Опыт: %s / %s\n", formatXP(c.Experience), formatXP(p.ExperienceToNext)))
	sb.WriteString(fmt.Sprintf("❤️ Очки жизни: %d\n", c.LifePoints))
	sb.WriteString(fmt.Sprintf("💰 Монеты: %s\n\n", common.FormatNumber(p.Coins)))
	for _, stat := range AllStats {
		sb.WriteString(fmt.Sprintf("%s: %d\n", stat.Title(), c.Stats.Get(stat)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// HandleAllocate обрабатывает команду !прокачать <стат> [очки].
// Без числа вкладывается одно очко.
func (h *Handler) HandleAllocate(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		reply.Text(ctx, h.sender, chatID, "❌ Формат: !прокачать <сила|защита|интеллект|ловкость|здоровье> [очки]")
		return
	}

	stat, err := ParseStat(args[0])
	if err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ Неизвестная характеристика. Доступны: сила, защита, интеллект, ловкость, здоровье")
		return
	}

	points := 1
	if len(args) > 1 {
		points, err = strconv.Atoi(args[1])
		if err != nil || points <= 0 {
			reply.Text(ctx, h.sender, chatID, "❌ Количество очков должно быть положительным числом")
			return
		}
	}

	c, err := h.service.Allocate(ctx, userID, stat, points)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotEnoughLifePoints):
			reply.Text(ctx, h.sender, chatID, "❌ Недостаточно очков жизни")
		default:
			log.WithError(err).WithField("user_id", userID).Error("Ошибка прокачки")
			reply.Text(ctx, h.sender, chatID, "❌ Ошибка прокачки")
		}
		return
	}

	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ %s: %d (+%d)\n❤️ Осталось очков жизни: %d",
		stat.Title(), c.Stats.Get(stat), points, c.LifePoints))
}

// HandleBuy обрабатывает команду !купить [n] — покупка очков жизни за монеты.
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, args []string) {
	n := 1
	if len(args) > 0 {
		var err error
		n, err = strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			reply.Text(ctx, h.sender, chatID, "❌ Количество должно быть положительным числом")
			return
		}
	}

	c, err := h.service.BuyLifePoints(ctx, userID, n)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientBalance):
			price := h.service.LifePointPrice() * int64(n)
			reply.Text(ctx, h.sender, chatID, fmt.Sprintf("❌ Недостаточно монет, нужно %s", common.FormatBalance(price)))
		default:
			log.WithError(err).WithField("user_id", userID).Error("Ошибка покупки очков жизни")
			reply.Text(ctx, h.sender, chatID, "❌ Ошибка покупки")
		}
		return
	}

	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ Куплено: %d %s\n❤️ Очки жизни: %d",
		n, common.PluralizePoints(n), c.LifePoints))
}

func formatXP(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
