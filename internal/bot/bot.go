// Package bot содержит Telegram-оболочку — запуск, остановку и маршрутизацию команд.
// bot.go принимает апдейты long polling и передаёт команды обработчикам фич.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/filters"
	"serotonyl.ru/lifeleveling/internal/bot/middleware"
	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/config"
	"serotonyl.ru/lifeleveling/internal/features/admin"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/reminders"
	"serotonyl.ru/lifeleveling/internal/features/streak"
	"serotonyl.ru/lifeleveling/internal/ratelimit"
)

// Handlers — обработчики фич. Streak и Badges равны nil, если фича выключена.
type Handlers struct {
	Character *character.Handler
	Economy   *economy.Handler
	Reminders *reminders.Handler
	Streak    *streak.Handler
	Badges    *badges.Handler
	Admin     *admin.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api    *telego.Bot
	sender reply.Sender
	cfg    *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *ratelimit.RateLimiter[int64]
	handlers    Handlers
	parser      *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(api *telego.Bot, sender reply.Sender, cfg *config.Config, chatFilter *filters.ChatFilter, handlers Handlers) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:         api,
		sender:      sender,
		cfg:         cfg,
		chatFilter:  chatFilter,
		rateLimiter: ratelimit.New[int64](cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:    handlers,
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
// Перед возвратом дожидается обработчиков, которые уже работают.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	// Только личка, аккаунт создаётся при первом сообщении
	acc, ok := b.chatFilter.CheckAccess(ctx, message)
	if !ok {
		return
	}

	telegramID := message.From.ID
	if !b.rateLimiter.Allow(telegramID) {
		log.WithField("user_id", telegramID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID

	// Пароль админа после !login приходит обычным сообщением
	if b.handlers.Admin != nil && b.handlers.Admin.HandlePending(ctx, chatID, telegramID, message.Text) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	log.WithFields(log.Fields{
		"isCommand": isCommand,
		"cmd":       cmd,
		"args":      args,
	}).Debug("parsed command")

	if !isCommand {
		reply.Text(ctx, b.sender, chatID, "🤔 Я понимаю только команды. Список: !help")
		return
	}
	b.routeCommand(ctx, chatID, telegramID, acc.ID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
// userID — ID аккаунта, telegramID нужен только админ-панели.
func (b *Bot) routeCommand(ctx context.Context, chatID, telegramID, userID int64, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	h := b.handlers
	switch cmd {
	case "start", "help", "помощь":
		reply.Text(ctx, b.sender, chatID, helpText)

	case "профиль":
		h.Character.HandleProfile(ctx, chatID, userID)
	case "прокачать":
		h.Character.HandleAllocate(ctx, chatID, userID, args)
	case "купить":
		h.Character.HandleBuy(ctx, chatID, userID, args)

	case "монеты", "баланс":
		h.Economy.HandleBalance(ctx, chatID, userID)
	case "транзакции":
		h.Economy.HandleTransactions(ctx, chatID, userID)

	case "напоминания":
		h.Reminders.HandleList(ctx, chatID, userID)
	case "сегодня":
		h.Reminders.HandleAgenda(ctx, chatID, userID, args)
	case "добавить":
		h.Reminders.HandleAdd(ctx, chatID, userID, args)
	case "удалить":
		h.Reminders.HandleDelete(ctx, chatID, userID, args)
	case "выполнить", "готово":
		h.Reminders.HandleComplete(ctx, chatID, userID, args)
	case "календарь":
		h.Reminders.HandleCalendar(ctx, chatID, userID, args)

	case "огонек", "огонёк":
		if h.Streak == nil {
			reply.Text(ctx, b.sender, chatID, "🔥 Огоньки временно отключены")
			return
		}
		h.Streak.HandleOgonek(ctx, chatID, userID)

	case "значки":
		if h.Badges == nil {
			reply.Text(ctx, b.sender, chatID, "🏅 Значки временно отключены")
			return
		}
		h.Badges.HandleBadges(ctx, chatID, userID)

	default:
		if admin.IsCommand(cmd) && h.Admin != nil {
			h.Admin.HandleCommand(ctx, chatID, telegramID, cmd, args)
			return
		}
		reply.Text(ctx, b.sender, chatID, fmt.Sprintf("❓ Неизвестная команда «%s». Список: !help", cmd))
	}
}

const helpText = `⚔️ Life Leveling — прокачивай себя, выполняя привычки.

👤 Персонаж
!профиль — уровень, опыт, характеристики
!прокачать <сила|защита|интеллект|ловкость|здоровье> [очки]
!купить [n] — купить очки жизни за монеты

💰 Монеты
!монеты — баланс
!транзакции — последние операции

📝 Напоминания
!напоминания — список
!сегодня [дата] — что запланировано
!добавить <дата> <ЧЧ:ММ|-> <правило> <название>
!выполнить <id> [дата]
!удалить <id>
!календарь [ГГГГ-ММ]

🔥 !огонек — серии, 🏅 !значки — достижения`

// CommandParser парсит русские команды с префиксами !, . и /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команд Telegram (/start@lifebot) отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
