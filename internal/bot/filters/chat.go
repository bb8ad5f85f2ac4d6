// Package filters решает, обрабатывать ли сообщение.
// Бот работает только в личных сообщениях и не отвечает заблокированным аккаунтам.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/features/accounts"
)

// Accounts — создание аккаунта по профилю Telegram.
type Accounts interface {
	EnsureTelegramAccount(ctx context.Context, p accounts.TelegramProfile) (*accounts.Account, error)
}

type ChatFilter struct {
	accounts Accounts
}

func NewChatFilter(accounts Accounts) *ChatFilter {
	return &ChatFilter{accounts: accounts}
}

// CheckAccess возвращает аккаунт отправителя, если сообщение нужно обработать.
// Аккаунт создаётся при первом сообщении.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) (*accounts.Account, bool) {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return nil, false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("deny: no human sender (service/channel message?)")
		return nil, false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	if message.Chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: not a private chat")
		return nil, false
	}

	acc, err := f.accounts.EnsureTelegramAccount(ctx, accounts.TelegramProfile{
		TelegramID: message.From.ID,
		Username:   message.From.Username,
		FirstName:  message.From.FirstName,
		LastName:   message.From.LastName,
	})
	if err != nil {
		logger.WithError(err).Error("account check failed (db)")
		return nil, false
	}
	if acc.IsBanned {
		logger.WithField("account_id", acc.ID).Info("deny: banned")
		return nil, false
	}

	logger.WithField("account_id", acc.ID).Debug("allow: private")
	return acc, true
}
