// Package admin — handlers.go обрабатывает админ-команды в личных сообщениях.
// Поток: !login → пароль → команды !выдать, !забрать, !бан, !разбан, !logout.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
)

// Команды админ-панели (без префикса).
const (
	CmdLogin  = "login"
	CmdLogout = "logout"
	CmdGive   = "выдать"
	CmdTake   = "забрать"
	CmdBan    = "бан"
	CmdUnban  = "разбан"
)

// IsCommand сообщает, относится ли команда к админ-панели.
func IsCommand(cmd string) bool {
	switch cmd {
	case CmdLogin, CmdLogout, CmdGive, CmdTake, CmdBan, CmdUnban:
		return true
	}
	return false
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	sender  reply.Sender
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, sender reply.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandlePending обрабатывает сообщение, которого ждёт диалог (пароль после !login).
// Возвращает true, если сообщение поглощено.
func (h *Handler) HandlePending(ctx context.Context, chatID, telegramID int64, text string) bool {
	if !h.service.IsAdmin(telegramID) {
		return false
	}
	state := h.service.GetState(telegramID)
	if state == nil || state.State != StateAwaitingPassword {
		return false
	}
	h.service.ClearState(telegramID)
	h.login(ctx, chatID, telegramID, strings.TrimSpace(text))
	return true
}

// HandleCommand обрабатывает одну из админ-команд.
func (h *Handler) HandleCommand(ctx context.Context, chatID, telegramID int64, cmd string, args []string) {
	if !h.service.IsAdmin(telegramID) {
		reply.Text(ctx, h.sender, chatID, "❌ "+common.ErrNotAdmin.Error())
		return
	}

	switch cmd {
	case CmdLogin:
		if len(args) == 0 {
			h.service.SetState(telegramID, StateAwaitingPassword)
			reply.Text(ctx, h.sender, chatID, "🔐 Введите пароль для доступа к админ-панели:")
			return
		}
		h.login(ctx, chatID, telegramID, strings.Join(args, " "))
		return
	case CmdLogout:
		if err := h.service.Logout(ctx, telegramID); err != nil {
			log.WithError(err).WithField("telegram_id", telegramID).Error("Ошибка выхода из админ-панели")
		}
		reply.Text(ctx, h.sender, chatID, "👋 Сессия закрыта")
		return
	}

	if !h.service.HasActiveSession(ctx, telegramID) {
		h.service.SetState(telegramID, StateAwaitingPassword)
		reply.Text(ctx, h.sender, chatID, "🔐 Сессия не активна. Введите пароль для доступа к админ-панели:")
		return
	}
	h.service.Touch(ctx, telegramID)

	switch cmd {
	case CmdGive, CmdTake:
		h.handleCoins(ctx, chatID, telegramID, cmd, args)
	case CmdBan, CmdUnban:
		h.handleBan(ctx, chatID, telegramID, cmd == CmdBan, args)
	}
}

func (h *Handler) login(ctx context.Context, chatID, telegramID int64, password string) {
	if err := h.service.VerifyPassword(ctx, telegramID, password); err != nil {
		reply.Text(ctx, h.sender, chatID, "❌ "+loginMessage(err))
		if !isLoginError(err) {
			log.WithError(err).WithField("telegram_id", telegramID).Error("Ошибка входа в админ-панель")
		}
		return
	}
	reply.Text(ctx, h.sender, chatID, "✅ Аутентификация успешна!\n\n"+helpText)
}

const helpText = `🛠 Админ-панель:
!выдать <id|@username> <сумма> [причина]
!забрать <id|@username> <сумма> [причина]
!бан <id|@username>
!разбан <id|@username>
!logout`

// handleCoins — !выдать / !забрать <id|@username> <сумма> [причина].
func (h *Handler) handleCoins(ctx context.Context, chatID, adminID int64, cmd string, args []string) {
	if len(args) < 2 {
		reply.Text(ctx, h.sender, chatID, fmt.Sprintf("❌ Формат: !%s <id|@username> <сумма> [причина]", cmd))
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		reply.Text(ctx, h.sender, chatID, "❌ "+common.ErrInvalidAmount.Error())
		return
	}
	reason := strings.Join(args[2:], " ")
	if reason == "" {
		reason = "Решение администратора"
	}

	if cmd == CmdGive {
		acc, err := h.service.Give(ctx, adminID, args[0], amount, reason)
		if err != nil {
			h.replyError(ctx, chatID, adminID, err)
			return
		}
		reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ %s: начислено %d %s", acc.Name(), amount, common.PluralizeCoins(amount)))
		return
	}

	acc, err := h.service.Take(ctx, adminID, args[0], amount, reason)
	if err != nil {
		h.replyError(ctx, chatID, adminID, err)
		return
	}
	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ %s: списано %d %s", acc.Name(), amount, common.PluralizeCoins(amount)))
}

// handleBan — !бан / !разбан <id|@username>.
func (h *Handler) handleBan(ctx context.Context, chatID, adminID int64, banned bool, args []string) {
	if len(args) == 0 {
		reply.Text(ctx, h.sender, chatID, "❌ Формат: !бан <id|@username> или !разбан <id|@username>")
		return
	}
	acc, err := h.service.SetBanned(ctx, adminID, args[0], banned)
	if err != nil {
		h.replyError(ctx, chatID, adminID, err)
		return
	}
	if banned {
		reply.Text(ctx, h.sender, chatID, fmt.Sprintf("🚫 %s заблокирован", acc.Name()))
		return
	}
	reply.Text(ctx, h.sender, chatID, fmt.Sprintf("✅ %s разблокирован", acc.Name()))
}

func (h *Handler) replyError(ctx context.Context, chatID, adminID int64, err error) {
	for _, known := range []error{
		common.ErrAccountNotFound,
		common.ErrInsufficientBalance,
		common.ErrInvalidAmount,
		ErrProtectedAccount,
	} {
		if errors.Is(err, known) {
			reply.Text(ctx, h.sender, chatID, "❌ "+known.Error())
			return
		}
	}
	log.WithError(err).WithField("admin_id", adminID).Error("Ошибка админ-действия")
	reply.Text(ctx, h.sender, chatID, "❌ Что-то пошло не так, попробуйте позже")
}

var loginErrors = []error{
	common.ErrNotAdmin,
	common.ErrAdminDisabled,
	common.ErrTooManyAttempts,
	common.ErrWrongPassword,
}

func loginMessage(err error) string {
	for _, known := range loginErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "Ошибка входа, попробуйте позже"
}

func isLoginError(err error) bool {
	for _, known := range loginErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
