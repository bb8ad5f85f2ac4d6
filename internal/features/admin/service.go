// Package admin — service.go содержит логику аутентификации, управления сессиями
// и админ-действий над аккаунтами.
package admin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/accounts"
	"serotonyl.ru/lifeleveling/internal/features/economy"
)

// ErrProtectedAccount — попытка заблокировать администратора.
var ErrProtectedAccount = errors.New("нельзя заблокировать администратора")

// Accounts — поиск и блокировка аккаунтов.
type Accounts interface {
	Find(ctx context.Context, ref string) (*accounts.Account, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
}

// Wallet — начисление и списание монет.
type Wallet interface {
	AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
	DeductBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
}

// Settings — настройки админ-панели из конфигурации.
type Settings struct {
	AdminIDs     []int64
	PasswordHash string // Пустой хеш = панель выключена
}

// Service управляет админ-панелью.
type Service struct {
	repo     *Repository
	accounts Accounts
	wallet   Wallet
	settings Settings
	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
	now      func() time.Time
}

// NewService создаёт сервис админ-панели.
func NewService(repo *Repository, accounts Accounts, wallet Wallet, settings Settings) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		wallet:   wallet,
		settings: settings,
		states:   make(map[int64]*AdminState),
		now:      time.Now,
	}
}

// IsAdmin проверяет, входит ли Telegram ID в ADMIN_IDS.
func (s *Service) IsAdmin(telegramID int64) bool {
	for _, id := range s.settings.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// VerifyPassword проверяет пароль администратора по хешу Argon2id и открывает сессию на 24 часа.
// 3 неудачные попытки за час = блокировка входа.
func (s *Service) VerifyPassword(ctx context.Context, telegramID int64, password string) error {
	if !s.IsAdmin(telegramID) {
		return common.ErrNotAdmin
	}
	if s.settings.PasswordHash == "" {
		return common.ErrAdminDisabled
	}

	attempts, err := s.repo.CountFailedAttempts(ctx, telegramID, AttemptsWindow)
	if err != nil {
		return err
	}
	if attempts >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := accounts.VerifyPassword(password, s.settings.PasswordHash)
	if err := s.repo.LogAttempt(ctx, telegramID, match); err != nil {
		log.WithError(err).WithField("telegram_id", telegramID).Error("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("telegram_id", telegramID).Warn("Неверный пароль админ-панели")
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		TelegramID:   telegramID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    s.now().Add(SessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}

	log.WithField("telegram_id", telegramID).Info("Вход в админ-панель")
	return nil
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, telegramID int64) bool {
	if !s.IsAdmin(telegramID) {
		return false
	}
	session, err := s.repo.GetActiveSession(ctx, telegramID)
	return err == nil && session != nil
}

// Touch продлевает активность сессии.
func (s *Service) Touch(ctx context.Context, telegramID int64) {
	if err := s.repo.UpdateActivity(ctx, telegramID); err != nil {
		log.WithError(err).WithField("telegram_id", telegramID).Warn("Не удалось обновить активность сессии")
	}
}

// Logout закрывает сессию.
func (s *Service) Logout(ctx context.Context, telegramID int64) error {
	return s.repo.DeactivateSession(ctx, telegramID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(telegramID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[telegramID]
	if !ok {
		return nil
	}
	if s.now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(telegramID int64, stateName string) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[telegramID] = &AdminState{
		State:     stateName,
		ExpiresAt: s.now().Add(StateTTL),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(telegramID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, telegramID)
}

// Give начисляет монеты аккаунту.
func (s *Service) Give(ctx context.Context, adminID int64, ref string, amount int64, reason string) (*accounts.Account, error) {
	acc, err := s.accounts.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.wallet.AddBalance(ctx, acc.ID, amount, economy.TxTypeAdminGive, reason); err != nil {
		return nil, err
	}
	s.audit(adminID, "give", acc.ID, amount)
	return acc, nil
}

// Take списывает монеты со счёта аккаунта.
func (s *Service) Take(ctx context.Context, adminID int64, ref string, amount int64, reason string) (*accounts.Account, error) {
	acc, err := s.accounts.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.wallet.DeductBalance(ctx, acc.ID, amount, economy.TxTypeAdminTake, reason); err != nil {
		return nil, err
	}
	s.audit(adminID, "take", acc.ID, amount)
	return acc, nil
}

// SetBanned блокирует или разблокирует аккаунт.
func (s *Service) SetBanned(ctx context.Context, adminID int64, ref string, banned bool) (*accounts.Account, error) {
	acc, err := s.accounts.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acc.TelegramID != nil && s.IsAdmin(*acc.TelegramID) && banned {
		return nil, ErrProtectedAccount
	}
	if err := s.accounts.SetBanned(ctx, acc.ID, banned); err != nil {
		return nil, err
	}
	action := "unban"
	if banned {
		action = "ban"
	}
	s.audit(adminID, action, acc.ID, 0)
	return acc, nil
}

func (s *Service) audit(adminID int64, action string, accountID, amount int64) {
	log.WithFields(log.Fields{
		"admin_id":   adminID,
		"action":     action,
		"account_id": accountID,
		"amount":     amount,
	}).Info("Админ-действие")
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
