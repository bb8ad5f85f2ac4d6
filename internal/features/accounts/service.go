// Package accounts — service.go содержит бизнес-логику аккаунтов.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
)

// MinPasswordLength — минимальная длина пароля в символах.
const MinPasswordLength = 8

// Hook вызывается после создания аккаунта (персонаж, счёт и т.п.).
type Hook func(ctx context.Context, acc *Account) error

// Service управляет аккаунтами.
type Service struct {
	repo   *Repository
	tokens *TokenIssuer
	hooks  []Hook
}

// NewService создаёт сервис аккаунтов.
func NewService(repo *Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// OnCreate регистрирует действие при создании аккаунта.
// Действия должны быть идемпотентными.
func (s *Service) OnCreate(h Hook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) runHooks(ctx context.Context, acc *Account) error {
	for _, h := range s.hooks {
		if err := h(ctx, acc); err != nil {
			return fmt.Errorf("ошибка подготовки аккаунта %d: %w", acc.ID, err)
		}
	}
	return nil
}

// EnsureTelegramAccount вызывается на каждое сообщение боту.
// Создаёт аккаунт при первом обращении и обновляет username/имя при следующих.
func (s *Service) EnsureTelegramAccount(ctx context.Context, p TelegramProfile) (*Account, error) {
	acc, created, err := s.repo.UpsertTelegram(ctx, p)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.runHooks(ctx, acc); err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"account_id":  acc.ID,
			"telegram_id": p.TelegramID,
			"username":    p.Username,
		}).Info("Новый аккаунт из Telegram")
	}
	return acc, nil
}

// SignUp регистрирует аккаунт по email и паролю.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, common.ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, common.ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	acc, err := s.repo.CreateWithEmail(ctx, email, hash, displayName)
	if err != nil {
		return nil, err
	}
	if err := s.runHooks(ctx, acc); err != nil {
		return nil, err
	}

	log.WithField("account_id", acc.ID).Info("Новый аккаунт по email")
	return acc, nil
}

// SignIn проверяет email и пароль и выпускает токен сессии.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *Account, error) {
	acc, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			return "", nil, common.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if acc.PasswordHash == "" || !VerifyPassword(password, acc.PasswordHash) {
		log.WithField("account_id", acc.ID).Warn("Неудачная попытка входа")
		return "", nil, common.ErrInvalidCredentials
	}
	if acc.IsBanned {
		return "", nil, common.ErrBanned
	}

	token, err := s.IssueToken(acc.ID)
	if err != nil {
		return "", nil, err
	}
	return token, acc, nil
}

// IssueToken выпускает токен сессии для аккаунта (сразу после регистрации).
func (s *Service) IssueToken(accountID int64) (string, error) {
	token, _, err := s.tokens.Issue(accountID)
	return token, err
}

// Authenticate проверяет токен и возвращает незаблокированный аккаунт.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if acc.IsBanned {
		return nil, common.ErrBanned
	}
	return acc, nil
}

// ParseToken возвращает ID аккаунта из токена без обращения к БД.
func (s *Service) ParseToken(token string) (int64, error) {
	return s.tokens.Parse(token)
}

// Get возвращает аккаунт по ID.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByTelegramID возвращает аккаунт по Telegram ID.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	return s.repo.GetByTelegramID(ctx, telegramID)
}

// Find ищет аккаунт по ссылке из админ-команды: числовой ID аккаунта или @username.
func (s *Service) Find(ctx context.Context, ref string) (*Account, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "@") {
		return s.repo.GetByTelegramUsername(ctx, strings.TrimPrefix(ref, "@"))
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return nil, common.ErrAccountNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// SetBanned блокирует или разблокирует аккаунт.
func (s *Service) SetBanned(ctx context.Context, id int64, banned bool) error {
	if err := s.repo.SetBanned(ctx, id, banned); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"account_id": id,
		"banned":     banned,
	}).Info("Блокировка аккаунта изменена")
	return nil
}

// validEmail — минимальная проверка: непустые части до и после единственной @.
func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@") &&
		!strings.ContainsAny(email, " \t\r\n") && len(email) <= 320
}
