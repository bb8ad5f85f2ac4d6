// Package character — service.go содержит бизнес-логику персонажа:
// начисление опыта, подъём уровня, распределение и покупку очков жизни.
package character

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/economy"
)

// Wallet — то, что персонажу нужно от экономики.
type Wallet interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
	DeductBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
}

// Settings — игровые константы из конфигурации.
type Settings struct {
	StartLifePoints    int     // Очки жизни у нового персонажа
	LifePointsPerLevel int     // Очки жизни за каждый новый уровень
	BaseExperience     float64 // Базовый опыт за выполнение
	BaseCoins          float64 // Базовые монеты за выполнение
	LifePointPrice     int64   // Цена одного очка жизни в монетах
}

// Service управляет персонажами.
type Service struct {
	repo     *Repository
	wallet   Wallet
	settings Settings
}

// NewService создаёт новый сервис персонажей.
func NewService(repo *Repository, wallet Wallet, settings Settings) *Service {
	return &Service{repo: repo, wallet: wallet, settings: settings}
}

// Create создаёт персонажа для нового аккаунта.
func (s *Service) Create(ctx context.Context, userID int64) error {
	return s.repo.Create(ctx, userID, s.settings.StartLifePoints)
}

// Get возвращает персонажа. Если его ещё нет — создаёт.
func (s *Service) Get(ctx context.Context, userID int64) (*Character, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, common.ErrAccountNotFound) {
		return nil, err
	}

	if err := s.Create(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(ctx, userID)
}

// Rewards считает опыт и монеты за одно выполнение при данных характеристиках.
func (s *Service) Rewards(stats Stats) (float64, int64) {
	return ExperienceReward(s.settings.BaseExperience, stats), CoinReward(s.settings.BaseCoins, stats)
}

// GrantExperience начисляет опыт и поднимает уровень, если порог пройден.
func (s *Service) GrantExperience(ctx context.Context, userID int64, xp float64) (*LevelUp, error) {
	result := &LevelUp{}
	c, err := s.repo.Update(ctx, userID, func(c *Character) error {
		result.LevelBefore = c.Level
		c.GainExperience(xp, s.settings.LifePointsPerLevel)
		result.LevelAfter = c.Level
		result.LifePointsGained = (c.Level - result.LevelBefore) * s.settings.LifePointsPerLevel
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Character = c

	if result.Leveled() {
		log.WithFields(log.Fields{
			"user_id": userID,
			"level":   c.Level,
		}).Info("Новый уровень")
	}
	return result, nil
}

// Allocate переносит очки жизни в характеристику.
func (s *Service) Allocate(ctx context.Context, userID int64, stat Stat, points int) (*Character, error) {
	return s.repo.Update(ctx, userID, func(c *Character) error {
		return c.Allocate(stat, points)
	})
}

// MaxLifePointsPurchase — сколько очков жизни можно купить за раз.
const MaxLifePointsPurchase = 1000

// BuyLifePoints покупает n очков жизни за монеты.
// Сначала списываются монеты; если сохранить очки не удалось — монеты возвращаются.
func (s *Service) BuyLifePoints(ctx context.Context, userID int64, n int) (*Character, error) {
	price := s.settings.LifePointPrice
	if n <= 0 || n > MaxLifePointsPurchase || (price > 0 && int64(n) > math.MaxInt64/price) {
		return nil, common.ErrInvalidAmount
	}
	cost := price * int64(n)
	desc := fmt.Sprintf("Покупка: %d %s", n, common.PluralizePoints(n))

	if err := s.wallet.DeductBalance(ctx, userID, cost, economy.TxTypeLifePointPurchase, desc); err != nil {
		return nil, err
	}

	c, err := s.repo.Update(ctx, userID, func(c *Character) error {
		c.LifePoints += n
		return nil
	})
	if err != nil {
		if refundErr := s.wallet.AddBalance(ctx, userID, cost, economy.TxTypeLifePointPurchase, "Возврат: "+desc); refundErr != nil {
			log.WithError(refundErr).WithField("user_id", userID).Error("Не удалось вернуть монеты за очки жизни")
		}
		return nil, err
	}
	return c, nil
}

// Profile собирает данные для экрана профиля.
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	coins, err := s.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Character:        c,
		ExperienceToNext: c.ExperienceToNext(),
		Coins:            coins,
	}, nil
}

// LifePointPrice возвращает цену одного очка жизни.
func (s *Service) LifePointPrice() int64 {
	return s.settings.LifePointPrice
}
