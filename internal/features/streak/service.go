// Package streak — service.go продвигает серии при выполнении напоминаний,
// начисляет бонусы и ежедневно сбрасывает прерванные серии.
package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/metrics"
)

// Wallet — начисление бонусов за серии.
type Wallet interface {
	AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
}

// Service управляет сериями.
type Service struct {
	repo   *Repository
	wallet Wallet
}

// NewService создаёт новый сервис стриков.
func NewService(repo *Repository, wallet Wallet) *Service {
	return &Service{repo: repo, wallet: wallet}
}

// RecordCompletion учитывает выполнение напоминания на дату date.
// Если серия выросла — начисляет бонус по таблице StreakRewards.
func (s *Service) RecordCompletion(ctx context.Context, userID int64, reminderID uuid.UUID, period Period, date time.Time, title string) (*Result, error) {
	result := &Result{}
	st, err := s.repo.Update(ctx, reminderID, userID, period, func(st *Streak) error {
		result.Advanced = st.Advance(date)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Streak = st

	if !result.Advanced {
		return result, nil
	}

	bonus := GetReward(st.CurrentStreak)
	description := fmt.Sprintf("Огонёк «%s»: %d %s подряд", title, st.CurrentStreak, period.Title())
	if err := s.wallet.AddBalance(ctx, userID, bonus, economy.TxTypeStreakBonus, description); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка начисления стрик-бонуса")
		return result, err
	}
	result.Bonus = bonus

	log.WithFields(log.Fields{
		"user_id":     userID,
		"reminder_id": reminderID,
		"streak":      st.CurrentStreak,
		"bonus":       bonus,
	}).Debug("Стрик-бонус начислен")
	return result, nil
}

// List возвращает серии пользователя.
func (s *Service) List(ctx context.Context, userID int64) ([]*Streak, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Longest возвращает лучший рекорд пользователя.
func (s *Service) Longest(ctx context.Context, userID int64) (int, error) {
	return s.repo.LongestByUser(ctx, userID)
}

// BreakStale сбрасывает серии, у которых пропущен целый период.
// Запускается кроном каждый день вскоре после полуночи.
func (s *Service) BreakStale(ctx context.Context) (int64, error) {
	log.Info("Запуск ежедневной проверки стриков")

	streaks, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	today := common.Today()
	var stale []uuid.UUID
	for _, st := range streaks {
		if st.IsStale(today) {
			stale = append(stale, st.ReminderID)
		}
	}

	broken, err := s.repo.Break(ctx, stale)
	if err != nil {
		return 0, err
	}
	metrics.RecordStreakResets(broken)

	log.WithFields(log.Fields{
		"total":  len(streaks),
		"broken": broken,
	}).Info("Проверка стриков завершена")
	return broken, nil
}
