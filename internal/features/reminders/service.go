// Package reminders — service.go содержит бизнес-логику напоминаний:
// CRUD, расписание на день и месяц, выполнение с наградами и уведомления.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/streak"
	"serotonyl.ru/lifeleveling/internal/metrics"
)

// Characters — то, что напоминаниям нужно от персонажа.
type Characters interface {
	Get(ctx context.Context, userID int64) (*character.Character, error)
	Rewards(stats character.Stats) (float64, int64)
	GrantExperience(ctx context.Context, userID int64, xp float64) (*character.LevelUp, error)
}

// Wallet — начисление монет и сумма заработанного.
type Wallet interface {
	AddBalance(ctx context.Context, userID int64, amount int64, txType, description string) error
	GetStats(ctx context.Context, userID int64) (*economy.Balance, error)
}

// Streaks — учёт серий.
type Streaks interface {
	RecordCompletion(ctx context.Context, userID int64, reminderID uuid.UUID, period streak.Period, date time.Time, title string) (*streak.Result, error)
	Longest(ctx context.Context, userID int64) (int, error)
}

// Badges — выдача значков.
type Badges interface {
	Evaluate(ctx context.Context, userID int64, p badges.Progress) ([]badges.Badge, error)
}

// Notifier — отправка уведомлений в Telegram.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Deps — зависимости сервиса. Streaks и Badges могут быть nil (фича выключена).
type Deps struct {
	Characters Characters
	Wallet     Wallet
	Streaks    Streaks
	Badges     Badges
}

// Service управляет напоминаниями.
type Service struct {
	repo *Repository
	deps Deps
	now  func() time.Time
}

// NewService создаёт сервис напоминаний.
func NewService(repo *Repository, deps Deps) *Service {
	return &Service{repo: repo, deps: deps, now: common.Now}
}

// Create создаёт напоминание.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (*Reminder, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	rem := &Reminder{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		StartDate:    in.StartDate,
		TimeOfDay:    in.TimeOfDay,
		Rule:         in.Rule,
		StreakPeriod: in.StreakPeriod,
		Notify:       in.Notify,
	}
	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"reminder_id": rem.ID,
	}).Debug("Напоминание создано")
	return rem, nil
}

// Get возвращает напоминание владельца.
func (s *Service) Get(ctx context.Context, userID int64, id uuid.UUID) (*Reminder, error) {
	return s.repo.Get(ctx, userID, id)
}

// Resolve находит напоминание по полному UUID или по его началу (короткий ID из бота).
func (s *Service) Resolve(ctx context.Context, userID int64, ref string) (*Reminder, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.Get(ctx, userID, id)
	}
	if len(ref) < 4 || strings.Trim(ref, "0123456789abcdef-") != "" {
		return nil, common.ErrReminderNotFound
	}
	return s.repo.FindByPrefix(ctx, userID, ref)
}

// List возвращает все напоминания пользователя.
func (s *Service) List(ctx context.Context, userID int64) ([]*Reminder, error) {
	return s.repo.List(ctx, userID)
}

// Update заменяет поля напоминания.
func (s *Service) Update(ctx context.Context, userID int64, id uuid.UUID, in Input) (*Reminder, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	rem, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rem.Title = in.Title
	rem.Description = in.Description
	rem.StartDate = in.StartDate
	rem.TimeOfDay = in.TimeOfDay
	rem.Rule = in.Rule
	rem.StreakPeriod = in.StreakPeriod
	rem.Notify = in.Notify

	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// Delete удаляет напоминание.
func (s *Service) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// DueOn возвращает напоминания, запланированные на дату, с отметкой о выполнении.
func (s *Service) DueOn(ctx context.Context, userID int64, date time.Time) ([]DueItem, error) {
	date = common.DateOf(date)
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	done, err := s.repo.CompletedBetween(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}

	var items []DueItem
	for _, rem := range all {
		if rem.IsDue(date) {
			items = append(items, DueItem{Reminder: rem, Completed: done[rem.ID][date]})
		}
	}
	return items, nil
}

// Calendar возвращает для каждого дня месяца напоминания, запланированные на этот день.
// month — любая дата внутри месяца.
func (s *Service) Calendar(ctx context.Context, userID int64, month time.Time) ([]CalendarDay, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildCalendar(all, month), nil
}

// BuildCalendar раскладывает напоминания по дням месяца.
func BuildCalendar(all []*Reminder, month time.Time) []CalendarDay {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	n := daysIn(first.Year(), first.Month())

	days := make([]CalendarDay, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		days[i] = CalendarDay{Date: d}
		for _, rem := range all {
			if rem.IsDue(d) {
				days[i].Reminders = append(days[i].Reminders, rem)
			}
		}
	}
	return days
}

// Complete выполняет напоминание на дату и начисляет награды.
//
// Порядок:
//  1. дата не может быть позже сегодняшней;
//  2. напоминание должно существовать и принадлежать пользователю;
//  3. оно должно быть запланировано на дату;
//  4. на одну дату — одно выполнение;
//  5. опыт и монеты считаются от текущих характеристик, опыт поднимает уровень;
//  6. монеты зачисляются на счёт;
//  7. продвигается серия (и начисляется бонус);
//  8. проверяются значки.
//
// Шаги 4–6 идут в одной транзакции: если награда не начислилась,
// выполнение не засчитывается и его можно повторить.
func (s *Service) Complete(ctx context.Context, userID int64, id uuid.UUID, date time.Time, source string) (*CompletionResult, error) {
	date = common.DateOf(date)
	if date.After(common.DateOf(s.now())) {
		return nil, common.ErrFutureDate
	}

	rem, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !rem.IsDue(date) {
		return nil, common.ErrNotDue
	}

	char, err := s.deps.Characters.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	xp, coins := s.deps.Characters.Rewards(char.Stats)
	result := &CompletionResult{Reminder: rem, Date: date, Experience: xp, Coins: coins}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.RecordCompletion(ctx, rem, date, xp, coins); err != nil {
			return err
		}
		levelUp, err := s.deps.Characters.GrantExperience(ctx, userID, xp)
		if err != nil {
			return fmt.Errorf("ошибка начисления опыта: %w", err)
		}
		result.LevelUp = levelUp
		if coins > 0 {
			if err := s.deps.Wallet.AddBalance(ctx, userID, coins, economy.TxTypeHabitReward, rem.Title); err != nil {
				return fmt.Errorf("ошибка начисления монет: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	levelUp := result.LevelUp
	metrics.RecordLevelUps(levelUp.LevelAfter - levelUp.LevelBefore)

	longest := 0
	if s.deps.Streaks != nil {
		res, err := s.deps.Streaks.RecordCompletion(ctx, userID, rem.ID, rem.StreakPeriod, date, rem.Title)
		if err != nil {
			// Выполнение уже засчитано, ошибку серии только логируем
			log.WithError(err).WithField("reminder_id", rem.ID).Error("Ошибка учёта серии")
		} else {
			result.Streak = res
		}
		if longest, err = s.deps.Streaks.Longest(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось получить рекорд серии")
		}
	}

	if s.deps.Badges != nil {
		unlocked, err := s.evaluateBadges(ctx, userID, levelUp.Character.Level, longest)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки значков")
		}
		result.Badges = unlocked
	}

	metrics.RecordCompletion(source)
	log.WithFields(log.Fields{
		"user_id":     userID,
		"reminder_id": rem.ID,
		"xp":          xp,
		"coins":       coins,
	}).Debug("Напоминание выполнено")
	return result, nil
}

func (s *Service) evaluateBadges(ctx context.Context, userID int64, level, longest int) ([]badges.Badge, error) {
	completions, err := s.repo.CountCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}
	var earned int64
	if stats, err := s.deps.Wallet.GetStats(ctx, userID); err == nil {
		earned = stats.TotalEarned
	} else if !errors.Is(err, common.ErrAccountNotFound) {
		return nil, err
	}
	return s.deps.Badges.Evaluate(ctx, userID, badges.Progress{
		Level:         level,
		Completions:   completions,
		LongestStreak: longest,
		CoinsEarned:   earned,
	})
}

// Notify отправляет уведомления о напоминаниях, чьё время наступило сегодня.
// Каждое напоминание уведомляется не больше раза в день. Возвращает число отправленных.
func (s *Service) Notify(ctx context.Context, notifier Notifier) (int, error) {
	now := s.now()
	today := common.DateOf(now)
	clock := now.Format("15:04")

	candidates, err := s.repo.ListNotifiable(ctx, today)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range candidates {
		rem := n.Reminder
		if !rem.IsDue(today) || rem.TimeOfDay > clock {
			continue
		}

		text := FormatNotification(rem)
		if err := notifier.Send(ctx, n.TelegramID, text); err != nil {
			metrics.RecordNotification(false)
			log.WithError(err).WithField("reminder_id", rem.ID).Warn("Не удалось отправить уведомление")
			continue
		}
		metrics.RecordNotification(true)

		if err := s.repo.MarkNotified(ctx, rem.ID, today); err != nil {
			log.WithError(err).WithField("reminder_id", rem.ID).Error("Не удалось отметить уведомление")
			continue
		}
		sent++
	}

	if sent > 0 {
		log.WithField("sent", sent).Info("Уведомления о напоминаниях отправлены")
	}
	return sent, nil
}
