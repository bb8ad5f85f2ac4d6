// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: уведомления о напоминаниях
// и ежедневный сброс пропущенных серий.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/features/reminders"
)

// Reminders — рассылка уведомлений о напоминаниях.
type Reminders interface {
	Notify(ctx context.Context, notifier reminders.Notifier) (int, error)
}

// Streaks — сброс серий, у которых пропущен период.
type Streaks interface {
	BreakStale(ctx context.Context) (int64, error)
}

// Specs — расписания задач в формате cron (5 полей).
type Specs struct {
	Notify string
	Streak string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	specs     Specs
	reminders Reminders
	notifier  reminders.Notifier
	streaks   Streaks // nil, если серии выключены
}

// NewScheduler создаёт планировщик в часовом поясе приложения.
// notifier может быть nil (бот выключен) — тогда уведомления не рассылаются.
func NewScheduler(specs Specs, loc *time.Location, rem Reminders, notifier reminders.Notifier, streaks Streaks) *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:      c,
		specs:     specs,
		reminders: rem,
		notifier:  notifier,
		streaks:   streaks,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := 0
	if s.notifier != nil && s.reminders != nil {
		if _, err := s.cron.AddFunc(s.specs.Notify, func() { s.RunNotify(ctx) }); err != nil {
			return fmt.Errorf("некорректное расписание уведомлений %q: %w", s.specs.Notify, err)
		}
		jobs++
	}
	if s.streaks != nil {
		if _, err := s.cron.AddFunc(s.specs.Streak, func() { s.RunStreakReset(ctx) }); err != nil {
			return fmt.Errorf("некорректное расписание сброса серий %q: %w", s.specs.Streak, err)
		}
		jobs++
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"jobs":   jobs,
		"notify": s.specs.Notify,
		"streak": s.specs.Streak,
	}).Info("Планировщик задач запущен")
	return nil
}

// RunNotify — одна итерация рассылки уведомлений.
func (s *Scheduler) RunNotify(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Debug("[CRON] Проверка напоминаний")
	if _, err := s.reminders.Notify(ctx, s.notifier); err != nil {
		log.WithError(err).Error("[CRON] Ошибка рассылки напоминаний")
	}
}

// RunStreakReset — одна итерация сброса серий.
func (s *Scheduler) RunStreakReset(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Info("[CRON] Ежедневный сброс серий")
	broken, err := s.streaks.BreakStale(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сброса серий")
		return
	}
	log.WithField("broken", broken).Info("[CRON] Сброс серий завершён")
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
