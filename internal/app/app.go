// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// Telegram-бота, HTTP API и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/lifeleveling/internal/api"
	"serotonyl.ru/lifeleveling/internal/bot"
	"serotonyl.ru/lifeleveling/internal/bot/filters"
	"serotonyl.ru/lifeleveling/internal/bot/reply"
	"serotonyl.ru/lifeleveling/internal/common"
	"serotonyl.ru/lifeleveling/internal/config"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
	"serotonyl.ru/lifeleveling/internal/features/accounts"
	"serotonyl.ru/lifeleveling/internal/features/admin"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/reminders"
	"serotonyl.ru/lifeleveling/internal/features/streak"
	"serotonyl.ru/lifeleveling/internal/jobs"
)

// App содержит все компоненты приложения.
// Bot и API равны nil, если соответствующая фича выключена.
type App struct {
	Bot       *bot.Bot
	API       *api.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := common.SetTimezone(cfg.AppTimezone); err != nil {
		return nil, fmt.Errorf("ошибка часового пояса: %w", err)
	}

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Репозитории ===
	accountRepo := accounts.NewRepository(pool)
	economyRepo := economy.NewRepository(pool)
	characterRepo := character.NewRepository(pool)
	reminderRepo := reminders.NewRepository(pool)
	streakRepo := streak.NewRepository(pool)
	badgeRepo := badges.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 3. Сервисы ===
	accountService := accounts.NewService(accountRepo, accounts.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL))
	economyService := economy.NewService(economyRepo)
	characterService := character.NewService(characterRepo, economyService, character.Settings{
		StartLifePoints:    cfg.LifePointsStart,
		LifePointsPerLevel: cfg.LifePointsPerLevel,
		BaseExperience:     cfg.RewardBaseXP,
		BaseCoins:          cfg.RewardBaseCoins,
		LifePointPrice:     cfg.LifePointPrice,
	})

	// Новый аккаунт сразу получает персонажа и счёт
	accountService.OnCreate(func(ctx context.Context, acc *accounts.Account) error {
		return characterService.Create(ctx, acc.ID)
	})
	accountService.OnCreate(func(ctx context.Context, acc *accounts.Account) error {
		return economyService.CreateBalance(ctx, acc.ID)
	})

	// Выключенные фичи остаются nil-интерфейсами, а не nil-указателями
	reminderDeps := reminders.Deps{Characters: characterService, Wallet: economyService}
	var (
		streakService *streak.Service
		badgeService  *badges.Service
	)
	if cfg.FeatureStreaksEnabled {
		streakService = streak.NewService(streakRepo, economyService)
		reminderDeps.Streaks = streakService
	}
	if cfg.FeatureBadgesEnabled {
		catalog, err := badges.LoadCatalog()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка каталога значков: %w", err)
		}
		badgeService = badges.NewService(badgeRepo, catalog)
		reminderDeps.Badges = badgeService
	}
	reminderService := reminders.NewService(reminderRepo, reminderDeps)

	adminService := admin.NewService(adminRepo, accountService, economyService, admin.Settings{
		AdminIDs:     cfg.AdminIDs,
		PasswordHash: cfg.AdminPasswordHash,
	})

	application := &App{DB: pool}
	var notifier reminders.Notifier

	// === 4. Telegram ===
	if cfg.FeatureBotEnabled {
		botAPI, err := telego.NewBot(cfg.TelegramBotToken, telego.WithDefaultLogger(false, true))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		me, err := botAPI.GetMe(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
		}
		log.Infof("Авторизован как @%s", me.Username)

		sender := reply.NewTelego(botAPI)
		notifier = sender

		handlers := bot.Handlers{
			Character: character.NewHandler(characterService, sender),
			Economy:   economy.NewHandler(economyService, sender),
			Reminders: reminders.NewHandler(reminderService, sender),
			Admin:     admin.NewHandler(adminService, sender),
		}
		if streakService != nil {
			handlers.Streak = streak.NewHandler(streakService, sender)
		}
		if badgeService != nil {
			handlers.Badges = badges.NewHandler(badgeService, sender)
		}

		application.Bot = bot.New(botAPI, sender, cfg, filters.NewChatFilter(accountService), handlers)
	}

	// === 5. HTTP API ===
	if cfg.FeatureAPIEnabled {
		deps := api.Deps{
			Accounts:   accountService,
			Characters: characterService,
			Wallet:     economyService,
			Reminders:  reminderService,
		}
		if streakService != nil {
			deps.Streaks = streakService
		}
		if badgeService != nil {
			deps.Badges = badgeService
		}
		application.API = api.NewServer(cfg, deps)
	}

	// === 6. Планировщик задач ===
	var staleStreaks jobs.Streaks
	if streakService != nil {
		staleStreaks = streakService
	}
	application.Scheduler = jobs.NewScheduler(jobs.Specs{
		Notify: cfg.CronNotifySpec,
		Streak: cfg.CronStreakSpec,
	}, common.Location(), reminderService, notifier, staleStreaks)

	return application, nil
}

// Run запускает бота, API и планировщик и блокируется до отмены ctx
// или до первой фатальной ошибки одного из компонентов.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if a.Bot != nil {
		g.Go(func() error { return a.Bot.Start(gctx) })
	}
	if a.API != nil {
		g.Go(func() error { return a.API.Run(gctx) })
	}
	return g.Wait()
}

// Close освобождает ресурсы.
func (a *App) Close() {
	a.DB.Close()
}
