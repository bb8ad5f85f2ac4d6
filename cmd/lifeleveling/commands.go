package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/lifeleveling/internal/app"
	"serotonyl.ru/lifeleveling/internal/config"
	"serotonyl.ru/lifeleveling/internal/db/postgres"
	"serotonyl.ru/lifeleveling/internal/features/accounts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить бота, HTTP API и планировщик",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить SQL-миграции и выйти",
	RunE:  runMigrate,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [пароль]",
	Short: "Напечатать Argon2id-хеш для ADMIN_PASSWORD_HASH",
	Long: `Печатает Argon2id-хеш пароля в формате $argon2id$v=19$m=65536,t=3,p=2$...

Без аргумента пароль читается из первой строки stdin,
чтобы он не попадал в историю shell.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyLogLevel(cfg.AppLogLevel)
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	log.Info("=== Life Leveling запускается ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Контекст отменяется по Ctrl+C и docker stop
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	log.WithFields(log.Fields{
		"bot": cfg.FeatureBotEnabled,
		"api": cfg.FeatureAPIEnabled,
	}).Info("=== Life Leveling готов к работе ===")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("=== Life Leveling остановлен ===")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return postgres.RunMigrations(cmd.Context(), pool)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("не удалось прочитать пароль: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("пароль не может быть пустым")
	}

	hash, err := accounts.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
