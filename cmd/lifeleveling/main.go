// Package main — точка входа Life Leveling.
// Команды: serve (по умолчанию) запускает бота, API и планировщик,
// migrate применяет миграции, hash-password печатает Argon2id-хеш для ADMIN_PASSWORD_HASH.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "lifeleveling",
	Short:         "Life Leveling — трекер привычек с прокачкой персонажа",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	setupLogging()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("Команда завершилась с ошибкой")
	}
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}

// applyLogLevel выставляет уровень из APP_LOG_LEVEL, если он корректен.
func applyLogLevel(name string) {
	level, err := log.ParseLevel(name)
	if err != nil {
		log.WithField("level", name).Warn("Неизвестный APP_LOG_LEVEL, остаётся debug")
		return
	}
	log.SetLevel(level)
}
