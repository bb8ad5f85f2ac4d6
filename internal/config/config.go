// Package config загружает конфигурацию приложения из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"` // заполняется вручную из ADMIN_IDS

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"lifeleveling"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"lifeleveling"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- HTTP API ---
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	JWTTTL           time.Duration `envconfig:"JWT_TTL" default:"720h"`

	// --- Admin ---
	// Пустой хеш = админ-панель выключена.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Rewards ---
	RewardBaseXP       float64 `envconfig:"REWARD_BASE_XP" default:"10"`
	RewardBaseCoins    float64 `envconfig:"REWARD_BASE_COINS" default:"5"`
	LifePointsStart    int     `envconfig:"LIFE_POINTS_START" default:"5"`
	LifePointsPerLevel int     `envconfig:"LIFE_POINTS_PER_LEVEL" default:"5"`
	LifePointPrice     int64   `envconfig:"LIFE_POINT_PRICE" default:"50"`

	// --- Economy ---
	EconomyCurrencyName string `envconfig:"ECONOMY_CURRENCY_NAME" default:"монеты"`

	// --- Scheduler ---
	CronNotifySpec string `envconfig:"CRON_NOTIFY_SPEC" default:"* * * * *"`
	CronStreakSpec string `envconfig:"CRON_STREAK_SPEC" default:"5 0 * * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureBotEnabled     bool `envconfig:"FEATURE_BOT_ENABLED" default:"true"`
	FeatureAPIEnabled     bool `envconfig:"FEATURE_API_ENABLED" default:"true"`
	FeatureStreaksEnabled bool `envconfig:"FEATURE_STREAKS_ENABLED" default:"true"`
	FeatureBadgesEnabled  bool `envconfig:"FEATURE_BADGES_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли Telegram ID в список ADMIN_IDS.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.FeatureBotEnabled && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN обязателен при FEATURE_BOT_ENABLED=true")
	}
	if c.FeatureAPIEnabled && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET должен быть не короче 32 символов при FEATURE_API_ENABLED=true")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.RewardBaseXP < 0 || c.RewardBaseCoins < 0 {
		return fmt.Errorf("REWARD_BASE_XP/REWARD_BASE_COINS не могут быть отрицательными")
	}
	if c.LifePointsStart < 0 || c.LifePointsPerLevel < 0 {
		return fmt.Errorf("LIFE_POINTS_START/LIFE_POINTS_PER_LEVEL не могут быть отрицательными")
	}
	if c.LifePointPrice <= 0 {
		return fmt.Errorf("LIFE_POINT_PRICE должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW должны быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
