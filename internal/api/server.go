// Package api — HTTP API поверх тех же сервисов, что и бот.
// Маршруты на gorilla/mux, аутентификация по Bearer-токену (JWT), ошибки в JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/config"
	"serotonyl.ru/lifeleveling/internal/features/accounts"
	"serotonyl.ru/lifeleveling/internal/features/badges"
	"serotonyl.ru/lifeleveling/internal/features/character"
	"serotonyl.ru/lifeleveling/internal/features/economy"
	"serotonyl.ru/lifeleveling/internal/features/reminders"
	"serotonyl.ru/lifeleveling/internal/features/streak"
	"serotonyl.ru/lifeleveling/internal/metrics"
	"serotonyl.ru/lifeleveling/internal/ratelimit"
)

// Accounts — регистрация, вход и проверка токенов.
type Accounts interface {
	SignUp(ctx context.Context, email, password, displayName string) (*accounts.Account, error)
	SignIn(ctx context.Context, email, password string) (string, *accounts.Account, error)
	IssueToken(accountID int64) (string, error)
	Authenticate(ctx context.Context, token string) (*accounts.Account, error)
}

// Characters — профиль и прокачка.
type Characters interface {
	Profile(ctx context.Context, userID int64) (*character.Profile, error)
	Allocate(ctx context.Context, userID int64, stat character.Stat, points int) (*character.Character, error)
	BuyLifePoints(ctx context.Context, userID int64, n int) (*character.Character, error)
}

// Wallet — история операций.
type Wallet interface {
	GetTransactions(ctx context.Context, userID int64, limit int) ([]*economy.Transaction, error)
}

// Reminders — напоминания и их выполнение.
type Reminders interface {
	Create(ctx context.Context, userID int64, in reminders.Input) (*reminders.Reminder, error)
	Get(ctx context.Context, userID int64, id uuid.UUID) (*reminders.Reminder, error)
	List(ctx context.Context, userID int64) ([]*reminders.Reminder, error)
	Update(ctx context.Context, userID int64, id uuid.UUID, in reminders.Input) (*reminders.Reminder, error)
	Delete(ctx context.Context, userID int64, id uuid.UUID) error
	Complete(ctx context.Context, userID int64, id uuid.UUID, date time.Time, source string) (*reminders.CompletionResult, error)
	DueOn(ctx context.Context, userID int64, date time.Time) ([]reminders.DueItem, error)
	Calendar(ctx context.Context, userID int64, month time.Time) ([]reminders.CalendarDay, error)
}

// Streaks — серии пользователя.
type Streaks interface {
	List(ctx context.Context, userID int64) ([]*streak.Streak, error)
}

// Badges — значки пользователя.
type Badges interface {
	List(ctx context.Context, userID int64) ([]badges.Status, error)
}

// Deps — сервисы, которые обслуживает API. Streaks и Badges могут быть nil (фича выключена).
type Deps struct {
	Accounts   Accounts
	Characters Characters
	Wallet     Wallet
	Reminders  Reminders
	Streaks    Streaks
	Badges     Badges
}

// Server — HTTP-сервер API.
type Server struct {
	cfg         *config.Config
	deps        Deps
	router      *mux.Router
	authLimiter *ratelimit.RateLimiter[string]
}

// NewServer создаёт сервер и регистрирует маршруты.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:         cfg,
		deps:        deps,
		router:      mux.NewRouter(),
		authLimiter: ratelimit.New[string](cfg.RateLimitRequests, cfg.RateLimitWindow),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(recoverer, metrics.Middleware, requestLogger)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorCode(w, http.StatusNotFound, "not_found", "маршрут не найден")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "метод не поддерживается")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/auth/signup", s.limited(s.handleSignUp)).Methods(http.MethodPost)
	v1.Handle("/auth/signin", s.limited(s.handleSignIn)).Methods(http.MethodPost)

	v1.Handle("/me", s.protected(s.handleMe)).Methods(http.MethodGet)
	v1.Handle("/me/stats", s.protected(s.handleAllocate)).Methods(http.MethodPost)
	v1.Handle("/me/life-points", s.protected(s.handleBuyLifePoints)).Methods(http.MethodPost)

	v1.Handle("/reminders", s.protected(s.handleListReminders)).Methods(http.MethodGet)
	v1.Handle("/reminders", s.protected(s.handleCreateReminder)).Methods(http.MethodPost)
	v1.Handle("/reminders/{id}", s.protected(s.handleGetReminder)).Methods(http.MethodGet)
	v1.Handle("/reminders/{id}", s.protected(s.handleUpdateReminder)).Methods(http.MethodPut)
	v1.Handle("/reminders/{id}", s.protected(s.handleDeleteReminder)).Methods(http.MethodDelete)
	v1.Handle("/reminders/{id}/complete", s.protected(s.handleCompleteReminder)).Methods(http.MethodPost)

	v1.Handle("/agenda", s.protected(s.handleAgenda)).Methods(http.MethodGet)
	v1.Handle("/calendar", s.protected(s.handleCalendar)).Methods(http.MethodGet)
	v1.Handle("/streaks", s.protected(s.handleStreaks)).Methods(http.MethodGet)
	v1.Handle("/badges", s.protected(s.handleBadges)).Methods(http.MethodGet)
	v1.Handle("/transactions", s.protected(s.handleTransactions)).Methods(http.MethodGet)
}

// Handler возвращает корневой обработчик (для httptest и встраивания).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close освобождает фоновые ресурсы сервера.
func (s *Server) Close() {
	s.authLimiter.Close()
}

// Run слушает HTTP_ADDR до отмены ctx, затем корректно завершает соединения.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.HTTPReadTimeout,
		ReadHeaderTimeout: s.cfg.HTTPReadTimeout,
		WriteTimeout:      s.cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.cfg.HTTPAddr).Info("HTTP API запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	log.Info("HTTP API остановлен")
	return nil
}
