package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type ctxKey int

const accountIDKey ctxKey = iota

// accountID возвращает ID аккаунта, положенный в контекст authenticate.
func accountID(ctx context.Context) int64 {
	id, _ := ctx.Value(accountIDKey).(int64)
	return id
}

// protected оборачивает обработчик проверкой Bearer-токена.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.authenticate(h)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "нужен заголовок Authorization: Bearer <token>")
			return
		}

		acc, err := s.deps.Accounts.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("Токен отклонён")
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, acc.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limited ограничивает частоту запросов с одного IP (вход и регистрация).
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow(clientIP(r)) {
			writeErrorCode(w, http.StatusTooManyRequests, "rate_limited", "слишком много запросов, попробуйте позже")
			return
		}
		h(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type loggingWriter struct {
	http.ResponseWriter
	status int
}

func (lw *loggingWriter) WriteHeader(code int) {
	lw.status = code
	lw.ResponseWriter.WriteHeader(code)
}

// requestLogger пишет в лог каждый запрос: метод, путь, статус, длительность.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)

		entry := log.WithFields(log.Fields{
			"component":   "api",
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      lw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if lw.status >= http.StatusInternalServerError {
			entry.Warn("HTTP-запрос")
			return
		}
		entry.Debug("HTTP-запрос")
	})
}

// recoverer превращает панику обработчика в 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в HTTP-обработчике — восстановлено")
				writeErrorCode(w, http.StatusInternalServerError, "internal_error", genericMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
