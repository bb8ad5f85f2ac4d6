// Package ratelimit ограничивает частоту запросов по ключу (Telegram ID, IP).
// Для каждого ключа — свой token bucket: limit запросов за window, с допустимым всплеском limit.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает количество запросов на ключ.
type RateLimiter[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New создаёт ограничитель: не больше limit запросов за window на ключ.
// Фоновая очистка забытых ключей работает до Close.
func New[K comparable](limit int, window time.Duration) *RateLimiter[K] {
	rl := newLimiter[K](limit, window)
	go rl.cleanup(5 * time.Minute)
	return rl
}

func newLimiter[K comparable](limit int, window time.Duration) *RateLimiter[K] {
	return &RateLimiter[K]{
		entries: make(map[K]*entry),
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (rl *RateLimiter[K]) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow расходует один токен ключа. false — лимит исчерпан.
func (rl *RateLimiter[K]) Allow(key K) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len возвращает число отслеживаемых ключей.
func (rl *RateLimiter[K]) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Sweep удаляет ключи, не обращавшиеся дольше window: их корзины уже полны.
func (rl *RateLimiter[K]) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
}

func (rl *RateLimiter[K]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
