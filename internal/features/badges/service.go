// Package badges — service.go проверяет условия и открывает значки.
package badges

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lifeleveling/internal/metrics"
)

// Status — значок из каталога с отметкой, открыт ли он у пользователя.
type Status struct {
	Badge
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Service выдаёт значки.
type Service struct {
	repo    *Repository
	catalog *Catalog
}

// NewService создаёт сервис значков.
func NewService(repo *Repository, catalog *Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Evaluate открывает все значки, условия которых выполнены, и возвращает
// только те, что открылись сейчас. Каждый значок открывается один раз.
func (s *Service) Evaluate(ctx context.Context, userID int64, p Progress) ([]Badge, error) {
	var unlocked []Badge
	for _, b := range s.catalog.Eligible(p) {
		isNew, err := s.repo.Unlock(ctx, userID, b.ID)
		if err != nil {
			return unlocked, err
		}
		if !isNew {
			continue
		}
		unlocked = append(unlocked, b)
		metrics.RecordBadge(b.ID)
		log.WithFields(log.Fields{
			"user_id": userID,
			"badge":   b.ID,
		}).Info("Значок открыт")
	}
	return unlocked, nil
}

// List возвращает весь каталог с отметками об открытии.
func (s *Service) List(ctx context.Context, userID int64) ([]Status, error) {
	got, err := s.repo.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(s.catalog.Badges))
	for _, b := range s.catalog.Badges {
		st := Status{Badge: b}
		if at, ok := got[b.ID]; ok {
			at := at
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}
