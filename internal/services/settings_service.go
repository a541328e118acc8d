package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type settingsReader interface {
	GetAll(ctx context.Context) (map[string]string, error)
}

// SettingsService serves a snapshot of the pricing configuration, refreshed
// from the settings table on a short TTL so admin edits land without a
// restart. Components receive the snapshot explicitly instead of reading
// ambient globals.
type SettingsService struct {
	repo settingsReader
	ttl  time.Duration

	mu        sync.RWMutex
	snapshot  models.Settings
	fetchedAt time.Time
}

func NewSettingsService(repo settingsReader) *SettingsService {
	return &SettingsService{
		repo: repo,
		ttl:  60 * time.Second,
	}
}

func (s *SettingsService) Snapshot(ctx context.Context) (models.Settings, error) {
	s.mu.RLock()
	if !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < s.ttl {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	values, err := s.repo.GetAll(ctx)
	if err != nil {
		return models.Settings{}, err
	}

	snapshot := buildSettings(values)

	s.mu.Lock()
	s.snapshot = snapshot
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return snapshot, nil
}

func buildSettings(values map[string]string) models.Settings {
	settings := models.DefaultSettings()

	if raw, ok := values["unlock_price_percent"]; ok {
		if percent, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && percent > 0 {
			settings.UnlockPricePercent = percent
		}
	}

	for plan := range settings.PlanPrices {
		if raw, ok := values["plan_price_"+plan]; ok {
			if price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && price >= 0 {
				settings.PlanPrices[plan] = price
			}
		}
	}

	for plan := range settings.PlanConversationLimits {
		if raw, ok := values["plan_conversation_limit_"+plan]; ok {
			if limit, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				settings.PlanConversationLimits[plan] = limit
			}
		}
	}

	return settings
}
