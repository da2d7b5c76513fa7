package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ibvrd/cadastro-server/internal/models"
	"github.com/ibvrd/cadastro-server/internal/repository"
)

// StatsService exposes the dashboard counters
type StatsService interface {
	Overview(ctx context.Context) (*models.Statistics, error)
}

// DefaultStatsService implements the StatsService interface
type DefaultStatsService struct {
	repo repository.Repository
	now  func() time.Time
}

// NewStatsService creates a new DefaultStatsService
func NewStatsService(repo repository.Repository) StatsService {
	return &DefaultStatsService{
		repo: repo,
		now:  time.Now,
	}
}

// Overview counts active people, birthdays in the current month, active
// events, events inside the next 30 days and distinct cities.
func (s *DefaultStatsService) Overview(ctx context.Context) (*models.Statistics, error) {
	stats, err := s.repo.GetStatistics(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("error gathering statistics: %w", err)
	}
	return stats, nil
}
