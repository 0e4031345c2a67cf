package service

import (
	"context"
	"sort"
	"time"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/repository"
)

const (
	landingWindowDays = 14
	topGroupsLimit    = 5
)

// MetricsService aggregates the numbers behind the landing page charts.
type MetricsService interface {
	Landing(ctx context.Context) (*dto.LandingMetrics, error)
}

type metricsService struct {
	metricsRepo repository.MetricsRepository
	now         func() time.Time
}

func NewMetricsService(metricsRepo repository.MetricsRepository) MetricsService {
	return &metricsService{
		metricsRepo: metricsRepo,
		now:         time.Now,
	}
}

func (s *metricsService) Landing(ctx context.Context) (*dto.LandingMetrics, error) {
	// Window starts at midnight UTC 13 days back so today is day 14.
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(landingWindowDays - 1))

	times, err := s.metricsRepo.PostTimesSince(ctx, from)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int64)
	for _, t := range times {
		byDay[t.UTC().Format(dayFormat)]++
	}

	days := make([]dto.DailyPostCount, 0, len(byDay))
	for date, count := range byDay {
		days = append(days, dto.DailyPostCount{Date: date, Count: count})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	rows, err := s.metricsRepo.TopGroupsBySize(ctx, topGroupsLimit)
	if err != nil {
		return nil, err
	}
	topGroups := make([]dto.GroupSize, 0, len(rows))
	for _, row := range rows {
		topGroups = append(topGroups, dto.GroupSize{Name: row.Name, MembersCount: row.N})
	}

	return &dto.LandingMetrics{
		PostsLast14: days,
		TopGroups:   topGroups,
	}, nil
}
