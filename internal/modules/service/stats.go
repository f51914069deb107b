package service

import (
	"context"
	"fmt"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/cache"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/paging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dashboardDays = 30
	dashboardTop  = 5
)

type Dashboard struct {
	TotalProjects int64             `json:"total_projects"`
	TotalUsers    int64             `json:"total_users"`
	ByStatus      []repo.KeyCount   `json:"by_status"`
	ByType        []repo.KeyCount   `json:"by_type"`
	DailyViews    []repo.DailyCount `json:"daily_views"`
	DailyLogins   []repo.DailyCount `json:"daily_logins"`
	TopViewed     []*model.Project  `json:"top_viewed"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type StatsService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ListLogins(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.LoginLog], error)
	ListViews(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.VisitorView], error)
	ListReviews(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.ProjectReview], error)
}

type ListLogsInput struct {
	ProjectID *uuid.UUID `json:"project_id"`
	Limit     int        `json:"limit"`
	Cursor    string     `json:"cursor"`
}

type ListLogsOutput[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type statsService struct {
	stats repo.StatsRepo
	logs  repo.LogRepo
	cache cache.Store
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewStatsService(stats repo.StatsRepo, logs repo.LogRepo, c cache.Store, ttl time.Duration, log *zap.Logger) StatsService {
	return &statsService{stats: stats, logs: logs, cache: c, ttl: ttl, log: log, now: time.Now}
}

func (s *statsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache != nil {
		var d Dashboard
		ok, err := s.cache.GetJSON(ctx, statsCacheKey, &d)
		if err != nil {
			s.log.Warn("read stats cache", zap.Error(err))
		} else if ok {
			return &d, nil
		}
	}

	d, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, statsCacheKey, d, s.ttl); err != nil {
			s.log.Warn("write stats cache", zap.Error(err))
		}
	}
	return d, nil
}

func (s *statsService) build(ctx context.Context) (*Dashboard, error) {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -dashboardDays)
	d := &Dashboard{GeneratedAt: now}
	var err error

	if d.ByStatus, err = s.stats.CountProjectsBy(ctx, "status"); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	if d.ByType, err = s.stats.CountProjectsBy(ctx, "type"); err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	for _, kc := range d.ByStatus {
		d.TotalProjects += kc.Count
	}
	if d.TotalUsers, err = s.stats.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if d.DailyViews, err = s.stats.DailyViews(ctx, since); err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	if d.DailyLogins, err = s.stats.DailyLogins(ctx, since); err != nil {
		return nil, fmt.Errorf("daily logins: %w", err)
	}
	if d.TopViewed, err = s.stats.TopViewed(ctx, dashboardTop); err != nil {
		return nil, fmt.Errorf("top viewed: %w", err)
	}
	return d, nil
}

func (s *statsService) ListLogins(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.LoginLog], error) {
	return listLogs(in, func(t time.Time, id uuid.UUID, limit int) ([]*model.LoginLog, error) {
		return s.logs.ListLogins(ctx, t, id, limit)
	}, func(l *model.LoginLog) (time.Time, uuid.UUID) { return l.CreatedAt, l.ID })
}

func (s *statsService) ListViews(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.VisitorView], error) {
	return listLogs(in, func(t time.Time, id uuid.UUID, limit int) ([]*model.VisitorView, error) {
		return s.logs.ListViews(ctx, in.ProjectID, t, id, limit)
	}, func(v *model.VisitorView) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID })
}

func (s *statsService) ListReviews(ctx context.Context, in ListLogsInput) (*ListLogsOutput[*model.ProjectReview], error) {
	return listLogs(in, func(t time.Time, id uuid.UUID, limit int) ([]*model.ProjectReview, error) {
		return s.logs.ListReviews(ctx, t, id, limit)
	}, func(r *model.ProjectReview) (time.Time, uuid.UUID) { return r.CreatedAt, r.ID })
}

func listLogs[T any](
	in ListLogsInput,
	fetch func(time.Time, uuid.UUID, int) ([]T, error),
	pos func(T) (time.Time, uuid.UUID),
) (*ListLogsOutput[T], error) {
	var afterT time.Time
	var afterID uuid.UUID
	var err error
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
	}

	items, err := fetch(afterT, afterID, in.Limit+1)
	if err != nil {
		return nil, err
	}

	out := &ListLogsOutput[T]{Items: items}
	if len(items) > in.Limit {
		out.HasMore = true
		out.Items = items[:in.Limit]
		t, id := pos(out.Items[len(out.Items)-1])
		out.NextCursor = paging.EncodeCursor(t, id)
	}
	return out, nil
}
