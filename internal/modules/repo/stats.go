package repo

import (
	"context"
	"time"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"gorm.io/gorm"
)

type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type StatsRepo interface {
	CountProjectsBy(ctx context.Context, column string) ([]KeyCount, error)
	CountUsers(ctx context.Context) (int64, error)
	DailyViews(ctx context.Context, since time.Time) ([]DailyCount, error)
	DailyLogins(ctx context.Context, since time.Time) ([]DailyCount, error)
	TopViewed(ctx context.Context, limit int) ([]*model.Project, error)
}

type statsRepo struct{ db *gorm.DB }

func NewStatsRepo(db *gorm.DB) StatsRepo {
	return &statsRepo{db: db}
}

// CountProjectsBy groups projects by "status" or "type".
func (r *statsRepo) CountProjectsBy(ctx context.Context, column string) ([]KeyCount, error) {
	if column != "status" && column != "type" {
		column = "status"
	}
	var out []KeyCount
	return out, r.db.WithContext(ctx).Model(&model.Project{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Order("key").
		Scan(&out).Error
}

func (r *statsRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	return n, r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
}

func (r *statsRepo) DailyViews(ctx context.Context, since time.Time) ([]DailyCount, error) {
	return r.daily(ctx, &model.VisitorView{}, since)
}

func (r *statsRepo) DailyLogins(ctx context.Context, since time.Time) ([]DailyCount, error) {
	return r.daily(ctx, &model.LoginLog{}, since)
}

func (r *statsRepo) daily(ctx context.Context, m any, since time.Time) ([]DailyCount, error) {
	var out []DailyCount
	return out, r.db.WithContext(ctx).Model(m).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day").
		Scan(&out).Error
}

func (r *statsRepo) TopViewed(ctx context.Context, limit int) ([]*model.Project, error) {
	var items []*model.Project
	return items, r.db.WithContext(ctx).
		Where("status = ? AND visibility = ?", model.StatusApproved, model.VisibilityPublic).
		Order("view_count DESC, created_at DESC").
		Limit(limit).
		Find(&items).Error
}
