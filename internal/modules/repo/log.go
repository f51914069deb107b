package repo

import (
	"context"
	"time"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogRepo interface {
	CreateLogin(ctx context.Context, l *model.LoginLog) error
	CreateView(ctx context.Context, v *model.VisitorView) error
	ListLogins(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.LoginLog, error)
	ListViews(ctx context.Context, projectID *uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.VisitorView, error)
	ListReviews(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.ProjectReview, error)
}

type logRepo struct{ db *gorm.DB }

func NewLogRepo(db *gorm.DB) LogRepo {
	return &logRepo{db: db}
}

func (r *logRepo) CreateLogin(ctx context.Context, l *model.LoginLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *logRepo) CreateView(ctx context.Context, v *model.VisitorView) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// Log listings are newest first.

func (r *logRepo) ListLogins(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.LoginLog, error) {
	var items []*model.LoginLog
	q := r.db.WithContext(ctx).Model(&model.LoginLog{})
	return items, withCursor(q, "", afterCreatedAt, afterID, limit, true).Find(&items).Error
}

func (r *logRepo) ListViews(ctx context.Context, projectID *uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.VisitorView, error) {
	q := r.db.WithContext(ctx).Model(&model.VisitorView{})
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var items []*model.VisitorView
	return items, withCursor(q, "", afterCreatedAt, afterID, limit, true).Find(&items).Error
}

func (r *logRepo) ListReviews(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.ProjectReview, error) {
	q := r.db.WithContext(ctx).Model(&model.ProjectReview{}).Preload("Admin")
	var items []*model.ProjectReview
	return items, withCursor(q, "", afterCreatedAt, afterID, limit, true).Find(&items).Error
}
