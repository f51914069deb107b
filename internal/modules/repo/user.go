package repo

import (
	"context"
	"strings"
	"time"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	Update(ctx context.Context, u *model.User, fields ...string) error
	Delete(ctx context.Context, userID uuid.UUID) error
	Search(ctx context.Context, q string, limit int) ([]*model.User, error)
	CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListWithCursor(ctx context.Context, role model.Role, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.User, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLogin finds a user by username or e-mail, case-insensitively.
func (r *userRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var u model.User
	if err := r.db.WithContext(ctx).Where("(LOWER(username) = ? OR LOWER(email) = ?)", login, login).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User, fields ...string) error {
	q := r.db.WithContext(ctx).Model(&model.User{ID: u.ID})
	if len(fields) > 0 {
		q = q.Select(fields)
	}
	res := q.Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", userID).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search matches username, full name or e-mail for the contributor picker.
func (r *userRepo) Search(ctx context.Context, q string, limit int) ([]*model.User, error) {
	like := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	var items []*model.User
	return items, r.db.WithContext(ctx).
		Where("(username ILIKE ? OR full_name ILIKE ? OR email ILIKE ?)", like, like, like).
		Order("username ASC").
		Limit(limit).
		Find(&items).Error
}

func (r *userRepo) CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	return n, r.db.WithContext(ctx).Model(&model.User{}).Where("id IN ?", ids).Count(&n).Error
}

func (r *userRepo) ListWithCursor(ctx context.Context, role model.Role, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var items []*model.User
	return items, withCursor(q, "", afterCreatedAt, afterID, limit, timeDesc).Find(&items).Error
}
