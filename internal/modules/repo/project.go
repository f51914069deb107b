package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectFilter struct {
	// MemberID limits results to projects owned by or listing the user.
	MemberID   *uuid.UUID
	Status     model.ProjectStatus
	Visibility model.Visibility
	Type       model.ProjectType
	Year       int
	StudyYear  int
	Query      string
}

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project, added []model.ProjectFile, replaced []string) error
	Get(ctx context.Context, projectID uuid.UUID) (*model.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID) ([]string, error)
	ListWithCursor(ctx context.Context, f ProjectFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.Project, error)
	SetStatusWithReview(ctx context.Context, review *model.ProjectReview) error
	ListReviews(ctx context.Context, projectID uuid.UUID) ([]model.ProjectReview, error)
	IncrementViews(ctx context.Context, projectID uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

// Create inserts the project together with its sub-record and files.
func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project, added []model.ProjectFile, replaced []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Project{ID: p.ID}).
			Select("title", "description", "study_year", "year", "semester", "visibility", "status", "poster_path", "contributors").
			Updates(p).Error; err != nil {
			return fmt.Errorf("update project: %w", err)
		}

		// the sub-record is replaced wholesale so cleared fields stay cleared
		var sub any
		switch {
		case p.Academic != nil:
			p.Academic.ID, p.Academic.ProjectID = uuid.Nil, p.ID
			sub = p.Academic
		case p.Competition != nil:
			p.Competition.ID, p.Competition.ProjectID = uuid.Nil, p.ID
			sub = p.Competition
		case p.Coursework != nil:
			p.Coursework.ID, p.Coursework.ProjectID = uuid.Nil, p.ID
			sub = p.Coursework
		}
		if sub != nil {
			if err := tx.Where("project_id = ?", p.ID).Delete(sub).Error; err != nil {
				return fmt.Errorf("delete %T: %w", sub, err)
			}
			if err := tx.Create(sub).Error; err != nil {
				return fmt.Errorf("create %T: %w", sub, err)
			}
		}

		if len(replaced) > 0 {
			if err := tx.Where("project_id = ? AND file_path IN ?", p.ID, replaced).Delete(&model.ProjectFile{}).Error; err != nil {
				return fmt.Errorf("delete replaced files: %w", err)
			}
		}
		if len(added) > 0 {
			for i := range added {
				added[i].ProjectID = p.ID
			}
			if err := tx.Create(&added).Error; err != nil {
				return fmt.Errorf("create files: %w", err)
			}
		}
		return nil
	})
}

func (r *projectRepo) Get(ctx context.Context, projectID uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Academic").
		Preload("Competition").
		Preload("Coursework").
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("upload_date ASC") }).
		Where("id = ?", projectID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the project; sub-records, files, views and reviews go by
// cascade. It returns the stored file paths so blobs can be cleaned up.
func (r *projectRepo) Delete(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Project
		if err := tx.Where("id = ?", projectID).First(&p).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ProjectFile{}).Where("project_id = ?", projectID).Pluck("file_path", &paths).Error; err != nil {
			return fmt.Errorf("query files: %w", err)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	return paths, err
}

func (r *projectRepo) ListWithCursor(ctx context.Context, f ProjectFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.Project, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{}).
		Preload("Owner").
		Preload("Academic").
		Preload("Competition").
		Preload("Coursework")

	if f.MemberID != nil {
		member := fmt.Sprintf(`[{"user_id":"%s"}]`, f.MemberID.String())
		q = q.Where("(owner_id = ? OR contributors @> ?::jsonb)", *f.MemberID, member)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Visibility != "" {
		q = q.Where("visibility = ?", f.Visibility)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.StudyYear != 0 {
		q = q.Where("study_year = ?", f.StudyYear)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", like, like)
	}

	var items []*model.Project
	return items, withCursor(q, "", afterCreatedAt, afterID, limit, timeDesc).Find(&items).Error
}

// SetStatusWithReview moves a pending project to the review's status and
// records the review in the same transaction.
func (r *projectRepo) SetStatusWithReview(ctx context.Context, review *model.ProjectReview) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Project{}).
			Where("id = ? AND status = ?", review.ProjectID, model.StatusPending).
			Update("status", review.Status)
		if res.Error != nil {
			return fmt.Errorf("update status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
}

func (r *projectRepo) ListReviews(ctx context.Context, projectID uuid.UUID) ([]model.ProjectReview, error) {
	var items []model.ProjectReview
	return items, r.db.WithContext(ctx).
		Preload("Admin").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&items).Error
}

func (r *projectRepo) IncrementViews(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
