package repo

import (
	"context"
	"fmt"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileRepo interface {
	GetByID(ctx context.Context, projectID, fileID uuid.UUID) (*model.ProjectFile, error)
	GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*model.ProjectFile, error)
	Delete(ctx context.Context, f *model.ProjectFile) error
	ClearPrimaryImage(ctx context.Context, projectID uuid.UUID, path string) error
}

type fileRepo struct{ db *gorm.DB }

func NewFileRepo(db *gorm.DB) FileRepo {
	return &fileRepo{db: db}
}

func (r *fileRepo) GetByID(ctx context.Context, projectID, fileID uuid.UUID) (*model.ProjectFile, error) {
	var f model.ProjectFile
	if err := r.db.WithContext(ctx).Where("id = ? AND project_id = ?", fileID, projectID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*model.ProjectFile, error) {
	var f model.ProjectFile
	if err := r.db.WithContext(ctx).Where("project_id = ? AND file_path = ?", projectID, path).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) Delete(ctx context.Context, f *model.ProjectFile) error {
	return r.db.WithContext(ctx).Where("project_id = ?", f.ProjectID).Delete(f).Error
}

// ClearPrimaryImage empties the coursework cover slot and drops the file row
// that backed it.
func (r *fileRepo) ClearPrimaryImage(ctx context.Context, projectID uuid.UUID, path string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Coursework{}).Where("project_id = ?", projectID).Update("image_path", "").Error; err != nil {
			return fmt.Errorf("clear image slot: %w", err)
		}
		if path == "" {
			return nil
		}
		if err := tx.Where("project_id = ? AND file_path = ?", projectID, path).Delete(&model.ProjectFile{}).Error; err != nil {
			return fmt.Errorf("delete image file: %w", err)
		}
		return nil
	})
}
