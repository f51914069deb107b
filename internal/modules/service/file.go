package service

import (
	"context"
	"fmt"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FileService interface {
	Delete(ctx context.Context, projectID uuid.UUID, actor Actor, ref model.FileRef) error
	DownloadURL(ctx context.Context, projectID, fileID uuid.UUID, actor *Actor) (*DownloadLink, error)
}

type DownloadLink struct {
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type fileService struct {
	projects   repo.ProjectRepo
	files      repo.FileRepo
	presignTTL time.Duration
	publicBase string
	effects
}

// NewFileService builds the file service. publicBase, when set, is the CDN
// root serving published files directly.
func NewFileService(projects repo.ProjectRepo, files repo.FileRepo, b blob.Storage, presignTTL time.Duration, publicBase string, log *zap.Logger) FileService {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &fileService{
		projects:   projects,
		files:      files,
		presignTTL: presignTTL,
		publicBase: publicBase,
		effects:    effects{blob: b, log: log},
	}
}

// DownloadURL returns a link to one file. Published files resolve against
// the public base URL when one is configured; everything else gets a
// short-lived presigned link. Files of unpublished projects are only
// visible to members and administrators.
func (s *fileService) DownloadURL(ctx context.Context, projectID, fileID uuid.UUID, actor *Actor) (*DownloadLink, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, wrapRepoErr("get project", err)
	}
	if !p.IsPublished() && !actor.canSee(p) {
		return nil, ErrNotFound
	}
	f, err := s.files.GetByID(ctx, p.ID, fileID)
	if err != nil {
		return nil, wrapRepoErr("get file", err)
	}
	if s.publicBase != "" && p.IsPublished() {
		return &DownloadLink{URL: blob.PublicURL(s.publicBase, f.FilePath), FileName: f.FileName}, nil
	}
	url, err := s.blob.PresignGet(ctx, f.FilePath, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", f.FilePath, err)
	}
	return &DownloadLink{URL: url, FileName: f.FileName, ExpiresAt: time.Now().Add(s.presignTTL)}, nil
}

// Delete removes one file from a project. Posters and academic papers can
// only be replaced through an update, never removed.
func (s *fileService) Delete(ctx context.Context, projectID uuid.UUID, actor Actor, ref model.FileRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return wrapRepoErr("get project", err)
	}
	if !actor.canManage(p) {
		return ErrForbidden
	}

	if ref.Kind == model.FileRefPrimaryImage {
		if p.Type != model.TypeCoursework || p.Coursework == nil || p.Coursework.ImagePath == "" {
			return ErrNoPrimaryImage
		}
		path := p.Coursework.ImagePath
		if err := s.files.ClearPrimaryImage(ctx, p.ID, path); err != nil {
			return fmt.Errorf("clear primary image: %w", err)
		}
		s.removeBlobs(ctx, path)
		return nil
	}

	if ref.Kind == model.FileRefByPath && p.IsProtectedPath(ref.FilePath) {
		return ErrPosterProtected
	}

	var f *model.ProjectFile
	if ref.Kind == model.FileRefByID {
		f, err = s.files.GetByID(ctx, p.ID, *ref.FileID)
	} else {
		f, err = s.files.GetByPath(ctx, p.ID, ref.FilePath)
	}
	if err != nil {
		return wrapRepoErr("get file", err)
	}
	if p.IsProtectedPath(f.FilePath) {
		return ErrPosterProtected
	}

	if p.Coursework != nil && p.Coursework.ImagePath == f.FilePath {
		err = s.files.ClearPrimaryImage(ctx, p.ID, f.FilePath)
	} else {
		err = s.files.Delete(ctx, f)
	}
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	s.removeBlobs(ctx, f.FilePath)
	return nil
}
