package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPosterProtected      = errors.New("poster files cannot be deleted, upload a replacement instead")
	ErrNoPrimaryImage       = errors.New("project has no primary image to remove")
	ErrInvalidTransition    = errors.New("only pending projects can be reviewed")
	ErrRejectReasonRequired = errors.New("a comment is required when rejecting a project")
	ErrInvalidDecision      = errors.New("decision must be approved or rejected")
	ErrMissingRequiredFile  = errors.New("required file is missing")
	ErrTypeChanged          = errors.New("project type cannot be changed")
	ErrUnknownContributor   = errors.New("contributor refers to an unknown user")
	ErrTooManyFiles         = errors.New("only one file is accepted for this field")
)

// RejectedFilesError lists the uploads that failed the type or size check.
type RejectedFilesError struct {
	Files []*upload.RejectError
}

func (e *RejectedFilesError) Error() string {
	parts := make([]string, len(e.Files))
	for i, f := range e.Files {
		parts[i] = f.Error()
	}
	return "rejected files: " + strings.Join(parts, "; ")
}

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// canManage reports whether a may edit or delete p.
func (a Actor) canManage(p *model.Project) bool {
	return a.IsAdmin() || p.OwnerID == a.ID
}

// canSee reports whether a may read p regardless of publication.
func (a *Actor) canSee(p *model.Project) bool {
	return a != nil && (a.IsAdmin() || p.IsMember(a.ID))
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, repo.ErrConflict):
		return ErrInvalidTransition
	}
	return err
}

func wrapRepoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	m := mapRepoErr(err)
	if m != err {
		return m
	}
	return fmt.Errorf("%s: %w", op, err)
}
