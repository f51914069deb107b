package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type FileRefKind string

const (
	FileRefByID         FileRefKind = "by_id"
	FileRefByPath       FileRefKind = "by_path"
	FileRefPrimaryImage FileRefKind = "primary_image_slot"
)

// FileRef names one file to delete from a project: a row by id, a row by
// stored path, or the coursework primary-image slot.
type FileRef struct {
	Kind     FileRefKind `json:"kind" binding:"required,oneof=by_id by_path primary_image_slot"`
	FileID   *uuid.UUID  `json:"file_id,omitempty"`
	FilePath string      `json:"file_path,omitempty"`
}

var ErrInvalidFileRef = errors.New("invalid file reference")

func FileRefID(id uuid.UUID) FileRef {
	return FileRef{Kind: FileRefByID, FileID: &id}
}

func FileRefPath(path string) FileRef {
	return FileRef{Kind: FileRefByPath, FilePath: path}
}

func FileRefPrimaryImageSlot() FileRef {
	return FileRef{Kind: FileRefPrimaryImage}
}

func (r FileRef) Validate() error {
	switch r.Kind {
	case FileRefByID:
		if r.FileID == nil || *r.FileID == uuid.Nil {
			return ErrInvalidFileRef
		}
	case FileRefByPath:
		if strings.TrimSpace(r.FilePath) == "" {
			return ErrInvalidFileRef
		}
	case FileRefPrimaryImage:
	default:
		return ErrInvalidFileRef
	}
	return nil
}
