package model

import (
	"time"

	"github.com/google/uuid"
)

type FileType string

const (
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
	FileVideo FileType = "video"
	FileOther FileType = "other"
)

type ProjectFile struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_project_file_path,priority:1" json:"project_id"`
	FilePath   string    `gorm:"type:text;not null;uniqueIndex:idx_project_file_path,priority:2" json:"file_path"`
	FileName   string    `gorm:"type:text;not null" json:"file_name"`
	FileType   FileType  `gorm:"type:text;not null;check:file_type IN ('image','pdf','video','other')" json:"file_type"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	UploadDate time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"upload_date"`

	// ProjectFile <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (ProjectFile) TableName() string { return "project_files" }
