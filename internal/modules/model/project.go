package model

import (
	"slices"
	"time"

	"github.com/csi-showcase/showcase/internal/pkg/contributor"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProjectType string

const (
	TypeCoursework  ProjectType = "coursework"
	TypeAcademic    ProjectType = "academic"
	TypeCompetition ProjectType = "competition"
)

func (t ProjectType) Valid() bool {
	return t == TypeCoursework || t == TypeAcademic || t == TypeCompetition
}

// HasPoster reports whether projects of this type carry a poster image.
func (t ProjectType) HasPoster() bool {
	return t == TypeCoursework || t == TypeCompetition
}

type ProjectStatus string

const (
	StatusPending  ProjectStatus = "pending"
	StatusApproved ProjectStatus = "approved"
	StatusRejected ProjectStatus = "rejected"
)

// CanTransitionTo reports whether a review may move the project to next.
// Only pending projects are reviewable; approved and rejected are terminal.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusRejected)
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string        `gorm:"type:text;not null" json:"title"`
	Description string        `gorm:"type:text;not null;default:''" json:"description"`
	Type        ProjectType   `gorm:"type:text;not null;index;check:type IN ('coursework','academic','competition')" json:"type"`
	StudyYear   int           `gorm:"not null" json:"study_year"`
	Year        int           `gorm:"not null;index" json:"year"`
	Semester    int           `gorm:"not null" json:"semester"`
	Visibility  Visibility    `gorm:"type:text;not null;default:'public';check:visibility IN ('public','private')" json:"visibility"`
	Status      ProjectStatus `gorm:"type:text;not null;default:'pending';index;check:status IN ('pending','approved','rejected')" json:"status"`
	PosterPath  string        `gorm:"type:text;not null;default:''" json:"poster_path,omitempty"`
	ViewCount   int64         `gorm:"not null;default:0" json:"view_count"`

	Contributors datatypes.JSONType[contributor.List] `gorm:"type:jsonb;not null;default:'[]'" swaggertype:"array,object" json:"contributors"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Project <-> User
	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"owner,omitempty"`

	// type-specific sub-records; exactly one is set
	Academic    *AcademicPaper `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"academic,omitempty"`
	Competition *Competition   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"competition,omitempty"`
	Coursework  *Coursework    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"coursework,omitempty"`

	Files []ProjectFile `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"files,omitempty"`
}

func (Project) TableName() string { return "projects" }

// HasSubRecord reports whether exactly the sub-record matching Type is set.
func (p *Project) HasSubRecord() bool {
	n := 0
	for _, set := range []bool{p.Academic != nil, p.Competition != nil, p.Coursework != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return false
	}
	switch p.Type {
	case TypeAcademic:
		return p.Academic != nil
	case TypeCompetition:
		return p.Competition != nil
	case TypeCoursework:
		return p.Coursework != nil
	}
	return false
}

// ProtectedPaths are file paths that can only be replaced, never removed:
// the poster of coursework/competition projects and the academic paper.
func (p *Project) ProtectedPaths() []string {
	var out []string
	if p.Type.HasPoster() && p.PosterPath != "" {
		out = append(out, p.PosterPath)
	}
	if p.Type == TypeAcademic && p.Academic != nil && p.Academic.PaperPath != "" {
		out = append(out, p.Academic.PaperPath)
	}
	return out
}

func (p *Project) IsProtectedPath(path string) bool {
	return path != "" && slices.Contains(p.ProtectedPaths(), path)
}

// IsMember reports whether userID owns or contributes to the project.
func (p *Project) IsMember(userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	if p.OwnerID == userID {
		return true
	}
	return slices.Contains(p.Contributors.Data().UserIDs(), userID)
}

// IsPublished reports whether the project appears in the public gallery.
func (p *Project) IsPublished() bool {
	return p.Status == StatusApproved && p.Visibility == VisibilityPublic
}

// FilesByType groups attached files for display.
func (p *Project) FilesByType() map[FileType][]ProjectFile {
	out := make(map[FileType][]ProjectFile)
	for _, f := range p.Files {
		out[f.FileType] = append(out[f.FileType], f)
	}
	return out
}

type AcademicPaper struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Venue         string     `gorm:"type:text" json:"venue"`
	Authors       string     `gorm:"type:text" json:"authors"`
	Keywords      string     `gorm:"type:text" json:"keywords"`
	Abstract      string     `gorm:"type:text" json:"abstract"`
	PaperPath     string     `gorm:"type:text;not null" json:"paper_path"`
}

func (AcademicPaper) TableName() string { return "academic_papers" }

type Competition struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	CompetitionName string    `gorm:"type:text;not null" json:"competition_name"`
	CompetitionYear int       `json:"competition_year"`
	Level           string    `gorm:"type:text" json:"level"`
	Achievement     string    `gorm:"type:text" json:"achievement"`
	TeamName        string    `gorm:"type:text" json:"team_name"`
}

func (Competition) TableName() string { return "competitions" }

type Coursework struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	CourseCode string    `gorm:"type:text" json:"course_code"`
	ImagePath  string    `gorm:"type:text;not null;default:''" json:"image_path,omitempty"`
	VideoLink  string    `gorm:"type:text" json:"video_link,omitempty"`
}

func (Coursework) TableName() string { return "courseworks" }
