package wizard

import (
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/pkg/contributor"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
)

// Basic holds the fields of the first step.
type Basic struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Type        model.ProjectType `json:"type" validate:"required,oneof=coursework academic competition"`
	StudyYear   int              `json:"study_year" validate:"required,min=1,max=8"`
	Year        int              `json:"year" validate:"required,min=2000,max=2100"`
	Semester    int              `json:"semester" validate:"required,oneof=1 2 3"`
	Visibility  model.Visibility `json:"visibility" validate:"omitempty,oneof=public private"`
}

type AcademicDetails struct {
	PublishedDate string `json:"published_date" validate:"omitempty,datetime=2006-01-02"`
	Venue         string `json:"venue" validate:"required"`
	Authors       string `json:"authors" validate:"required"`
	Keywords      string `json:"keywords"`
	Abstract      string `json:"abstract"`
}

type CompetitionDetails struct {
	CompetitionName string `json:"competition_name" validate:"required"`
	CompetitionYear int    `json:"competition_year" validate:"omitempty,min=2000,max=2100"`
	Level           string `json:"level" validate:"omitempty,oneof=department university national international"`
	Achievement     string `json:"achievement"`
	TeamName        string `json:"team_name"`
}

type CourseworkDetails struct {
	CourseCode string `json:"course_code"`
	VideoLink  string `json:"video_link" validate:"omitempty,url"`
}

// Draft is the accumulated wizard state. It is also the JSON body of the
// multipart "payload" field accepted by the create and update endpoints.
type Draft struct {
	Basic

	Academic    *AcademicDetails    `json:"academic,omitempty"`
	Competition *CompetitionDetails `json:"competition,omitempty"`
	Coursework  *CourseworkDetails  `json:"coursework,omitempty"`

	Contributors contributor.List `json:"contributors"`
}

// Normalize drops details that do not belong to the selected type and fills
// defaults.
func (d *Draft) Normalize() {
	if d.Visibility == "" {
		d.Visibility = model.VisibilityPublic
	}
	if d.Contributors == nil {
		d.Contributors = contributor.List{}
	}
	if d.Type != model.TypeAcademic {
		d.Academic = nil
	}
	if d.Type != model.TypeCompetition {
		d.Competition = nil
	}
	if d.Type != model.TypeCoursework {
		d.Coursework = nil
	}
}

// Slot names a file field of the submission.
type Slot string

const (
	SlotPoster       Slot = "poster"
	SlotPaper        Slot = "paper"
	SlotPrimaryImage Slot = "primary_image"
	SlotImages       Slot = "images"
	SlotVideos       Slot = "videos"
	SlotAttachments  Slot = "attachments"
)

// Slots lists every accepted file field.
var Slots = []Slot{SlotPoster, SlotPaper, SlotPrimaryImage, SlotImages, SlotVideos, SlotAttachments}

// Category is the only file category a slot accepts.
func (s Slot) Category() upload.Category {
	switch s {
	case SlotPoster, SlotPrimaryImage, SlotImages:
		return upload.CategoryImage
	case SlotPaper, SlotAttachments:
		return upload.CategoryPDF
	case SlotVideos:
		return upload.CategoryVideo
	}
	return upload.CategoryOther
}

// Single reports whether the slot holds at most one file.
func (s Slot) Single() bool {
	return s == SlotPoster || s == SlotPaper || s == SlotPrimaryImage
}

func (s Slot) Valid() bool {
	for _, x := range Slots {
		if x == s {
			return true
		}
	}
	return false
}

// RequiredSlot is the file slot a project type cannot be submitted without.
func RequiredSlot(t model.ProjectType) Slot {
	switch t {
	case model.TypeAcademic:
		return SlotPaper
	case model.TypeCoursework, model.TypeCompetition:
		return SlotPoster
	}
	return ""
}
