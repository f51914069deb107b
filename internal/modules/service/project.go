package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/infra/cache"
	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/contributor"
	"github.com/csi-showcase/showcase/internal/pkg/paging"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ProjectService interface {
	Create(ctx context.Context, in SubmitInput) (*model.Project, error)
	Update(ctx context.Context, projectID uuid.UUID, in SubmitInput) (*model.Project, error)
	Get(ctx context.Context, projectID uuid.UUID, actor *Actor) (*model.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID, actor Actor) error
	List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error)
	RecordView(ctx context.Context, in RecordViewInput) error
}

// SubmitInput is a decoded multipart submission: the JSON draft plus the
// uploaded files keyed by slot.
type SubmitInput struct {
	Actor Actor
	Draft wizard.Draft
	Files map[wizard.Slot][]*multipart.FileHeader
}

type ListScope int

const (
	// ScopePublic lists approved public projects.
	ScopePublic ListScope = iota
	// ScopeMine lists projects the actor owns or contributes to.
	ScopeMine
	// ScopeAll lists every project, for administrators.
	ScopeAll
)

type ListProjectsInput struct {
	Scope     ListScope           `json:"-"`
	ActorID   uuid.UUID           `json:"-"`
	Status    model.ProjectStatus `json:"status"`
	Type      model.ProjectType   `json:"type"`
	Year      int                 `json:"year"`
	StudyYear int                 `json:"study_year"`
	Query     string              `json:"q"`
	Limit     int                 `json:"limit"`
	Cursor    string              `json:"cursor"`
	TimeDesc  bool                `json:"time_desc"`
}

type ListProjectsOutput struct {
	Items      []*model.Project `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

type RecordViewInput struct {
	ProjectID uuid.UUID
	ViewerID  *uuid.UUID
	IP        string
	UserAgent string
}

type ProjectServiceConfig struct {
	Limits       upload.Limits
	AdminLimits  upload.Limits
	ViewDedupTTL time.Duration
}

type projectService struct {
	projects repo.ProjectRepo
	users    repo.UserRepo
	logs     repo.LogRepo
	cfg      ProjectServiceConfig
	effects
}

func NewProjectService(
	projects repo.ProjectRepo,
	users repo.UserRepo,
	logs repo.LogRepo,
	b blob.Storage,
	pub queue.EventPublisher,
	c cache.Store,
	cfg ProjectServiceConfig,
	log *zap.Logger,
) ProjectService {
	return &projectService{
		projects: projects,
		users:    users,
		logs:     logs,
		cfg:      cfg,
		effects:  effects{pub: pub, cache: c, blob: b, log: log},
	}
}

func (s *projectService) Create(ctx context.Context, in SubmitInput) (*model.Project, error) {
	d := in.Draft
	d.Normalize()

	accepted, err := s.acceptFiles(in.Actor, d.Type, in.Files)
	if err != nil {
		return nil, err
	}
	has := func(slot wizard.Slot) bool { return len(accepted[slot]) > 0 }
	if err := wizard.Validate(&d, in.Actor.ID, has); err != nil {
		return nil, err
	}
	if err := s.checkContributors(ctx, d.Contributors); err != nil {
		return nil, err
	}

	p := &model.Project{ID: uuid.New(), OwnerID: in.Actor.ID, Status: model.StatusPending}
	if err := applyDraft(p, &d); err != nil {
		return nil, err
	}

	files, slots, err := s.store(ctx, p.ID, accepted)
	if err != nil {
		return nil, err
	}
	p.Files = files
	applySlots(p, slots)

	if err := s.projects.Create(ctx, p); err != nil {
		s.removeBlobs(ctx, filePaths(files)...)
		return nil, wrapRepoErr("create project", err)
	}

	s.publish(ctx, queue.KeyProjectSubmitted, p, in.Actor.ID, "")
	s.invalidateStats(ctx)
	return p, nil
}

// Update edits a project. An edit by a member that is not an acting admin
// sends a reviewed project back to pending, so changes reach the gallery
// only after a new review.
func (s *projectService) Update(ctx context.Context, projectID uuid.UUID, in SubmitInput) (*model.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, wrapRepoErr("get project", err)
	}
	if !in.Actor.canManage(p) {
		return nil, ErrForbidden
	}

	d := in.Draft
	d.Normalize()
	if d.Type != p.Type {
		return nil, ErrTypeChanged
	}

	accepted, err := s.acceptFiles(in.Actor, d.Type, in.Files)
	if err != nil {
		return nil, err
	}
	has := func(slot wizard.Slot) bool { return len(accepted[slot]) > 0 || slotPath(p, slot) != "" }
	if err := wizard.Validate(&d, p.OwnerID, has); err != nil {
		return nil, err
	}
	if err := s.checkContributors(ctx, d.Contributors); err != nil {
		return nil, err
	}

	kept := make(map[wizard.Slot]string)
	for _, slot := range []wizard.Slot{wizard.SlotPoster, wizard.SlotPaper, wizard.SlotPrimaryImage} {
		kept[slot] = slotPath(p, slot)
	}
	if err := applyDraft(p, &d); err != nil {
		return nil, err
	}
	applySlots(p, kept)
	resubmitted := !in.Actor.IsAdmin() && p.Status != model.StatusPending
	if resubmitted {
		p.Status = model.StatusPending
	}

	files, slots, err := s.store(ctx, p.ID, accepted)
	if err != nil {
		return nil, err
	}
	var replaced []string
	for slot := range slots {
		if old := kept[slot]; old != "" {
			replaced = append(replaced, old)
		}
	}
	applySlots(p, slots)

	if err := s.projects.Update(ctx, p, files, replaced); err != nil {
		s.removeBlobs(ctx, filePaths(files)...)
		return nil, wrapRepoErr("update project", err)
	}
	s.removeBlobs(ctx, replaced...)
	if resubmitted {
		s.publish(ctx, queue.KeyProjectSubmitted, p, in.Actor.ID, "")
		s.invalidateStats(ctx)
	}

	fresh, err := s.projects.Get(ctx, p.ID)
	if err != nil {
		s.log.Warn("reload project", zap.String("project_id", p.ID.String()), zap.Error(err))
		return p, nil
	}
	return fresh, nil
}

// Get returns a project. Unpublished projects are only visible to members
// and administrators; everyone else gets ErrNotFound.
func (s *projectService) Get(ctx context.Context, projectID uuid.UUID, actor *Actor) (*model.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, wrapRepoErr("get project", err)
	}
	if !p.IsPublished() && !actor.canSee(p) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, projectID uuid.UUID, actor Actor) error {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return wrapRepoErr("get project", err)
	}
	if !actor.canManage(p) {
		return ErrForbidden
	}

	paths, err := s.projects.Delete(ctx, projectID)
	if err != nil {
		return wrapRepoErr("delete project", err)
	}
	s.removeBlobs(ctx, paths...)

	s.publish(ctx, queue.KeyProjectDeleted, p, actor.ID, "")
	s.invalidateStats(ctx)
	return nil
}

func (s *projectService) List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error) {
	var afterT time.Time
	var afterID uuid.UUID
	var err error
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
	}

	f := repo.ProjectFilter{
		Status:    in.Status,
		Type:      in.Type,
		Year:      in.Year,
		StudyYear: in.StudyYear,
		Query:     in.Query,
	}
	switch in.Scope {
	case ScopePublic:
		f.Status = model.StatusApproved
		f.Visibility = model.VisibilityPublic
	case ScopeMine:
		id := in.ActorID
		f.MemberID = &id
	}

	items, err := s.projects.ListWithCursor(ctx, f, afterT, afterID, in.Limit+1, in.TimeDesc)
	if err != nil {
		return nil, err
	}

	out := &ListProjectsOutput{Items: items}
	if len(items) > in.Limit {
		out.HasMore = true
		out.Items = items[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

// RecordView logs a visit and bumps the view counter once per project and
// client address within the de-duplication window.
func (s *projectService) RecordView(ctx context.Context, in RecordViewInput) error {
	if s.cache != nil && s.cfg.ViewDedupTTL > 0 {
		key := fmt.Sprintf("view:%s:%s", in.ProjectID, in.IP)
		first, err := s.cache.SetNX(ctx, key, s.cfg.ViewDedupTTL)
		if err != nil {
			s.log.Warn("view dedup", zap.Error(err))
		} else if !first {
			return nil
		}
	}

	if err := s.logs.CreateView(ctx, &model.VisitorView{
		ProjectID: in.ProjectID,
		UserID:    in.ViewerID,
		IP:        in.IP,
		UserAgent: in.UserAgent,
	}); err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	if err := s.projects.IncrementViews(ctx, in.ProjectID); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (s *projectService) limitsFor(a Actor) upload.Limits {
	if a.IsAdmin() {
		return s.cfg.AdminLimits
	}
	return s.cfg.Limits
}

// acceptFiles checks every uploaded file against its slot. Any rejected file
// fails the whole submission.
func (s *projectService) acceptFiles(a Actor, t model.ProjectType, files map[wizard.Slot][]*multipart.FileHeader) (map[wizard.Slot][]*upload.Accepted, error) {
	limits := s.limitsFor(a)
	out := make(map[wizard.Slot][]*upload.Accepted)
	fieldErrs := wizard.FieldErrors{}
	var rejected []*upload.RejectError

	for _, slot := range wizard.Slots {
		fhs := files[slot]
		if len(fhs) == 0 {
			continue
		}
		if !slotAllowed(t, slot) {
			fieldErrs[string(slot)] = fmt.Sprintf("not accepted for %s projects", t)
			continue
		}
		if slot.Single() && len(fhs) > 1 {
			fieldErrs[string(slot)] = ErrTooManyFiles.Error()
			continue
		}
		kept, bad := upload.Filter(fhs, slot.Category(), limits)
		out[slot] = kept
		rejected = append(rejected, bad...)
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}
	if len(rejected) > 0 {
		return nil, &RejectedFilesError{Files: rejected}
	}
	return out, nil
}

func (s *projectService) checkContributors(ctx context.Context, l contributor.List) error {
	ids := l.UserIDs()
	if len(ids) == 0 {
		return nil
	}
	n, err := s.users.CountByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("count contributors: %w", err)
	}
	if int(n) != len(ids) {
		return ErrUnknownContributor
	}
	return nil
}

// store uploads accepted files and returns their rows plus the stored path
// of each single-file slot.
func (s *projectService) store(ctx context.Context, projectID uuid.UUID, accepted map[wizard.Slot][]*upload.Accepted) ([]model.ProjectFile, map[wizard.Slot]string, error) {
	var files []model.ProjectFile
	slots := make(map[wizard.Slot]string)

	for _, slot := range wizard.Slots {
		for _, acc := range accepted[slot] {
			acc.Header.Header.Set("Content-Type", acc.MIME)
			meta, err := s.blob.UploadFormFile(ctx, fmt.Sprintf("projects/%s/%s", projectID, slot), acc.Header)
			if err != nil {
				s.removeBlobs(ctx, filePaths(files)...)
				return nil, nil, fmt.Errorf("upload %s: %w", acc.Header.Filename, err)
			}
			files = append(files, model.ProjectFile{
				ProjectID: projectID,
				FilePath:  meta.Key,
				FileName:  acc.Header.Filename,
				FileType:  fileType(acc.Category),
				FileSize:  acc.Header.Size,
			})
			if slot.Single() {
				slots[slot] = meta.Key
			}
		}
	}
	return files, slots, nil
}

func slotAllowed(t model.ProjectType, slot wizard.Slot) bool {
	switch slot {
	case wizard.SlotPoster:
		return t.HasPoster()
	case wizard.SlotPaper:
		return t == model.TypeAcademic
	case wizard.SlotPrimaryImage:
		return t == model.TypeCoursework
	}
	return true
}

func slotPath(p *model.Project, slot wizard.Slot) string {
	switch slot {
	case wizard.SlotPoster:
		return p.PosterPath
	case wizard.SlotPaper:
		if p.Academic != nil {
			return p.Academic.PaperPath
		}
	case wizard.SlotPrimaryImage:
		if p.Coursework != nil {
			return p.Coursework.ImagePath
		}
	}
	return ""
}

func applySlots(p *model.Project, paths map[wizard.Slot]string) {
	for slot, path := range paths {
		switch slot {
		case wizard.SlotPoster:
			p.PosterPath = path
		case wizard.SlotPaper:
			if p.Academic != nil {
				p.Academic.PaperPath = path
			}
		case wizard.SlotPrimaryImage:
			if p.Coursework != nil {
				p.Coursework.ImagePath = path
			}
		}
	}
}

// applyDraft copies the draft onto p and rebuilds the sub-record matching
// the project type.
func applyDraft(p *model.Project, d *wizard.Draft) error {
	p.Title = d.Title
	p.Description = d.Description
	p.Type = d.Type
	p.StudyYear = d.StudyYear
	p.Year = d.Year
	p.Semester = d.Semester
	p.Visibility = d.Visibility
	p.Contributors = datatypes.NewJSONType(d.Contributors)
	p.Academic, p.Competition, p.Coursework = nil, nil, nil

	switch d.Type {
	case model.TypeAcademic:
		a := d.Academic
		ap := &model.AcademicPaper{
			ProjectID: p.ID,
			Venue:     a.Venue,
			Authors:   a.Authors,
			Keywords:  a.Keywords,
			Abstract:  a.Abstract,
		}
		if a.PublishedDate != "" {
			t, err := time.Parse(time.DateOnly, a.PublishedDate)
			if err != nil {
				return wizard.FieldErrors{"academic.published_date": "must be a date in 2006-01-02 format"}
			}
			ap.PublishedDate = &t
		}
		p.Academic = ap

	case model.TypeCompetition:
		c := d.Competition
		p.Competition = &model.Competition{
			ProjectID:       p.ID,
			CompetitionName: c.CompetitionName,
			CompetitionYear: c.CompetitionYear,
			Level:           c.Level,
			Achievement:     c.Achievement,
			TeamName:        c.TeamName,
		}

	case model.TypeCoursework:
		cw := &model.Coursework{ProjectID: p.ID}
		if d.Coursework != nil {
			cw.CourseCode = d.Coursework.CourseCode
			cw.VideoLink = d.Coursework.VideoLink
		}
		p.Coursework = cw
	}
	return nil
}

func fileType(c upload.Category) model.FileType {
	switch c {
	case upload.CategoryImage:
		return model.FileImage
	case upload.CategoryPDF:
		return model.FilePDF
	case upload.CategoryVideo:
		return model.FileVideo
	}
	return model.FileOther
}

func filePaths(files []model.ProjectFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FilePath
	}
	return out
}
