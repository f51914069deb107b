package service

import (
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/contributor"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type projectFixture struct {
	projects *MockProjectRepo
	users    *MockUserRepo
	logs     *MockLogRepo
	blob     *MockStorage
	pub      *MockPublisher
	store    *MockStore
	svc      ProjectService
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects: &MockProjectRepo{},
		users:    &MockUserRepo{},
		logs:     &MockLogRepo{},
		blob:     &MockStorage{},
		pub:      &MockPublisher{},
		store:    &MockStore{},
	}
	f.svc = NewProjectService(f.projects, f.users, f.logs, f.blob, f.pub, f.store, ProjectServiceConfig{
		Limits:       upload.DefaultLimits(),
		AdminLimits:  upload.AdminLimits(),
		ViewDedupTTL: time.Hour,
	}, zap.NewNop())
	return f
}

func courseworkDraft() wizard.Draft {
	return wizard.Draft{
		Basic: wizard.Basic{
			Title:       "Smart Farm",
			Description: "IoT greenhouse",
			Type:        model.TypeCoursework,
			StudyYear:   3,
			Year:        2024,
			Semester:    1,
		},
		Coursework: &wizard.CourseworkDetails{CourseCode: "CS101"},
	}
}

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	student := Actor{ID: uuid.New(), Role: model.RoleStudent}

	t.Run("coursework without poster is refused before upload", func(t *testing.T) {
		f := newProjectFixture()
		_, err := f.svc.Create(ctx, SubmitInput{Actor: student, Draft: courseworkDraft()})

		var fe wizard.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe, "poster")
		f.blob.AssertNotCalled(t, "UploadFormFile", mock.Anything, mock.Anything, mock.Anything)
		f.projects.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("poster must be an image", func(t *testing.T) {
		f := newProjectFixture()
		_, err := f.svc.Create(ctx, SubmitInput{
			Actor: student,
			Draft: courseworkDraft(),
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster: {formFile(t, "poster", "poster.pdf", "application/pdf", pdfBytes)},
			},
		})

		var rf *RejectedFilesError
		require.ErrorAs(t, err, &rf)
		require.Len(t, rf.Files, 1)
		assert.Equal(t, "poster.pdf", rf.Files[0].Filename)
	})

	t.Run("academic projects take no poster", func(t *testing.T) {
		f := newProjectFixture()
		d := courseworkDraft()
		d.Type = model.TypeAcademic
		_, err := f.svc.Create(ctx, SubmitInput{
			Actor: student,
			Draft: d,
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster: {formFile(t, "poster", "poster.png", "image/png", pngBytes(t))},
			},
		})

		var fe wizard.FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe, "poster")
	})

	t.Run("unknown contributor", func(t *testing.T) {
		f := newProjectFixture()
		other := uuid.New()
		d := courseworkDraft()
		d.Contributors = contributor.List{{UserID: &other, Username: "ghost", Role: contributor.RoleContributor}}

		f.users.On("CountByIDs", ctx, []uuid.UUID{other}).Return(int64(0), nil)

		_, err := f.svc.Create(ctx, SubmitInput{
			Actor: student,
			Draft: d,
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster: {formFile(t, "poster", "poster.png", "image/png", pngBytes(t))},
			},
		})
		assert.ErrorIs(t, err, ErrUnknownContributor)
	})

	t.Run("successful coursework submission", func(t *testing.T) {
		f := newProjectFixture()
		f.blob.On("UploadFormFile", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, nil)
		f.projects.On("Create", ctx, mock.AnythingOfType("*model.Project")).Return(nil)
		f.pub.On("PublishJSON", ctx, queue.KeyProjectSubmitted, mock.AnythingOfType("service.ProjectEvent")).Return(nil)
		f.store.On("Delete", ctx, []string{statsCacheKey}).Return(nil)

		p, err := f.svc.Create(ctx, SubmitInput{
			Actor: student,
			Draft: courseworkDraft(),
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster:       {formFile(t, "poster", "poster.png", "image/png", pngBytes(t))},
				wizard.SlotPrimaryImage: {formFile(t, "primary_image", "cover.png", "image/png", pngBytes(t))},
				wizard.SlotAttachments:  {formFile(t, "attachments", "report.pdf", "application/pdf", pdfBytes)},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, model.StatusPending, p.Status)
		assert.Equal(t, student.ID, p.OwnerID)
		assert.True(t, p.HasSubRecord())
		assert.Equal(t, "CS101", p.Coursework.CourseCode)
		assert.Equal(t, "projects/"+p.ID.String()+"/poster/poster.png", p.PosterPath)
		assert.Equal(t, "projects/"+p.ID.String()+"/primary_image/cover.png", p.Coursework.ImagePath)

		require.Len(t, p.Files, 3)
		byType := p.FilesByType()
		assert.Len(t, byType[model.FileImage], 2)
		assert.Len(t, byType[model.FilePDF], 1)
		assert.True(t, p.IsProtectedPath(p.PosterPath))

		f.projects.AssertExpectations(t)
		f.pub.AssertExpectations(t)
		f.store.AssertExpectations(t)
	})

	t.Run("repo failure removes uploaded blobs", func(t *testing.T) {
		f := newProjectFixture()
		f.blob.On("UploadFormFile", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, nil)
		f.blob.On("Delete", ctx, mock.AnythingOfType("string")).Return(nil)
		f.projects.On("Create", ctx, mock.AnythingOfType("*model.Project")).Return(assert.AnError)

		_, err := f.svc.Create(ctx, SubmitInput{
			Actor: student,
			Draft: courseworkDraft(),
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster: {formFile(t, "poster", "poster.png", "image/png", pngBytes(t))},
			},
		})
		require.ErrorIs(t, err, assert.AnError)
		f.blob.AssertNumberOfCalls(t, "Delete", 1)
		f.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	pid := uuid.New()

	existing := func() *model.Project {
		return &model.Project{
			ID:         pid,
			OwnerID:    owner,
			Type:       model.TypeCoursework,
			Status:     model.StatusApproved,
			PosterPath: "old/poster.png",
			Coursework: &model.Coursework{ProjectID: pid, ImagePath: "old/cover.png"},
		}
	}

	t.Run("stranger cannot edit", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)

		_, err := f.svc.Update(ctx, pid, SubmitInput{Actor: Actor{ID: uuid.New(), Role: model.RoleStudent}, Draft: courseworkDraft()})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("type cannot change", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)
		d := courseworkDraft()
		d.Type = model.TypeCompetition
		d.Competition = &wizard.CompetitionDetails{CompetitionName: "NSC"}

		_, err := f.svc.Update(ctx, pid, SubmitInput{Actor: Actor{ID: owner}, Draft: d})
		assert.ErrorIs(t, err, ErrTypeChanged)
	})

	t.Run("existing poster satisfies the required file", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)
		f.projects.On("Update", ctx, mock.MatchedBy(func(p *model.Project) bool {
			return p.PosterPath == "old/poster.png" && p.Coursework.ImagePath == "old/cover.png" && p.Title == "Smart Farm"
		}), []model.ProjectFile(nil), []string(nil)).Return(nil)
		f.pub.On("PublishJSON", ctx, queue.KeyProjectSubmitted, mock.AnythingOfType("service.ProjectEvent")).Return(nil)
		f.store.On("Delete", ctx, []string{statsCacheKey}).Return(nil)

		_, err := f.svc.Update(ctx, pid, SubmitInput{Actor: Actor{ID: owner}, Draft: courseworkDraft()})
		require.NoError(t, err)
		f.projects.AssertExpectations(t)
	})

	t.Run("owner edit sends an approved project back to review", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)
		f.projects.On("Update", ctx, mock.MatchedBy(func(p *model.Project) bool {
			return p.Status == model.StatusPending
		}), []model.ProjectFile(nil), []string(nil)).Return(nil)
		f.pub.On("PublishJSON", ctx, queue.KeyProjectSubmitted, mock.MatchedBy(func(ev ProjectEvent) bool {
			return ev.Status == model.StatusPending && ev.ActorID == owner
		})).Return(nil)
		f.store.On("Delete", ctx, []string{statsCacheKey}).Return(nil)

		_, err := f.svc.Update(ctx, pid, SubmitInput{Actor: Actor{ID: owner}, Draft: courseworkDraft()})
		require.NoError(t, err)
		f.projects.AssertExpectations(t)
		f.pub.AssertExpectations(t)
	})

	t.Run("admin edit keeps the review status", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)
		f.projects.On("Update", ctx, mock.MatchedBy(func(p *model.Project) bool {
			return p.Status == model.StatusApproved
		}), []model.ProjectFile(nil), []string(nil)).Return(nil)

		_, err := f.svc.Update(ctx, pid, SubmitInput{Actor: Actor{ID: uuid.New(), Role: model.RoleAdmin}, Draft: courseworkDraft()})
		require.NoError(t, err)
		f.projects.AssertExpectations(t)
		f.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new poster replaces the old one", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(existing(), nil)
		f.blob.On("UploadFormFile", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, nil)
		f.blob.On("Delete", ctx, "old/poster.png").Return(nil)
		f.pub.On("PublishJSON", ctx, queue.KeyProjectSubmitted, mock.Anything).Return(nil)
		f.store.On("Delete", ctx, []string{statsCacheKey}).Return(nil)
		newPoster := "projects/" + pid.String() + "/poster/new.png"
		f.projects.On("Update", ctx, mock.MatchedBy(func(p *model.Project) bool {
			return p.PosterPath == newPoster
		}), mock.MatchedBy(func(added []model.ProjectFile) bool {
			return len(added) == 1 && added[0].FilePath == newPoster && added[0].FileType == model.FileImage
		}), []string{"old/poster.png"}).Return(nil)

		_, err := f.svc.Update(ctx, pid, SubmitInput{
			Actor: Actor{ID: owner},
			Draft: courseworkDraft(),
			Files: map[wizard.Slot][]*multipart.FileHeader{
				wizard.SlotPoster: {formFile(t, "poster", "new.png", "image/png", pngBytes(t))},
			},
		})
		require.NoError(t, err)
		f.projects.AssertExpectations(t)
		f.blob.AssertCalled(t, "Delete", ctx, "old/poster.png")
	})
}

func TestProjectService_Get(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	member := uuid.New()
	pid := uuid.New()

	pending := &model.Project{
		ID:           pid,
		OwnerID:      owner,
		Status:       model.StatusPending,
		Visibility:   model.VisibilityPublic,
		Contributors: datatypes.NewJSONType(contributor.List{{UserID: &member, Role: contributor.RoleContributor}}),
	}

	tests := []struct {
		name    string
		actor   *Actor
		wantErr error
	}{
		{name: "anonymous", actor: nil, wantErr: ErrNotFound},
		{name: "other student", actor: &Actor{ID: uuid.New(), Role: model.RoleStudent}, wantErr: ErrNotFound},
		{name: "owner", actor: &Actor{ID: owner, Role: model.RoleStudent}},
		{name: "contributor", actor: &Actor{ID: member, Role: model.RoleStudent}},
		{name: "admin", actor: &Actor{ID: uuid.New(), Role: model.RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProjectFixture()
			f.projects.On("Get", ctx, pid).Return(pending, nil)

			p, err := f.svc.Get(ctx, pid, tt.actor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pid, p.ID)
		})
	}

	t.Run("missing project", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("Get", ctx, pid).Return(nil, gorm.ErrRecordNotFound)
		_, err := f.svc.Get(ctx, pid, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProjectService_Delete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	pid := uuid.New()
	p := &model.Project{ID: pid, OwnerID: owner, Type: model.TypeCoursework}

	f := newProjectFixture()
	f.projects.On("Get", ctx, pid).Return(p, nil)

	err := f.svc.Delete(ctx, pid, Actor{ID: uuid.New(), Role: model.RoleStudent})
	assert.ErrorIs(t, err, ErrForbidden)

	f.projects.On("Delete", ctx, pid).Return([]string{"a.png", "b.pdf"}, nil)
	f.blob.On("Delete", ctx, mock.AnythingOfType("string")).Return(nil)
	f.pub.On("PublishJSON", ctx, queue.KeyProjectDeleted, mock.Anything).Return(nil)
	f.store.On("Delete", ctx, []string{statsCacheKey}).Return(nil)

	require.NoError(t, f.svc.Delete(ctx, pid, Actor{ID: uuid.New(), Role: model.RoleAdmin}))
	f.blob.AssertNumberOfCalls(t, "Delete", 2)
	f.pub.AssertExpectations(t)
}

func TestProjectService_List(t *testing.T) {
	ctx := context.Background()
	me := uuid.New()
	now := time.Now()
	items := []*model.Project{
		{ID: uuid.New(), CreatedAt: now},
		{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), CreatedAt: now.Add(-2 * time.Minute)},
	}

	t.Run("public scope forces approved and public", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("ListWithCursor", ctx, repo.ProjectFilter{
			Status:     model.StatusApproved,
			Visibility: model.VisibilityPublic,
			Type:       model.TypeAcademic,
		}, time.Time{}, uuid.Nil, 3, true).Return(items, nil)

		out, err := f.svc.List(ctx, ListProjectsInput{
			Scope:    ScopePublic,
			Status:   model.StatusPending,
			Type:     model.TypeAcademic,
			Limit:    2,
			TimeDesc: true,
		})
		require.NoError(t, err)
		assert.True(t, out.HasMore)
		assert.Len(t, out.Items, 2)
		assert.NotEmpty(t, out.NextCursor)
		f.projects.AssertExpectations(t)
	})

	t.Run("mine scope filters by member", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("ListWithCursor", ctx, repo.ProjectFilter{MemberID: &me}, time.Time{}, uuid.Nil, 11, false).Return(items[:1], nil)

		out, err := f.svc.List(ctx, ListProjectsInput{Scope: ScopeMine, ActorID: me, Limit: 10})
		require.NoError(t, err)
		assert.False(t, out.HasMore)
		assert.Empty(t, out.NextCursor)
		assert.Len(t, out.Items, 1)
	})

	t.Run("bad cursor", func(t *testing.T) {
		f := newProjectFixture()
		_, err := f.svc.List(ctx, ListProjectsInput{Cursor: "%%%", Limit: 10})
		assert.Error(t, err)
	})
}

func TestProjectService_RecordView(t *testing.T) {
	ctx := context.Background()
	pid := uuid.New()
	in := RecordViewInput{ProjectID: pid, IP: "10.0.0.1", UserAgent: "test"}
	key := "view:" + pid.String() + ":10.0.0.1"

	t.Run("first view is recorded", func(t *testing.T) {
		f := newProjectFixture()
		f.store.On("SetNX", ctx, key, time.Hour).Return(true, nil)
		f.logs.On("CreateView", ctx, mock.AnythingOfType("*model.VisitorView")).Return(nil)
		f.projects.On("IncrementViews", ctx, pid).Return(nil)

		require.NoError(t, f.svc.RecordView(ctx, in))
		f.logs.AssertExpectations(t)
		f.projects.AssertExpectations(t)
	})

	t.Run("repeat view within window is ignored", func(t *testing.T) {
		f := newProjectFixture()
		f.store.On("SetNX", ctx, key, time.Hour).Return(false, nil)

		require.NoError(t, f.svc.RecordView(ctx, in))
		f.logs.AssertNotCalled(t, "CreateView", mock.Anything, mock.Anything)
		f.projects.AssertNotCalled(t, "IncrementViews", mock.Anything, mock.Anything)
	})

	t.Run("cache failure still counts", func(t *testing.T) {
		f := newProjectFixture()
		f.store.On("SetNX", ctx, key, time.Hour).Return(false, assert.AnError)
		f.logs.On("CreateView", ctx, mock.AnythingOfType("*model.VisitorView")).Return(nil)
		f.projects.On("IncrementViews", ctx, pid).Return(nil)

		require.NoError(t, f.svc.RecordView(ctx, in))
		f.projects.AssertExpectations(t)
	})
}
