package handler

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Code  int    `json:"code"`
	Data  T      `json:"data"`
	Msg   string `json:"msg"`
	Error string `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func multipartBody(t *testing.T, payload string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if payload != "" {
		require.NoError(t, mw.WriteField("payload", payload))
	}
	for name, content := range files {
		field, filename, _ := strings.Cut(name, ":")
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

const courseworkPayload = `{"title":"Smart Farm","description":"IoT","type":"coursework","study_year":3,"year":2024,"semester":1,"contributors":[]}`

func TestProjectHandler_ListProjects(t *testing.T) {
	svc := &MockProjectService{}
	h := NewProjectHandler(svc)
	r := setupRouter()
	r.GET("/projects", h.ListProjects)

	svc.On("List", mock.Anything, service.ListProjectsInput{
		Scope:    service.ScopePublic,
		Type:     model.TypeAcademic,
		Year:     2024,
		Limit:    20,
		TimeDesc: true,
	}).Return(&service.ListProjectsOutput{Items: []*model.Project{{ID: uuid.New(), Title: "Paper"}}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects?type=academic&year=2024", nil))

	require.Equal(t, http.StatusOK, w.Code)
	out := decode[service.ListProjectsOutput](t, w)
	require.Len(t, out.Data.Items, 1)
	assert.Equal(t, "Paper", out.Data.Items[0].Title)
	svc.AssertExpectations(t)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects?type=poem", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_ListMyProjects(t *testing.T) {
	me := &model.User{ID: uuid.New(), Role: model.RoleStudent}
	svc := &MockProjectService{}
	h := NewProjectHandler(svc)
	r := setupRouter()
	r.GET("/projects/mine", withUser(me), h.ListMyProjects)

	svc.On("List", mock.Anything, mock.MatchedBy(func(in service.ListProjectsInput) bool {
		return in.Scope == service.ScopeMine && in.ActorID == me.ID
	})).Return(&service.ListProjectsOutput{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/mine", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestProjectHandler_SearchProjectsNeedsQuery(t *testing.T) {
	h := NewProjectHandler(&MockProjectService{})
	r := setupRouter()
	r.GET("/search/projects", h.SearchProjects)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search/projects?q=%20", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_GetProject(t *testing.T) {
	pid := uuid.New()

	tests := []struct {
		name           string
		user           *model.User
		setup          func(*MockProjectService)
		expectedStatus int
	}{
		{
			name: "anonymous visitor of a published project",
			setup: func(svc *MockProjectService) {
				svc.On("Get", mock.Anything, pid, (*service.Actor)(nil)).Return(&model.Project{ID: pid, Title: "Smart Farm"}, nil)
				svc.On("RecordView", mock.Anything, mock.MatchedBy(func(in service.RecordViewInput) bool {
					return in.ProjectID == pid && in.ViewerID == nil && in.IP == "192.0.2.1"
				})).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "view recording failure still returns the project",
			user: &model.User{ID: uuid.New(), Role: model.RoleStudent},
			setup: func(svc *MockProjectService) {
				svc.On("Get", mock.Anything, pid, mock.AnythingOfType("*service.Actor")).Return(&model.Project{ID: pid}, nil)
				svc.On("RecordView", mock.Anything, mock.Anything).Return(assert.AnError)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "hidden project",
			setup: func(svc *MockProjectService) {
				svc.On("Get", mock.Anything, pid, (*service.Actor)(nil)).Return(nil, service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)
			h := NewProjectHandler(svc)
			r := setupRouter()
			r.GET("/projects/:project_id", withUser(tt.user), h.GetProject)

			req := httptest.NewRequest(http.MethodGet, "/projects/"+pid.String(), nil)
			req.RemoteAddr = "192.0.2.1:1234"
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}

	t.Run("bad id", func(t *testing.T) {
		h := NewProjectHandler(&MockProjectService{})
		r := setupRouter()
		r.GET("/projects/:project_id", h.GetProject)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjectHandler_CreateProject(t *testing.T) {
	me := &model.User{ID: uuid.New(), Role: model.RoleStudent}

	tests := []struct {
		name           string
		payload        string
		files          map[string][]byte
		setup          func(*MockProjectService)
		expectedStatus int
		check          func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "missing payload",
			files:          map[string][]byte{"poster:p.png": {1}},
			setup:          func(*MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "broken payload json",
			payload:        "{",
			setup:          func(*MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown file field",
			payload:        courseworkPayload,
			files:          map[string][]byte{"thumbnail:t.png": {1}},
			setup:          func(*MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "field errors are returned in data",
			payload: courseworkPayload,
			setup: func(svc *MockProjectService) {
				svc.On("Create", mock.Anything, mock.Anything).Return(nil, wizard.FieldErrors{"poster": "a poster image is required for coursework projects"})
			},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				out := decode[map[string]string](t, w)
				assert.Contains(t, out.Data, "poster")
			},
		},
		{
			name:    "rejected files are listed",
			payload: courseworkPayload,
			files:   map[string][]byte{"poster:p.pdf": []byte("%PDF-1.4")},
			setup: func(svc *MockProjectService) {
				svc.On("Create", mock.Anything, mock.Anything).Return(nil, &service.RejectedFilesError{
					Files: []*upload.RejectError{{Filename: "p.pdf", Reason: "expected a image file, got pdf"}},
				})
			},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				out := decode[[]upload.RejectError](t, w)
				require.Len(t, out.Data, 1)
				assert.Equal(t, "p.pdf", out.Data[0].Filename)
			},
		},
		{
			name:    "created",
			payload: courseworkPayload,
			files:   map[string][]byte{"poster:poster.png": pngBytes(t), "images:a.png": pngBytes(t)},
			setup: func(svc *MockProjectService) {
				svc.On("Create", mock.Anything, mock.MatchedBy(func(in service.SubmitInput) bool {
					return in.Actor.ID == me.ID &&
						in.Draft.Title == "Smart Farm" &&
						in.Draft.Type == model.TypeCoursework &&
						len(in.Files[wizard.SlotPoster]) == 1 &&
						len(in.Files[wizard.SlotImages]) == 1
				})).Return(&model.Project{ID: uuid.New(), Status: model.StatusPending}, nil)
			},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				out := decode[model.Project](t, w)
				assert.Equal(t, model.StatusPending, out.Data.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)
			h := NewProjectHandler(svc)
			r := setupRouter()
			r.POST("/projects", withUser(me), h.CreateProject)

			body, ct := multipartBody(t, tt.payload, tt.files)
			req := httptest.NewRequest(http.MethodPost, "/projects", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				tt.check(t, w)
			}
			svc.AssertExpectations(t)
		})
	}

	t.Run("json body is refused", func(t *testing.T) {
		h := NewProjectHandler(&MockProjectService{})
		r := setupRouter()
		r.POST("/projects", withUser(me), h.CreateProject)
		req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(courseworkPayload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjectHandler_UpdateAndDelete(t *testing.T) {
	me := &model.User{ID: uuid.New(), Role: model.RoleStudent}
	pid := uuid.New()
	svc := &MockProjectService{}
	h := NewProjectHandler(svc)
	r := setupRouter()
	r.PUT("/projects/:project_id", withUser(me), h.UpdateProject)
	r.DELETE("/projects/:project_id", withUser(me), h.DeleteProject)

	svc.On("Update", mock.Anything, pid, mock.Anything).Return(nil, service.ErrTypeChanged)
	body, ct := multipartBody(t, courseworkPayload, nil)
	req := httptest.NewRequest(http.MethodPut, "/projects/"+pid.String(), body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.On("Delete", mock.Anything, pid, service.Actor{ID: me.ID, Role: me.Role}).Return(service.ErrForbidden)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/projects/"+pid.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectHandler_ValidateDraft(t *testing.T) {
	me := &model.User{ID: uuid.New(), Role: model.RoleStudent}
	h := NewProjectHandler(&MockProjectService{})
	r := setupRouter()
	r.POST("/projects/validate", withUser(me), h.ValidateDraft)

	send := func(step, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/projects/validate?step="+step, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("media", courseworkPayload)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[ValidateDraftResp](t, w)
	assert.False(t, out.Data.Valid)
	assert.Contains(t, out.Data.Errors, "poster")

	withPoster := strings.TrimSuffix(courseworkPayload, "}") + `,"slots":["poster"]}`
	out = decode[ValidateDraftResp](t, send("media", withPoster))
	assert.True(t, out.Data.Valid)

	out = decode[ValidateDraftResp](t, send("basic", `{"title":""}`))
	assert.False(t, out.Data.Valid)
	assert.Contains(t, out.Data.Errors, "title")

	assert.Equal(t, http.StatusBadRequest, send("launch", courseworkPayload).Code)
}
