package httpclient

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
)

const myProjectsPath = "/projects/mine"

// Local refusals; no request is sent.
var (
	ErrPosterProtected      = errors.New("poster and paper files cannot be deleted, upload a replacement instead")
	ErrRejectReasonRequired = errors.New("a comment is required when rejecting a project")
)

type ProjectQuery struct {
	Type      model.ProjectType
	Status    model.ProjectStatus
	Year      int
	StudyYear int
	Q         string
	Limit     int
	Cursor    string
}

func (q ProjectQuery) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Year > 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if q.StudyYear > 0 {
		v.Set("study_year", strconv.Itoa(q.StudyYear))
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	return v
}

// Login stores the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*service.LoginOutput, error) {
	var out service.LoginOutput
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	c.cache.Clear()
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.sendJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetToken("")
	c.cache.Clear()
	return err
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.getFresh(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListProjects(ctx context.Context, q ProjectQuery) (*service.ListProjectsOutput, error) {
	var out service.ListProjectsOutput
	if err := c.get(ctx, "/projects", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyProjects(ctx context.Context, q ProjectQuery) (*service.ListProjectsOutput, error) {
	var out service.ListProjectsOutput
	if err := c.get(ctx, myProjectsPath, q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminListProjects(ctx context.Context, q ProjectQuery) (*service.ListProjectsOutput, error) {
	var out service.ListProjectsOutput
	if err := c.get(ctx, "/admin/projects", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject is never cached: every call counts as a view.
func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := c.getFresh(ctx, "/projects/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type UserBrief struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

// SearchUsers feeds the contributor picker.
func (c *Client) SearchUsers(ctx context.Context, q string, limit int) ([]UserBrief, error) {
	v := url.Values{"q": {q}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out []UserBrief
	if err := c.get(ctx, "/search/users", v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitProject validates every wizard step locally and sends nothing when
// that fails. On success the cached "my projects" listing is dropped.
func (c *Client) SubmitProject(ctx context.Context, w *wizard.Wizard) (*model.Project, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	p, err := c.sendWizard(ctx, http.MethodPost, "/projects", w)
	if err != nil {
		return nil, err
	}
	c.cache.ClearByURL(myProjectsPath)
	return p, nil
}

// UpdateProject re-validates the form steps; required files may already be
// stored on the server, so the media step is left to it.
func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, w *wizard.Wizard, ownerID uuid.UUID) (*model.Project, error) {
	errs := wizard.FieldErrors{}
	for _, step := range []wizard.Step{wizard.StepBasic, wizard.StepDetails, wizard.StepContributors} {
		for k, v := range wizard.ValidateStep(&w.Draft, step, ownerID, w.Has) {
			errs[k] = v
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	p, err := c.sendWizard(ctx, http.MethodPut, "/projects/"+id.String(), w)
	if err != nil {
		return nil, err
	}
	c.cache.ClearByURL(myProjectsPath)
	return p, nil
}

func (c *Client) sendWizard(ctx context.Context, method, path string, w *wizard.Wizard) (*model.Project, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := w.WriteMultipart(mw); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{method: method, path: path, body: &buf, contentType: mw.FormDataContentType()})
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := c.decode(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := c.sendJSON(ctx, http.MethodDelete, "/projects/"+id.String(), nil, nil); err != nil {
		return err
	}
	c.cache.ClearByURL(myProjectsPath)
	return nil
}

// DeleteProjectFile refuses poster and paper references locally before
// asking the server.
func (c *Client) DeleteProjectFile(ctx context.Context, p *model.Project, ref model.FileRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	switch ref.Kind {
	case model.FileRefByPath:
		if p.IsProtectedPath(ref.FilePath) {
			return ErrPosterProtected
		}
	case model.FileRefByID:
		for _, f := range p.Files {
			if f.ID == *ref.FileID && p.IsProtectedPath(f.FilePath) {
				return ErrPosterProtected
			}
		}
	}
	return c.sendJSON(ctx, http.MethodDelete, "/projects/"+p.ID.String()+"/files", ref, nil)
}

func (c *Client) ReviewProject(ctx context.Context, id uuid.UUID, status model.ProjectStatus, comment string) (*model.ProjectReview, error) {
	if status == model.StatusRejected && strings.TrimSpace(comment) == "" {
		return nil, ErrRejectReasonRequired
	}
	var out model.ProjectReview
	err := c.sendJSON(ctx, http.MethodPost, "/admin/projects/"+id.String()+"/review", map[string]string{
		"status":  string(status),
		"comment": comment,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.cache.ClearByURL("/admin/projects")
	c.cache.ClearByURL("/admin/stats/dashboard")
	return &out, nil
}

func (c *Client) ReviewHistory(ctx context.Context, id uuid.UUID) ([]model.ProjectReview, error) {
	var out []model.ProjectReview
	if err := c.getFresh(ctx, "/projects/"+id.String()+"/reviews", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	var out service.Dashboard
	if err := c.get(ctx, "/admin/stats/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
