package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

type ListProjectsReq struct {
	Type      string `form:"type" json:"type" binding:"omitempty,oneof=coursework academic competition" enums:"coursework,academic,competition"`
	Status    string `form:"status" json:"status" binding:"omitempty,oneof=pending approved rejected" enums:"pending,approved,rejected"`
	Year      int    `form:"year" json:"year" binding:"omitempty,min=2000,max=2100" example:"2024"`
	StudyYear int    `form:"study_year" json:"study_year" binding:"omitempty,min=1,max=8" example:"3"`
	Query     string `form:"q" json:"q" example:"robot"`
	Limit     int    `form:"limit,default=20" json:"limit" binding:"required,min=1,max=200" example:"20"`
	Cursor    string `form:"cursor" json:"cursor" example:"cHJvdGVjdGVkIHZlcnNpb24gdG8gYmUgZXhjbHVkZWQgaW4gcGFyc2luZyB0aGUgY3Vyc29y"`
	TimeDesc  bool   `form:"time_desc,default=true" json:"time_desc" example:"true"`
}

func (r ListProjectsReq) input(scope service.ListScope) service.ListProjectsInput {
	return service.ListProjectsInput{
		Scope:     scope,
		Status:    model.ProjectStatus(r.Status),
		Type:      model.ProjectType(r.Type),
		Year:      r.Year,
		StudyYear: r.StudyYear,
		Query:     r.Query,
		Limit:     r.Limit,
		Cursor:    r.Cursor,
		TimeDesc:  r.TimeDesc,
	}
}

func (h *ProjectHandler) list(c *gin.Context, in service.ListProjectsInput) {
	out, err := h.svc.List(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListProjects godoc
//
//	@Summary		List published projects
//	@Description	Public gallery: approved, public projects, newest first by default.
//	@Tags			project
//	@Produce		json
//	@Param			type		query	string	false	"Project type"	Enums(coursework, academic, competition)
//	@Param			year		query	integer	false	"Academic year"
//	@Param			study_year	query	integer	false	"Study year of the students"
//	@Param			q			query	string	false	"Free-text search on title and description"
//	@Param			limit		query	integer	false	"Limit of projects to return, default 20. Max 200."
//	@Param			cursor		query	string	false	"Cursor for pagination. Use the cursor from the previous response to get the next page."
//	@Param			time_desc	query	boolean	false	"Order by created_at descending if true (default true)"
//	@Success		200	{object}	serializer.Response{data=service.ListProjectsOutput}
//	@Router			/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	h.list(c, req.input(service.ScopePublic))
}

// SearchProjects godoc
//
//	@Summary		Search published projects
//	@Tags			search
//	@Produce		json
//	@Param			q		query	string	true	"Search text"
//	@Param			type	query	string	false	"Project type"	Enums(coursework, academic, competition)
//	@Param			year	query	integer	false	"Academic year"
//	@Param			limit	query	integer	false	"Limit of projects to return, default 20. Max 200."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Success		200	{object}	serializer.Response{data=service.ListProjectsOutput}
//	@Router			/search/projects [get]
func (h *ProjectHandler) SearchProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("q is required", nil))
		return
	}
	h.list(c, req.input(service.ScopePublic))
}

// ListMyProjects godoc
//
//	@Summary		List my projects
//	@Description	Projects the current user owns or contributes to, in any status.
//	@Tags			project
//	@Produce		json
//	@Param			status	query	string	false	"Status filter"	Enums(pending, approved, rejected)
//	@Param			limit	query	integer	false	"Limit of projects to return, default 20. Max 200."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=service.ListProjectsOutput}
//	@Router			/projects/mine [get]
func (h *ProjectHandler) ListMyProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	in := req.input(service.ScopeMine)
	in.ActorID = actor(c).ID
	h.list(c, in)
}

// AdminListProjects godoc
//
//	@Summary		List all projects
//	@Description	Every project regardless of status or visibility. Filter by status=pending for the review queue.
//	@Tags			admin
//	@Produce		json
//	@Param			status	query	string	false	"Status filter"	Enums(pending, approved, rejected)
//	@Param			type	query	string	false	"Project type"	Enums(coursework, academic, competition)
//	@Param			q		query	string	false	"Free-text search"
//	@Param			limit	query	integer	false	"Limit of projects to return, default 20. Max 200."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.ListProjectsOutput}
//	@Router			/admin/projects [get]
func (h *ProjectHandler) AdminListProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	h.list(c, req.input(service.ScopeAll))
}

// GetProject godoc
//
//	@Summary		Get project
//	@Description	Project detail with its type-specific record and files. Unpublished projects are only visible to their members and administrators. Each visit is recorded once per client address per hour.
//	@Tags			project
//	@Produce		json
//	@Param			project_id	path	string	true	"Project ID"	format(uuid)
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Failure		404	{object}	serializer.Response
//	@Router			/projects/{project_id} [get]
//	@Router			/admin/projects/{project_id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}

	a := optionalActor(c)
	p, err := h.svc.Get(c.Request.Context(), projectID, a)
	if err != nil {
		writeErr(c, err)
		return
	}

	in := service.RecordViewInput{ProjectID: p.ID, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	if a != nil {
		in.ViewerID = &a.ID
	}
	if err := h.svc.RecordView(c.Request.Context(), in); err != nil {
		_ = c.Error(fmt.Errorf("record view: %w", err))
	}

	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// CreateProject godoc
//
//	@Summary		Submit project
//	@Description	multipart/form-data: the project JSON goes in the "payload" field; files go in poster, paper, primary_image, images, videos and attachments. Academic projects need a PDF paper; coursework and competition projects need a poster image. New projects start pending.
//	@Tags			project
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			payload			formData	string	true	"wizard.Draft as JSON"
//	@Param			poster			formData	file	false	"Poster image"
//	@Param			paper			formData	file	false	"Paper PDF"
//	@Param			primary_image	formData	file	false	"Coursework cover image"
//	@Param			images			formData	file	false	"Additional images (repeatable)"
//	@Param			videos			formData	file	false	"Videos (repeatable)"
//	@Param			attachments		formData	file	false	"PDF attachments (repeatable)"
//	@Security		CookieAuth
//	@Success		201	{object}	serializer.Response{data=model.Project}
//	@Failure		400	{object}	serializer.Response
//	@Router			/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	d, files, err := bindSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), service.SubmitInput{Actor: actor(c), Draft: d, Files: files})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: p})
}

// UpdateProject godoc
//
//	@Summary		Update project
//	@Description	Same multipart contract as submission. A file sent for poster, paper or primary_image replaces the stored one; other files are appended. The project type cannot change.
//	@Tags			project
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			project_id		path		string	true	"Project ID"	format(uuid)
//	@Param			payload			formData	string	true	"wizard.Draft as JSON"
//	@Param			poster			formData	file	false	"Replacement poster image"
//	@Param			paper			formData	file	false	"Replacement paper PDF"
//	@Param			primary_image	formData	file	false	"Replacement cover image"
//	@Param			images			formData	file	false	"Additional images (repeatable)"
//	@Param			videos			formData	file	false	"Videos (repeatable)"
//	@Param			attachments		formData	file	false	"PDF attachments (repeatable)"
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/projects/{project_id} [put]
//	@Router			/admin/projects/{project_id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	d, files, err := bindSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, err := h.svc.Update(c.Request.Context(), projectID, service.SubmitInput{Actor: actor(c), Draft: d, Files: files})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Description	Removes the project with its files, views and reviews. Owner or administrator only.
//	@Tags			project
//	@Produce		json
//	@Param			project_id	path	string	true	"Project ID"	format(uuid)
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/projects/{project_id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), projectID, actor(c)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type ValidateDraftReq struct {
	wizard.Draft
	// Slots lists the file fields that currently hold a file.
	Slots []wizard.Slot `json:"slots"`
}

type ValidateDraftResp struct {
	Step   string             `json:"step"`
	Valid  bool               `json:"valid"`
	Errors wizard.FieldErrors `json:"errors,omitempty"`
}

// ValidateDraft godoc
//
//	@Summary		Validate a wizard step
//	@Description	Runs the same checks the submission applies, scoped to one step: basic, details, contributors, media or review (all steps).
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			step	query	string					true	"Wizard step"	Enums(basic, details, contributors, media, review)
//	@Param			payload	body	handler.ValidateDraftReq	true	"Draft"
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=handler.ValidateDraftResp}
//	@Router			/projects/validate [post]
func (h *ProjectHandler) ValidateDraft(c *gin.Context) {
	step, err := wizard.ParseStep(c.DefaultQuery("step", "review"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	req := ValidateDraftReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	present := make(map[wizard.Slot]bool, len(req.Slots))
	for _, s := range req.Slots {
		present[s] = true
	}
	d := req.Draft
	d.Normalize()
	errs := wizard.ValidateStep(&d, step, actor(c).ID, func(s wizard.Slot) bool { return present[s] })

	c.JSON(http.StatusOK, serializer.Response{Data: ValidateDraftResp{
		Step:   step.String(),
		Valid:  len(errs) == 0,
		Errors: errs,
	}})
}

// bindSubmission decodes the multipart submission contract.
func bindSubmission(c *gin.Context) (wizard.Draft, map[wizard.Slot][]*multipart.FileHeader, error) {
	var d wizard.Draft
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return d, nil, errors.New("expected multipart/form-data")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return d, nil, err
	}

	payload := form.Value["payload"]
	if len(payload) == 0 || payload[0] == "" {
		return d, nil, errors.New("payload field is required")
	}
	if err := sonic.UnmarshalString(payload[0], &d); err != nil {
		return d, nil, fmt.Errorf("invalid payload json: %w", err)
	}

	files := make(map[wizard.Slot][]*multipart.FileHeader)
	for field, fhs := range form.File {
		slot := wizard.Slot(field)
		if !slot.Valid() {
			return d, nil, fmt.Errorf("unknown file field %q", field)
		}
		files[slot] = fhs
	}
	return d, files, nil
}
