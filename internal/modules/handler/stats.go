package handler

import (
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StatsHandler struct {
	svc service.StatsService
}

func NewStatsHandler(s service.StatsService) *StatsHandler {
	return &StatsHandler{svc: s}
}

type ListLogsReq struct {
	ProjectID string `form:"project_id" json:"project_id" format:"uuid"`
	Limit     int    `form:"limit,default=50" json:"limit" binding:"required,min=1,max=500" example:"50"`
	Cursor    string `form:"cursor" json:"cursor"`
}

func (r ListLogsReq) input() (service.ListLogsInput, error) {
	in := service.ListLogsInput{Limit: r.Limit, Cursor: r.Cursor}
	if r.ProjectID != "" {
		id, err := uuid.Parse(r.ProjectID)
		if err != nil {
			return in, err
		}
		in.ProjectID = &id
	}
	return in, nil
}

func bindLogs(c *gin.Context) (service.ListLogsInput, bool) {
	req := ListLogsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return service.ListLogsInput{}, false
	}
	in, err := req.input()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project_id", err))
		return in, false
	}
	return in, true
}

// GetDashboard godoc
//
//	@Summary		Dashboard statistics
//	@Description	Totals, projects per status and type, daily views and logins for the last 30 days, most viewed projects. Cached for a few minutes.
//	@Tags			admin
//	@Produce		json
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.Dashboard}
//	@Router			/admin/stats/dashboard [get]
func (h *StatsHandler) GetDashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: d})
}

// GetLoginLogs godoc
//
//	@Summary		Login log
//	@Description	Login attempts, newest first.
//	@Tags			admin
//	@Produce		json
//	@Param			limit	query	integer	false	"Limit, default 50. Max 500."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.ListLogsOutput[model.LoginLog]}
//	@Router			/admin/logs/login [get]
func (h *StatsHandler) GetLoginLogs(c *gin.Context) {
	in, ok := bindLogs(c)
	if !ok {
		return
	}
	out, err := h.svc.ListLogins(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetVisitorLogs godoc
//
//	@Summary		Visitor log
//	@Description	Project views, newest first, optionally for one project.
//	@Tags			admin
//	@Produce		json
//	@Param			project_id	query	string	false	"Project ID"	format(uuid)
//	@Param			limit		query	integer	false	"Limit, default 50. Max 500."
//	@Param			cursor		query	string	false	"Cursor for pagination"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.ListLogsOutput[model.VisitorView]}
//	@Router			/admin/logs/visitors [get]
func (h *StatsHandler) GetVisitorLogs(c *gin.Context) {
	in, ok := bindLogs(c)
	if !ok {
		return
	}
	out, err := h.svc.ListViews(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetReviewLogs godoc
//
//	@Summary		Review log
//	@Description	Review decisions across all projects, newest first.
//	@Tags			admin
//	@Produce		json
//	@Param			limit	query	integer	false	"Limit, default 50. Max 500."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.ListLogsOutput[model.ProjectReview]}
//	@Router			/admin/logs/reviews [get]
func (h *StatsHandler) GetReviewLogs(c *gin.Context) {
	in, ok := bindLogs(c)
	if !ok {
		return
	}
	out, err := h.svc.ListReviews(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
