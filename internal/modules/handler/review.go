package handler

import (
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	svc service.ReviewService
}

func NewReviewHandler(s service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: s}
}

type ReviewReq struct {
	Status  string `json:"status" binding:"required,oneof=approved rejected" enums:"approved,rejected" example:"rejected"`
	Comment string `json:"comment" example:"Poster is missing the team members"`
}

// ReviewProject godoc
//
//	@Summary		Review project
//	@Description	Approve or reject a pending project. Rejection requires a comment. Approved and rejected are final.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			project_id	path	string				true	"Project ID"	format(uuid)
//	@Param			payload		body	handler.ReviewReq	true	"Decision"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=model.ProjectReview}
//	@Failure		409	{object}	serializer.Response
//	@Router			/admin/projects/{project_id}/review [post]
func (h *ReviewHandler) ReviewProject(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	req := ReviewReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	rv, err := h.svc.Review(c.Request.Context(), service.ReviewInput{
		ProjectID: projectID,
		AdminID:   actor(c).ID,
		Status:    model.ProjectStatus(req.Status),
		Comment:   req.Comment,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: rv})
}

// GetReviews godoc
//
//	@Summary		Review history
//	@Description	Review decisions for a project, oldest first. Visible to project members and administrators.
//	@Tags			project
//	@Produce		json
//	@Param			project_id	path	string	true	"Project ID"	format(uuid)
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=[]model.ProjectReview}
//	@Router			/projects/{project_id}/reviews [get]
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	items, err := h.svc.History(c.Request.Context(), projectID, actor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}
