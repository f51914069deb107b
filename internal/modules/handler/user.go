package handler

import (
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{svc: s}
}

type SearchUsersReq struct {
	Query string `form:"q" json:"q" binding:"required" example:"som"`
	Limit int    `form:"limit,default=10" json:"limit" binding:"min=1,max=50" example:"10"`
}

// UserBrief is what the contributor picker needs to know about a user.
type UserBrief struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// SearchUsers godoc
//
//	@Summary		Search users
//	@Description	Look up registered users by username, name or e-mail for the contributor picker.
//	@Tags			search
//	@Produce		json
//	@Param			q		query	string	true	"Search text"
//	@Param			limit	query	integer	false	"Max results, default 10. Max 50."
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=[]handler.UserBrief}
//	@Router			/search/users [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	req := SearchUsersReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	users, err := h.svc.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]UserBrief, 0, len(users))
	for _, u := range users {
		out = append(out, UserBrief{ID: u.ID.String(), Username: u.Username, FullName: u.FullName, Email: u.Email})
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// UploadProfileImage godoc
//
//	@Summary		Upload profile image
//	@Tags			user
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/upload/profile-image [post]
func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("file is required", err))
		return
	}
	u, err := h.svc.SetProfileImage(c.Request.Context(), actor(c).ID, fh)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: u})
}

type ListUsersReq struct {
	Role     string `form:"role" json:"role" binding:"omitempty,oneof=student admin" enums:"student,admin"`
	Limit    int    `form:"limit,default=20" json:"limit" binding:"required,min=1,max=200" example:"20"`
	Cursor   string `form:"cursor" json:"cursor"`
	TimeDesc bool   `form:"time_desc,default=true" json:"time_desc" example:"true"`
}

// ListUsers godoc
//
//	@Summary		List users
//	@Tags			admin
//	@Produce		json
//	@Param			role		query	string	false	"Role filter"	Enums(student, admin)
//	@Param			limit		query	integer	false	"Limit of users to return, default 20. Max 200."
//	@Param			cursor		query	string	false	"Cursor for pagination"
//	@Param			time_desc	query	boolean	false	"Order by created_at descending if true (default true)"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=service.ListUsersOutput}
//	@Router			/admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	req := ListUsersReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	out, err := h.svc.List(c.Request.Context(), service.ListUsersInput{
		Role:     model.Role(req.Role),
		Limit:    req.Limit,
		Cursor:   req.Cursor,
		TimeDesc: req.TimeDesc,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateUser godoc
//
//	@Summary		Create user
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.CreateUserInput	true	"User"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		201	{object}	serializer.Response{data=model.User}
//	@Failure		409	{object}	serializer.Response
//	@Router			/admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	req := service.CreateUserInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: u})
}

// UpdateUser godoc
//
//	@Summary		Update user
//	@Description	Only the fields present in the body are changed.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			user_id	path	string					true	"User ID"	format(uuid)
//	@Param			payload	body	service.UpdateUserInput	true	"Fields to change"
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/admin/users/{user_id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	req := service.UpdateUserInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), userID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: u})
}

// DeleteUser godoc
//
//	@Summary		Delete user
//	@Description	Deletes the account and, by cascade, the projects it owns. Administrators cannot delete themselves.
//	@Tags			admin
//	@Produce		json
//	@Param			user_id	path	string	true	"User ID"	format(uuid)
//	@Security		CookieAuth
//	@Security		AdminSecret
//	@Success		200	{object}	serializer.Response{}
//	@Router			/admin/users/{user_id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	if userID == actor(c).ID {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("cannot delete your own account", nil))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}
