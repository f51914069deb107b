package handler

import (
	"errors"
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/paging"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/csi-showcase/showcase/internal/pkg/wizard"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actor returns the authenticated user set by the auth middleware.
func actor(c *gin.Context) service.Actor {
	u := c.MustGet("user").(*model.User)
	return service.Actor{ID: u.ID, Role: actingRole(c, u)}
}

// actingRole is the role u acts with on this request. The admin role only
// counts on routes guarded by the admin secret.
func actingRole(c *gin.Context, u *model.User) model.Role {
	if u.IsAdmin() && !c.GetBool("admin") {
		return model.RoleStudent
	}
	return u.Role
}

// optionalActor is actor for routes that also serve anonymous visitors.
func optionalActor(c *gin.Context) *service.Actor {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	u, ok := v.(*model.User)
	if !ok || u == nil {
		return nil
	}
	return &service.Actor{ID: u.ID, Role: actingRole(c, u)}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// writeErr maps service errors onto the response envelope.
func writeErr(c *gin.Context, err error) {
	var fe wizard.FieldErrors
	var rf *service.RejectedFilesError
	var re *upload.RejectError

	switch {
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, serializer.ValidationErr("", fe))
	case errors.As(err, &rf):
		c.JSON(http.StatusBadRequest, serializer.ValidationErr("some files were rejected", rf.Files))
	case errors.As(err, &re):
		c.JSON(http.StatusBadRequest, serializer.ValidationErr(re.Error(), []*upload.RejectError{re}))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("", err))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, serializer.ForbiddenErr(""))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(err.Error()))
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, serializer.ConflictErr(err.Error(), err))
	case errors.Is(err, service.ErrPosterProtected),
		errors.Is(err, service.ErrNoPrimaryImage),
		errors.Is(err, service.ErrRejectReasonRequired),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrTypeChanged),
		errors.Is(err, service.ErrUnknownContributor),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, model.ErrInvalidFileRef),
		errors.Is(err, paging.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, serializer.ParamErr(err.Error(), err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}
