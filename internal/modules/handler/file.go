package handler

import (
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	svc service.FileService
}

func NewFileHandler(s service.FileService) *FileHandler {
	return &FileHandler{svc: s}
}

// DeleteFile godoc
//
//	@Summary		Delete project file
//	@Description	Delete one file by id, by stored path, or clear the coursework primary-image slot. Posters and academic papers cannot be deleted; upload a replacement instead.
//	@Tags			file
//	@Accept			json
//	@Produce		json
//	@Param			project_id	path	string			true	"Project ID"	format(uuid)
//	@Param			payload		body	model.FileRef	true	"File reference"
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{}
//	@Failure		400	{object}	serializer.Response
//	@Router			/projects/{project_id}/files [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	ref := model.FileRef{}
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), projectID, actor(c), ref); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// DownloadFile godoc
//
//	@Summary		File download link
//	@Description	Presign a short-lived download URL for one project file. Files of unpublished projects are visible to members and administrators only.
//	@Tags			file
//	@Produce		json
//	@Param			project_id	path	string	true	"Project ID"	format(uuid)
//	@Param			file_id		path	string	true	"File ID"		format(uuid)
//	@Success		200	{object}	serializer.Response{data=service.DownloadLink}
//	@Failure		404	{object}	serializer.Response
//	@Router			/projects/{project_id}/files/{file_id}/download [get]
func (h *FileHandler) DownloadFile(c *gin.Context) {
	projectID, ok := pathUUID(c, "project_id")
	if !ok {
		return
	}
	fileID, ok := pathUUID(c, "file_id")
	if !ok {
		return
	}

	link, err := h.svc.DownloadURL(c.Request.Context(), projectID, fileID, optionalActor(c))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: link})
}
