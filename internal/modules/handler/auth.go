package handler

import (
	"net/http"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/gin-gonic/gin"
)

type CookieOptions struct {
	Name   string
	Secure bool
	// MaxAge is the cookie lifetime in seconds.
	MaxAge int
}

type AuthHandler struct {
	svc    service.AuthService
	cookie CookieOptions
}

func NewAuthHandler(s service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{svc: s, cookie: cookie}
}

type LoginReq struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"correct horse"`
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Authenticate with username or e-mail. The token is returned and also set as an HTTP-only cookie. Every attempt is written to the login log.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		handler.LoginReq	true	"Login payload"
//	@Success		200		{object}	serializer.Response{data=service.LoginOutput}
//	@Failure		401		{object}	serializer.Response
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	req := LoginReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.Login(c.Request.Context(), service.LoginInput{
		Login:     req.Username,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeErr(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, out.Token, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Logout godoc
//
//	@Summary		Log out
//	@Description	Clear the auth cookie.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	serializer.Response{}
//	@Router			/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, serializer.Response{})
}

// Me godoc
//
//	@Summary		Current user
//	@Tags			auth
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	u := c.MustGet("user").(*model.User)
	c.JSON(http.StatusOK, serializer.Response{Data: u})
}
