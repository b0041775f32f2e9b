package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{svc: s}
}

type RegisterReq struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"s3cret!"`
}

type LoginReq struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier" example:"alice"`
	Username   string `json:"username" example:"alice"`
	Password   string `json:"password" example:"s3cret!"`
}

type UpdateProfileReq struct {
	Username *string `json:"username" example:"alice"`
	Email    *string `json:"email" example:"alice@example.com"`
}

type ChangePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type VerifyResp struct {
	Valid bool `json:"valid"`
	User  any  `json:"user"`
}

// Register godoc
//
//	@Summary		Register
//	@Description	Create a user together with their organization and a free subscription
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		handler.RegisterReq	true	"Register payload"
//	@Success		201		{object}	serializer.Response{data=service.AuthResult}
//	@Router			/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	req := RegisterReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out, Msg: "user created"})
}

// Login godoc
//
//	@Summary		Login
//	@Description	Exchange a username or email and password for a token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		handler.LoginReq	true	"Login payload"
//	@Success		200		{object}	serializer.Response{data=service.AuthResult}
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	req := LoginReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}

	out, err := h.svc.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		writeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Verify godoc
//
//	@Summary		Verify token
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.VerifyResp}
//	@Router			/auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: VerifyResp{Valid: true, User: u}})
}

// GetProfile godoc
//
//	@Summary		Get profile
//	@Description	Current user with their tenant
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.Profile(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// UpdateProfile godoc
//
//	@Summary		Update profile
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.UpdateProfileReq	true	"UpdateProfile payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	req := UpdateProfileReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.UpdateProfile(c.Request.Context(), u.ID, service.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ChangePassword godoc
//
//	@Summary		Change password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.ChangePasswordReq	true	"ChangePassword payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	req := ChangePasswordReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "password changed"})
}

// Logout godoc
//
//	@Summary		Logout
//	@Description	Revoke the presented token until it expires
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "logged out"})
}
