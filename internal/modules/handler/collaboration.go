package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

type CollaborationHandler struct {
	svc service.CollaborationService
}

func NewCollaborationHandler(s service.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{svc: s}
}

type InviteReq struct {
	Email string `json:"email" example:"bob@example.com"`
}

type CommentReq struct {
	Content         string     `json:"content"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id" swaggertype:"string" format:"uuid"`
}

type UpdateCommentReq struct {
	Content string `json:"content"`
}

type ListActivityReq struct {
	Limit  int    `form:"limit,default=20" json:"limit" binding:"min=1,max=100" example:"20"`
	Cursor string `form:"cursor" json:"cursor"`
}

// Invite godoc
//
//	@Summary		Invite collaborator
//	@Description	Invite a user of the same organization by email; owner only
//	@Tags			collaboration
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	Format(uuid)
//	@Param			payload	body	handler.InviteReq	true	"Invite payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.ProjectCollaborator}
//	@Router			/collaboration/projects/{id}/invite [post]
func (h *CollaborationHandler) Invite(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := InviteReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.Invite(c.Request.Context(), u, projectID, req.Email)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out, Msg: "invitation sent"})
}

// AcceptInvitation godoc
//
//	@Summary		Accept invitation
//	@Tags			collaboration
//	@Produce		json
//	@Param			id	path	string	true	"Invitation ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.ProjectCollaborator}
//	@Router			/collaboration/invitations/{id}/accept [post]
func (h *CollaborationHandler) AcceptInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.AcceptInvitation(c.Request.Context(), u, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListInvitations godoc
//
//	@Summary		List pending invitations
//	@Tags			collaboration
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.ProjectCollaborator}
//	@Router			/collaboration/invitations [get]
func (h *CollaborationHandler) ListInvitations(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.ListInvitations(c.Request.Context(), u)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListCollaborators godoc
//
//	@Summary		List collaborators
//	@Tags			collaboration
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.ProjectCollaborator}
//	@Router			/collaboration/projects/{id}/collaborators [get]
func (h *CollaborationHandler) ListCollaborators(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.ListCollaborators(c.Request.Context(), u, projectID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// RemoveCollaborator godoc
//
//	@Summary		Remove collaborator
//	@Tags			collaboration
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"		Format(uuid)
//	@Param			cid	path	string	true	"Collaborator ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/collaboration/projects/{id}/collaborators/{cid} [delete]
func (h *CollaborationHandler) RemoveCollaborator(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	collaboratorID, ok := pathID(c, "cid")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveCollaborator(c.Request.Context(), u, projectID, collaboratorID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "collaborator removed"})
}

// ListComments godoc
//
//	@Summary		List task comments
//	@Tags			comment
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Param			tid	path	string	true	"Task ID"		Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Comment}
//	@Router			/collaboration/projects/{id}/tasks/{tid}/comments [get]
func (h *CollaborationHandler) ListComments(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "tid")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.ListComments(c.Request.Context(), u, projectID, taskID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// AddComment godoc
//
//	@Summary		Add task comment
//	@Tags			comment
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	Format(uuid)
//	@Param			tid		path	string				true	"Task ID"		Format(uuid)
//	@Param			payload	body	handler.CommentReq	true	"Comment payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Comment}
//	@Router			/collaboration/projects/{id}/tasks/{tid}/comments [post]
func (h *CollaborationHandler) AddComment(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "tid")
	if !ok {
		return
	}
	req := CommentReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.AddComment(c.Request.Context(), u, projectID, taskID, service.CreateCommentInput{
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// UpdateComment godoc
//
//	@Summary		Edit comment
//	@Tags			comment
//	@Accept			json
//	@Produce		json
//	@Param			cid		path	string						true	"Comment ID"	Format(uuid)
//	@Param			payload	body	handler.UpdateCommentReq	true	"UpdateComment payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Comment}
//	@Router			/collaboration/comments/{cid} [put]
func (h *CollaborationHandler) UpdateComment(c *gin.Context) {
	id, ok := pathID(c, "cid")
	if !ok {
		return
	}
	req := UpdateCommentReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.UpdateComment(c.Request.Context(), u, id, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// DeleteComment godoc
//
//	@Summary		Delete comment
//	@Tags			comment
//	@Produce		json
//	@Param			cid	path	string	true	"Comment ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/collaboration/comments/{cid} [delete]
func (h *CollaborationHandler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "cid")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), u, id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "comment deleted"})
}

// ListActivity godoc
//
//	@Summary		List project activity
//	@Tags			collaboration
//	@Produce		json
//	@Param			id		path	string	true	"Project ID"	Format(uuid)
//	@Param			limit	query	integer	false	"Limit of entries to return, default 20. Max 100."
//	@Param			cursor	query	string	false	"Cursor from the previous page"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ListActivityOutput}
//	@Router			/collaboration/projects/{id}/activity [get]
func (h *CollaborationHandler) ListActivity(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := ListActivityReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.ListActivity(c.Request.Context(), u, projectID, req.Cursor, req.Limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateSharedLink godoc
//
//	@Summary		Share project
//	@Description	Create a public link to a read-only project snapshot; owner only
//	@Tags			collaboration
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Project ID"	Format(uuid)
//	@Param			payload	body	service.SharedLinkInput	false	"SharedLink payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.SharedLink}
//	@Router			/collaboration/projects/{id}/share [post]
func (h *CollaborationHandler) CreateSharedLink(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := service.SharedLinkInput{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.CreateSharedLink(c.Request.Context(), u, projectID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// OpenSharedLink godoc
//
//	@Summary		Open shared link
//	@Tags			collaboration
//	@Produce		json
//	@Param			token	path	string	true	"Shared link token"
//	@Success		200	{object}	serializer.Response{data=service.SharedProject}
//	@Router			/collaboration/shared/{token} [get]
func (h *CollaborationHandler) OpenSharedLink(c *gin.Context) {
	out, err := h.svc.OpenSharedLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListNotifications godoc
//
//	@Summary		List notifications
//	@Description	Caller notifications, unread first
//	@Tags			notification
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Notification}
//	@Router			/collaboration/notifications [get]
func (h *CollaborationHandler) ListNotifications(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.ListNotifications(c.Request.Context(), u)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// MarkNotificationRead godoc
//
//	@Summary		Mark notification read
//	@Tags			notification
//	@Produce		json
//	@Param			nid	path	string	true	"Notification ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/collaboration/notifications/{nid}/read [post]
func (h *CollaborationHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "nid")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(c.Request.Context(), u, id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "notification marked as read"})
}
