package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

// SyncHandler serves cloud-drive sync and third-party integrations.
type SyncHandler struct {
	cloud        service.CloudSyncService
	integrations service.IntegrationService
}

func NewSyncHandler(cloud service.CloudSyncService, integrations service.IntegrationService) *SyncHandler {
	return &SyncHandler{cloud: cloud, integrations: integrations}
}

type CallbackReq struct {
	Code  string `form:"code" json:"code"`
	State string `form:"state" json:"state"`
}

type ObsidianExportReq struct {
	VaultPath string `json:"vault_path" example:"Lex Flow"`
}

// CloudProviders godoc
//
//	@Summary		List cloud providers
//	@Tags			cloud-sync
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]service.CloudProvider}
//	@Router			/cloud-sync/providers [get]
func (h *SyncHandler) CloudProviders(c *gin.Context) {
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"providers": h.cloud.Providers()}})
}

// Connect godoc
//
//	@Summary		Start provider authorization
//	@Tags			cloud-sync
//	@Produce		json
//	@Param			provider	path	string	true	"google_drive, dropbox or onedrive"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]string}
//	@Router			/cloud-sync/connect/{provider} [post]
func (h *SyncHandler) Connect(c *gin.Context) {
	provider := c.Param("provider")
	link, err := h.cloud.Connect(provider)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"auth_url": link, "provider": provider}})
}

// Callback godoc
//
//	@Summary		Provider authorization callback
//	@Description	Trades the authorization code for tokens; the client stores them through save-connection
//	@Tags			cloud-sync
//	@Produce		json
//	@Param			provider	path	string	true	"google_drive, dropbox or onedrive"
//	@Param			code		query	string	true	"Authorization code"
//	@Success		200	{object}	serializer.Response{data=map[string]any}
//	@Router			/cloud-sync/{provider}/callback [get]
//	@Router			/cloud-sync/{provider}/callback [post]
func (h *SyncHandler) Callback(c *gin.Context) {
	req := CallbackReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("authorization code is required", nil))
		return
	}
	provider := c.Param("provider")
	tok, err := h.cloud.Callback(c.Request.Context(), provider, req.Code)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{
		"provider":         provider,
		"access_token":     tok.AccessToken,
		"refresh_token":    tok.RefreshToken,
		"expires_in":       tok.ExpiresIn,
		"provider_user_id": tok.AccountID,
	}})
}

// SaveConnection godoc
//
//	@Summary		Save provider connection
//	@Tags			cloud-sync
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.SaveConnectionInput	true	"Connection payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.CloudSync}
//	@Router			/cloud-sync/save-connection [post]
func (h *SyncHandler) SaveConnection(c *gin.Context) {
	req := service.SaveConnectionInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.cloud.SaveConnection(c.Request.Context(), u.ID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out, Msg: "connection saved"})
}

// Connections godoc
//
//	@Summary		List connections
//	@Tags			cloud-sync
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.CloudSync}
//	@Router			/cloud-sync/connections [get]
func (h *SyncHandler) Connections(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.cloud.Connections(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Sync godoc
//
//	@Summary		Sync to provider
//	@Description	Upload tasks, projects, notes and settings into the Lex Flow folder
//	@Tags			cloud-sync
//	@Produce		json
//	@Param			provider	path	string	true	"google_drive, dropbox or onedrive"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.SyncResult}
//	@Router			/cloud-sync/sync/{provider} [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.cloud.Sync(c.Request.Context(), u.ID, c.Param("provider"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// Disconnect godoc
//
//	@Summary		Disconnect provider
//	@Tags			cloud-sync
//	@Produce		json
//	@Param			provider	path	string	true	"google_drive, dropbox or onedrive"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/cloud-sync/disconnect/{provider} [delete]
func (h *SyncHandler) Disconnect(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.cloud.Disconnect(c.Request.Context(), u.ID, c.Param("provider")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "provider disconnected"})
}

// SyncStatus godoc
//
//	@Summary		Sync status
//	@Tags			cloud-sync
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.SyncStatusSummary}
//	@Router			/cloud-sync/sync-status [get]
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.cloud.Status(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetIntegrations godoc
//
//	@Summary		Integration settings
//	@Description	Credentials are obfuscated
//	@Tags			integrations
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.IntegrationConfig}
//	@Router			/integrations [get]
func (h *SyncHandler) GetIntegrations(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.integrations.Get(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SaveIntegrations godoc
//
//	@Summary		Save integration settings
//	@Description	Obfuscated credential values keep the stored secret
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.IntegrationConfig	true	"Integration payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/integrations/config [post]
func (h *SyncHandler) SaveIntegrations(c *gin.Context) {
	req := service.IntegrationConfig{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.integrations.SaveConfig(c.Request.Context(), u.ID, req); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "settings saved"})
}

// TestConnections godoc
//
//	@Summary		Test integration credentials
//	@Tags			integrations
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]service.ConnectionStatus}
//	@Router			/integrations/test-connections [get]
func (h *SyncHandler) TestConnections(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.integrations.TestConnections(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"connections": out}})
}

// SyncTasks godoc
//
//	@Summary		Push pending tasks
//	@Description	Create issues, cards, pages or objects for pending tasks on each configured service
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	map[string]string	false	"Sync targets for this run"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.TaskSyncResult}
//	@Router			/integrations/sync/tasks [post]
func (h *SyncHandler) SyncTasks(c *gin.Context) {
	targets := map[string]string{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&targets); err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.integrations.SyncTasks(c.Request.Context(), u.ID, targets)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ObsidianExport godoc
//
//	@Summary		Export notes to Obsidian
//	@Tags			integrations
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.ObsidianExportReq	true	"Vault path relative to the export root"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]int}
//	@Router			/integrations/obsidian/export [post]
func (h *SyncHandler) ObsidianExport(c *gin.Context) {
	req := ObsidianExportReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.integrations.ObsidianExport(c.Request.Context(), u.ID, req.VaultPath)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"exported_count": n}})
}
