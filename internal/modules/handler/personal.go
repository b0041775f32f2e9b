package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

// PersonalHandler serves the single-user tools: quick notes, pomodoro,
// gamification and study videos.
type PersonalHandler struct {
	notes    service.QuickNoteService
	pomodoro service.PomodoroService
	gamif    service.GamificationService
	videos   service.StudyVideoService
}

func NewPersonalHandler(notes service.QuickNoteService, pomodoro service.PomodoroService, gamif service.GamificationService, videos service.StudyVideoService) *PersonalHandler {
	return &PersonalHandler{notes: notes, pomodoro: pomodoro, gamif: gamif, videos: videos}
}

type CreateQuickNoteReq struct {
	Content  string   `json:"content" example:"Review tort law outline"`
	Category string   `json:"category" example:"general"`
	Tags     []string `json:"tags"`
}

// ListQuickNotes godoc
//
//	@Summary		List quick notes
//	@Tags			quicknote
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.QuickNote}
//	@Router			/quicknotes [get]
func (h *PersonalHandler) ListQuickNotes(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.notes.List(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateQuickNote godoc
//
//	@Summary		Create quick note
//	@Tags			quicknote
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateQuickNoteReq	true	"CreateQuickNote payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.QuickNote}
//	@Router			/quicknotes [post]
func (h *PersonalHandler) CreateQuickNote(c *gin.Context) {
	req := CreateQuickNoteReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.notes.Create(c.Request.Context(), u.ID, service.CreateQuickNoteInput{
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// DeleteQuickNote godoc
//
//	@Summary		Delete quick note
//	@Tags			quicknote
//	@Produce		json
//	@Param			id	path	string	true	"Note ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/quicknotes/{id} [delete]
func (h *PersonalHandler) DeleteQuickNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), u.ID, id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "note deleted"})
}

// ConvertQuickNote godoc
//
//	@Summary		Convert quick note to task
//	@Description	Moves the note into the Inbox project, or the first owned project
//	@Tags			quicknote
//	@Produce		json
//	@Param			id	path	string	true	"Note ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Task}
//	@Router			/quicknotes/{id}/convert-to-task [post]
func (h *PersonalHandler) ConvertQuickNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.notes.ConvertToTask(c.Request.Context(), u.ID, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// GetPomodoro godoc
//
//	@Summary		Get pomodoro settings and stats
//	@Tags			pomodoro
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.PomodoroState}
//	@Router			/pomodoro [get]
func (h *PersonalHandler) GetPomodoro(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.pomodoro.Get(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// UpdatePomodoroSettings godoc
//
//	@Summary		Update pomodoro settings
//	@Tags			pomodoro
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.PomodoroSettingsInput	true	"Settings payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.PomodoroSettings}
//	@Router			/pomodoro/settings [post]
func (h *PersonalHandler) UpdatePomodoroSettings(c *gin.Context) {
	req := service.PomodoroSettingsInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.pomodoro.UpdateSettings(c.Request.Context(), u.ID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// LogPomodoroSession godoc
//
//	@Summary		Log a focus session
//	@Tags			pomodoro
//	@Produce		json
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.PomodoroSession}
//	@Router			/pomodoro/log-session [post]
func (h *PersonalHandler) LogPomodoroSession(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.pomodoro.LogSession(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// GetGamification godoc
//
//	@Summary		Gamification overview
//	@Description	Progress, achievements and the tenant leaderboard
//	@Tags			gamification
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.GamificationOverview}
//	@Router			/gamification [get]
func (h *PersonalHandler) GetGamification(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.gamif.Overview(c.Request.Context(), u)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ResetGamification godoc
//
//	@Summary		Reset points
//	@Tags			gamification
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/gamification/reset [post]
func (h *PersonalHandler) ResetGamification(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.gamif.Reset(c.Request.Context(), u.ID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "progress reset"})
}

// ExportGamification godoc
//
//	@Summary		Export progress
//	@Tags			gamification
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]any}
//	@Router			/gamification/export [get]
func (h *PersonalHandler) ExportGamification(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.gamif.Export(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListVideos godoc
//
//	@Summary		List study videos
//	@Tags			videostudy
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.StudyVideo}
//	@Router			/videostudy/videos [get]
func (h *PersonalHandler) ListVideos(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.videos.List(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateVideo godoc
//
//	@Summary		Add study video
//	@Tags			videostudy
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.StudyVideoInput	true	"StudyVideo payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.StudyVideo}
//	@Router			/videostudy/videos [post]
func (h *PersonalHandler) CreateVideo(c *gin.Context) {
	req := service.StudyVideoInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.videos.Create(c.Request.Context(), u.ID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// UpdateVideo godoc
//
//	@Summary		Update study video
//	@Tags			videostudy
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Video ID"	Format(uuid)
//	@Param			payload	body	service.StudyVideoInput	true	"StudyVideo payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.StudyVideo}
//	@Router			/videostudy/videos/{id} [put]
func (h *PersonalHandler) UpdateVideo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := service.StudyVideoInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.videos.Update(c.Request.Context(), u.ID, id, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// DeleteVideo godoc
//
//	@Summary		Delete study video
//	@Tags			videostudy
//	@Produce		json
//	@Param			id	path	string	true	"Video ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/videostudy/videos/{id} [delete]
func (h *PersonalHandler) DeleteVideo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.videos.Delete(c.Request.Context(), u.ID, id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "video deleted"})
}
