package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

// InsightHandler serves TELOS, analytics and the AI assistant.
type InsightHandler struct {
	telos     service.TelosService
	analytics service.AnalyticsService
	ai        service.AIService
}

func NewInsightHandler(telos service.TelosService, analytics service.AnalyticsService, ai service.AIService) *InsightHandler {
	return &InsightHandler{telos: telos, analytics: analytics, ai: ai}
}

type TelosFrameworkReq struct {
	Content map[string]any `json:"content"`
}

type TelosReviewReq struct {
	ReviewDate string         `json:"review_date" example:"2024-05-01"`
	Content    map[string]any `json:"content"`
}

type TelosAnalyzeReq struct {
	Pattern  string `json:"pattern" example:"summary"`
	Question string `json:"question"`
}

type AnalyticsReq struct {
	TimeRange string `form:"timeRange,default=week" json:"timeRange" example:"week"`
}

type CategorizeReq struct {
	Items []service.CategorizeItem `json:"items"`
}

type CategorizeResp struct {
	CategorizedItems []service.CategorizedItem `json:"categorized_items"`
	TotalProcessed   int                       `json:"total_processed"`
}

type SummaryReq struct {
	Content   string `json:"content"`
	Type      string `json:"type" example:"general"`
	MaxLength int    `json:"max_length" example:"200"`
}

type PriorityScoringReq struct {
	Tasks   []service.ScoreTask `json:"tasks"`
	Context struct {
		PriorityCategories []string `json:"priority_categories"`
	} `json:"context"`
}

type PriorityScoringResp struct {
	ScoredTasks []service.ScoredTask `json:"scored_tasks"`
	TotalTasks  int                  `json:"total_tasks"`
}

// GetTelosFramework godoc
//
//	@Summary		Get TELOS framework
//	@Tags			telos
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.TelosFramework}
//	@Router			/telos/framework [get]
func (h *InsightHandler) GetTelosFramework(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.telos.GetFramework(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SaveTelosFramework godoc
//
//	@Summary		Save TELOS framework
//	@Tags			telos
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.TelosFrameworkReq	true	"Framework payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.TelosFramework}
//	@Router			/telos/framework [post]
func (h *InsightHandler) SaveTelosFramework(c *gin.Context) {
	req := TelosFrameworkReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.telos.SaveFramework(c.Request.Context(), u.ID, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListTelosReviews godoc
//
//	@Summary		List TELOS reviews
//	@Tags			telos
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.TelosReview}
//	@Router			/telos/reviews [get]
func (h *InsightHandler) ListTelosReviews(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.telos.ListReviews(c.Request.Context(), u.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SaveTelosReview godoc
//
//	@Summary		Save TELOS review
//	@Description	One review per day; saving the same date again updates it
//	@Tags			telos
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.TelosReviewReq	true	"Review payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.TelosReview}
//	@Router			/telos/review [post]
func (h *InsightHandler) SaveTelosReview(c *gin.Context) {
	req := TelosReviewReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.telos.SaveReview(c.Request.Context(), u.ID, req.ReviewDate, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// AnalyzeTelos godoc
//
//	@Summary		Analyze TELOS
//	@Description	Run a named pattern over the framework and recent reviews
//	@Tags			telos
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.TelosAnalyzeReq	true	"Analyze payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.TelosAnalysis}
//	@Router			/telos/analyze [post]
func (h *InsightHandler) AnalyzeTelos(c *gin.Context) {
	req := TelosAnalyzeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.telos.Analyze(c.Request.Context(), u.ID, req.Pattern, req.Question)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetAnalytics godoc
//
//	@Summary		Analytics report
//	@Tags			analytics
//	@Produce		json
//	@Param			timeRange	query	string	false	"week, month or year"	example:"week"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.AnalyticsReport}
//	@Router			/analytics [get]
func (h *InsightHandler) GetAnalytics(c *gin.Context) {
	req := AnalyticsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.analytics.Report(c.Request.Context(), u.ID, req.TimeRange)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ExportAnalytics godoc
//
//	@Summary		Export analytics report
//	@Tags			analytics
//	@Produce		json
//	@Param			timeRange	query	string	false	"week, month or year"	example:"week"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=map[string]service.AnalyticsReport}
//	@Router			/analytics/export [get]
func (h *InsightHandler) ExportAnalytics(c *gin.Context) {
	req := AnalyticsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.analytics.Report(c.Request.Context(), u.ID, req.TimeRange)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"report": out}})
}

// AIProviders godoc
//
//	@Summary		Configured AI providers
//	@Tags			ai
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]string}
//	@Router			/ai/providers [get]
func (h *InsightHandler) AIProviders(c *gin.Context) {
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"providers": h.ai.Providers()}})
}

// Suggest returns a handler for one provider-backed suggestion kind.
//
//	@Summary		AI suggestion
//	@Description	task-suggestions, productivity-insights, study-recommendations or schedule-optimization
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	map[string]any	true	"Context for the suggestion"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.AIResult}
//	@Router			/ai/task-suggestions [post]
//	@Router			/ai/productivity-insights [post]
//	@Router			/ai/study-recommendations [post]
//	@Router			/ai/schedule-optimization [post]
func (h *InsightHandler) Suggest(kind service.AIKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := map[string]any{}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
		out, err := h.ai.Suggest(c.Request.Context(), kind, input)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, serializer.Response{Data: out})
	}
}

// Categorize godoc
//
//	@Summary		Smart categorization
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CategorizeReq	true	"Items to categorize"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.CategorizeResp}
//	@Router			/ai/smart-categorization [post]
func (h *InsightHandler) Categorize(c *gin.Context) {
	req := CategorizeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if req.Items == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("items are required", nil))
		return
	}
	out := h.ai.Categorize(req.Items)
	c.JSON(http.StatusOK, serializer.Response{Data: CategorizeResp{CategorizedItems: out, TotalProcessed: len(req.Items)}})
}

// Summarize godoc
//
//	@Summary		Smart summary
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.SummaryReq	true	"Content to summarize"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.Summary}
//	@Router			/ai/smart-summary [post]
func (h *InsightHandler) Summarize(c *gin.Context) {
	req := SummaryReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	out, err := h.ai.Summarize(req.Content, req.Type, req.MaxLength)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ScorePriorities godoc
//
//	@Summary		Priority scoring
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.PriorityScoringReq	true	"Tasks to score"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.PriorityScoringResp}
//	@Router			/ai/priority-scoring [post]
func (h *InsightHandler) ScorePriorities(c *gin.Context) {
	req := PriorityScoringReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if req.Tasks == nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("tasks are required", nil))
		return
	}
	out := h.ai.ScorePriorities(req.Tasks, req.Context.PriorityCategories)
	c.JSON(http.StatusOK, serializer.Response{Data: PriorityScoringResp{ScoredTasks: out, TotalTasks: len(out)}})
}

// ClearAICache godoc
//
//	@Summary		Clear AI cache
//	@Tags			ai
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/ai/cache/clear [post]
func (h *InsightHandler) ClearAICache(c *gin.Context) {
	n, err := h.ai.ClearCache(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"cleared": n}, Msg: "cache cleared"})
}

// AIHealth godoc
//
//	@Summary		AI health
//	@Tags			ai
//	@Produce		json
//	@Success		200	{object}	serializer.Response{data=service.AIHealth}
//	@Router			/ai/health [get]
func (h *InsightHandler) AIHealth(c *gin.Context) {
	out, err := h.ai.Health(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
