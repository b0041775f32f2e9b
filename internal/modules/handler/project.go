package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

// ListProjects godoc
//
//	@Summary		List projects
//	@Description	Projects the caller owns or collaborates on inside their tenant
//	@Tags			project
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Project}
//	@Router			/collaboration/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.List(c.Request.Context(), u)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateProject godoc
//
//	@Summary		Create project
//	@Description	Create a project; the plan's project limit applies
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.ProjectInput	true	"CreateProject payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Project}
//	@Router			/collaboration/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := service.ProjectInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.Create(c.Request.Context(), u, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// GetProject godoc
//
//	@Summary		Get project
//	@Description	Project with its tasks and collaborators
//	@Tags			project
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/collaboration/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), u, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// UpdateProject godoc
//
//	@Summary		Update project
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Project ID"	Format(uuid)
//	@Param			payload	body	service.ProjectInput	true	"UpdateProject payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/collaboration/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := service.ProjectInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.Update(c.Request.Context(), u, id, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Tags			project
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/collaboration/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), u, id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "project deleted"})
}

// CreateTask godoc
//
//	@Summary		Create task
//	@Tags			task
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	Format(uuid)
//	@Param			payload	body	service.TaskInput	true	"CreateTask payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Task}
//	@Router			/collaboration/projects/{id}/tasks [post]
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := service.TaskInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.CreateTask(c.Request.Context(), u, projectID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Code: http.StatusCreated, Data: out})
}

// UpdateTask godoc
//
//	@Summary		Update task
//	@Description	Partial update; completing a task awards points
//	@Tags			task
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	Format(uuid)
//	@Param			tid		path	string				true	"Task ID"		Format(uuid)
//	@Param			payload	body	service.TaskInput	true	"UpdateTask payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Task}
//	@Router			/collaboration/projects/{id}/tasks/{tid} [put]
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "tid")
	if !ok {
		return
	}
	req := service.TaskInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, ok := currentUser(c)
	if !ok {
		return
	}

	out, err := h.svc.UpdateTask(c.Request.Context(), u, projectID, taskID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// DeleteTask godoc
//
//	@Summary		Delete task
//	@Tags			task
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Param			tid	path	string	true	"Task ID"		Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response
//	@Router			/collaboration/projects/{id}/tasks/{tid} [delete]
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
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
	if err := h.svc.DeleteTask(c.Request.Context(), u, projectID, taskID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "task deleted"})
}
