package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
)

func TestProjectHandler_CreateProject(t *testing.T) {
	u := testUser()

	tests := []struct {
		name           string
		body           string
		setup          func(*MockProjectService)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "created",
			body: `{"name":"Thesis","description":"chapters"}`,
			setup: func(svc *MockProjectService) {
				svc.On("Create", mock.Anything, u, mock.MatchedBy(func(in service.ProjectInput) bool {
					return in.Name != nil && *in.Name == "Thesis"
				})).Return(&model.Project{ID: uuid.New(), Name: "Thesis"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "plan limit",
			body: `{"name":"Fourth"}`,
			setup: func(svc *MockProjectService) {
				svc.On("Create", mock.Anything, u, mock.Anything).Return(nil, fmt.Errorf("create project: %w", service.ErrForbidden))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "forbidden",
		},
		{
			name:           "invalid body",
			body:           `[]`,
			setup:          func(*MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)
			r := setupRouter(u)
			r.POST("/projects", NewProjectHandler(svc).CreateProject)

			req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, gjson.Get(w.Body.String(), "msg").String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_GetProject(t *testing.T) {
	u := testUser()
	id := uuid.New()

	tests := []struct {
		name           string
		path           string
		setup          func(*MockProjectService)
		expectedStatus int
	}{
		{
			name: "found",
			path: "/projects/" + id.String(),
			setup: func(svc *MockProjectService) {
				svc.On("Get", mock.Anything, u, id).Return(&model.Project{ID: id, Name: "Thesis", TaskCount: 2}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "other tenant",
			path: "/projects/" + id.String(),
			setup: func(svc *MockProjectService) {
				svc.On("Get", mock.Anything, u, id).Return(nil, service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad id",
			path:           "/projects/not-a-uuid",
			setup:          func(*MockProjectService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProjectService{}
			tt.setup(svc)
			r := setupRouter(u)
			r.GET("/projects/:id", NewProjectHandler(svc).GetProject)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_Tasks(t *testing.T) {
	u := testUser()
	pid, tid := uuid.New(), uuid.New()
	svc := &MockProjectService{}
	svc.On("CreateTask", mock.Anything, u, pid, mock.MatchedBy(func(in service.TaskInput) bool {
		return in.Title != nil && *in.Title == "Draft" && in.Priority != nil && *in.Priority == "high"
	})).Return(&model.Task{ID: tid, ProjectID: pid, Title: "Draft"}, nil)
	svc.On("UpdateTask", mock.Anything, u, pid, tid, mock.Anything).Return(&model.Task{ID: tid, Status: model.TaskStatusCompleted}, nil)
	svc.On("DeleteTask", mock.Anything, u, pid, tid).Return(service.ErrForbidden)

	h := NewProjectHandler(svc)
	r := setupRouter(u)
	r.POST("/projects/:id/tasks", h.CreateTask)
	r.PUT("/projects/:id/tasks/:tid", h.UpdateTask)
	r.DELETE("/projects/:id/tasks/:tid", h.DeleteTask)

	base := "/projects/" + pid.String() + "/tasks"
	req := httptest.NewRequest(http.MethodPost, base, bytes.NewBufferString(`{"title":"Draft","priority":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPut, base+"/"+tid.String(), bytes.NewBufferString(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", gjson.Get(w.Body.String(), "data.status").String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, base+"/"+tid.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.AssertExpectations(t)
}

func TestCollaborationHandler_Invite(t *testing.T) {
	u := testUser()
	pid := uuid.New()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"invited", nil, http.StatusCreated},
		{"self invite", service.ErrInvalidInput, http.StatusBadRequest},
		{"not owner", service.ErrForbidden, http.StatusForbidden},
		{"other tenant", service.ErrNotFound, http.StatusNotFound},
		{"already invited", service.ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockCollaborationService{}
			if tt.err != nil {
				svc.On("Invite", mock.Anything, u, pid, "bob@example.com").Return(nil, tt.err)
			} else {
				svc.On("Invite", mock.Anything, u, pid, "bob@example.com").Return(&model.ProjectCollaborator{ProjectID: pid, Status: model.CollaboratorPending}, nil)
			}
			r := setupRouter(u)
			r.POST("/projects/:id/invite", NewCollaborationHandler(svc).Invite)

			req := httptest.NewRequest(http.MethodPost, "/projects/"+pid.String()+"/invite", bytes.NewBufferString(`{"email":"bob@example.com"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestCollaborationHandler_ListActivity(t *testing.T) {
	u := testUser()
	pid := uuid.New()
	svc := &MockCollaborationService{}
	svc.On("ListActivity", mock.Anything, u, pid, "", 20).Return(&service.ListActivityOutput{HasMore: true, NextCursor: "abc"}, nil)
	svc.On("ListActivity", mock.Anything, u, pid, "abc", 5).Return(&service.ListActivityOutput{}, nil)

	r := setupRouter(u)
	r.GET("/projects/:id/activity", NewCollaborationHandler(svc).ListActivity)
	base := "/projects/" + pid.String() + "/activity"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", gjson.Get(w.Body.String(), "data.next_cursor").String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"?cursor=abc&limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestCollaborationHandler_SharedLink(t *testing.T) {
	u := testUser()
	pid := uuid.New()
	svc := &MockCollaborationService{}
	svc.On("CreateSharedLink", mock.Anything, u, pid, service.SharedLinkInput{}).Return(&model.SharedLink{Token: "sl_x", Permissions: "view"}, nil)
	svc.On("OpenSharedLink", mock.Anything, "sl_x").Return(&service.SharedProject{Permissions: "view"}, nil)
	svc.On("OpenSharedLink", mock.Anything, "sl_gone").Return(nil, service.ErrForbidden)

	h := NewCollaborationHandler(svc)
	r := setupRouter(u)
	r.POST("/projects/:id/share", h.CreateSharedLink)
	r.GET("/shared/:token", h.OpenSharedLink)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/"+pid.String()+"/share", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sl_x", gjson.Get(w.Body.String(), "data.token").String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shared/sl_x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shared/sl_gone", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.AssertExpectations(t)
}

func TestCollaborationHandler_Comments(t *testing.T) {
	u := testUser()
	pid, tid, cid := uuid.New(), uuid.New(), uuid.New()
	svc := &MockCollaborationService{}
	svc.On("AddComment", mock.Anything, u, pid, tid, service.CreateCommentInput{Content: "nice", ParentCommentID: &cid}).
		Return(&model.Comment{ID: uuid.New(), Content: "nice"}, nil)
	svc.On("UpdateComment", mock.Anything, u, cid, "edited").Return(&model.Comment{ID: cid, Content: "edited", IsEdited: true}, nil)
	svc.On("DeleteComment", mock.Anything, u, cid).Return(service.ErrForbidden)

	h := NewCollaborationHandler(svc)
	r := setupRouter(u)
	r.POST("/projects/:id/tasks/:tid/comments", h.AddComment)
	r.PUT("/comments/:cid", h.UpdateComment)
	r.DELETE("/comments/:cid", h.DeleteComment)

	req := httptest.NewRequest(http.MethodPost, "/projects/"+pid.String()+"/tasks/"+tid.String()+"/comments",
		bytes.NewBufferString(`{"content":"nice","parent_comment_id":"`+cid.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/comments/"+cid.String(), bytes.NewBufferString(`{"content":"edited"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "data.is_edited").Bool())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/comments/"+cid.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.AssertExpectations(t)
}
