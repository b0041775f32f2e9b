package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
)

func TestPersonalHandler_QuickNotes(t *testing.T) {
	u := testUser()
	noteID := uuid.New()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setup          func(*MockQuickNoteService)
		expectedStatus int
	}{
		{
			name:   "list",
			method: http.MethodGet,
			path:   "/quicknotes",
			setup: func(svc *MockQuickNoteService) {
				svc.On("List", mock.Anything, u.ID).Return([]model.QuickNote{{ID: noteID, Content: "a"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "create",
			method: http.MethodPost,
			path:   "/quicknotes",
			body:   `{"content":"call advisor","tags":["uni"]}`,
			setup: func(svc *MockQuickNoteService) {
				svc.On("Create", mock.Anything, u.ID, service.CreateQuickNoteInput{Content: "call advisor", Tags: []string{"uni"}}).
					Return(&model.QuickNote{ID: noteID, Content: "call advisor", Category: "general"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "create without content",
			method: http.MethodPost,
			path:   "/quicknotes",
			body:   `{"content":""}`,
			setup: func(svc *MockQuickNoteService) {
				svc.On("Create", mock.Anything, u.ID, mock.Anything).Return(nil, service.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "delete foreign note",
			method: http.MethodDelete,
			path:   "/quicknotes/" + noteID.String(),
			setup: func(svc *MockQuickNoteService) {
				svc.On("Delete", mock.Anything, u.ID, noteID).Return(service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "convert",
			method: http.MethodPost,
			path:   "/quicknotes/" + noteID.String() + "/convert-to-task",
			setup: func(svc *MockQuickNoteService) {
				svc.On("ConvertToTask", mock.Anything, u.ID, noteID).Return(&model.Task{ID: uuid.New(), Title: "a"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockQuickNoteService{}
			tt.setup(svc)
			h := NewPersonalHandler(svc, nil, nil, nil)
			r := setupRouter(u)
			r.GET("/quicknotes", h.ListQuickNotes)
			r.POST("/quicknotes", h.CreateQuickNote)
			r.DELETE("/quicknotes/:id", h.DeleteQuickNote)
			r.POST("/quicknotes/:id/convert-to-task", h.ConvertQuickNote)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestPersonalHandler_ServiceError(t *testing.T) {
	u := testUser()
	svc := &MockQuickNoteService{}
	svc.On("List", mock.Anything, u.ID).Return(nil, errors.New("database is locked"))
	r := setupRouter(u)
	r.GET("/quicknotes", NewPersonalHandler(svc, nil, nil, nil).ListQuickNotes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quicknotes", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "database is locked", gjson.Get(w.Body.String(), "msg").String())
	// test mode is not release mode, so the detail is added
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "database is locked")

	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quicknotes", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "database is locked", gjson.Get(w.Body.String(), "msg").String())
	assert.False(t, gjson.Get(w.Body.String(), "error").Exists())
}
