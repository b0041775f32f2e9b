package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/infra/httpclient"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
	"github.com/stretchr/testify/mock"
)

func setupRouter(u *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u != nil {
			c.Set("user", u)
		}
		c.Next()
	})
	return r
}

func testUser() *model.User {
	return &model.User{ID: uuid.New(), TenantID: uuid.New(), Username: "alice", Email: "alice@example.com", IsActive: true}
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*service.AuthResult, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*model.User, *jwtutil.UserClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(*jwtutil.UserClaims), args.Error(2)
}

func (m *MockAuthService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in service.UpdateProfileInput) (*model.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *jwtutil.UserClaims) error {
	return m.Called(ctx, claims).Error(0)
}

// MockProjectService is a mock implementation of ProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) List(ctx context.Context, u *model.User) ([]model.Project, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectService) Create(ctx context.Context, u *model.User, in service.ProjectInput) (*model.Project, error) {
	args := m.Called(ctx, u, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, u, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectService) Update(ctx context.Context, u *model.User, id uuid.UUID, in service.ProjectInput) (*model.Project, error) {
	args := m.Called(ctx, u, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectService) Delete(ctx context.Context, u *model.User, id uuid.UUID) error {
	return m.Called(ctx, u, id).Error(0)
}

func (m *MockProjectService) CreateTask(ctx context.Context, u *model.User, projectID uuid.UUID, in service.TaskInput) (*model.Task, error) {
	args := m.Called(ctx, u, projectID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockProjectService) UpdateTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in service.TaskInput) (*model.Task, error) {
	args := m.Called(ctx, u, projectID, taskID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockProjectService) DeleteTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) error {
	return m.Called(ctx, u, projectID, taskID).Error(0)
}

func (m *MockProjectService) CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, userID, projectID)
	return args.Bool(0), args.Error(1)
}

// MockCollaborationService is a mock implementation of CollaborationService
type MockCollaborationService struct {
	mock.Mock
}

func (m *MockCollaborationService) Invite(ctx context.Context, u *model.User, projectID uuid.UUID, email string) (*model.ProjectCollaborator, error) {
	args := m.Called(ctx, u, projectID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectCollaborator), args.Error(1)
}

func (m *MockCollaborationService) AcceptInvitation(ctx context.Context, u *model.User, id uuid.UUID) (*model.ProjectCollaborator, error) {
	args := m.Called(ctx, u, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectCollaborator), args.Error(1)
}

func (m *MockCollaborationService) ListInvitations(ctx context.Context, u *model.User) ([]model.ProjectCollaborator, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectCollaborator), args.Error(1)
}

func (m *MockCollaborationService) ListCollaborators(ctx context.Context, u *model.User, projectID uuid.UUID) ([]model.ProjectCollaborator, error) {
	args := m.Called(ctx, u, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectCollaborator), args.Error(1)
}

func (m *MockCollaborationService) RemoveCollaborator(ctx context.Context, u *model.User, projectID, collaboratorID uuid.UUID) error {
	return m.Called(ctx, u, projectID, collaboratorID).Error(0)
}

func (m *MockCollaborationService) ListComments(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) ([]model.Comment, error) {
	args := m.Called(ctx, u, projectID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

func (m *MockCollaborationService) AddComment(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in service.CreateCommentInput) (*model.Comment, error) {
	args := m.Called(ctx, u, projectID, taskID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCollaborationService) UpdateComment(ctx context.Context, u *model.User, commentID uuid.UUID, content string) (*model.Comment, error) {
	args := m.Called(ctx, u, commentID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCollaborationService) DeleteComment(ctx context.Context, u *model.User, commentID uuid.UUID) error {
	return m.Called(ctx, u, commentID).Error(0)
}

func (m *MockCollaborationService) ListActivity(ctx context.Context, u *model.User, projectID uuid.UUID, cursor string, limit int) (*service.ListActivityOutput, error) {
	args := m.Called(ctx, u, projectID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListActivityOutput), args.Error(1)
}

func (m *MockCollaborationService) ListNotifications(ctx context.Context, u *model.User) ([]model.Notification, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockCollaborationService) MarkNotificationRead(ctx context.Context, u *model.User, id uuid.UUID) error {
	return m.Called(ctx, u, id).Error(0)
}

func (m *MockCollaborationService) CreateSharedLink(ctx context.Context, u *model.User, projectID uuid.UUID, in service.SharedLinkInput) (*model.SharedLink, error) {
	args := m.Called(ctx, u, projectID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharedLink), args.Error(1)
}

func (m *MockCollaborationService) OpenSharedLink(ctx context.Context, token string) (*service.SharedProject, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SharedProject), args.Error(1)
}

// MockQuickNoteService is a mock implementation of QuickNoteService
type MockQuickNoteService struct {
	mock.Mock
}

func (m *MockQuickNoteService) List(ctx context.Context, userID uuid.UUID) ([]model.QuickNote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QuickNote), args.Error(1)
}

func (m *MockQuickNoteService) Create(ctx context.Context, userID uuid.UUID, in service.CreateQuickNoteInput) (*model.QuickNote, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuickNote), args.Error(1)
}

func (m *MockQuickNoteService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockQuickNoteService) ConvertToTask(ctx context.Context, userID, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

// MockAIService is a mock implementation of AIService
type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) Providers() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockAIService) Suggest(ctx context.Context, kind service.AIKind, input map[string]any) (*service.AIResult, error) {
	args := m.Called(ctx, kind, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AIResult), args.Error(1)
}

func (m *MockAIService) Complete(ctx context.Context, prompt string) (string, string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAIService) ClearCache(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAIService) Health(ctx context.Context) (*service.AIHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AIHealth), args.Error(1)
}

func (m *MockAIService) Categorize(items []service.CategorizeItem) []service.CategorizedItem {
	return m.Called(items).Get(0).([]service.CategorizedItem)
}

func (m *MockAIService) Summarize(content, kind string, maxLength int) (*service.Summary, error) {
	args := m.Called(content, kind, maxLength)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Summary), args.Error(1)
}

func (m *MockAIService) ScorePriorities(tasks []service.ScoreTask, priorityCategories []string) []service.ScoredTask {
	return m.Called(tasks, priorityCategories).Get(0).([]service.ScoredTask)
}

// MockCloudSyncService is a mock implementation of CloudSyncService
type MockCloudSyncService struct {
	mock.Mock
}

func (m *MockCloudSyncService) Providers() []service.CloudProvider {
	return m.Called().Get(0).([]service.CloudProvider)
}

func (m *MockCloudSyncService) Connect(provider string) (string, error) {
	args := m.Called(provider)
	return args.String(0), args.Error(1)
}

func (m *MockCloudSyncService) Callback(ctx context.Context, provider, code string) (*httpclient.DriveToken, error) {
	args := m.Called(ctx, provider, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*httpclient.DriveToken), args.Error(1)
}

func (m *MockCloudSyncService) SaveConnection(ctx context.Context, userID uuid.UUID, in service.SaveConnectionInput) (*model.CloudSync, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CloudSync), args.Error(1)
}

func (m *MockCloudSyncService) Connections(ctx context.Context, userID uuid.UUID) ([]model.CloudSync, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CloudSync), args.Error(1)
}

func (m *MockCloudSyncService) Sync(ctx context.Context, userID uuid.UUID, provider string) (*service.SyncResult, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SyncResult), args.Error(1)
}

func (m *MockCloudSyncService) Disconnect(ctx context.Context, userID uuid.UUID, provider string) error {
	return m.Called(ctx, userID, provider).Error(0)
}

func (m *MockCloudSyncService) Status(ctx context.Context, userID uuid.UUID) (*service.SyncStatusSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SyncStatusSummary), args.Error(1)
}

func (m *MockCloudSyncService) AutoSync(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockIntegrationService is a mock implementation of IntegrationService
type MockIntegrationService struct {
	mock.Mock
}

func (m *MockIntegrationService) Get(ctx context.Context, userID uuid.UUID) (*service.IntegrationConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IntegrationConfig), args.Error(1)
}

func (m *MockIntegrationService) SaveConfig(ctx context.Context, userID uuid.UUID, in service.IntegrationConfig) error {
	return m.Called(ctx, userID, in).Error(0)
}

func (m *MockIntegrationService) TestConnections(ctx context.Context, userID uuid.UUID) (map[string]service.ConnectionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]service.ConnectionStatus), args.Error(1)
}

func (m *MockIntegrationService) SyncTasks(ctx context.Context, userID uuid.UUID, targets map[string]string) (*service.TaskSyncResult, error) {
	args := m.Called(ctx, userID, targets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TaskSyncResult), args.Error(1)
}

func (m *MockIntegrationService) ObsidianExport(ctx context.Context, userID uuid.UUID, vaultPath string) (int, error) {
	args := m.Called(ctx, userID, vaultPath)
	return args.Int(0), args.Error(1)
}
