package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectInput carries optional fields; nil fields are kept on update.
type ProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type TaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Category    *string    `json:"category"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        *[]string  `json:"tags"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

type ProjectService interface {
	List(ctx context.Context, u *model.User) ([]model.Project, error)
	Create(ctx context.Context, u *model.User, in ProjectInput) (*model.Project, error)
	Get(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, u *model.User, id uuid.UUID, in ProjectInput) (*model.Project, error)
	Delete(ctx context.Context, u *model.User, id uuid.UUID) error

	CreateTask(ctx context.Context, u *model.User, projectID uuid.UUID, in TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in TaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) error

	// CanAccess reports whether the user may follow the project in realtime.
	CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error)
}

type projectService struct {
	projects repo.ProjectRepo
	users    repo.UserRepo
	gamif    GamificationService
	activity ActivitySink
	log      *zap.Logger
	now      func() time.Time
}

func NewProjectService(projects repo.ProjectRepo, users repo.UserRepo, gamif GamificationService, activity ActivitySink, log *zap.Logger) ProjectService {
	return &projectService{
		projects: projects,
		users:    users,
		gamif:    gamif,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

func (s *projectService) List(ctx context.Context, u *model.User) ([]model.Project, error) {
	items, err := s.projects.ListAccessible(ctx, u.TenantID, u.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Project{}
	}
	return items, nil
}

func (s *projectService) Create(ctx context.Context, u *model.User, in ProjectInput) (*model.Project, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("name is required")
	}

	limit, err := s.users.ProjectLimit(ctx, u.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if limit > 0 {
		n, err := s.projects.CountByTenant(ctx, u.TenantID)
		if err != nil {
			return nil, err
		}
		if n >= int64(limit) {
			return nil, forbidden("project limit reached")
		}
	}

	p := &model.Project{
		Name:     strings.TrimSpace(*in.Name),
		OwnerID:  u.ID,
		TenantID: u.TenantID,
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionCreate,
		EntityType:  EntityProject,
		EntityID:    &p.ID,
		Description: fmt.Sprintf("%s created project %s", u.Username, p.Name),
	})
	return p, nil
}

// load fetches a project of the caller's tenant; other tenants see not found.
func (s *projectService) load(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error) {
	p, err := s.projects.Get(ctx, u.TenantID, id)
	if err != nil {
		return nil, orNotFound(err, "project not found")
	}
	return p, nil
}

func (s *projectService) requireMember(ctx context.Context, u *model.User, p *model.Project) error {
	if p.OwnerID == u.ID {
		return nil
	}
	ok, err := s.projects.HasAccess(ctx, p.ID, u.ID)
	if err != nil {
		return err
	}
	if !ok {
		return forbidden("no access to this project")
	}
	return nil
}

func (s *projectService) Get(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error) {
	p, err := s.projects.GetDetail(ctx, u.TenantID, id)
	if err != nil {
		return nil, orNotFound(err, "project not found")
	}
	if !p.IsPublic {
		if err := s.requireMember(ctx, u, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *projectService) Update(ctx context.Context, u *model.User, id uuid.UUID, in ProjectInput) (*model.Project, error) {
	p, err := s.load(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != u.ID {
		return nil, forbidden("only the owner can update the project")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionUpdate,
		EntityType:  EntityProject,
		EntityID:    &p.ID,
		Description: fmt.Sprintf("%s updated project %s", u.Username, p.Name),
	})
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, u *model.User, id uuid.UUID) error {
	p, err := s.load(ctx, u, id)
	if err != nil {
		return err
	}
	if p.OwnerID != u.ID {
		return forbidden("only the owner can delete the project")
	}
	if err := s.projects.Delete(ctx, p.ID); err != nil {
		return orNotFound(err, "project not found")
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionDelete,
		EntityType:  EntityProject,
		EntityID:    &p.ID,
		Description: fmt.Sprintf("%s deleted project %s", u.Username, p.Name),
	})
	return nil
}

func (s *projectService) CreateTask(ctx context.Context, u *model.User, projectID uuid.UUID, in TaskInput) (*model.Task, error) {
	p, err := s.load(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, u, p); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title is required")
	}

	createdBy := u.ID
	t := &model.Task{
		ProjectID: p.ID,
		CreatedBy: &createdBy,
		Status:    model.TaskStatusPending,
		Category:  "general",
		Priority:  model.PriorityMedium,
		Tags:      []string{},
	}
	now := s.now().UTC()
	if err := applyTaskInput(t, in, now); err != nil {
		return nil, err
	}
	if err := s.projects.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if t.Status == model.TaskStatusCompleted {
		s.awardCompletion(ctx, u)
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionCreate,
		EntityType:  EntityTask,
		EntityID:    &t.ID,
		Description: fmt.Sprintf("%s created task %s", u.Username, t.Title),
		Data:        map[string]any{"title": t.Title, "status": t.Status},
	})
	return t, nil
}

func (s *projectService) UpdateTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in TaskInput) (*model.Task, error) {
	p, err := s.load(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, u, p); err != nil {
		return nil, err
	}
	t, err := s.projects.GetTask(ctx, p.ID, taskID)
	if err != nil {
		return nil, orNotFound(err, "task not found")
	}

	wasCompleted := t.Status == model.TaskStatusCompleted
	if err := applyTaskInput(t, in, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.projects.UpdateTask(ctx, t); err != nil {
		return nil, orNotFound(err, "task not found")
	}
	if !wasCompleted && t.Status == model.TaskStatusCompleted {
		s.awardCompletion(ctx, u)
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionUpdate,
		EntityType:  EntityTask,
		EntityID:    &t.ID,
		Description: fmt.Sprintf("%s updated task %s", u.Username, t.Title),
		Data:        map[string]any{"title": t.Title, "status": t.Status},
	})
	return t, nil
}

func (s *projectService) DeleteTask(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) error {
	p, err := s.load(ctx, u, projectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, u, p); err != nil {
		return err
	}
	if err := s.projects.DeleteTask(ctx, p.ID, taskID); err != nil {
		return orNotFound(err, "task not found")
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionDelete,
		EntityType:  EntityTask,
		EntityID:    &taskID,
		Description: fmt.Sprintf("%s deleted a task", u.Username),
	})
	return nil
}

func (s *projectService) CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	p, err := s.projects.Get(ctx, tenantID, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.OwnerID == userID || p.IsPublic {
		return true, nil
	}
	return s.projects.HasAccess(ctx, p.ID, userID)
}

func (s *projectService) awardCompletion(ctx context.Context, u *model.User) {
	if s.gamif == nil {
		return
	}
	if _, err := s.gamif.Award(ctx, u.ID, PointsTaskCompleted, "task_completed"); err != nil {
		s.log.Warn("award task points", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
}

func applyTaskInput(t *model.Task, in TaskInput, now time.Time) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return invalid("title cannot be empty")
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		t.Category = strings.TrimSpace(*in.Category)
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return invalid("priority must be one of low, medium, high")
		}
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		if !model.ValidTaskStatus(*in.Status) {
			return invalid("status must be one of pending, in_progress, completed")
		}
		t.SetStatus(*in.Status, now)
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		t.DueDate = &due
	}
	if in.Tags != nil {
		t.Tags = *in.Tags
	}
	if in.AssignedTo != nil {
		assignee := *in.AssignedTo
		t.AssignedTo = &assignee
	}
	return nil
}
