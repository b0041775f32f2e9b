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
	"github.com/lexflow/lexflow-api/internal/pkg/paging"
	"github.com/lexflow/lexflow-api/internal/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
	notificationsLimit   = 50

	sharedLinkPrefix = "sl_"
)

var sharedLinkPermissions = map[string]bool{"view": true, "comment": true, "edit": true}

type ListActivityOutput struct {
	Items      []model.ActivityLog `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

type CreateCommentInput struct {
	Content         string     `json:"content"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id"`
}

type SharedLinkInput struct {
	Permissions    string `json:"permissions"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// SharedProject is the public snapshot behind a shared link.
type SharedProject struct {
	Project     *model.Project `json:"project"`
	Tasks       []model.Task   `json:"tasks"`
	Permissions string         `json:"permissions"`
}

type CollaborationService interface {
	Invite(ctx context.Context, u *model.User, projectID uuid.UUID, email string) (*model.ProjectCollaborator, error)
	AcceptInvitation(ctx context.Context, u *model.User, id uuid.UUID) (*model.ProjectCollaborator, error)
	ListInvitations(ctx context.Context, u *model.User) ([]model.ProjectCollaborator, error)
	ListCollaborators(ctx context.Context, u *model.User, projectID uuid.UUID) ([]model.ProjectCollaborator, error)
	RemoveCollaborator(ctx context.Context, u *model.User, projectID, collaboratorID uuid.UUID) error

	ListComments(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) ([]model.Comment, error)
	AddComment(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in CreateCommentInput) (*model.Comment, error)
	UpdateComment(ctx context.Context, u *model.User, commentID uuid.UUID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, u *model.User, commentID uuid.UUID) error

	ListActivity(ctx context.Context, u *model.User, projectID uuid.UUID, cursor string, limit int) (*ListActivityOutput, error)

	ListNotifications(ctx context.Context, u *model.User) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, u *model.User, id uuid.UUID) error

	CreateSharedLink(ctx context.Context, u *model.User, projectID uuid.UUID, in SharedLinkInput) (*model.SharedLink, error)
	// OpenSharedLink needs no caller; it counts one access per call.
	OpenSharedLink(ctx context.Context, token string) (*SharedProject, error)
}

type collaborationService struct {
	projects repo.ProjectRepo
	users    repo.UserRepo
	r        repo.CollaborationRepo
	activity ActivitySink
	log      *zap.Logger
	now      func() time.Time
}

func NewCollaborationService(projects repo.ProjectRepo, users repo.UserRepo, r repo.CollaborationRepo, activity ActivitySink, log *zap.Logger) CollaborationService {
	return &collaborationService{
		projects: projects,
		users:    users,
		r:        r,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

func (s *collaborationService) project(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error) {
	p, err := s.projects.Get(ctx, u.TenantID, id)
	if err != nil {
		return nil, orNotFound(err, "project not found")
	}
	return p, nil
}

func (s *collaborationService) memberProject(ctx context.Context, u *model.User, id uuid.UUID) (*model.Project, error) {
	p, err := s.project(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID == u.ID {
		return p, nil
	}
	ok, err := s.projects.HasAccess(ctx, p.ID, u.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("no access to this project")
	}
	return p, nil
}

func (s *collaborationService) ownedProject(ctx context.Context, u *model.User, id uuid.UUID, action string) (*model.Project, error) {
	p, err := s.project(ctx, u, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != u.ID {
		return nil, forbidden("only the owner can " + action)
	}
	return p, nil
}

func (s *collaborationService) Invite(ctx context.Context, u *model.User, projectID uuid.UUID, email string) (*model.ProjectCollaborator, error) {
	p, err := s.ownedProject(ctx, u, projectID, "invite collaborators")
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("email is required")
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, orNotFound(err, "user not found")
	}
	if invitee.TenantID != u.TenantID {
		return nil, notFound("user not found")
	}
	if invitee.ID == u.ID {
		return nil, invalid("you cannot invite yourself")
	}

	_, err = s.r.FindCollaborator(ctx, p.ID, invitee.ID)
	switch {
	case err == nil:
		return nil, conflict("user is already a collaborator")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	inviter := u.ID
	c := &model.ProjectCollaborator{
		ProjectID: p.ID,
		UserID:    invitee.ID,
		Role:      model.RoleMember,
		Status:    model.CollaboratorPending,
		InvitedBy: &inviter,
	}
	n := &model.Notification{
		UserID:    invitee.ID,
		ProjectID: &p.ID,
		Title:     "Project invitation",
		Message:   fmt.Sprintf("%s invited you to collaborate on %s", u.Username, p.Name),
		Type:      "invitation",
		ActionURL: "/collaboration/invitations",
	}
	if err := s.r.CreateCollaborator(ctx, c, n); err != nil {
		if isDuplicate(err) {
			return nil, conflict("user is already a collaborator")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	c.User = invitee

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      "invite",
		EntityType:  EntityCollaborator,
		EntityID:    &c.ID,
		Description: fmt.Sprintf("%s invited %s", u.Username, invitee.Username),
	})
	return c, nil
}

func (s *collaborationService) AcceptInvitation(ctx context.Context, u *model.User, id uuid.UUID) (*model.ProjectCollaborator, error) {
	c, err := s.r.GetCollaborator(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "invitation not found")
	}
	if c.UserID != u.ID {
		return nil, forbidden("not authorized to accept this invitation")
	}
	if c.Status != model.CollaboratorPending {
		return nil, conflict("invitation is not pending")
	}

	now := s.now().UTC()
	if err := s.r.AcceptCollaborator(ctx, c.ID, now); err != nil {
		return nil, orNotFound(err, "invitation not found")
	}
	c.Status = model.CollaboratorAccepted
	c.AcceptedAt = &now

	if c.InvitedBy != nil {
		n := &model.Notification{
			UserID:    *c.InvitedBy,
			ProjectID: &c.ProjectID,
			Title:     "Invitation accepted",
			Message:   fmt.Sprintf("%s joined your project", u.Username),
			Type:      "info",
		}
		if err := s.r.CreateNotification(ctx, n); err != nil {
			s.log.Warn("notify inviter", zap.String("collaborator_id", c.ID.String()), zap.Error(err))
		}
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   c.ProjectID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      "join",
		EntityType:  EntityCollaborator,
		EntityID:    &c.ID,
		Description: fmt.Sprintf("%s joined the project", u.Username),
	})
	return c, nil
}

func (s *collaborationService) ListInvitations(ctx context.Context, u *model.User) ([]model.ProjectCollaborator, error) {
	items, err := s.r.ListPendingInvitations(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.ProjectCollaborator{}
	}
	return items, nil
}

func (s *collaborationService) ListCollaborators(ctx context.Context, u *model.User, projectID uuid.UUID) ([]model.ProjectCollaborator, error) {
	p, err := s.memberProject(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	items, err := s.r.ListCollaborators(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.ProjectCollaborator{}
	}
	return items, nil
}

func (s *collaborationService) RemoveCollaborator(ctx context.Context, u *model.User, projectID, collaboratorID uuid.UUID) error {
	p, err := s.ownedProject(ctx, u, projectID, "remove collaborators")
	if err != nil {
		return err
	}
	c, err := s.r.GetCollaborator(ctx, collaboratorID)
	if err != nil {
		return orNotFound(err, "collaborator not found")
	}
	if c.ProjectID != p.ID {
		return notFound("collaborator not found")
	}
	if c.UserID == p.OwnerID || c.Role == model.RoleOwner {
		return invalid("the project owner cannot be removed")
	}
	if err := s.r.DeleteCollaborator(ctx, c.ID); err != nil {
		return orNotFound(err, "collaborator not found")
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      "remove",
		EntityType:  EntityCollaborator,
		EntityID:    &c.ID,
		Description: fmt.Sprintf("%s removed a collaborator", u.Username),
	})
	return nil
}

func (s *collaborationService) ListComments(ctx context.Context, u *model.User, projectID, taskID uuid.UUID) ([]model.Comment, error) {
	p, err := s.memberProject(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetTask(ctx, p.ID, taskID); err != nil {
		return nil, orNotFound(err, "task not found")
	}
	items, err := s.r.ListComments(ctx, p.ID, taskID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Comment{}
	}
	return items, nil
}

func (s *collaborationService) AddComment(ctx context.Context, u *model.User, projectID, taskID uuid.UUID, in CreateCommentInput) (*model.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("content is required")
	}
	p, err := s.memberProject(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetTask(ctx, p.ID, taskID); err != nil {
		return nil, orNotFound(err, "task not found")
	}
	if in.ParentCommentID != nil {
		parent, err := s.r.GetComment(ctx, *in.ParentCommentID)
		if err != nil {
			return nil, orNotFound(err, "parent comment not found")
		}
		if parent.TaskID == nil || *parent.TaskID != taskID {
			return nil, invalid("parent comment belongs to another task")
		}
	}

	c := &model.Comment{
		ProjectID:       p.ID,
		TaskID:          &taskID,
		UserID:          u.ID,
		Content:         content,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.r.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	c.User = u

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      ActionCreate,
		EntityType:  EntityComment,
		EntityID:    &c.ID,
		Description: fmt.Sprintf("%s commented on a task", u.Username),
		Data:        map[string]any{"task_id": taskID.String(), "content": c.Content},
	})
	return c, nil
}

// ownComment loads a comment the caller wrote inside their tenant.
func (s *collaborationService) ownComment(ctx context.Context, u *model.User, id uuid.UUID, action string) (*model.Comment, error) {
	c, err := s.r.GetComment(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "comment not found")
	}
	if _, err := s.project(ctx, u, c.ProjectID); err != nil {
		return nil, notFound("comment not found")
	}
	if c.UserID != u.ID {
		return nil, forbidden("only the author can " + action + " this comment")
	}
	return c, nil
}

func (s *collaborationService) UpdateComment(ctx context.Context, u *model.User, commentID uuid.UUID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content is required")
	}
	c, err := s.ownComment(ctx, u, commentID, "edit")
	if err != nil {
		return nil, err
	}
	c.Content = content
	c.IsEdited = true
	if err := s.r.UpdateComment(ctx, c); err != nil {
		return nil, orNotFound(err, "comment not found")
	}
	return c, nil
}

func (s *collaborationService) DeleteComment(ctx context.Context, u *model.User, commentID uuid.UUID) error {
	c, err := s.ownComment(ctx, u, commentID, "delete")
	if err != nil {
		return err
	}
	if err := s.r.DeleteComment(ctx, c.ID); err != nil {
		return orNotFound(err, "comment not found")
	}
	return nil
}

func (s *collaborationService) ListActivity(ctx context.Context, u *model.User, projectID uuid.UUID, cursor string, limit int) (*ListActivityOutput, error) {
	p, err := s.memberProject(ctx, u, projectID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	// an empty cursor starts from the latest entry
	var afterT time.Time
	var afterID uuid.UUID
	if cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(cursor)
		if err != nil {
			return nil, invalid("invalid cursor")
		}
	}

	// limit+1 tells whether another page exists
	items, err := s.r.ListActivityWithCursor(ctx, p.ID, afterT, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	out := &ListActivityOutput{Items: items}
	if out.Items == nil {
		out.Items = []model.ActivityLog{}
	}
	if len(items) > limit {
		out.HasMore = true
		out.Items = items[:limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *collaborationService) ListNotifications(ctx context.Context, u *model.User) ([]model.Notification, error) {
	items, err := s.r.ListNotifications(ctx, u.ID, notificationsLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return items, nil
}

func (s *collaborationService) MarkNotificationRead(ctx context.Context, u *model.User, id uuid.UUID) error {
	if err := s.r.MarkNotificationRead(ctx, u.ID, id, s.now().UTC()); err != nil {
		return orNotFound(err, "notification not found")
	}
	return nil
}

func (s *collaborationService) CreateSharedLink(ctx context.Context, u *model.User, projectID uuid.UUID, in SharedLinkInput) (*model.SharedLink, error) {
	p, err := s.ownedProject(ctx, u, projectID, "share the project")
	if err != nil {
		return nil, err
	}
	perm := strings.TrimSpace(in.Permissions)
	if perm == "" {
		perm = "view"
	}
	if !sharedLinkPermissions[perm] {
		return nil, invalid("permissions must be one of view, comment, edit")
	}
	if in.ExpiresInHours < 0 {
		return nil, invalid("expires_in_hours must be positive")
	}

	token, err := utils.GenerateKey(sharedLinkPrefix, 32)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	l := &model.SharedLink{
		ProjectID:   p.ID,
		CreatedBy:   u.ID,
		Token:       token,
		Permissions: perm,
		IsActive:    true,
	}
	if in.ExpiresInHours > 0 {
		exp := s.now().UTC().Add(time.Duration(in.ExpiresInHours) * time.Hour)
		l.ExpiresAt = &exp
	}
	if err := s.r.CreateSharedLink(ctx, l); err != nil {
		return nil, fmt.Errorf("create shared link: %w", err)
	}

	emit(ctx, s.activity, s.log, ActivityEvent{
		ProjectID:   p.ID,
		UserID:      u.ID,
		Username:    u.Username,
		Action:      "share",
		EntityType:  EntitySharedLink,
		EntityID:    &l.ID,
		Description: fmt.Sprintf("%s created a shared link", u.Username),
	})
	return l, nil
}

func (s *collaborationService) OpenSharedLink(ctx context.Context, token string) (*SharedProject, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, notFound("shared link not found")
	}
	now := s.now().UTC()
	l, err := s.r.TouchSharedLink(ctx, token, now)
	if err != nil {
		return nil, orNotFound(err, "shared link not found")
	}
	if !l.Usable(now) {
		return nil, forbidden("shared link is inactive or expired")
	}

	p, err := s.projects.GetByID(ctx, l.ProjectID)
	if err != nil {
		return nil, orNotFound(err, "project not found")
	}
	tasks, err := s.projects.ListTasks(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return &SharedProject{Project: p, Tasks: tasks, Permissions: l.Permissions}, nil
}
