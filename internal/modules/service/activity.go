package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"go.uber.org/zap"
)

// ActivityEvent is one project mutation. It travels through the activity
// queue as JSON.
type ActivityEvent struct {
	ProjectID   uuid.UUID      `json:"project_id"`
	UserID      uuid.UUID      `json:"user_id"`
	Username    string         `json:"username,omitempty"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    *uuid.UUID     `json:"entity_id,omitempty"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	At          time.Time      `json:"at"`
}

const (
	EntityProject      = "project"
	EntityTask         = "task"
	EntityComment      = "comment"
	EntityCollaborator = "collaborator"
	EntitySharedLink   = "shared_link"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ActivitySink receives activity events for persistence and fan-out.
type ActivitySink interface {
	Record(ctx context.Context, ev ActivityEvent) error
}

// Broadcaster delivers an event to every client in a room.
type Broadcaster interface {
	Broadcast(room, event string, data map[string]any)
}

// ProjectRoom is the realtime room of a project.
func ProjectRoom(projectID uuid.UUID) string {
	return "project_" + projectID.String()
}

type activityRecorder struct {
	r   repo.CollaborationRepo
	b   Broadcaster
	log *zap.Logger
}

// NewActivityRecorder writes events as ActivityLog rows and pushes them into
// the project room. b may be nil.
func NewActivityRecorder(r repo.CollaborationRepo, b Broadcaster, log *zap.Logger) ActivitySink {
	return &activityRecorder{r: r, b: b, log: log}
}

func (a *activityRecorder) Record(ctx context.Context, ev ActivityEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	row := &model.ActivityLog{
		ProjectID:   ev.ProjectID,
		UserID:      ev.UserID,
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		Description: ev.Description,
		ExtraData:   ev.Data,
		CreatedAt:   ev.At,
	}
	// deleting a project removes its log; there is nothing left to attach to
	if !(ev.EntityType == EntityProject && ev.Action == ActionDelete) {
		if err := a.r.CreateActivity(ctx, row); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
	}

	if a.b != nil {
		payload := map[string]any{
			"project_id":  ev.ProjectID.String(),
			"user_id":     ev.UserID.String(),
			"username":    ev.Username,
			"action":      ev.Action,
			"entity_type": ev.EntityType,
			"description": ev.Description,
			"data":        ev.Data,
			"timestamp":   ev.At.Format(time.RFC3339),
		}
		if ev.EntityID != nil {
			payload["entity_id"] = ev.EntityID.String()
		}
		a.b.Broadcast(ProjectRoom(ev.ProjectID), roomEventFor(ev.EntityType), payload)
	}
	return nil
}

func roomEventFor(entityType string) string {
	switch entityType {
	case EntityTask:
		return "task_updated"
	case EntityProject:
		return "project_updated"
	case EntityComment:
		return "comment_added"
	default:
		return "activity"
	}
}

// emit hands ev to sink and only logs failures; the mutation already succeeded.
func emit(ctx context.Context, sink ActivitySink, log *zap.Logger, ev ActivityEvent) {
	if sink == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := sink.Record(ctx, ev); err != nil {
		log.Warn("activity not recorded",
			zap.String("project_id", ev.ProjectID.String()),
			zap.String("action", ev.Action),
			zap.Error(err),
		)
	}
}
