package model

import (
	"github.com/google/uuid"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Plan{},
		&Tenant{},
		&Subscription{},
		&User{},
		&Project{},
		&Task{},
		&ProjectCollaborator{},
		&Comment{},
		&ActivityLog{},
		&Notification{},
		&SharedLink{},
		&QuickNote{},
		&PomodoroSettings{},
		&PomodoroSession{},
		&GamificationProfile{},
		&Integration{},
		&CloudSync{},
		&StudyVideo{},
		&TelosFramework{},
		&TelosReview{},
	}
}
