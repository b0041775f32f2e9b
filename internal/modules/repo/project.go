package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	// Get loads a project inside a tenant. Projects of other tenants are not found.
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error)
	// GetDetail is Get plus tasks and collaborators with their users.
	GetDetail(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// ListAccessible returns projects the user owns or has accepted an invite to.
	ListAccessible(ctx context.Context, tenantID, userID uuid.UUID) ([]model.Project, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// HasAccess reports whether userID owns the project or is an accepted collaborator.
	HasAccess(ctx context.Context, projectID, userID uuid.UUID) (bool, error)

	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, projectID, taskID uuid.UUID) (*model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, projectID, taskID uuid.UUID) error
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]model.Task, error)
	// ListUserTasks returns tasks from every project the user owns, optionally filtered by status.
	ListUserTasks(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error)
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&p).Error; err != nil {
		return nil, err
	}
	if err := r.fillCounts(ctx, []*model.Project{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetDetail(ctx context.Context, tenantID, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Collaborators.User").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	if err := r.fillCounts(ctx, []*model.Project{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where(&model.Project{ID: id}).First(&p).Error; err != nil {
		return nil, err
	}
	if err := r.fillCounts(ctx, []*model.Project{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) ListAccessible(ctx context.Context, tenantID, userID uuid.UUID) ([]model.Project, error) {
	var items []model.Project
	collab := r.db.Model(&model.ProjectCollaborator{}).
		Select("project_id").
		Where("user_id = ? AND status = ?", userID, model.CollaboratorAccepted)

	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(r.db.Where("owner_id = ?", userID).Or("id IN (?)", collab)).
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, r.fillCountsSlice(ctx, items)
}

func (r *projectRepo) ListOwned(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	var items []model.Project
	if err := r.db.WithContext(ctx).Where("owner_id = ?", userID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, r.fillCountsSlice(ctx, items)
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Model(&model.Project{ID: p.ID}).Updates(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"is_public":   p.IsPublic,
	}).Error
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Project{ID: id}).Error
}

func (r *projectRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}

func (r *projectRepo) HasAccess(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND owner_id = ?", projectID, userID).
		Count(&n).Error
	if err != nil || n > 0 {
		return n > 0, err
	}
	err = r.db.WithContext(ctx).Model(&model.ProjectCollaborator{}).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, model.CollaboratorAccepted).
		Count(&n).Error
	return n > 0, err
}

func (r *projectRepo) CreateTask(ctx context.Context, t *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		return touchProject(tx, t.ProjectID)
	})
}

func (r *projectRepo) GetTask(ctx context.Context, projectID, taskID uuid.UUID) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).Where("id = ? AND project_id = ?", taskID, projectID).First(&t).Error
	return &t, err
}

func (r *projectRepo) UpdateTask(ctx context.Context, t *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Task{ID: t.ID}).Updates(map[string]any{
			"title":        t.Title,
			"description":  t.Description,
			"status":       t.Status,
			"category":     t.Category,
			"priority":     t.Priority,
			"due_date":     t.DueDate,
			"assigned_to":  t.AssignedTo,
			"tags":         t.Tags,
			"completed_at": t.CompletedAt,
		}).Error
		if err != nil {
			return err
		}
		return touchProject(tx, t.ProjectID)
	})
}

func (r *projectRepo) DeleteTask(ctx context.Context, projectID, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND project_id = ?", taskID, projectID).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return touchProject(tx, projectID)
	})
}

func (r *projectRepo) ListTasks(ctx context.Context, projectID uuid.UUID) ([]model.Task, error) {
	var items []model.Task
	return items, r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Find(&items).Error
}

func (r *projectRepo) ListUserTasks(ctx context.Context, userID uuid.UUID, status string) ([]model.Task, error) {
	var items []model.Task
	q := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("projects.owner_id = ?", userID)
	if status != "" {
		q = q.Where("tasks.status = ?", status)
	}
	return items, q.Order("tasks.created_at DESC").Find(&items).Error
}

// fillCounts sets TaskCount and CollaboratorCount from the live rows.
func (r *projectRepo) fillCounts(ctx context.Context, items []*model.Project) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}

	type row struct {
		ProjectID uuid.UUID
		N         int64
	}

	var tasks []row
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("project_id, COUNT(*) AS n").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&tasks).Error
	if err != nil {
		return err
	}

	var collabs []row
	err = r.db.WithContext(ctx).Model(&model.ProjectCollaborator{}).
		Select("project_id, COUNT(*) AS n").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&collabs).Error
	if err != nil {
		return err
	}

	taskN := make(map[uuid.UUID]int64, len(tasks))
	for _, t := range tasks {
		taskN[t.ProjectID] = t.N
	}
	collabN := make(map[uuid.UUID]int64, len(collabs))
	for _, c := range collabs {
		collabN[c.ProjectID] = c.N
	}
	for _, p := range items {
		p.TaskCount = taskN[p.ID]
		p.CollaboratorCount = collabN[p.ID]
	}
	return nil
}

func (r *projectRepo) fillCountsSlice(ctx context.Context, items []model.Project) error {
	ptrs := make([]*model.Project, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return r.fillCounts(ctx, ptrs)
}

func touchProject(tx *gorm.DB, projectID uuid.UUID) error {
	return tx.Model(&model.Project{ID: projectID}).Update("updated_at", tx.NowFunc()).Error
}
