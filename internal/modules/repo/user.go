package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/gorm"
)

type UserRepo interface {
	// Register creates the tenant, the user and a free subscription in one transaction.
	Register(ctx context.Context, tenant *model.Tenant, u *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Taken reports whether username or email belongs to a user other than exclude.
	Taken(ctx context.Context, username, email string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, u *model.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ProjectLimit returns the project limit of the tenant's plan, 0 when unlimited or unknown.
	ProjectLimit(ctx context.Context, tenantID uuid.UUID) (int, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

// FreePlan returns the free plan, creating it on first use.
func FreePlan(tx *gorm.DB) (*model.Plan, error) {
	plan := model.Plan{
		Name:         model.FreePlanName,
		Price:        0,
		ProjectLimit: 3,
		UserLimit:    1,
	}
	if err := tx.Where(&model.Plan{Name: model.FreePlanName}).FirstOrCreate(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *userRepo) Register(ctx context.Context, tenant *model.Tenant, u *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := FreePlan(tx)
		if err != nil {
			return err
		}
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}

		u.TenantID = tenant.ID
		u.Email = strings.ToLower(u.Email)
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		sub := model.Subscription{
			TenantID: tenant.ID,
			PlanID:   plan.ID,
			Status:   "active",
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}

		u.Tenant = tenant
		return nil
	})
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Tenant").Where(&model.User{ID: id}).First(&u).Error
	return &u, err
}

func (r *userRepo) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&u).Error
	return &u, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error
	return &u, err
}

func (r *userRepo) Taken(ctx context.Context, username, email string, exclude uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, strings.ToLower(email))
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", strings.ToLower(email))
	default:
		return false, nil
	}
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: u.ID}).Updates(map[string]any{
		"username":      u.Username,
		"email":         strings.ToLower(u.Email),
		"password_hash": u.PasswordHash,
		"is_active":     u.IsActive,
	}).Error
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{ID: id}).Update("last_login", at).Error
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.User{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) ProjectLimit(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.plan_id = plans.id").
		Where("subscriptions.tenant_id = ? AND subscriptions.status = ?", tenantID, "active").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return plan.ProjectLimit, nil
}
