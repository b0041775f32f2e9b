package repo

import (
	"context"
	"testing"

	"github.com/lexflow/lexflow-api/internal/infra/db"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(d))
	t.Cleanup(func() {
		if sqlDB, err := d.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}

func seedUser(t *testing.T, d *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	tenant := &model.Tenant{Name: username + "'s Organization"}
	require.NoError(t, NewUserRepo(d).Register(context.Background(), tenant, u))
	return u
}

func seedProject(t *testing.T, d *gorm.DB, owner *model.User, name string) *model.Project {
	t.Helper()
	p := &model.Project{Name: name, OwnerID: owner.ID, TenantID: owner.TenantID}
	require.NoError(t, NewProjectRepo(d).Create(context.Background(), p))
	return p
}
