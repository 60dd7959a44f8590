// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bizdesk/internal/db"
	"bizdesk/internal/models"
)

// NewDB returns a migrated in-memory database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// A second connection would see a different :memory: database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Fixture is a workspace with its owner.
type Fixture struct {
	Owner     *models.User
	Workspace *models.Workspace
}

// CreateUser inserts a user with the given email.
func CreateUser(t testing.TB, gdb *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// CreateWorkspace inserts a workspace owned by a fresh user, with the owner grant.
func CreateWorkspace(t testing.TB, gdb *gorm.DB, ownerEmail, name string) Fixture {
	t.Helper()
	owner := CreateUser(t, gdb, ownerEmail)
	ws := &models.Workspace{Name: name, OwnerID: owner.ID}
	if err := gdb.Create(ws).Error; err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if err := gdb.Create(models.OwnerPermission(ws.ID, owner.ID)).Error; err != nil {
		t.Fatalf("create owner permission: %v", err)
	}
	return Fixture{Owner: owner, Workspace: ws}
}

// Grant inserts a permission row for user on ws.
func Grant(t testing.TB, gdb *gorm.DB, wsID, userID string, module models.Module, view, add, del, editShared bool) {
	t.Helper()
	p := &models.Permission{
		WorkspaceID:   wsID,
		UserID:        userID,
		Module:        module,
		CanView:       view,
		CanAdd:        add,
		CanDelete:     del,
		CanEditShared: editShared,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("grant: %v", err)
	}
}
