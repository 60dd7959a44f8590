package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/testutil"
)

var allCaps = []models.Capability{models.CapView, models.CapAdd, models.CapDelete, models.CapEditShared}

func TestAuthorizeOwnerAlwaysGranted(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	// Owner grant removed: ownership alone must be enough.
	require.NoError(t, gdb.Where("workspace_id = ?", fx.Workspace.ID).Delete(&models.Permission{}).Error)

	policy := authz.NewPolicy(gdb)
	caller := authz.Caller{UserID: fx.Owner.ID, Email: fx.Owner.Email}

	for _, m := range models.Modules() {
		for _, c := range allCaps {
			d, err := policy.Authorize(context.Background(), caller, fx.Workspace.ID, m, c)
			require.NoError(t, err)
			assert.True(t, d.Owner)
		}
	}
}

func TestAuthorizeStrangerRejectedEverywhere(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	stranger := testutil.CreateUser(t, gdb, "stranger@example.com")

	policy := authz.NewPolicy(gdb)
	caller := authz.Caller{UserID: stranger.ID, Email: stranger.Email}

	for _, m := range models.Modules() {
		for _, c := range allCaps {
			_, err := policy.Authorize(context.Background(), caller, fx.Workspace.ID, m, c)
			assert.ErrorIs(t, err, errs.ErrForbidden, "%s/%s", m, c)
		}
	}
}

func TestAuthorizeModuleAndFlags(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	member := testutil.CreateUser(t, gdb, "member@example.com")
	testutil.Grant(t, gdb, fx.Workspace.ID, member.ID, models.ModuleFinance, true, true, false, false)

	policy := authz.NewPolicy(gdb)
	caller := authz.Caller{UserID: member.ID}
	ctx := context.Background()

	tests := []struct {
		name    string
		module  models.Module
		cap     models.Capability
		allowed bool
	}{
		{"view finance", models.ModuleFinance, models.CapView, true},
		{"add finance", models.ModuleFinance, models.CapAdd, true},
		{"delete finance", models.ModuleFinance, models.CapDelete, false},
		{"edit shared finance", models.ModuleFinance, models.CapEditShared, false},
		{"view budget", models.ModuleBudget, models.CapView, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := policy.Authorize(ctx, caller, fx.Workspace.ID, tt.module, tt.cap)
			if tt.allowed {
				require.NoError(t, err)
				assert.False(t, d.Owner)
				assert.Equal(t, models.ModuleFinance, d.Permission.Module)
				return
			}
			assert.ErrorIs(t, err, errs.ErrForbidden)
		})
	}
}

func TestAuthorizeWildcardModule(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	member := testutil.CreateUser(t, gdb, "member@example.com")
	testutil.Grant(t, gdb, fx.Workspace.ID, member.ID, models.ModuleAll, true, false, false, false)

	policy := authz.NewPolicy(gdb)
	caller := authz.Caller{UserID: member.ID}

	for _, m := range models.Modules() {
		_, err := policy.Authorize(context.Background(), caller, fx.Workspace.ID, m, models.CapView)
		require.NoError(t, err, m.String())
		_, err = policy.Authorize(context.Background(), caller, fx.Workspace.ID, m, models.CapAdd)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	}

	viewable, err := policy.ViewableModules(context.Background(), caller, fx.Workspace.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, models.Modules(), viewable)
}

func TestAuthorizeFailures(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	policy := authz.NewPolicy(gdb)
	ctx := context.Background()

	_, err := policy.Authorize(ctx, authz.Caller{}, fx.Workspace.ID, models.ModuleFlow, models.CapView)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	owner := authz.Caller{UserID: fx.Owner.ID}
	_, err = policy.Authorize(ctx, owner, "00000000-0000-0000-0000-000000000000", models.ModuleFlow, models.CapView)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = policy.Authorize(ctx, owner, fx.Workspace.ID, models.ModuleAll, models.CapView)
	assert.Equal(t, errs.KindInternal, errs.KindOf(err))
}

func TestRequireOwner(t *testing.T) {
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")
	member := testutil.CreateUser(t, gdb, "member@example.com")
	testutil.Grant(t, gdb, fx.Workspace.ID, member.ID, models.ModuleAll, true, true, true, true)
	policy := authz.NewPolicy(gdb)

	ws, err := policy.RequireOwner(context.Background(), authz.Caller{UserID: fx.Owner.ID}, fx.Workspace.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", ws.Name)

	_, err = policy.RequireOwner(context.Background(), authz.Caller{UserID: member.ID}, fx.Workspace.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
