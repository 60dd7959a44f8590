package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/testutil"
)

func TestWorkspaceCreateAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ws, err := e.svc.Workspaces.Create(ctx, e.owner.Caller, "  Second  ")
	require.NoError(t, err)
	assert.Equal(t, "Second", ws.Name)

	_, err = e.svc.Workspaces.Create(ctx, e.owner.Caller, "x")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = e.svc.Workspaces.Create(ctx, authz.Caller{}, "Anon")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	member := e.member(t, "member@example.com", models.ModuleFood, true, false, false, false)

	owned, err := e.svc.Workspaces.List(ctx, e.owner.Caller)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.True(t, owned[0].IsOwner)

	shared, err := e.svc.Workspaces.List(ctx, member.Caller)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.False(t, shared[0].IsOwner)
	require.NotNil(t, shared[0].Permission)
	assert.Equal(t, models.ModuleFood, shared[0].Permission.Module)
}

func TestWorkspaceRenameOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	member := e.member(t, "member@example.com", models.ModuleAll, true, true, true, true)

	_, err := e.svc.Workspaces.Rename(ctx, member.Caller, e.fx.Workspace.ID, "Taken")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	ws, err := e.svc.Workspaces.Rename(ctx, e.owner.Caller, e.fx.Workspace.ID, "Acme GmbH")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", ws.Name)
}

func TestGrantIsUpsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	member := testutil.CreateUser(t, e.db, "member@example.com")

	first, err := e.svc.Workspaces.Grant(ctx, e.owner.Caller, e.fx.Workspace.ID, services.GrantRequest{
		Email: "Member@Example.com", Module: models.ModuleFinance, CanView: true,
	})
	require.NoError(t, err)
	assert.Equal(t, member.ID, first.UserID)
	assert.Equal(t, models.ModuleFinance, first.Module)

	second, err := e.svc.Workspaces.Grant(ctx, e.owner.Caller, e.fx.Workspace.ID, services.GrantRequest{
		Email: "member@example.com", Module: models.ModuleBudget, CanView: true, CanAdd: true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.ModuleBudget, second.Module)
	assert.True(t, second.CanAdd)

	perms, err := e.svc.Workspaces.Permissions(ctx, e.owner.Caller, e.fx.Workspace.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 2, "owner grant plus one member row")

	// The old module no longer applies.
	memberCaller := authz.Caller{UserID: member.ID}
	_, err = e.svc.Policy.Authorize(ctx, memberCaller, e.fx.Workspace.ID, models.ModuleFinance, models.CapView)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.svc.Policy.Authorize(ctx, memberCaller, e.fx.Workspace.ID, models.ModuleBudget, models.CapAdd)
	assert.NoError(t, err)
}

func TestGrantRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ws := e.fx.Workspace.ID

	_, err := e.svc.Workspaces.Grant(ctx, e.owner.Caller, ws, services.GrantRequest{Email: "ghost@example.com", Module: models.ModuleFood})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = e.svc.Workspaces.Grant(ctx, e.owner.Caller, ws, services.GrantRequest{Email: "owner@example.com", Module: models.ModuleFood})
	assert.ErrorIs(t, err, errs.ErrValidation)

	testutil.CreateUser(t, e.db, "member@example.com")
	_, err = e.svc.Workspaces.Grant(ctx, e.owner.Caller, ws, services.GrantRequest{Email: "member@example.com"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	member := e.member(t, "member@example.com", models.ModuleFood, true, true, false, false)

	assert.ErrorIs(t, e.svc.Workspaces.Revoke(ctx, e.owner.Caller, e.fx.Workspace.ID, e.fx.Owner.ID), errs.ErrValidation)
	require.NoError(t, e.svc.Workspaces.Revoke(ctx, e.owner.Caller, e.fx.Workspace.ID, member.Caller.UserID))
	assert.ErrorIs(t, e.svc.Workspaces.Revoke(ctx, e.owner.Caller, e.fx.Workspace.ID, member.Caller.UserID), errs.ErrNotFound)

	_, _, err := e.svc.Food.Recipes.List(ctx, member, services.ListOptions{})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestPurgeNeedsExactName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, &models.Customer{Name: "Doe"}))
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, &models.Invoice{
		Lines: []models.InvoiceLine{{Description: "A", Quantity: dec("1"), UnitPrice: dec("1")}},
	}))
	require.NoError(t, e.svc.Flow.Tasks.Create(ctx, e.owner, &models.Task{Title: "T"}))

	err := e.svc.Workspaces.Purge(ctx, e.owner.Caller, e.fx.Workspace.ID, "acme")
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.EqualValues(t, 1, countCustomers(t, e))

	member := e.member(t, "member@example.com", models.ModuleAll, true, true, true, true)
	err = e.svc.Workspaces.Purge(ctx, member.Caller, e.fx.Workspace.ID, "Acme")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, e.svc.Workspaces.Purge(ctx, e.owner.Caller, e.fx.Workspace.ID, "Acme"))
	assert.Zero(t, countCustomers(t, e))
	for _, model := range []interface{}{&models.Invoice{}, &models.InvoiceLine{}, &models.Task{}} {
		var n int64
		require.NoError(t, e.db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}

	// The workspace and its members survive a purge.
	var perms int64
	require.NoError(t, e.db.Model(&models.Permission{}).Where("workspace_id = ?", e.fx.Workspace.ID).Count(&perms).Error)
	assert.EqualValues(t, 2, perms)
}

func TestPurgeAsOperator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, &models.Customer{Name: "Doe"}))

	assert.ErrorIs(t, e.svc.Workspaces.PurgeAsOperator(ctx, "missing", "Acme"), errs.ErrNotFound)
	require.NoError(t, e.svc.Workspaces.PurgeAsOperator(ctx, e.fx.Workspace.ID, "Acme"))
	assert.Zero(t, countCustomers(t, e))
}
