package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/testutil"
)

func TestDeleteGroupDetachesStudents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c := &models.Customer{Name: "Family Doe"}
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, c))
	g := &models.StudentGroup{CustomerID: c.ID, Name: "Tuesday"}
	require.NoError(t, e.svc.Customers.Groups.Create(ctx, e.owner, g))
	st := &models.Student{CustomerID: c.ID, GroupID: &g.ID, FirstName: "Jane"}
	require.NoError(t, e.svc.Customers.Students.Create(ctx, e.owner, st))

	require.NoError(t, e.svc.Customers.DeleteGroup(ctx, e.owner, g.ID))

	got, err := e.svc.Customers.Students.Get(ctx, e.owner, st.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	_, err = e.svc.Customers.Groups.Get(ctx, e.owner, g.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteCustomerCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c := &models.Customer{Name: "Family Doe"}
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, c))
	g := &models.StudentGroup{CustomerID: c.ID, Name: "Tuesday"}
	require.NoError(t, e.svc.Customers.Groups.Create(ctx, e.owner, g))
	require.NoError(t, e.svc.Customers.Students.Create(ctx, e.owner, &models.Student{CustomerID: c.ID, GroupID: &g.ID, FirstName: "Jane"}))
	require.NoError(t, e.svc.Customers.Students.Create(ctx, e.owner, &models.Student{CustomerID: c.ID, FirstName: "John"}))

	require.NoError(t, e.svc.Customers.DeleteCustomer(ctx, e.owner, c.ID))

	var students, groups int64
	require.NoError(t, e.db.Model(&models.Student{}).Count(&students).Error)
	require.NoError(t, e.db.Model(&models.StudentGroup{}).Count(&groups).Error)
	assert.Zero(t, students)
	assert.Zero(t, groups)
}

func TestStudentGroupMustMatchCustomer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := &models.Customer{Name: "A"}
	b := &models.Customer{Name: "B"}
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, a))
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, b))
	g := &models.StudentGroup{CustomerID: a.ID, Name: "A group"}
	require.NoError(t, e.svc.Customers.Groups.Create(ctx, e.owner, g))

	err := e.svc.Customers.Students.Create(ctx, e.owner, &models.Student{CustomerID: b.ID, GroupID: &g.ID, FirstName: "X"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	empty := ""
	st := &models.Student{CustomerID: b.ID, GroupID: &empty, FirstName: "Y"}
	require.NoError(t, e.svc.Customers.Students.Create(ctx, e.owner, st))
	assert.Nil(t, st.GroupID)
}

func TestCustomerListIsTenantScoped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := testutil.CreateWorkspace(t, e.db, "other@example.com", "Other")
	otherScope := services.Scope{Caller: e.owner.Caller, WorkspaceID: other.Workspace.ID}
	otherScope.Caller.UserID = other.Owner.ID

	for _, name := range []string{"Carla", "Anna", "Bert"} {
		require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, &models.Customer{Name: name}))
	}
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, otherScope, &models.Customer{Name: "Hidden"}))

	list, total, err := e.svc.Customers.Customers.List(ctx, e.owner, services.ListOptions{Sort: "name", Order: "asc", Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Anna", list[0].Name)
	assert.Equal(t, "Bert", list[1].Name)

	list, total, err = e.svc.Customers.Customers.List(ctx, e.owner, services.ListOptions{Filters: map[string]string{"name": "Hidden"}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	_, _, err = e.svc.Customers.Customers.List(ctx, e.owner, services.ListOptions{Filters: map[string]string{"workspace_id": other.Workspace.ID}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, _, err = e.svc.Customers.Customers.List(ctx, e.owner, services.ListOptions{Sort: "name; drop table customers"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCustomerCrossTenantGetIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := testutil.CreateWorkspace(t, e.db, "other@example.com", "Other")

	c := &models.Customer{Name: "Hidden"}
	c.WorkspaceID = other.Workspace.ID
	require.NoError(t, e.db.Create(c).Error)

	_, err := e.svc.Customers.Customers.Get(ctx, e.owner, c.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	err = e.svc.Customers.DeleteCustomer(ctx, e.owner, c.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCustomerCapabilities(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	viewer := e.member(t, "viewer@example.com", models.ModuleCustomers, true, false, false, false)

	err := e.svc.Customers.Customers.Create(ctx, viewer, &models.Customer{Name: "Nope"})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	c := &models.Customer{Name: "Yes"}
	require.NoError(t, e.svc.Customers.Customers.Create(ctx, e.owner, c))
	_, err = e.svc.Customers.Customers.Get(ctx, viewer, c.ID)
	assert.NoError(t, err)
	assert.ErrorIs(t, e.svc.Customers.DeleteCustomer(ctx, viewer, c.ID), errs.ErrForbidden)
}
