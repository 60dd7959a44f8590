package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/errs"
	"bizdesk/internal/models"
)

func TestTaskSharedEdits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	writer := e.member(t, "writer@example.com", models.ModuleFlow, true, true, true, false)
	editor := e.member(t, "editor@example.com", models.ModuleFlow, true, true, true, true)

	ownerTask := &models.Task{Title: "Owner task", Shared: true}
	require.NoError(t, e.svc.Flow.Tasks.Create(ctx, e.owner, ownerTask))
	assert.Equal(t, models.TaskStatusTodo, ownerTask.Status)

	own := &models.Task{Title: "Mine"}
	require.NoError(t, e.svc.Flow.Tasks.Create(ctx, writer, own))
	require.NoError(t, e.svc.Flow.Tasks.Update(ctx, writer, own.ID, &models.Task{Title: "Mine, renamed"}))

	err := e.svc.Flow.Tasks.Update(ctx, writer, ownerTask.ID, &models.Task{Title: "Hijacked"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	assert.ErrorIs(t, e.svc.Flow.Tasks.Delete(ctx, writer, ownerTask.ID), errs.ErrForbidden)

	require.NoError(t, e.svc.Flow.Tasks.Update(ctx, editor, ownerTask.ID, &models.Task{Title: "Edited", Status: models.TaskStatusDone}))
	require.NoError(t, e.svc.Flow.Tasks.Update(ctx, e.owner, own.ID, &models.Task{Title: "Owner edit"}))

	got, err := e.svc.Flow.Tasks.Get(ctx, e.owner, ownerTask.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, e.fx.Owner.ID, got.CreatedBy, "updates keep the creator")
}

func TestTaskAssigneeMustBeMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	member := e.member(t, "member@example.com", models.ModuleFlow, true, false, false, false)
	stranger := e.member(t, "x@example.com", models.ModuleFlow, true, false, false, false)
	require.NoError(t, e.db.Where("user_id = ?", stranger.Caller.UserID).Delete(&models.Permission{}).Error)

	assigned := &models.Task{Title: "Assigned", AssigneeID: &member.Caller.UserID}
	require.NoError(t, e.svc.Flow.Tasks.Create(ctx, e.owner, assigned))

	err := e.svc.Flow.Tasks.Create(ctx, e.owner, &models.Task{Title: "Nope", AssigneeID: &stranger.Caller.UserID})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestConvertIdea(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	idea := &models.Idea{Title: "Summer camp", Body: "Two weeks in July", Shared: true}
	require.NoError(t, e.svc.Flow.Ideas.Create(ctx, e.owner, idea))

	task, err := e.svc.Flow.ConvertIdea(ctx, e.owner, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer camp", task.Title)
	assert.Equal(t, "Two weeks in July", task.Description)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.True(t, task.Shared)

	_, err = e.svc.Flow.Ideas.Get(ctx, e.owner, idea.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = e.svc.Flow.ConvertIdea(ctx, e.owner, idea.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConvertIdeaRespectsSharedEdits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	writer := e.member(t, "writer@example.com", models.ModuleFlow, true, true, true, false)

	idea := &models.Idea{Title: "Owner idea"}
	require.NoError(t, e.svc.Flow.Ideas.Create(ctx, e.owner, idea))

	_, err := e.svc.Flow.ConvertIdea(ctx, writer, idea.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	var tasks int64
	require.NoError(t, e.db.Model(&models.Task{}).Count(&tasks).Error)
	assert.Zero(t, tasks)
}

func TestPrivateRowsStayWithCreator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	writer := e.member(t, "writer@example.com", models.ModuleFlow, true, true, true, false)
	editor := e.member(t, "editor@example.com", models.ModuleFlow, true, true, true, true)

	draft := &models.Task{Title: "Draft"}
	require.NoError(t, e.svc.Flow.Tasks.Create(ctx, writer, draft))

	err := e.svc.Flow.Tasks.Update(ctx, editor, draft.ID, &models.Task{Title: "Taken", Shared: true})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	assert.ErrorIs(t, e.svc.Flow.Tasks.Delete(ctx, editor, draft.ID), errs.ErrForbidden)

	require.NoError(t, e.svc.Flow.Tasks.Update(ctx, writer, draft.ID, &models.Task{Title: "Draft", Shared: true}))
	require.NoError(t, e.svc.Flow.Tasks.Update(ctx, editor, draft.ID, &models.Task{Title: "Reviewed"}))

	got, err := e.svc.Flow.Tasks.Get(ctx, e.owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reviewed", got.Title)
	assert.True(t, got.Shared, "only the creator or owner can unshare")

	note := &models.Idea{Title: "Private note"}
	require.NoError(t, e.svc.Flow.Ideas.Create(ctx, writer, note))
	assert.ErrorIs(t, e.svc.Flow.Ideas.Delete(ctx, editor, note.ID), errs.ErrForbidden)
	require.NoError(t, e.svc.Flow.Ideas.Update(ctx, e.owner, note.ID, &models.Idea{Title: "Owner edit"}))
	require.NoError(t, e.svc.Flow.Ideas.Delete(ctx, e.owner, note.ID))
}
