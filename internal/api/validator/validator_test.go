package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/models"
)

type grantForm struct {
	Email  string        `json:"email" validate:"required,email"`
	Module models.Module `json:"module" validate:"module"`
}

type periodForm struct {
	Month  int    `json:"month" validate:"month"`
	Status string `json:"status" validate:"omitempty,invoice_status"`
	Task   string `json:"task" validate:"omitempty,task_status"`
	Kind   string `json:"kind" validate:"omitempty,account_kind"`
}

func TestValidatorReportsJSONNames(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate(&grantForm{Email: "nope"})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))

	fields := ve.Fields()
	assert.Equal(t, "email must be a valid email", fields["email"])
	assert.Equal(t, "module must be a module name or 'all'", fields["module"])
	assert.Contains(t, err.Error(), "email")

	assert.NoError(t, v.Validate(&grantForm{Email: "ada@example.com", Module: models.ModuleAll}))
}

func TestCustomTags(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(&periodForm{Month: 12, Status: "paid", Task: "in_progress", Kind: "liability"}))

	err = v.Validate(&periodForm{Month: 13, Status: "overdue", Task: "blocked", Kind: "equity"})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	fields := ve.Fields()
	assert.Len(t, fields, 4)
	assert.Equal(t, "month must be between 1 and 12", fields["month"])
	assert.Contains(t, fields["status"], "draft, sent, paid, cancelled")
	assert.Contains(t, fields["task"], "todo, in_progress, done")
	assert.Contains(t, fields["kind"], "asset")
}

func TestModelTags(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate(&models.FinanceAccount{Name: "Bank", Kind: "equity"})
	assert.Error(t, err)
	assert.NoError(t, v.Validate(&models.FinanceAccount{Name: "Bank", Kind: models.AccountKindAsset}))

	err = v.Validate(&models.BudgetIncome{Year: 2026, Month: 0, Source: "x"})
	assert.Error(t, err)
}
