package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/testutil"
)

func TestDetectInvoiceGaps(t *testing.T) {
	tests := []struct {
		name    string
		numbers []string
		want    []services.Gap
	}{
		{"single gap", []string{"1001", "1002", "1004", "1005"}, []services.Gap{{From: 1003, To: 1003}}},
		{"contiguous", []string{"1001", "1002", "1003"}, []services.Gap{}},
		{"prefixed and unordered", []string{"INV-7", "INV-2", "INV-3"}, []services.Gap{{From: 4, To: 6}}},
		{"duplicates", []string{"5", "5", "6"}, []services.Gap{}},
		{"ignores non numeric", []string{"draft", "10", "12"}, []services.Gap{{From: 11, To: 11}}},
		{"empty", nil, []services.Gap{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.DetectInvoiceGaps(tt.numbers))
		})
	}
}

func TestInvoiceCreateNumbersAndTotals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := &models.Invoice{Lines: []models.InvoiceLine{
		{Description: "Lessons", Quantity: dec("3"), UnitPrice: dec("12.50")},
		{Description: "Material", Quantity: dec("1"), UnitPrice: dec("5")},
	}}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, first))
	assert.Equal(t, "1001", first.Number)
	assert.Equal(t, models.InvoiceStatusDraft, first.Status)
	assert.Equal(t, "EUR", first.Currency)

	stored, err := e.svc.Invoices.Invoices.Get(ctx, e.owner, first.ID)
	require.NoError(t, err)
	assert.True(t, dec("42.5").Equal(stored.Total), "total %s", stored.Total)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "Lessons", stored.Lines[0].Description)
	assert.Equal(t, "Material", stored.Lines[1].Description)

	_, err = e.svc.Settings.Update(ctx, e.owner, &models.CompanySettings{CompanyName: "Acme", InvoicePrefix: "AC-"})
	require.NoError(t, err)

	next, err := e.svc.Invoices.NextNumber(ctx, e.owner)
	require.NoError(t, err)
	assert.Equal(t, "AC-1002", next)
}

func TestInvoiceGapsService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, n := range []string{"1001", "1002", "1004"} {
		require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, &models.Invoice{Number: n, Total: dec("10")}))
	}

	gaps, err := e.svc.Invoices.Gaps(ctx, e.owner)
	require.NoError(t, err)
	assert.Equal(t, []services.Gap{{From: 1003, To: 1003}}, gaps)

	// Finance access does not cover invoices.
	outsider := e.member(t, "nobody@example.com", models.ModuleFinance, true, false, false, false)
	_, err = e.svc.Invoices.Gaps(ctx, outsider)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestInvoiceUpdateReplacesLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := &models.Invoice{Lines: []models.InvoiceLine{{Description: "A", Quantity: dec("1"), UnitPrice: dec("10")}}}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, inv))

	update := &models.Invoice{
		Number: inv.Number,
		Lines: []models.InvoiceLine{
			{Description: "B", Quantity: dec("2"), UnitPrice: dec("7")},
			{Description: "C", Quantity: dec("1"), UnitPrice: dec("1")},
		},
	}
	require.NoError(t, e.svc.Invoices.Update(ctx, e.owner, inv.ID, update))

	stored, err := e.svc.Invoices.Invoices.Get(ctx, e.owner, inv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "B", stored.Lines[0].Description)
	assert.True(t, dec("15").Equal(stored.Total))

	var count int64
	require.NoError(t, e.db.Model(&models.InvoiceLine{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestInvoiceRejectsNegativeQuantity(t *testing.T) {
	e := newEnv(t)
	inv := &models.Invoice{Lines: []models.InvoiceLine{{Description: "Refund", Quantity: dec("-1"), UnitPrice: dec("10")}}}
	err := e.svc.Invoices.Create(context.Background(), e.owner, inv)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestInvoiceCustomerMustBelongToWorkspace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := testutil.CreateWorkspace(t, e.db, "other@example.com", "Other")

	c := &models.Customer{Name: "Elsewhere"}
	c.WorkspaceID = other.Workspace.ID
	require.NoError(t, e.db.Create(c).Error)

	inv := &models.Invoice{CustomerID: &c.ID, Total: dec("1")}
	err := e.svc.Invoices.Create(ctx, e.owner, inv)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestInvoiceMarkPaidAndArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := &models.Invoice{Total: dec("100")}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, inv))

	paidAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	paid, err := e.svc.Invoices.MarkPaid(ctx, e.owner, inv.ID, &paidAt)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	archived, err := e.svc.Invoices.Archive(ctx, e.owner, inv.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, err = e.svc.Invoices.Archive(ctx, e.owner, inv.ID)
	assert.ErrorIs(t, err, errs.ErrValidation)

	cancelled := &models.Invoice{Total: dec("5"), Status: models.InvoiceStatusCancelled}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, cancelled))
	_, err = e.svc.Invoices.MarkPaid(ctx, e.owner, cancelled.ID, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestInvoiceUploadPDF(t *testing.T) {
	store := &fakeStore{}
	e := newEnv(t, func(d *services.Dependencies) { d.Store = store })
	ctx := context.Background()
	inv := &models.Invoice{Total: dec("1")}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, inv))

	_, err := e.svc.Invoices.UploadPDF(ctx, e.owner, inv.ID, nil, "empty.pdf")
	assert.ErrorIs(t, err, errs.ErrValidation)

	updated, err := e.svc.Invoices.UploadPDF(ctx, e.owner, inv.ID, []byte("%PDF-1.4"), "1001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "workspaces/"+e.fx.Workspace.ID+"/invoices/1001.pdf", updated.PDFPath)
	assert.Contains(t, store.uploads, updated.PDFPath)
}

func TestInvoiceDeleteRemovesLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inv := &models.Invoice{Lines: []models.InvoiceLine{{Description: "A", Quantity: dec("1"), UnitPrice: dec("1")}}}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, inv))

	require.NoError(t, e.svc.Invoices.Delete(ctx, e.owner, inv.ID))

	var count int64
	require.NoError(t, e.db.Model(&models.InvoiceLine{}).Count(&count).Error)
	assert.Zero(t, count)
	_, err := e.svc.Invoices.Invoices.Get(ctx, e.owner, inv.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInvoiceNumbersUniquePerWorkspace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := &models.Invoice{Number: "1001", Total: dec("10")}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, first))

	err := e.svc.Invoices.Create(ctx, e.owner, &models.Invoice{Number: "1001", Total: dec("5")})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "1001 is already used")

	second := &models.Invoice{Number: "1002", Total: dec("10")}
	require.NoError(t, e.svc.Invoices.Create(ctx, e.owner, second))
	err = e.svc.Invoices.Update(ctx, e.owner, second.ID, &models.Invoice{Number: "1001", Total: dec("10")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	other := testutil.CreateWorkspace(t, e.db, "other@example.com", "Other")
	otherOwner := services.Scope{Caller: authz.Caller{UserID: other.Owner.ID, Email: other.Owner.Email}, WorkspaceID: other.Workspace.ID}
	require.NoError(t, e.svc.Invoices.Create(ctx, otherOwner, &models.Invoice{Number: "1001", Total: dec("10")}))
}

func TestConcurrentInvoicesGetDistinctNumbers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const workers = 4
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- e.svc.Invoices.Create(ctx, e.owner, &models.Invoice{Total: dec("10")})
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	var numbers []string
	require.NoError(t, e.db.Model(&models.Invoice{}).Order("number").Pluck("number", &numbers).Error)
	assert.Equal(t, []string{"1001", "1002", "1003", "1004"}, numbers)
}
