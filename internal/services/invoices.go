package services

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils/logger"
)

var invoiceLog = logger.New("INVOICES")

// Gap is a run of missing invoice numbers, both ends inclusive.
type Gap struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// invoiceSuffix extracts the trailing number of an invoice number.
func invoiceSuffix(number string) (int64, bool) {
	m := trailingDigits.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DetectInvoiceGaps reports the missing ranges between the numeric suffixes of
// numbers. Numbers without a trailing digit run are ignored and duplicates
// never produce a gap.
func DetectInvoiceGaps(numbers []string) []Gap {
	values := make([]int64, 0, len(numbers))
	for _, n := range numbers {
		if v, ok := invoiceSuffix(n); ok {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	gaps := []Gap{}
	for i := 1; i < len(values); i++ {
		if values[i]-values[i-1] > 1 {
			gaps = append(gaps, Gap{From: values[i-1] + 1, To: values[i] - 1})
		}
	}
	return gaps
}

const firstInvoiceNumber = 1001

// InvoiceService manages invoices, their lines and PDFs.
type InvoiceService struct {
	Invoices *ScopedService[models.Invoice, *models.Invoice]
	db       *gorm.DB
	store    FileStore
}

func NewInvoiceService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus, store FileStore) *InvoiceService {
	invoices := NewScopedService[models.Invoice](db, policy, bus, models.ModuleInvoices).
		WithFilters("number", "status", "customer_id", "archived", "currency", "issue_date").
		WithPreloads("Lines", "Customer").
		WithBeforeSave(func(tx *gorm.DB, ws string, inv *models.Invoice) error {
			if inv.CustomerID != nil && *inv.CustomerID == "" {
				inv.CustomerID = nil
			}
			if inv.CustomerID != nil {
				return requireInWorkspace(tx, &models.Customer{}, ws, *inv.CustomerID, "customer")
			}
			return nil
		}).
		WithAfterSave(replaceInvoiceLines)

	return &InvoiceService{Invoices: invoices, db: db, store: store}
}

// replaceInvoiceLines swaps the stored lines for inv.Lines.
func replaceInvoiceLines(tx *gorm.DB, _ string, inv *models.Invoice) error {
	if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
		return errs.Internal("failed to replace invoice lines", err)
	}
	if len(inv.Lines) == 0 {
		return nil
	}
	for i := range inv.Lines {
		inv.Lines[i].ID = ""
		inv.Lines[i].InvoiceID = inv.ID
		inv.Lines[i].Position = i
	}
	if err := tx.Create(&inv.Lines).Error; err != nil {
		return errs.Internal("failed to save invoice lines", err)
	}
	return nil
}

func (s *InvoiceService) prepare(ctx context.Context, scope Scope, inv *models.Invoice) error {
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusDraft
	}
	if inv.Currency == "" {
		var settings models.CompanySettings
		err := s.db.WithContext(ctx).Where("workspace_id = ?", scope.WorkspaceID).Limit(1).Find(&settings).Error
		if err != nil {
			return errs.Internal("failed to load company settings", err)
		}
		inv.Currency = settings.DefaultCurrency
		if inv.Currency == "" {
			inv.Currency = "EUR"
		}
	}
	for _, l := range inv.Lines {
		if l.Quantity.IsNegative() {
			return errs.Validation("line quantity cannot be negative")
		}
	}
	inv.RecomputeTotal()
	if inv.Total.IsNegative() {
		return errs.Validation("invoice total cannot be negative")
	}
	return nil
}

// Create stores a new invoice. A missing number is assigned with NextNumber
// and reassigned when a concurrent create took it first.
func (s *InvoiceService) Create(ctx context.Context, scope Scope, inv *models.Invoice) error {
	if err := s.prepare(ctx, scope, inv); err != nil {
		return err
	}
	if inv.Number != "" {
		return numberTaken(s.Invoices.Create(ctx, scope, inv), inv.Number)
	}
	for attempt := 1; ; attempt++ {
		next, err := s.NextNumber(ctx, scope)
		if err != nil {
			return err
		}
		inv.Number = next
		err = s.Invoices.Create(ctx, scope, inv)
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == numberAttempts {
			return numberTaken(err, next)
		}
		invoiceLog.Warn("Invoice number %s was taken concurrently, retrying", next)
	}
}

// Update replaces the invoice and its lines. Payment, archive and PDF fields
// are managed by their own operations and kept.
func (s *InvoiceService) Update(ctx context.Context, scope Scope, id string, inv *models.Invoice) error {
	existing, err := s.Invoices.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.prepare(ctx, scope, inv); err != nil {
		return err
	}
	inv.Archived = existing.Archived
	inv.ArchivedAt = existing.ArchivedAt
	inv.PDFPath = existing.PDFPath
	if inv.Status != models.InvoiceStatusPaid {
		inv.PaidAt = nil
	} else if inv.PaidAt == nil {
		inv.PaidAt = existing.PaidAt
	}
	return numberTaken(s.Invoices.Update(ctx, scope, id, inv), inv.Number)
}

const numberAttempts = 5

// numberTaken names the number when err is a duplicate of (workspace, number).
func numberTaken(err error, number string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Validation("invoice number %s is already used", number)
	}
	return err
}

// Delete removes the invoice and its lines.
func (s *InvoiceService) Delete(ctx context.Context, scope Scope, id string) error {
	return s.Invoices.DeleteWith(ctx, scope, id, func(tx *gorm.DB, inv *models.Invoice) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return errs.Internal("failed to delete invoice lines", err)
		}
		return nil
	})
}

// NextNumber proposes the company prefix followed by the highest existing
// suffix plus one, or 1001 for the first invoice.
func (s *InvoiceService) NextNumber(ctx context.Context, scope Scope) (string, error) {
	if _, err := s.Invoices.Authorize(ctx, scope, models.CapView); err != nil {
		return "", err
	}
	numbers, err := s.numbers(ctx, scope.WorkspaceID)
	if err != nil {
		return "", err
	}

	var prefix []string
	err = s.db.WithContext(ctx).Model(&models.CompanySettings{}).
		Where("workspace_id = ?", scope.WorkspaceID).
		Pluck("invoice_prefix", &prefix).Error
	if err != nil {
		return "", errs.Internal("failed to load invoice prefix", err)
	}

	next := int64(firstInvoiceNumber)
	found := false
	var highest int64
	for _, n := range numbers {
		if v, ok := invoiceSuffix(n); ok && (!found || v > highest) {
			highest, found = v, true
		}
	}
	if found {
		next = highest + 1
	}

	p := ""
	if len(prefix) > 0 {
		p = prefix[0]
	}
	return p + strconv.FormatInt(next, 10), nil
}

// Gaps runs DetectInvoiceGaps over the workspace's invoice numbers.
func (s *InvoiceService) Gaps(ctx context.Context, scope Scope) ([]Gap, error) {
	if _, err := s.Invoices.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	numbers, err := s.numbers(ctx, scope.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return DetectInvoiceGaps(numbers), nil
}

func (s *InvoiceService) numbers(ctx context.Context, workspaceID string) ([]string, error) {
	var numbers []string
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("workspace_id = ?", workspaceID).
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, errs.Internal("failed to load invoice numbers", err)
	}
	return numbers, nil
}

// MarkPaid sets the invoice to paid at paidAt, or now when nil.
func (s *InvoiceService) MarkPaid(ctx context.Context, scope Scope, id string, paidAt *time.Time) (*models.Invoice, error) {
	if _, err := s.Invoices.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	inv, err := s.Invoices.Find(ctx, s.db, scope.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusCancelled {
		return nil, errs.Validation("a cancelled invoice cannot be paid")
	}
	at := time.Now()
	if paidAt != nil {
		at = *paidAt
	}
	return s.patch(ctx, scope, id, "paid", map[string]interface{}{
		"status":  models.InvoiceStatusPaid,
		"paid_at": at,
	})
}

// Archive hides an invoice from the active list.
func (s *InvoiceService) Archive(ctx context.Context, scope Scope, id string) (*models.Invoice, error) {
	if _, err := s.Invoices.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	inv, err := s.Invoices.Find(ctx, s.db, scope.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if inv.Archived {
		return nil, errs.Validation("invoice already archived")
	}
	return s.patch(ctx, scope, id, "archived", map[string]interface{}{
		"archived":    true,
		"archived_at": time.Now(),
	})
}

// UploadPDF stores the invoice document and records its key.
func (s *InvoiceService) UploadPDF(ctx context.Context, scope Scope, id string, data []byte, filename string) (*models.Invoice, error) {
	if _, err := s.Invoices.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errs.Internal("file storage is not configured", nil)
	}
	if len(data) == 0 {
		return nil, errs.Validation("file is empty")
	}
	if _, err := s.Invoices.Find(ctx, s.db, scope.WorkspaceID, id); err != nil {
		return nil, err
	}

	key, err := s.store.UploadFile(ctx, data, "workspaces/"+scope.WorkspaceID+"/invoices", filename, "application/pdf")
	if err != nil {
		return nil, errs.Internal("failed to store invoice pdf", err)
	}
	return s.patch(ctx, scope, id, "updated", map[string]interface{}{"pdf_path": key})
}

func (s *InvoiceService) patch(ctx context.Context, scope Scope, id, action string, fields map[string]interface{}) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("workspace_id = ? AND id = ?", scope.WorkspaceID, id).
		Updates(fields).Error
	if err != nil {
		return nil, errs.Internal("failed to update invoice", err)
	}
	s.Invoices.publish(scope.WorkspaceID, action, id)
	return s.Invoices.Find(ctx, s.db, scope.WorkspaceID, id)
}

// ArchiveStale archives paid invoices whose payment is older than before,
// across all workspaces. It runs without a caller from the scheduler.
func (s *InvoiceService) ArchiveStale(ctx context.Context, before time.Time) (int64, error) {
	var workspaces []string
	stale := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ? AND archived = ? AND paid_at < ?", models.InvoiceStatusPaid, false, before)
	if err := stale.Distinct().Pluck("workspace_id", &workspaces).Error; err != nil {
		return 0, errs.Internal("failed to find stale invoices", err)
	}
	if len(workspaces) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("workspace_id IN ? AND status = ? AND archived = ? AND paid_at < ?", workspaces, models.InvoiceStatusPaid, false, before).
		Updates(map[string]interface{}{"archived": true, "archived_at": time.Now()})
	if res.Error != nil {
		return 0, errs.Internal("failed to archive invoices", res.Error)
	}
	for _, ws := range workspaces {
		s.Invoices.publish(ws, "archived", "")
	}
	return res.RowsAffected, nil
}
