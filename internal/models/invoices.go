package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	Scoped
	Number     string          `gorm:"not null;index" json:"number" validate:"required"`
	CustomerID *string         `gorm:"type:uuid;index" json:"customerId,omitempty"`
	Customer   *Customer       `json:"customer,omitempty"`
	IssueDate  time.Time       `json:"issueDate"`
	DueDate    *time.Time      `json:"dueDate,omitempty"`
	Status     InvoiceStatus   `gorm:"not null;default:'draft'" json:"status" validate:"omitempty,invoice_status"`
	Currency   string          `gorm:"not null;default:'EUR'" json:"currency" validate:"omitempty,len=3"`
	Total      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	Notes      string          `json:"notes"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	Archived   bool            `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt *time.Time      `json:"archivedAt,omitempty"`
	PDFPath    string          `json:"pdfPath,omitempty"`
	PDFURL     string          `gorm:"-" json:"pdfUrl,omitempty"` // Virtual field
	Lines      []InvoiceLine   `gorm:"foreignKey:InvoiceID" json:"lines,omitempty" validate:"dive"`
}

type InvoiceLine struct {
	Base
	InvoiceID   string          `gorm:"type:uuid;not null;index" json:"invoiceId"`
	Description string          `gorm:"not null" json:"description" validate:"required"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Position    int             `json:"position"`
}

// Amount is quantity times unit price.
func (l InvoiceLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// RecomputeTotal sets Total from the lines. Invoices without lines keep their manual total.
func (i *Invoice) RecomputeTotal() {
	if len(i.Lines) == 0 {
		return
	}
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.Amount())
	}
	i.Total = total.Round(2)
}

func (i *Invoice) AfterFind(tx *gorm.DB) error {
	sort.SliceStable(i.Lines, func(a, b int) bool { return i.Lines[a].Position < i.Lines[b].Position })
	if i.PDFPath == "" {
		return nil
	}
	url, err := signedURL(tx, i.PDFPath)
	if err != nil {
		return fmt.Errorf("failed to sign invoice pdf url: %w", err)
	}
	i.PDFURL = url
	return nil
}
