package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Task struct {
	Scoped
	Title       string     `gorm:"not null" json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      TaskStatus `gorm:"not null;default:'todo'" json:"status" validate:"omitempty,task_status"`
	Priority    int        `json:"priority" validate:"min=0,max=5"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeID  *string    `gorm:"type:uuid" json:"assigneeId,omitempty"`
	Shared      bool       `json:"shared"`
}

type Idea struct {
	Scoped
	Title  string         `gorm:"not null" json:"title" validate:"required"`
	Body   string         `json:"body"`
	Tags   datatypes.JSON `json:"tags,omitempty"`
	Shared bool           `json:"shared"`
}

func (t *Task) IsShared() bool        { return t.Shared }
func (t *Task) SetShared(shared bool) { t.Shared = shared }

func (i *Idea) IsShared() bool        { return i.Shared }
func (i *Idea) SetShared(shared bool) { i.Shared = shared }

type Recipe struct {
	Scoped
	Name         string         `gorm:"not null" json:"name" validate:"required"`
	Servings     int            `json:"servings" validate:"min=0"`
	Ingredients  datatypes.JSON `json:"ingredients,omitempty"`
	Instructions string         `json:"instructions"`
}

// Ingredient is one element of Recipe.Ingredients.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type ShoppingList struct {
	Scoped
	Name  string         `gorm:"not null" json:"name" validate:"required"`
	Items []ShoppingItem `gorm:"foreignKey:ListID" json:"items,omitempty"`
}

type ShoppingItem struct {
	Scoped
	ListID   string `gorm:"type:uuid;not null;index" json:"listId"`
	Name     string `gorm:"not null" json:"name" validate:"required"`
	Quantity string `json:"quantity"`
	Checked  bool   `json:"checked"`
}

// DashboardLayout stores one user's widget arrangement in a workspace.
type DashboardLayout struct {
	Base
	WorkspaceID string         `gorm:"type:uuid;not null;uniqueIndex:idx_dashboard_workspace_user" json:"workspaceId"`
	UserID      string         `gorm:"type:uuid;not null;uniqueIndex:idx_dashboard_workspace_user" json:"userId"`
	Widgets     datatypes.JSON `json:"widgets"`
}

// CompanySettings holds the invoicing identity of a workspace.
type CompanySettings struct {
	Base
	WorkspaceID      string `gorm:"type:uuid;not null;uniqueIndex" json:"workspaceId"`
	CompanyName      string `json:"companyName"`
	Address          string `json:"address"`
	TaxID            string `json:"taxId"`
	IBAN             string `json:"iban"`
	BIC              string `json:"bic"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	Website          string `json:"website" validate:"omitempty,url"`
	InvoicePrefix    string `json:"invoicePrefix" validate:"max=16"`
	DefaultCurrency  string `gorm:"not null;default:'EUR'" json:"defaultCurrency" validate:"omitempty,len=3"`
	PaymentTermsDays int    `json:"paymentTermsDays" validate:"min=0,max=365"`
	LogoPath         string `json:"logoPath,omitempty"`
	LogoURL          string `gorm:"-" json:"logoUrl,omitempty"` // Virtual field
}

func (c *CompanySettings) AfterFind(tx *gorm.DB) error {
	if c.LogoPath == "" {
		return nil
	}
	url, err := signedURL(tx, c.LogoPath)
	if err != nil {
		return fmt.Errorf("failed to sign logo url: %w", err)
	}
	c.LogoURL = url
	return nil
}
