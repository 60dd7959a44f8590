package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Scoped is embedded by every row that belongs to a workspace.
type Scoped struct {
	Base
	WorkspaceID string `gorm:"type:uuid;not null;index" json:"workspaceId"`
	CreatedBy   string `gorm:"type:uuid" json:"createdBy"`
}

// Scope exposes the embedded tenant columns to generic services.
func (s *Scoped) Scope() *Scoped { return s }

// ScopedEntity is implemented by pointers to every workspace-owned model.
type ScopedEntity interface {
	Scope() *Scoped
}

// Shareable rows are private to their creator until marked shared.
type Shareable interface {
	IsShared() bool
	SetShared(shared bool)
}

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusRolledBack ImportStatus = "rolled_back"
)

type AccountKind string

const (
	AccountKindAsset     AccountKind = "asset"
	AccountKindLiability AccountKind = "liability"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)
