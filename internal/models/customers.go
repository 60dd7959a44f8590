package models

import (
	"time"

	"gorm.io/datatypes"
)

type Customer struct {
	Scoped
	Name          string  `gorm:"not null" json:"name" validate:"required"`
	Email         string  `json:"email" validate:"omitempty,email"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	Notes         string  `json:"notes"`
	ImportBatchID *string `gorm:"type:uuid;index" json:"importBatchId,omitempty"`
}

type Student struct {
	Scoped
	CustomerID string  `gorm:"type:uuid;not null;index" json:"customerId" validate:"required"`
	GroupID    *string `gorm:"type:uuid;index" json:"groupId,omitempty"`
	FirstName  string  `gorm:"not null" json:"firstName" validate:"required"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Level      string  `json:"level"`
}

type StudentGroup struct {
	Scoped
	CustomerID string `gorm:"type:uuid;not null;index" json:"customerId" validate:"required"`
	Name       string `gorm:"not null" json:"name" validate:"required"`
	Schedule   string `json:"schedule"`
}

// ImportBatch groups the customers created by one bulk import.
type ImportBatch struct {
	Scoped
	FileName      string         `json:"fileName"`
	Status        ImportStatus   `gorm:"not null;default:'pending'" json:"status"`
	RowCount      int            `json:"rowCount"`
	ImportedCount int            `json:"importedCount"`
	Rows          datatypes.JSON `json:"-"`
	Error         string         `json:"error,omitempty"`
	RolledBackAt  *time.Time     `json:"rolledBackAt,omitempty"`
}

// ImportRow is one customer line of an import batch.
type ImportRow struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}
