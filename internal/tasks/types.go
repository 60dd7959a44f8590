package tasks

import "time"

// Task Types
const (
	TaskTypeCustomerImport  = "customers:import"
	TaskTypeInvoicesArchive = "invoices:archive"
)

// Task Queues
const (
	QueueCritical = "critical" // For user-facing work such as imports
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like archival
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// ImportPayload references the batch to process.
type ImportPayload struct {
	BatchID string `json:"batch_id"`
}

// ArchivePayload overrides the configured age for one run. Zero uses the config.
type ArchivePayload struct {
	AfterMonths int `json:"after_months,omitempty"`
}
