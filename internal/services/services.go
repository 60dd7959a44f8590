package services

import (
	"time"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/events"
)

// Dependencies are the collaborators shared by every service.
type Dependencies struct {
	DB      *gorm.DB
	Policy  *authz.Policy
	Bus     *events.EventBus
	Store   FileStore
	Queue   ImportQueue
	Limiter Limiter
	// MaxImportRows caps the rows of one import batch.
	MaxImportRows int
	URLTTL        time.Duration
}

// Services groups the domain services of the application.
type Services struct {
	Policy     *authz.Policy
	Bus        *events.EventBus
	Workspaces *WorkspaceService
	Customers  *CustomerService
	Imports    *ImportService
	Invoices   *InvoiceService
	Budget     *BudgetService
	Finance    *FinanceService
	Flow       *FlowService
	Food       *FoodService
	Dashboard  *DashboardService
	Settings   *SettingsService
}

func New(deps Dependencies) *Services {
	policy := deps.Policy
	if policy == nil {
		policy = authz.NewPolicy(deps.DB)
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewEventBus()
	}
	if deps.URLTTL <= 0 {
		deps.URLTTL = time.Hour
	}

	return &Services{
		Policy:     policy,
		Bus:        bus,
		Workspaces: NewWorkspaceService(deps.DB, policy, bus),
		Customers:  NewCustomerService(deps.DB, policy, bus),
		Imports:    NewImportService(deps.DB, policy, bus, deps.Queue, deps.Limiter, deps.MaxImportRows),
		Invoices:   NewInvoiceService(deps.DB, policy, bus, deps.Store),
		Budget:     NewBudgetService(deps.DB, policy, bus),
		Finance:    NewFinanceService(deps.DB, policy, bus),
		Flow:       NewFlowService(deps.DB, policy, bus),
		Food:       NewFoodService(deps.DB, policy, bus),
		Dashboard:  NewDashboardService(deps.DB, policy, bus),
		Settings:   NewSettingsService(deps.DB, policy, bus, deps.Store, deps.URLTTL),
	}
}
