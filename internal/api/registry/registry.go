package registry

import (
	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/controllers"
	"bizdesk/internal/services"
)

// 📝 RegisterCRUDRoutes registers the workspace CRUD routes of every module - godoc
// @Summary Register CRUD routes for all workspace models
// @Description Each group is mounted under /api/v1/workspaces/{ws}. Permissions are checked per module by the services.
// @Accept json
// @Produce json
func RegisterCRUDRoutes(g *echo.Group, svc *services.Services) {
	// Customers
	// @Summary List customers
	// @Description Get a page of customers. Filters: name, email
	// @Accept json
	// @Produce json
	// @Param ws path string true "Workspace ID"
	// @Success 200 {array} models.Customer
	// @Failure 401 {object} map[string]string "Unauthorized"
	// @Failure 403 {object} map[string]string "Forbidden"
	// @Router /api/v1/workspaces/{ws}/customers [get]
	controllers.NewScopedController(svc.Customers.Customers).
		WithDelete(svc.Customers.DeleteCustomer).
		RegisterRoutes(g, "/customers")

	// @Summary Delete student group
	// @Description Students of the group are kept with an empty group
	// @Param ws path string true "Workspace ID"
	// @Param id path string true "Group ID"
	// @Success 204 "No content"
	// @Failure 404 {object} map[string]string "Not found"
	// @Router /api/v1/workspaces/{ws}/student-groups/{id} [delete]
	controllers.NewScopedController(svc.Customers.Groups).
		WithDelete(svc.Customers.DeleteGroup).
		RegisterRoutes(g, "/student-groups")

	controllers.NewScopedController(svc.Customers.Students).RegisterRoutes(g, "/students")

	// Import batches are created through the import handler and never edited.
	controllers.NewScopedController(svc.Imports.Batches).RegisterRoutes(g, "/imports", "GET")

	// Invoices
	// @Summary Create invoice
	// @Description Number is assigned when empty; total is computed from the lines
	// @Accept json
	// @Produce json
	// @Param ws path string true "Workspace ID"
	// @Param invoice body models.Invoice true "Invoice object"
	// @Success 201 {object} models.Invoice
	// @Failure 400 {object} map[string]string "Bad request"
	// @Failure 403 {object} map[string]string "Forbidden"
	// @Router /api/v1/workspaces/{ws}/invoices [post]
	controllers.NewScopedController(svc.Invoices.Invoices).
		WithCreate(svc.Invoices.Create).
		WithUpdate(svc.Invoices.Update).
		WithDelete(svc.Invoices.Delete).
		RegisterRoutes(g, "/invoices")

	// Budget
	controllers.NewScopedController(svc.Budget.Incomes).RegisterRoutes(g, "/budget/incomes")
	controllers.NewScopedController(svc.Budget.Outgoings).
		WithDelete(svc.Budget.DeleteOutgoing).
		RegisterRoutes(g, "/budget/outgoings")
	controllers.NewScopedController(svc.Budget.Overrides).RegisterRoutes(g, "/budget/overrides", "GET")

	// Finance
	// @Summary Delete finance account
	// @Description Deletes the account with all its monthly balances
	// @Param ws path string true "Workspace ID"
	// @Param id path string true "Account ID"
	// @Success 204 "No content"
	// @Router /api/v1/workspaces/{ws}/finance/accounts/{id} [delete]
	controllers.NewScopedController(svc.Finance.Accounts).
		WithDelete(svc.Finance.DeleteAccount).
		RegisterRoutes(g, "/finance/accounts")
	controllers.NewScopedController(svc.Finance.Balances).RegisterRoutes(g, "/finance/balances", "GET", "DELETE")

	// Flow
	controllers.NewScopedController(svc.Flow.Tasks).RegisterRoutes(g, "/flow/tasks")
	controllers.NewScopedController(svc.Flow.Ideas).RegisterRoutes(g, "/flow/ideas")

	// Food
	controllers.NewScopedController(svc.Food.Recipes).RegisterRoutes(g, "/food/recipes")
	controllers.NewScopedController(svc.Food.Lists).
		WithDelete(svc.Food.DeleteList).
		RegisterRoutes(g, "/food/lists")
	controllers.NewScopedController(svc.Food.Items).RegisterRoutes(g, "/food/items")
}
