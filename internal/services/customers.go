package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
)

// CustomerService manages customers with their students and groups.
type CustomerService struct {
	Customers *ScopedService[models.Customer, *models.Customer]
	Students  *ScopedService[models.Student, *models.Student]
	Groups    *ScopedService[models.StudentGroup, *models.StudentGroup]
}

func NewCustomerService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *CustomerService {
	customers := NewScopedService[models.Customer](db, policy, bus, models.ModuleCustomers).
		WithFilters("name", "email", "import_batch_id").
		WithBeforeSave(keepImportBatch)

	groups := NewScopedService[models.StudentGroup](db, policy, bus, models.ModuleCustomers).
		WithFilters("customer_id", "name").
		WithBeforeSave(func(tx *gorm.DB, ws string, g *models.StudentGroup) error {
			return requireInWorkspace(tx, &models.Customer{}, ws, g.CustomerID, "customer")
		})

	students := NewScopedService[models.Student](db, policy, bus, models.ModuleCustomers).
		WithFilters("customer_id", "group_id", "last_name", "email", "level").
		WithBeforeSave(checkStudentRefs)

	return &CustomerService{Customers: customers, Students: students, Groups: groups}
}

// keepImportBatch makes the import tag read-only. New customers never carry
// one and updates keep the stored value.
func keepImportBatch(tx *gorm.DB, ws string, c *models.Customer) error {
	if c.ID == "" {
		c.ImportBatchID = nil
		return nil
	}
	var stored models.Customer
	err := tx.Select("id", "import_batch_id").
		Where("workspace_id = ? AND id = ?", ws, c.ID).
		First(&stored).Error
	if err != nil {
		return errs.FromDB(err, "customer")
	}
	c.ImportBatchID = stored.ImportBatchID
	return nil
}

func checkStudentRefs(tx *gorm.DB, ws string, st *models.Student) error {
	if err := requireInWorkspace(tx, &models.Customer{}, ws, st.CustomerID, "customer"); err != nil {
		return err
	}
	if st.GroupID == nil || *st.GroupID == "" {
		st.GroupID = nil
		return nil
	}
	var group models.StudentGroup
	if err := tx.Where("workspace_id = ? AND id = ?", ws, *st.GroupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Validation("group %s does not exist in this workspace", *st.GroupID)
		}
		return errs.Internal("failed to check group", err)
	}
	if group.CustomerID != st.CustomerID {
		return errs.Validation("group belongs to another customer")
	}
	return nil
}

// DeleteCustomer removes the customer together with its students and groups.
func (s *CustomerService) DeleteCustomer(ctx context.Context, scope Scope, id string) error {
	return s.Customers.DeleteWith(ctx, scope, id, func(tx *gorm.DB, c *models.Customer) error {
		return deleteCustomerChildren(tx, scope.WorkspaceID, []string{c.ID})
	})
}

// DeleteGroup detaches the group's students and removes the group.
func (s *CustomerService) DeleteGroup(ctx context.Context, scope Scope, id string) error {
	return s.Groups.DeleteWith(ctx, scope, id, func(tx *gorm.DB, g *models.StudentGroup) error {
		err := tx.Model(&models.Student{}).
			Where("workspace_id = ? AND group_id = ?", scope.WorkspaceID, g.ID).
			Update("group_id", nil).Error
		if err != nil {
			return errs.Internal("failed to detach students from group", err)
		}
		return nil
	})
}

// deleteCustomerChildren removes students and groups of the given customers.
func deleteCustomerChildren(tx *gorm.DB, workspaceID string, customerIDs []string) error {
	if len(customerIDs) == 0 {
		return nil
	}
	err := tx.Where("workspace_id = ? AND customer_id IN ?", workspaceID, customerIDs).
		Delete(&models.Student{}).Error
	if err != nil {
		return errs.Internal("failed to delete students", err)
	}
	err = tx.Where("workspace_id = ? AND customer_id IN ?", workspaceID, customerIDs).
		Delete(&models.StudentGroup{}).Error
	if err != nil {
		return errs.Internal("failed to delete groups", err)
	}
	return nil
}

// deleteCustomers removes customers and everything hanging off them.
func deleteCustomers(tx *gorm.DB, workspaceID string, customerIDs []string) (int64, error) {
	if err := deleteCustomerChildren(tx, workspaceID, customerIDs); err != nil {
		return 0, err
	}
	if len(customerIDs) == 0 {
		return 0, nil
	}
	res := tx.Where("workspace_id = ? AND id IN ?", workspaceID, customerIDs).Delete(&models.Customer{})
	if res.Error != nil {
		return 0, errs.Internal("failed to delete customers", res.Error)
	}
	return res.RowsAffected, nil
}
