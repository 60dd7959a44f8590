package models

import "time"

// Admin rows are flat views of the identity tables for the operator panel.
// The panel maps each struct field to one column, so these types embed
// nothing and name every column explicitly.

type AdminUser struct {
	ID        string    `gorm:"column:id;primaryKey" admin:"addForm:exclude;editForm:exclude"`
	Email     string    `gorm:"column:email" admin:"editForm:exclude"`
	Name      string    `gorm:"column:name" admin:"editForm:exclude"`
	Provider  string    `gorm:"column:provider" admin:"search:exclude;editForm:exclude"`
	CreatedAt time.Time `gorm:"column:created_at" admin:"search:exclude;addForm:exclude;editForm:exclude"`
}

func (AdminUser) TableName() string        { return "users" }
func (AdminUser) AdminName() string        { return "users" }
func (AdminUser) AdminDisplayName() string { return "Users" }

type AdminWorkspace struct {
	ID        string    `gorm:"column:id;primaryKey" admin:"addForm:exclude;editForm:exclude"`
	Name      string    `gorm:"column:name" admin:"editForm:exclude"`
	OwnerID   string    `gorm:"column:owner_id" admin:"displayName:Owner;editForm:exclude"`
	CreatedAt time.Time `gorm:"column:created_at" admin:"search:exclude;addForm:exclude;editForm:exclude"`
}

func (AdminWorkspace) TableName() string        { return "workspaces" }
func (AdminWorkspace) AdminName() string        { return "workspaces" }
func (AdminWorkspace) AdminDisplayName() string { return "Workspaces" }

type AdminPermission struct {
	ID            string `gorm:"column:id;primaryKey" admin:"addForm:exclude;editForm:exclude"`
	WorkspaceID   string `gorm:"column:workspace_id" admin:"displayName:Workspace;editForm:exclude"`
	UserID        string `gorm:"column:user_id" admin:"displayName:User;editForm:exclude"`
	Module        string `gorm:"column:module" admin:"editForm:exclude"`
	CanView       bool   `gorm:"column:can_view" admin:"search:exclude"`
	CanAdd        bool   `gorm:"column:can_add" admin:"search:exclude"`
	CanDelete     bool   `gorm:"column:can_delete" admin:"search:exclude"`
	CanEditShared bool   `gorm:"column:can_edit_shared" admin:"search:exclude"`
}

func (AdminPermission) TableName() string        { return "permissions" }
func (AdminPermission) AdminName() string        { return "permissions" }
func (AdminPermission) AdminDisplayName() string { return "Permissions" }

type AdminAuthorizedEmail struct {
	ID        string    `gorm:"column:id;primaryKey" admin:"addForm:exclude;editForm:exclude"`
	Email     string    `gorm:"column:email" admin:"editForm:exclude"`
	AddedBy   string    `gorm:"column:added_by" admin:"editForm:exclude"`
	CreatedAt time.Time `gorm:"column:created_at" admin:"search:exclude;addForm:exclude;editForm:exclude"`
}

func (AdminAuthorizedEmail) TableName() string        { return "authorized_emails" }
func (AdminAuthorizedEmail) AdminName() string        { return "authorized_emails" }
func (AdminAuthorizedEmail) AdminDisplayName() string { return "Authorized emails" }

// AdminModels are registered on the operator panel in display order.
func AdminModels() []interface{} {
	return []interface{}{
		&AdminUser{},
		&AdminWorkspace{},
		&AdminPermission{},
		&AdminAuthorizedEmail{},
	}
}
