package models

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	Base
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Name       string `json:"name"`
	Provider   string `gorm:"default:'google'" json:"provider"`
	ProviderID string `gorm:"index" json:"providerId,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

// BeforeSave keeps emails comparable by exact match.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

type Workspace struct {
	Base
	Name    string `gorm:"not null" json:"name" validate:"required,min=2"`
	OwnerID string `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner   *User  `json:"owner,omitempty"`
}

// Permission grants a user capabilities on one module (or all) of a workspace.
// At most one row exists per (workspace, user).
type Permission struct {
	Base
	WorkspaceID   string `gorm:"type:uuid;not null;uniqueIndex:idx_permission_workspace_user" json:"workspaceId"`
	UserID        string `gorm:"type:uuid;not null;uniqueIndex:idx_permission_workspace_user" json:"userId"`
	User          *User  `json:"user,omitempty"`
	Module        Module `gorm:"type:varchar(32);not null" json:"module"`
	CanView       bool   `json:"canView"`
	CanAdd        bool   `json:"canAdd"`
	CanDelete     bool   `json:"canDelete"`
	CanEditShared bool   `json:"canEditShared"`
}

// Allows reports whether the row grants capability on target.
func (p *Permission) Allows(target Module, capability Capability) bool {
	if !p.Module.Covers(target) {
		return false
	}
	switch capability {
	case CapView:
		return p.CanView
	case CapAdd:
		return p.CanAdd
	case CapDelete:
		return p.CanDelete
	case CapEditShared:
		return p.CanEditShared
	default:
		return false
	}
}

// OwnerPermission is the grant written for a workspace owner.
func OwnerPermission(workspaceID, userID string) *Permission {
	return &Permission{
		WorkspaceID:   workspaceID,
		UserID:        userID,
		Module:        ModuleAll,
		CanView:       true,
		CanAdd:        true,
		CanDelete:     true,
		CanEditShared: true,
	}
}

// AuthorizedEmail is a dynamic allow-list entry.
type AuthorizedEmail struct {
	Base
	Email   string `gorm:"uniqueIndex;not null" json:"email"`
	AddedBy string `json:"addedBy"`
}

func (a *AuthorizedEmail) BeforeSave(tx *gorm.DB) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return nil
}
