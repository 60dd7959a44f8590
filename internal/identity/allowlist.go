package identity

import (
	"context"

	"bizdesk/internal/authz"
	"bizdesk/internal/config"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
)

func (s *Service) requireAdmin(caller authz.Caller) error {
	if caller.Anonymous() {
		return errs.Unauthenticated("authentication required")
	}
	if !caller.Admin {
		return errs.Forbidden("only administrators can manage the allow-list")
	}
	return nil
}

// AuthorizedEmails lists the dynamic allow-list.
func (s *Service) AuthorizedEmails(ctx context.Context, caller authz.Caller) ([]models.AuthorizedEmail, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	var out []models.AuthorizedEmail
	if err := s.db.WithContext(ctx).Order("email").Find(&out).Error; err != nil {
		return nil, errs.Internal("failed to list authorized emails", err)
	}
	return out, nil
}

func (s *Service) AuthorizeEmail(ctx context.Context, caller authz.Caller, email string) (*models.AuthorizedEmail, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.AddAuthorizedEmail(ctx, email, caller.Email)
}

func (s *Service) RevokeEmail(ctx context.Context, caller authz.Caller, email string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	return s.RemoveAuthorizedEmail(ctx, email)
}

// AddAuthorizedEmail puts email on the dynamic allow-list. Emails already
// allowed, statically or dynamically, are rejected.
func (s *Service) AddAuthorizedEmail(ctx context.Context, email, addedBy string) (*models.AuthorizedEmail, error) {
	email = config.NormalizeEmail(email)
	if email == "" {
		return nil, errs.Validation("email is required")
	}
	ok, err := s.IsAllowed(ctx, email)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errs.Validation("email already authorized")
	}
	entry := &models.AuthorizedEmail{Email: email, AddedBy: addedBy}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, errs.Internal("failed to authorize email", err)
	}
	log.Info("Authorized %s (by %s)", email, addedBy)
	return entry, nil
}

// RemoveAuthorizedEmail deletes email from the dynamic allow-list. Existing
// users and their data are kept.
func (s *Service) RemoveAuthorizedEmail(ctx context.Context, email string) error {
	email = config.NormalizeEmail(email)
	res := s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.AuthorizedEmail{})
	if res.Error != nil {
		return errs.Internal("failed to revoke email", res.Error)
	}
	if res.RowsAffected == 0 {
		if s.static.Allows(email) {
			return errs.Validation("%s is on the static allow-list, edit the allow-list file instead", email)
		}
		return errs.NotFound("authorized email not found")
	}
	log.Info("Revoked %s", email)
	return nil
}
