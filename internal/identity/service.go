// Package identity turns provider logins into users and session tokens, and
// resolves tokens back into authz callers.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/config"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/utils/logger"
)

var log = logger.New("IDENTITY")

// Session is returned after a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Service struct {
	db       *gorm.DB
	static   *config.AllowList
	issuer   *TokenIssuer
	provider ProfileProvider
}

func NewService(db *gorm.DB, static *config.AllowList, issuer *TokenIssuer, provider ProfileProvider) *Service {
	if static == nil {
		static = &config.AllowList{}
	}
	return &Service{db: db, static: static, issuer: issuer, provider: provider}
}

func (s *Service) Issuer() *TokenIssuer { return s.issuer }

// IsAllowed checks the static list first, then the authorized_emails table.
func (s *Service) IsAllowed(ctx context.Context, email string) (bool, error) {
	email = config.NormalizeEmail(email)
	if s.static.Allows(email) {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AuthorizedEmail{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, errs.Internal("failed to check allow-list", err)
	}
	return count > 0, nil
}

// Resolve maps an authenticated email to its user record.
func (s *Service) Resolve(ctx context.Context, email string) (authz.Caller, *models.User, error) {
	email = config.NormalizeEmail(email)
	if email == "" {
		return authz.Caller{}, nil, errs.Unauthenticated("authentication required")
	}
	ok, err := s.IsAllowed(ctx, email)
	if err != nil {
		return authz.Caller{}, nil, err
	}
	if !ok {
		return authz.Caller{}, nil, errs.Forbidden("email %s is not authorized", email)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Caller{}, nil, errs.Unauthenticated("user not found")
		}
		return authz.Caller{}, nil, errs.Internal("failed to load user", err)
	}
	return authz.Caller{UserID: user.ID, Email: user.Email, Admin: s.static.IsAdmin(email)}, &user, nil
}

// Authenticate verifies a session token and resolves its caller.
func (s *Service) Authenticate(ctx context.Context, token string) (authz.Caller, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return authz.Caller{}, err
	}
	caller, _, err := s.Resolve(ctx, claims.Email)
	if err != nil {
		return authz.Caller{}, err
	}
	if caller.UserID != claims.UserID {
		return authz.Caller{}, errs.Unauthenticated("token does not match user")
	}
	return caller, nil
}

// Login exchanges a provider access token for a session, provisioning the
// user on first login.
func (s *Service) Login(ctx context.Context, accessToken string) (*Session, error) {
	profile, err := s.provider.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsAllowed(ctx, profile.Email)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("Rejected login for %s, not on the allow-list", profile.Email)
		return nil, errs.Forbidden("email %s is not authorized", config.NormalizeEmail(profile.Email))
	}

	user, err := s.Provision(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.IssueSession(user)
}

// IssueSession signs a token for user.
func (s *Service) IssueSession(user *models.User) (*Session, error) {
	token, exp, err := s.issuer.Issue(user)
	if err != nil {
		return nil, errs.Internal("failed to generate token", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// Provision returns the user for profile. A new user gets a default
// workspace and its owner grant in the same transaction.
func (s *Service) Provision(ctx context.Context, profile *Profile) (*models.User, error) {
	email := config.NormalizeEmail(profile.Email)
	var user models.User
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.ProviderID == "" && profile.ID != "" {
				user.Provider = "google"
				user.ProviderID = profile.ID
				if user.AvatarURL == "" {
					user.AvatarURL = profile.Picture
				}
				return tx.Save(&user).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.User{
			Email:      email,
			Name:       displayName(profile),
			Provider:   "google",
			ProviderID: profile.ID,
			AvatarURL:  profile.Picture,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if _, err := services.CreateWorkspace(ctx, tx, user.ID, user.Name+"'s Workspace"); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, errs.Internal("failed to provision user", err)
	}

	if created {
		log.Success("Provisioned user %s with a default workspace", email)
	}
	return &user, nil
}

func displayName(p *Profile) string {
	switch {
	case strings.TrimSpace(p.GivenName) != "":
		return strings.TrimSpace(p.GivenName)
	case strings.TrimSpace(p.Name) != "":
		return strings.TrimSpace(p.Name)
	default:
		return strings.SplitN(p.Email, "@", 2)[0]
	}
}
