package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllowList is the static part of the login allow-list.
//
//	emails:
//	  - ada@example.com
//	admins:
//	  - root@example.com
//
// Admins are implicitly allowed and may manage the dynamic allow-list.
type AllowList struct {
	Emails []string `yaml:"emails"`
	Admins []string `yaml:"admins"`
}

// LoadAllowList reads the YAML allow-list at path. An empty path yields an empty list.
func LoadAllowList(path string) (*AllowList, error) {
	list := &AllowList{}
	if path == "" {
		return list, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow-list %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, list); err != nil {
		return nil, fmt.Errorf("failed to parse allow-list %s: %w", path, err)
	}

	list.Emails = normalizeEmails(list.Emails)
	list.Admins = normalizeEmails(list.Admins)
	return list, nil
}

// Allows reports whether email is listed as a user or an admin.
func (a *AllowList) Allows(email string) bool {
	if a == nil {
		return false
	}
	return contains(a.Emails, email) || a.IsAdmin(email)
}

func (a *AllowList) IsAdmin(email string) bool {
	if a == nil {
		return false
	}
	return contains(a.Admins, email)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = NormalizeEmail(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func contains(list []string, email string) bool {
	email = NormalizeEmail(email)
	for _, e := range list {
		if e == email {
			return true
		}
	}
	return false
}
