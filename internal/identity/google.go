package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bizdesk/internal/errs"
)

// Profile is the identity document returned by the provider.
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// ProfileProvider exchanges a provider access token for a profile.
type ProfileProvider interface {
	UserInfo(ctx context.Context, accessToken string) (*Profile, error)
}

type GoogleProvider struct {
	userInfoURL string
	client      *http.Client
}

func NewGoogleProvider(userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		userInfoURL: userInfoURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// UserInfo fetches the Google profile for accessToken. Unverified emails are rejected.
func (g *GoogleProvider) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, errs.Unauthenticated("no access token provided")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, errs.Internal("failed to build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errs.Internal("failed getting user info", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Internal("failed to read user info", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errs.Unauthenticated("identity provider rejected the access token")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Internal("identity provider error", fmt.Errorf("userinfo status %d", resp.StatusCode))
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errs.Internal("failed to parse user data from Google", err)
	}
	if p.Email == "" || !p.VerifiedEmail {
		return nil, errs.Unauthenticated("email is not verified")
	}
	return &p, nil
}
