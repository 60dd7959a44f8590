package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/authz"
	"bizdesk/internal/config"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/testutil"
)

type stubProvider struct {
	profile *Profile
	err     error
}

func (p stubProvider) UserInfo(context.Context, string) (*Profile, error) { return p.profile, p.err }

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := newIssuer(t)
	user := &models.User{Email: "ada@example.com"}
	user.ID = "user-1"

	token, exp, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestTokenRejected(t *testing.T) {
	issuer := newIssuer(t)
	user := &models.User{Email: "ada@example.com"}
	user.ID = "user-1"

	_, err := issuer.Parse("")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	other, err := NewTokenIssuer(config.AuthConfig{JWTSecret: "other-secret"})
	require.NoError(t, err)
	foreign, _, err := other.Issue(user)
	require.NoError(t, err)
	_, err = issuer.Parse(foreign)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := issuer.Issue(user)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestTokenRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	issuer, err := NewTokenIssuer(config.AuthConfig{PrivateKey: base64.StdEncoding.EncodeToString(block)})
	require.NoError(t, err)
	assert.Equal(t, "RS256", issuer.method.Alg())

	user := &models.User{Email: "ada@example.com"}
	user.ID = "user-1"
	token, _, err := issuer.Issue(user)
	require.NoError(t, err)
	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = NewTokenIssuer(config.AuthConfig{PrivateKey: "%%%"})
	assert.Error(t, err)
	_, err = NewTokenIssuer(config.AuthConfig{})
	assert.Error(t, err)
}

func TestLoginProvisionsOnce(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	static := &config.AllowList{Emails: []string{"ada@example.com"}}
	provider := stubProvider{profile: &Profile{ID: "g-1", Email: "Ada@Example.com", GivenName: "Ada", VerifiedEmail: true}}
	svc := NewService(gdb, static, newIssuer(t), provider)

	session, err := svc.Login(ctx, "access")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, "g-1", session.User.ProviderID)

	var workspaces []models.Workspace
	require.NoError(t, gdb.Where("owner_id = ?", session.User.ID).Find(&workspaces).Error)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "Ada's Workspace", workspaces[0].Name)

	var perm models.Permission
	require.NoError(t, gdb.Where("workspace_id = ? AND user_id = ?", workspaces[0].ID, session.User.ID).First(&perm).Error)
	assert.Equal(t, models.ModuleAll, perm.Module)

	again, err := svc.Login(ctx, "access")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)
	var count int64
	require.NoError(t, gdb.Model(&models.Workspace{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	caller, err := svc.Authenticate(ctx, again.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, caller.UserID)
	assert.False(t, caller.Admin)
}

func TestLoginRejectsUnlistedEmail(t *testing.T) {
	gdb := testutil.NewDB(t)
	provider := stubProvider{profile: &Profile{Email: "eve@example.com", VerifiedEmail: true}}
	svc := NewService(gdb, nil, newIssuer(t), provider)

	_, err := svc.Login(context.Background(), "access")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	var users int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestAuthenticateAfterRevocation(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	provider := stubProvider{profile: &Profile{Email: "bob@example.com", Name: "Bob", VerifiedEmail: true}}
	svc := NewService(gdb, nil, newIssuer(t), provider)

	_, err := svc.AddAuthorizedEmail(ctx, "bob@example.com", "cli")
	require.NoError(t, err)
	session, err := svc.Login(ctx, "access")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveAuthorizedEmail(ctx, "BOB@example.com"))
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// Revocation keeps the user and their data.
	var users int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 1, users)
}

func TestDynamicAllowList(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	static := &config.AllowList{Emails: []string{"ada@example.com"}, Admins: []string{"root@example.com"}}
	svc := NewService(gdb, static, newIssuer(t), nil)

	admin := authz.Caller{UserID: "root", Email: "root@example.com", Admin: true}
	user := authz.Caller{UserID: "ada", Email: "ada@example.com"}

	_, err := svc.AuthorizeEmail(ctx, user, "new@example.com")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.AuthorizeEmail(ctx, authz.Caller{}, "new@example.com")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	entry, err := svc.AuthorizeEmail(ctx, admin, " New@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", entry.Email)
	assert.Equal(t, "root@example.com", entry.AddedBy)

	_, err = svc.AuthorizeEmail(ctx, admin, "new@example.com")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = svc.AuthorizeEmail(ctx, admin, "ada@example.com")
	assert.ErrorIs(t, err, errs.ErrValidation, "statically allowed")
	_, err = svc.AuthorizeEmail(ctx, admin, "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	list, err := svc.AuthorizedEmails(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, svc.RevokeEmail(ctx, admin, "ada@example.com"), errs.ErrValidation)
	assert.ErrorIs(t, svc.RevokeEmail(ctx, admin, "ghost@example.com"), errs.ErrNotFound)
	require.NoError(t, svc.RevokeEmail(ctx, admin, "new@example.com"))
}

func TestResolveAdminFlag(t *testing.T) {
	gdb := testutil.NewDB(t)
	static := &config.AllowList{Admins: []string{"root@example.com"}}
	svc := NewService(gdb, static, newIssuer(t), nil)
	root := testutil.CreateUser(t, gdb, "root@example.com")

	caller, user, err := svc.Resolve(context.Background(), "ROOT@example.com")
	require.NoError(t, err)
	assert.True(t, caller.Admin)
	assert.Equal(t, root.ID, user.ID)

	_, _, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	static.Emails = append(static.Emails, "ghost@example.com")
	_, _, err = svc.Resolve(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated, "allowed but never signed in")
}

func TestGoogleProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"1","email":"ada@example.com","verified_email":true,"given_name":"Ada"}`))
		case "Bearer unverified":
			_, _ = w.Write([]byte(`{"id":"2","email":"eve@example.com","verified_email":false}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	g := NewGoogleProvider(srv.URL)
	ctx := context.Background()

	p, err := g.UserInfo(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "Ada", displayName(p))

	_, err = g.UserInfo(ctx, "unverified")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = g.UserInfo(ctx, "bad")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = g.UserInfo(ctx, "")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}
