package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/testutil"
)

type env struct {
	db    *gorm.DB
	svc   *services.Services
	fx    testutil.Fixture
	owner services.Scope
}

func newEnv(t *testing.T, mutate ...func(*services.Dependencies)) *env {
	t.Helper()
	gdb := testutil.NewDB(t)
	fx := testutil.CreateWorkspace(t, gdb, "owner@example.com", "Acme")

	deps := services.Dependencies{DB: gdb}
	for _, m := range mutate {
		m(&deps)
	}
	return &env{
		db:    gdb,
		svc:   services.New(deps),
		fx:    fx,
		owner: services.Scope{Caller: authz.Caller{UserID: fx.Owner.ID, Email: fx.Owner.Email}, WorkspaceID: fx.Workspace.ID},
	}
}

// member creates a user with one permission row on the env workspace.
func (e *env) member(t *testing.T, email string, module models.Module, view, add, del, editShared bool) services.Scope {
	t.Helper()
	u := testutil.CreateUser(t, e.db, email)
	testutil.Grant(t, e.db, e.fx.Workspace.ID, u.ID, module, view, add, del, editShared)
	return services.Scope{Caller: authz.Caller{UserID: u.ID, Email: u.Email}, WorkspaceID: e.fx.Workspace.ID}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeQueue struct {
	mu      sync.Mutex
	batches []string
	err     error
}

func (q *fakeQueue) EnqueueImport(_ context.Context, batchID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.batches = append(q.batches, batchID)
	return nil
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (l fakeLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }

type fakeStore struct {
	uploads map[string][]byte
}

func (s *fakeStore) UploadFile(_ context.Context, data []byte, prefix, filename, _ string) (string, error) {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	key := prefix + "/" + filename
	s.uploads[key] = data
	return key, nil
}

func (s *fakeStore) PresignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://files.example.com/upload/" + key, nil
}

func (s *fakeStore) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + key, nil
}

var errQueueDown = errors.New("queue down")
