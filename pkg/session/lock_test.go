package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	return nil
}
func (nopStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, sessionID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, sid, &domain.State{})
		_ = mgr.Delete(ctx, sid)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("memory leak: %d locks remaining after Delete", n)
	}
}
