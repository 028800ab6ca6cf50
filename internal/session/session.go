// Package session keeps the process-wide view of who is signed in: the
// current principal, whether that principal is an admin, and whether the
// first state callback has been processed yet.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// Provider is the identity provider as seen by the session.
type Provider interface {
	OnStateChanged(fn func(p *model.Principal)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// UserLookup reads users documents. *repository.UserRepo satisfies it.
type UserLookup interface {
	Get(ctx context.Context, uid string) (model.User, error)
}

// ResolveAdmin reports whether uid's users document exists with admin set
// to true. Any lookup failure resolves to false; failures other than a
// missing document are logged.
func ResolveAdmin(ctx context.Context, users UserLookup, uid string) bool {
	u, err := users.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("session: admin lookup for %s failed: %v", uid, err)
		}
		return false
	}
	return u.Admin
}

const DefaultLookupTimeout = 5 * time.Second

// Manager follows a Provider. Construct with NewManager, call Start once,
// and Close to unsubscribe.
type Manager struct {
	provider      Provider
	users         UserLookup
	LookupTimeout time.Duration

	mu        sync.RWMutex
	principal *model.Principal
	isAdmin   bool
	loading   bool
	gen       uint64

	ready     chan struct{}
	readyOnce sync.Once
	startOnce sync.Once
	unsub     func()
}

func NewManager(p Provider, users UserLookup) *Manager {
	return &Manager{
		provider:      p,
		users:         users,
		LookupTimeout: DefaultLookupTimeout,
		loading:       true,
		ready:         make(chan struct{}),
	}
}

// Start subscribes to the provider. Calling it again has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		unsub := m.provider.OnStateChanged(m.handle)
		m.mu.Lock()
		m.unsub = unsub
		m.mu.Unlock()
	})
}

// handle runs the full sequence for one state callback.
func (m *Manager) handle(p *model.Principal) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	prev := m.principal
	m.principal = p
	if p == nil || prev == nil || prev.UID != p.UID {
		m.isAdmin = false
	}
	m.mu.Unlock()

	admin := false
	if p != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.LookupTimeout)
		admin = ResolveAdmin(ctx, m.users, p.UID)
		cancel()
	}

	m.mu.Lock()
	// a newer callback owns the flags now
	current := gen == m.gen
	if current {
		m.isAdmin = admin
		m.loading = false
	}
	m.mu.Unlock()
	if current {
		m.readyOnce.Do(func() { close(m.ready) })
	}
}

// Current returns a copy of the signed-in principal, or nil.
func (m *Manager) Current() *model.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.principal == nil {
		return nil
	}
	p := *m.principal
	return &p
}

func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isAdmin
}

// Loading is true until the first state callback has been fully processed.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// WaitReady blocks until Loading turns false or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignOut asks the provider to end the session. Failures are logged, not
// returned; a failed sign-out shows only as the principal staying set.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.provider.SignOut(ctx); err != nil {
		log.Printf("session: sign out failed: %v", err)
	}
}

// Close unsubscribes from the provider.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
