// Package session owns the signed-in user and the operations that change it.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/facegate/internal/client/apperr"
	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/dmitrijs2005/facegate/internal/client/routepath"
	"github.com/dmitrijs2005/facegate/internal/client/tokenstore"
	"github.com/dmitrijs2005/facegate/internal/client/transport"
	"github.com/dmitrijs2005/facegate/internal/logging"
)

const (
	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed"
	msgResetFailed        = "Password reset failed"
	msgConfirmFailed      = "Email confirmation failed"
	msgFetchUserFailed    = "Could not load user"
)

// Manager is the single authoritative AuthState holder. Concurrent
// operations are allowed; the last write to User or Error wins.
//
// Loading is tracked as a count of operations in flight. A new Manager
// starts with one slot held for the startup check, released by the first
// CheckSession.
type Manager struct {
	boundary Boundary
	store    tokenstore.Store
	nav      Navigator
	log      logging.Logger

	mu       sync.Mutex
	user     *models.User
	errMsg   string
	inflight int
	checked  bool
	subs     map[int]func(AuthState)
	nextSub  int
}

func NewManager(boundary Boundary, store tokenstore.Store, nav Navigator, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		boundary: boundary,
		store:    store,
		nav:      nav,
		log:      log,
		inflight: 1,
		subs:     make(map[int]func(AuthState)),
	}
}

// State returns a snapshot.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Subscribe registers fn to receive every state change. fn runs on the
// goroutine that made the change and must not call back into mutating
// Manager methods.
func (m *Manager) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// CheckSession confirms a stored session at startup. Failures are logged
// and leave the user signed out; nothing is cleared.
func (m *Manager) CheckSession(ctx context.Context) {
	m.update(func() {
		if m.checked {
			m.inflight++
		}
		m.checked = true
	})
	defer m.update(m.release)

	if !m.store.HasAccess(ctx) {
		return
	}

	u, err := m.boundary.CurrentUser(ctx)
	if err != nil {
		m.log.Warn(ctx, "stored session could not be confirmed", "error", err)
		return
	}
	m.update(func() { m.user = u })
}

// Login exchanges email and password for a session, stores it and loads
// the user. On failure User is left as it was and Error is set.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.update(m.acquireClearing)
	defer m.update(m.release)

	tokens, err := m.boundary.Login(ctx, email, password)
	if err != nil {
		return m.fail(ctx, err, msgLoginFailed, true)
	}
	if tokens.Access == "" {
		return m.fail(ctx, &apperr.Error{Kind: apperr.BoundaryFailure, Message: msgLoginFailed}, msgLoginFailed, true)
	}
	if err := m.store.Set(ctx, tokens); err != nil {
		return m.fail(ctx, err, msgLoginFailed, false)
	}
	u, err := m.boundary.CurrentUser(ctx)
	if err != nil {
		return m.fail(ctx, err, msgLoginFailed, false)
	}
	m.update(func() { m.user = u })

	m.log.Info(ctx, "signed in")
	return nil
}

// Register creates an account without signing in.
func (m *Manager) Register(ctx context.Context, reg models.Registration) (*models.RegisterResult, error) {
	m.update(m.acquireClearing)
	defer m.update(m.release)

	res, err := m.boundary.Register(ctx, reg)
	if err != nil {
		return nil, m.fail(ctx, err, msgRegistrationFailed, false)
	}
	return res, nil
}

// Logout always ends with an empty store, no user and navigation to the
// entry point. The boundary call is best effort.
func (m *Manager) Logout(ctx context.Context) {
	m.update(m.acquire)
	defer m.update(m.release)

	if err := m.boundary.Logout(ctx); err != nil {
		m.log.Warn(ctx, "boundary logout failed", "error", err)
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn(ctx, "token store clear failed", "error", err)
	}
	m.update(func() {
		m.user = nil
		m.errMsg = ""
	})
	m.navigate(ctx, routepath.EntryPoint)
}

func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	m.update(m.acquireClearing)
	defer m.update(m.release)

	if err := m.boundary.ResetPassword(ctx, email); err != nil {
		return m.fail(ctx, err, msgResetFailed, false)
	}
	return nil
}

func (m *Manager) ConfirmEmail(ctx context.Context, token string) error {
	m.update(m.acquireClearing)
	defer m.update(m.release)

	if err := m.boundary.ConfirmEmail(ctx, token); err != nil {
		return m.fail(ctx, err, msgConfirmFailed, false)
	}
	return nil
}

func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	m.update(m.acquireClearing)
	defer m.update(m.release)

	if err := m.boundary.ConfirmPasswordReset(ctx, token, password); err != nil {
		return m.fail(ctx, err, msgResetFailed, false)
	}
	return nil
}

// FetchCurrentUser reloads the user. On failure the user is cleared and the
// normalised error is returned.
func (m *Manager) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	m.update(m.acquire)
	defer m.update(m.release)

	u, err := m.boundary.CurrentUser(ctx)
	if err != nil {
		m.update(func() { m.user = nil })
		return nil, apperr.Normalize(err, msgFetchUserFailed, false)
	}
	m.update(func() { m.user = u })
	return u, nil
}

// HandleInvalidation reacts to an unrecoverable session loss reported by
// the transport. The store is already empty at this point.
func (m *Manager) HandleInvalidation(ctx context.Context, inv transport.Invalidation) {
	m.log.Info(ctx, "session ended by boundary", "reason", inv.Reason, "request_id", inv.RequestID)
	m.update(func() { m.user = nil })
	m.navigate(ctx, routepath.EntryPoint)
}

func (m *Manager) ClearError() {
	m.update(func() { m.errMsg = "" })
}

func (m *Manager) fail(ctx context.Context, err error, fallback string, credential bool) error {
	ae := apperr.Normalize(err, fallback, credential)
	m.log.Debug(ctx, "session operation failed", "kind", ae.Kind, "status", ae.Status, "error", err)
	m.update(func() { m.errMsg = ae.Message })
	return ae
}

func (m *Manager) navigate(ctx context.Context, to routepath.Route) {
	if m.nav != nil {
		m.nav.Navigate(ctx, to)
	}
}

func (m *Manager) acquire() { m.inflight++ }

func (m *Manager) acquireClearing() {
	m.inflight++
	m.errMsg = ""
}

func (m *Manager) release() {
	if m.inflight > 0 {
		m.inflight--
	}
}

// update applies fn under the lock and notifies subscribers outside it.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	state := m.snapshot()
	subs := make([]func(AuthState), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(state)
	}
}

func (m *Manager) snapshot() AuthState {
	return AuthState{User: m.user, Loading: m.inflight > 0, Error: m.errMsg}
}
