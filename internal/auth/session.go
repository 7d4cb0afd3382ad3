package auth

import (
	"context"
	"errors"
	"sync"
)

// State enumerates the session lifecycle.
type State string

// Session states. Unknown holds only until the provider's first callback;
// afterwards the session is always Authenticated or Anonymous (with a
// transient Authenticating during credential calls).
const (
	StateUnknown        State = "unknown"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateAnonymous      State = "anonymous"
)

// Session is the observable snapshot of the state machine.
type Session struct {
	State State
	User  *User
}

// Manager drives the session state machine off a provider's session stream.
// It carries no rendering concern; consumers observe it through Session and
// OnChange only.
type Manager struct {
	provider Provider
	prefix   string

	mu      sync.Mutex
	session Session
	subs    map[int]func(Session)
	nextSub int
	cancel  func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithErrorPrefix sets the provider message prefix stripped from
// sign-in/sign-up failures before they surface to callers.
func WithErrorPrefix(prefix string) ManagerOption {
	return func(m *Manager) { m.prefix = prefix }
}

// NewManager constructs a manager in the Unknown state. Call Start to begin
// listening to the provider's session stream.
func NewManager(provider Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		session:  Session{State: StateUnknown},
		subs:     make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to the provider's session stream. The listener persists
// for the manager's lifetime; Stop cancels it.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	cancel := m.provider.Subscribe(func(user *User) {
		if user != nil {
			m.transition(Session{State: StateAuthenticated, User: user})
		} else {
			m.transition(Session{State: StateAnonymous})
		}
	})
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
}

// Stop cancels the provider subscription.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Session returns the current session snapshot.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// OnChange registers a subscriber notified on every state transition. The
// returned cancel function removes the subscription.
func (m *Manager) OnChange(fn func(Session)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) transition(next Session) {
	m.mu.Lock()
	m.session = next
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
}

func (m *Manager) setAuthenticating() {
	m.mu.Lock()
	if m.session.State != StateAuthenticated {
		m.session = Session{State: StateAuthenticating}
	}
	m.mu.Unlock()
}

func (m *Manager) revert(prev Session) {
	m.mu.Lock()
	if m.session.State == StateAuthenticating {
		m.session = prev
	}
	m.mu.Unlock()
}

// SignIn delegates to the provider. On success the provider's session stream
// drives the transition to Authenticated; on failure the previous state is
// restored and the cleaned provider message is returned.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	prev := m.Session()
	m.setAuthenticating()
	if _, err := m.provider.SignIn(ctx, email, password); err != nil {
		m.revert(prev)
		return errors.New(CleanMessage(err, m.prefix))
	}
	return nil
}

// SignUp delegates to the provider, with the same failure semantics as SignIn.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	prev := m.Session()
	m.setAuthenticating()
	if _, err := m.provider.SignUp(ctx, email, password); err != nil {
		m.revert(prev)
		return errors.New(CleanMessage(err, m.prefix))
	}
	return nil
}

// SignOut delegates to the provider; the session stream then reports no user
// and the machine transitions to Anonymous.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}
