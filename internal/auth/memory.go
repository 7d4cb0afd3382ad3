package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MemoryProviderPrefix tags every error the in-memory provider returns, in
// the manner of hosted identity services. The session manager strips it
// before surfacing messages.
const MemoryProviderPrefix = "auth: "

type account struct {
	id   string
	hash []byte
}

// MemoryProvider is an email/password provider backed by process memory with
// bcrypt-hashed credentials. It keeps one active session and a set of
// session-stream subscribers.
type MemoryProvider struct {
	mu       sync.Mutex
	accounts map[string]account
	current  *User
	subs     map[int]func(*User)
	nextSub  int
}

// NewMemoryProvider constructs an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]account),
		subs:     make(map[int]func(*User)),
	}
}

func newAccountID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account and signs it in.
func (p *MemoryProvider) SignUp(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%sinvalid email address", MemoryProviderPrefix)
	}
	if len(password) < 6 {
		return User{}, fmt.Errorf("%spassword must be at least 6 characters", MemoryProviderPrefix)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("%shash password: %v", MemoryProviderPrefix, err)
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return User{}, fmt.Errorf("%semail already in use", MemoryProviderPrefix)
	}
	acct := account{id: newAccountID(), hash: hash}
	p.accounts[email] = acct
	user := User{ID: acct.id, Email: email}
	p.current = &user
	subs := p.subscribers()
	p.mu.Unlock()

	notify(subs, &user)
	return user, nil
}

// SignIn verifies credentials and establishes the session.
func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return User{}, fmt.Errorf("%sinvalid email or password", MemoryProviderPrefix)
	}

	user := User{ID: acct.id, Email: email}
	p.mu.Lock()
	p.current = &user
	subs := p.subscribers()
	p.mu.Unlock()

	notify(subs, &user)
	return user, nil
}

// SignOut clears the active session.
func (p *MemoryProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	subs := p.subscribers()
	p.mu.Unlock()

	notify(subs, nil)
	return nil
}

// Subscribe registers a session-stream callback. The callback fires
// synchronously with the current session before Subscribe returns, matching
// hosted provider semantics.
func (p *MemoryProvider) Subscribe(fn func(user *User)) (cancel func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// subscribers snapshots the callback set; callers hold p.mu.
func (p *MemoryProvider) subscribers() []func(*User) {
	out := make([]func(*User), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(*User), user *User) {
	for _, fn := range subs {
		fn(user)
	}
}
