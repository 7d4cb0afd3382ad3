package auth

import (
	"context"
	"testing"
)

func newStartedManager(t *testing.T) (*Manager, *MemoryProvider) {
	t.Helper()
	provider := NewMemoryProvider()
	m := NewManager(provider, WithErrorPrefix(MemoryProviderPrefix))
	m.Start()
	t.Cleanup(m.Stop)
	return m, provider
}

func TestManagerStartsAnonymous(t *testing.T) {
	m, _ := newStartedManager(t)
	if got := m.Session().State; got != StateAnonymous {
		t.Fatalf("expected %q after start with no session, got %q", StateAnonymous, got)
	}
}

func TestManagerUnknownBeforeStart(t *testing.T) {
	m := NewManager(NewMemoryProvider())
	if got := m.Session().State; got != StateUnknown {
		t.Fatalf("expected %q before start, got %q", StateUnknown, got)
	}
}

func TestSignUpAuthenticates(t *testing.T) {
	m, _ := newStartedManager(t)
	ctx := context.Background()

	if err := m.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess := m.Session()
	if sess.State != StateAuthenticated {
		t.Fatalf("expected %q, got %q", StateAuthenticated, sess.State)
	}
	if sess.User == nil || sess.User.Email != "asha@example.com" {
		t.Errorf("unexpected user %+v", sess.User)
	}
}

func TestSignInWrongPasswordRevertsAndCleansMessage(t *testing.T) {
	m, _ := newStartedManager(t)
	ctx := context.Background()

	if err := m.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	err := m.SignIn(ctx, "asha@example.com", "wrong")
	if err == nil {
		t.Fatal("expected sign-in failure")
	}
	if got, want := err.Error(), "invalid email or password"; got != want {
		t.Errorf("expected cleaned message %q, got %q", want, got)
	}
	if got := m.Session().State; got != StateAnonymous {
		t.Errorf("expected revert to %q, got %q", StateAnonymous, got)
	}
}

func TestSignOutTransitionsToAnonymous(t *testing.T) {
	m, _ := newStartedManager(t)
	ctx := context.Background()

	if err := m.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	sess := m.Session()
	if sess.State != StateAnonymous || sess.User != nil {
		t.Errorf("expected anonymous session, got %+v", sess)
	}
}

func TestOnChangeDeliversTransitions(t *testing.T) {
	m, _ := newStartedManager(t)
	ctx := context.Background()

	var states []State
	cancel := m.OnChange(func(s Session) { states = append(states, s.State) })
	defer cancel()

	if err := m.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	want := []State{StateAuthenticated, StateAnonymous}
	if len(states) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d: expected %q, got %q", i, want[i], states[i])
		}
	}
}

func TestOnChangeCancelStopsDelivery(t *testing.T) {
	m, _ := newStartedManager(t)
	ctx := context.Background()

	calls := 0
	cancel := m.OnChange(func(Session) { calls++ })
	cancel()

	if err := m.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no deliveries after cancel, got %d", calls)
	}
}

func TestMemoryProviderRejectsBadInput(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "not-an-email", "secret1"); err == nil {
		t.Error("expected rejection of malformed email")
	}
	if _, err := p.SignUp(ctx, "asha@example.com", "short"); err == nil {
		t.Error("expected rejection of short password")
	}
	if _, err := p.SignUp(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := p.SignUp(ctx, "Asha@Example.com", "secret1"); err == nil {
		t.Error("expected duplicate email rejection to ignore case")
	}
}

func TestMemoryProviderSubscribeFiresImmediately(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	user, err := p.SignUp(ctx, "asha@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	var got *User
	fired := false
	cancel := p.Subscribe(func(u *User) {
		fired = true
		got = u
	})
	defer cancel()

	if !fired {
		t.Fatal("subscribe must fire synchronously with the current session")
	}
	if got == nil || got.ID != user.ID {
		t.Errorf("expected current user %q, got %+v", user.ID, got)
	}
}

func TestCleanMessage(t *testing.T) {
	if got := CleanMessage(nil, "x: "); got != "" {
		t.Errorf("expected empty message for nil error, got %q", got)
	}
	err := context.DeadlineExceeded
	if got := CleanMessage(err, ""); got != err.Error() {
		t.Errorf("no prefix: expected passthrough, got %q", got)
	}
}
