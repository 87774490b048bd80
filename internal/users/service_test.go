package users_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/users"
)

// ── Stub moderator ────────────────────────────────────────────────────────

type stubModerator struct {
	mu   sync.Mutex
	seen []uuid.UUID
	err  error
}

func (m *stubModerator) ModerateNewUser(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, u.ID)
	return m.err
}

func newTestService(t *testing.T) (*users.UserService, *users.MemoryRepository) {
	t.Helper()
	repo := users.NewMemoryRepository()
	return users.NewUserService(repo, zap.NewNop()), repo
}

// ── Register ──────────────────────────────────────────────────────────────

func TestRegister_success(t *testing.T) {
	svc, _ := newTestService(t)
	mod := &stubModerator{}
	svc.SetModerator(mod)

	u, err := svc.Register(context.Background(), users.RegisterInput{
		Email: "Alice@Example.com", Username: "Alice_Clay", Password: "password123", Bio: "wheel thrower",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if u.Email != "alice@example.com" || u.Username != "alice_clay" {
		t.Errorf("email/username not normalised: %q %q", u.Email, u.Username)
	}
	if u.Role != users.RoleUser {
		t.Errorf("role = %q, want user", u.Role)
	}
	if u.PasswordHash == "" || u.PasswordHash == "password123" {
		t.Error("password was not hashed")
	}
	if len(mod.seen) != 1 || mod.seen[0] != u.ID {
		t.Errorf("moderator saw %v, want [%s]", mod.seen, u.ID)
	}
}

func TestRegister_moderatorFailureIsNonFatal(t *testing.T) {
	svc, repo := newTestService(t)
	svc.SetModerator(&stubModerator{err: errors.New("scorer down")})

	u, err := svc.Register(context.Background(), users.RegisterInput{
		Email: "bob@example.com", Username: "bob", Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), u.ID); err != nil {
		t.Errorf("user should exist after hook failure: %v", err)
	}
}

func TestRegister_validation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []users.RegisterInput{
		{Email: "", Username: "abc", Password: "password123"},
		{Email: "not-an-email", Username: "abc", Password: "password123"},
		{Email: "a@b.com", Username: "ab", Password: "password123"},
		{Email: "a@b.com", Username: "has space", Password: "password123"},
		{Email: "a@b.com", Username: "abc", Password: "short"},
		{Email: "a@b.com", Username: "abc", Password: "password123", Bio: strings.Repeat("x", 501)},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		if model.Classify(err) != model.OutcomeValidation {
			t.Errorf("Register(%+v) error = %v, want validation error", in, err)
		}
	}
}

func TestRegister_duplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	in := users.RegisterInput{Email: "dup@example.com", Username: "dup", Password: "password123"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	in.Username = "dup2"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, users.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

// ── Authenticate ──────────────────────────────────────────────────────────

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	u, err := svc.Register(ctx, users.RegisterInput{Email: "carol@example.com", Username: "carol", Password: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Authenticate(ctx, "carol@example.com", "password123"); err != nil {
		t.Errorf("valid credentials: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "carol@example.com", "wrong"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "password123"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}

	until := time.Now().Add(time.Hour)
	_ = repo.SetSuspension(ctx, u.ID, true, &until)
	if _, err := svc.Authenticate(ctx, "carol@example.com", "password123"); !errors.Is(err, users.ErrSuspended) {
		t.Errorf("suspended user: got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	_ = repo.SetSuspension(ctx, u.ID, true, &past)
	if _, err := svc.Authenticate(ctx, "carol@example.com", "password123"); err != nil {
		t.Errorf("expired suspension should allow login: %v", err)
	}
}

// ── Model ─────────────────────────────────────────────────────────────────

func TestUser_IsSuspended(t *testing.T) {
	now := time.Now()
	future, past := now.Add(time.Hour), now.Add(-time.Hour)
	cases := []struct {
		name string
		u    users.User
		want bool
	}{
		{"not suspended", users.User{}, false},
		{"permanent", users.User{Suspended: true}, true},
		{"active", users.User{Suspended: true, SuspendedUntil: &future}, true},
		{"lapsed", users.User{Suspended: true, SuspendedUntil: &past}, false},
	}
	for _, tc := range cases {
		if got := tc.u.IsSuspended(now); got != tc.want {
			t.Errorf("%s: IsSuspended = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUser_asTarget(t *testing.T) {
	u := &users.User{ID: uuid.New(), Username: "glazer", Bio: "buy now"}
	if u.AuthorID() != u.ID {
		t.Error("a user is its own author")
	}
	if ref := u.TargetRef(); ref.Kind != model.TargetUser || ref.ID != u.ID {
		t.Errorf("TargetRef = %v", ref)
	}
	if u.ModerationText() != "glazer buy now" {
		t.Errorf("ModerationText = %q", u.ModerationText())
	}
}

func TestMemoryRepository_IncrementWarnings(t *testing.T) {
	ctx := context.Background()
	repo := users.NewMemoryRepository()
	u := &users.User{Email: "d@example.com", Username: "dee"}
	_ = repo.Create(ctx, u)
	for i := 1; i <= 3; i++ {
		n, err := repo.IncrementWarnings(ctx, u.ID)
		if err != nil || n != i {
			t.Fatalf("IncrementWarnings #%d = %d, %v", i, n, err)
		}
	}
	if _, err := repo.IncrementWarnings(ctx, uuid.New()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}

// ── Listing ───────────────────────────────────────────────────────────────

func TestList_filtersAndPages(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, name := range []string{"quiet", "warned", "banned", "both"} {
		u := &users.User{Email: name + "@clay.local", Username: name, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
		if name == "warned" || name == "both" {
			if _, err := repo.IncrementWarnings(ctx, u.ID); err != nil {
				t.Fatal(err)
			}
		}
		if name == "banned" || name == "both" {
			if err := repo.SetSuspension(ctx, u.ID, true, nil); err != nil {
				t.Fatal(err)
			}
		}
	}

	names := func(f users.ListFilter) string {
		t.Helper()
		list, err := svc.List(ctx, f)
		if err != nil {
			t.Fatalf("List(%+v): %v", f, err)
		}
		out := make([]string, len(list))
		for i, u := range list {
			out[i] = u.Username
		}
		return strings.Join(out, ",")
	}
	cases := []struct {
		filter users.ListFilter
		want   string
	}{
		{users.ListFilter{}, "both,banned,warned,quiet"},
		{users.ListFilter{Warned: true}, "both,warned"},
		{users.ListFilter{Suspended: true}, "both,banned"},
		{users.ListFilter{Suspended: true, Warned: true}, "both"},
		{users.ListFilter{Limit: 2, Offset: 1}, "banned,warned"},
		{users.ListFilter{Offset: 10}, ""},
	}
	for _, c := range cases {
		if got := names(c.filter); got != c.want {
			t.Errorf("List(%+v) = %q, want %q", c.filter, got, c.want)
		}
	}
}

func TestParseListFilter(t *testing.T) {
	if f, err := users.ParseListFilter("warned"); err != nil || !f.Warned || f.Suspended {
		t.Errorf("warned = %+v, %v", f, err)
	}
	if f, err := users.ParseListFilter("suspended"); err != nil || !f.Suspended {
		t.Errorf("suspended = %+v, %v", f, err)
	}
	var ve *model.ErrValidation
	if _, err := users.ParseListFilter("banned"); !errors.As(err, &ve) {
		t.Errorf("banned: err = %v, want validation error", err)
	}
}
