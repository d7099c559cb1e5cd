package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcrypto "github.com/cpcoders/codetrack/internal/crypto"
	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/limiter"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/cpcoders/codetrack/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
	updErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, p repository.ProfilePatch) (*model.User, error) {
	if f.updErr != nil {
		return nil, f.updErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			if p.Username != nil {
				u.Username = *p.Username
			}
			if p.Name != nil {
				u.Name = *p.Name
			}
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeGoogle struct {
	claims GoogleClaims
	err    error
}

func (g *fakeGoogle) Verify(context.Context, string) (GoogleClaims, error) {
	return g.claims, g.err
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byEmail: map[string]*model.User{}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, nil)

	if _, err := s.Register(context.Background(), "", "", "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty fields, got %v", err)
	}

	id, err := s.Register(context.Background(), "alice", "Alice", "Alice@Example.com", "pwd")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == "" {
		t.Fatalf("empty user id")
	}
	stored, ok := users.byEmail["alice@example.com"]
	if !ok {
		t.Fatalf("email not normalized on store: %+v", users.byEmail)
	}
	if len(stored.PwdHash) == 0 || len(stored.SaltAuth) == 0 {
		t.Fatalf("password hash/salt not set: %+v", stored)
	}

	if _, err := s.Register(context.Background(), "alice2", "", "alice@example.com", "pwd2"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}

	users.createErr = errors.New("boom")
	if _, err := s.Register(context.Background(), "bob", "", "bob@example.com", "pwd"); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	saltAuth, _ := pkgcrypto.RandBytes(16)
	pw := []byte("correct")
	u := &model.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "alice",
		Email:    "alice@example.com",
		SaltAuth: saltAuth,
		PwdHash:  pkgcrypto.HashPassword(pw, saltAuth),
	}

	users := &fakeUsers{byEmail: map[string]*model.User{"alice@example.com": u}}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, lim, nil)

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "correct", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "correct", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	if _, _, err := s.LoginWithIP(context.Background(), "nope@example.com", "x", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	lim.failBlocked = false
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, gotUser, err := s.LoginWithIP(context.Background(), "Alice@Example.com", "correct", "127.0.0.1:123")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}
}

func TestAuth_LoginWithIP_GoogleOnlyAccountRejected(t *testing.T) {
	t.Parallel()

	// Accounts provisioned via Google carry no password hash; password login
	// must fail closed, not crash or accept the empty hash.
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "g@example.com"}
	users := &fakeUsers{byEmail: map[string]*model.User{"g@example.com": u}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{allowOK: true}, nil)

	if _, _, err := s.LoginWithIP(context.Background(), "g@example.com", "", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for google-only account, got %v", err)
	}
}

func TestAuth_LoginWithGoogle(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byEmail: map[string]*model.User{}}
	g := &fakeGoogle{claims: GoogleClaims{Subject: "g-123", Email: "Carol@Example.com", Name: "Carol"}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, g)

	// First sign-in provisions the account.
	tok, user1, err := s.LoginWithGoogle(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if tok.AccessToken == "" {
		t.Fatalf("empty token")
	}
	if user1.Email != "carol@example.com" || user1.Name != "Carol" {
		t.Fatalf("provisioned user mismatch: %+v", user1)
	}
	if user1.Username == "" {
		t.Fatalf("provisioned user needs a username")
	}

	// Second sign-in reuses it.
	_, user2, err := s.LoginWithGoogle(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("second LoginWithGoogle: %v", err)
	}
	if user2.ID != user1.ID {
		t.Fatalf("second sign-in must reuse the account: %v vs %v", user2.ID, user1.ID)
	}

	// Verification failures are unauthorized, not internal errors.
	g.err = errors.New("bad token")
	if _, _, err := s.LoginWithGoogle(context.Background(), "junk"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on verify failure, got %v", err)
	}

	// Not configured.
	s2 := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, nil)
	if _, _, err := s2.LoginWithGoogle(context.Background(), "x"); err == nil {
		t.Fatalf("want error when google sign-in not configured")
	}
}

func TestAuth_ProfileAndUpdate(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	users := &fakeUsers{byEmail: map[string]*model.User{
		"d@example.com": {ID: uid, Username: "dana", Email: "d@example.com"},
	}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, nil)

	if _, err := s.Profile(context.Background(), uuid.Nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on nil userID, got %v", err)
	}
	u, err := s.Profile(context.Background(), uid)
	if err != nil || u.Username != "dana" {
		t.Fatalf("Profile: u=%+v err=%v", u, err)
	}

	empty := ""
	if _, err := s.UpdateProfile(context.Background(), uid, repository.ProfilePatch{Username: &empty}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty username, got %v", err)
	}

	name := "Dana D."
	u, err = s.UpdateProfile(context.Background(), uid, repository.ProfilePatch{Name: &name})
	if err != nil || u.Name != "Dana D." {
		t.Fatalf("UpdateProfile: u=%+v err=%v", u, err)
	}
}
