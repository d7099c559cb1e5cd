// Package service contains application services for authentication and questions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgcrypto "github.com/cpcoders/codetrack/internal/crypto"
	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/limiter"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/cpcoders/codetrack/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleClaims is the verified subset of a Google ID token the service needs.
type GoogleClaims struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier validates a Google ID token and returns its claims. The
// verification mechanics live behind this interface so the service never
// talks to Google directly.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleClaims, error)
}

// AuthService defines authentication and profile operations.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, name, email, password string) (userID string, err error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password string, ip string) (tokens model.Tokens, user model.User, err error)
	// LoginWithGoogle signs in via a verified Google ID token, provisioning
	// the account on first sign-in.
	LoginWithGoogle(ctx context.Context, idToken string) (tokens model.Tokens, user model.User, err error)
	// Profile returns the account behind userID.
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, userID uuid.UUID, p repository.ProfilePatch) (*model.User, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	google    GoogleVerifier
}

// NewAuthService constructs AuthService with required dependencies. google may
// be nil when Google sign-in is not configured.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, google GoogleVerifier) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, google: google}
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, name, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return "", fmt.Errorf("%w: username, email and password are required", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	saltAuth, err := pkgcrypto.NewSalt()
	if err != nil {
		return "", err
	}
	u := &model.User{
		ID:       uid,
		Username: username,
		Name:     name,
		Email:    email,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = normalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	// Check if requests are currently allowed for this (email, ip).
	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || len(u.PwdHash) == 0 || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		// Record failure; if threshold reached, return rate-limited.
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// Wrong password, unknown email and lookup errors are all masked
		// as unauthorized so account existence stays hidden.
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// LoginWithGoogle verifies the ID token and signs the user in, creating the
// account the first time a verified email is seen.
func (s *AuthServiceImpl) LoginWithGoogle(ctx context.Context, idToken string) (model.Tokens, model.User, error) {
	if s.google == nil {
		return model.Tokens{}, model.User{}, errors.New("google sign-in not configured")
	}
	claims, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	email := normalizeEmail(claims.Email)
	if email == "" {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		u, err = s.provisionGoogleUser(ctx, claims, email)
		if err != nil {
			return model.Tokens{}, model.User{}, err
		}
	default:
		return model.Tokens{}, model.User{}, err
	}

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// provisionGoogleUser creates an account for a first-time Google sign-in.
// Google accounts carry no local password hash, so password login stays off
// for them until one is set.
func (s *AuthServiceImpl) provisionGoogleUser(ctx context.Context, claims GoogleClaims, email string) (*model.User, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	u := &model.User{
		ID:       uid,
		Username: local + "-" + uid.String()[:8],
		Name:     claims.Name,
		Email:    email,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Profile returns the account behind userID.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial profile update.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, p repository.ProfilePatch) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if p.Username != nil && strings.TrimSpace(*p.Username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", errs.ErrValidation)
	}
	return s.users.UpdateProfile(ctx, userID, p)
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
