// Package service contains application services for auth, tasks and rewards.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgcrypto "github.com/and161185/taskdex/internal/crypto"
	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/limiter"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

const maxUsernameLen = 64

// AuthService defines sign-up and sign-in.
type AuthService interface {
	// SignUp creates a new user and returns its id.
	SignUp(ctx context.Context, username, password string) (uuid.UUID, error)
	// SignIn verifies credentials from peer and issues an access token.
	SignIn(ctx context.Context, username, password, peer string) (model.Tokens, error)
}

// AuthOptions configures AuthServiceImpl.
type AuthOptions struct {
	SignKey   []byte
	AccessTTL time.Duration
	Hash      pkgcrypto.Params // zero value means pkgcrypto.DefaultParams
}

type AuthServiceImpl struct {
	users repository.UserRepository
	opts  AuthOptions
	lim   limiter.Limiter
	now   func() time.Time
}

// NewAuthService constructs AuthService. lim may be nil.
func NewAuthService(users repository.UserRepository, opts AuthOptions, lim limiter.Limiter) *AuthServiceImpl {
	if opts.Hash == (pkgcrypto.Params{}) {
		opts.Hash = pkgcrypto.DefaultParams
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, opts: opts, lim: lim, now: time.Now}
}

// SignUp validates credentials and stores an Argon2id hash of the password.
func (s *AuthServiceImpl) SignUp(ctx context.Context, username, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%w: empty username/password", errs.ErrValidation)
	}
	if len(username) > maxUsernameLen {
		return uuid.Nil, fmt.Errorf("%w: username longer than %d", errs.ErrValidation, maxUsernameLen)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	hash, err := pkgcrypto.HashPassword(password, s.opts.Hash)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.users.Create(ctx, &model.User{ID: uid, Username: username, PwdHash: hash}); err != nil {
		return uuid.Nil, err
	}
	return uid, nil
}

// SignIn authenticates with failure throttling per (username, peer).
func (s *AuthServiceImpl) SignIn(ctx context.Context, username, password, peer string) (model.Tokens, error) {
	username = strings.TrimSpace(username)
	key := limiter.Key(username, peer)

	allowed, _, err := s.lim.Allow(ctx, key)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, err
	}
	ok := false
	if err == nil {
		ok, _ = pkgcrypto.VerifyPassword(password, u.PwdHash)
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, key); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		}
		// unknown user and wrong password look the same
		return model.Tokens{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, key)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.opts.AccessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.opts.SignKey)
	return signed, exp, err
}
