// Package auth gates admin endpoints on tokens issued by the order backend.
// The API never issues or parses tokens itself; it only verifies them with
// the backend and caches positive answers.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/common"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects a login.
	ErrInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
	// ErrInvalidToken is returned when the backend does not recognise a token.
	ErrInvalidToken = common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, nil)
)

// Backend is the part of the backend client used for admin sessions.
type Backend interface {
	Login(ctx context.Context, username, password string) (backend.Session, error)
	Profile(ctx context.Context, token string) (backend.Profile, error)
}

// Service logs admins in through the backend and verifies their tokens.
type Service struct {
	Backend   Backend
	R         *redis.Client
	VerifyTTL time.Duration
}

// Login exchanges credentials for a backend token.
func (s *Service) Login(ctx context.Context, username, password string) (backend.Session, error) {
	sess, err := s.Backend.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if isRejection(err) {
			return backend.Session{}, ErrInvalidCredentials
		}
		return backend.Session{}, err
	}
	if sess.Token == "" {
		return backend.Session{}, common.NewAppError("BACKEND_ERROR", "backend returned no token", http.StatusBadGateway, nil)
	}
	s.remember(ctx, sess.Token, sess.Username)
	return sess, nil
}

// Verify resolves the admin username behind token.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	key := common.CacheKeyForSecret("auth:verify", token)
	if s.R != nil && s.VerifyTTL > 0 {
		if name, err := s.R.Get(ctx, key).Result(); err == nil && name != "" {
			return name, nil
		}
	}
	profile, err := s.Backend.Profile(ctx, token)
	if err != nil {
		if isRejection(err) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if profile.Username == "" {
		return "", ErrInvalidToken
	}
	s.remember(ctx, token, profile.Username)
	return profile.Username, nil
}

func (s *Service) remember(ctx context.Context, token, username string) {
	if s.R == nil || s.VerifyTTL <= 0 || username == "" {
		return
	}
	_ = s.R.Set(ctx, common.CacheKeyForSecret("auth:verify", token), username, s.VerifyTTL).Err()
}

// isRejection reports whether the backend answered with a client error, which
// for login and profile calls means bad credentials or an unknown token.
func isRejection(err error) bool {
	var be *backend.Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Status >= 400 && be.Status < 500
}
