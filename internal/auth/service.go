package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/agora-forum/agora/internal/tokens"
)

// Service wraps authentication business rules.
type Service struct {
	store  UserStore
	hasher PasswordHasher
	codec  *tokens.Codec
	key    *rsa.PrivateKey
	logger *slog.Logger
}

// NewService constructs a new Service. codec and logger may be nil.
func NewService(store UserStore, hasher PasswordHasher, codec *tokens.Codec, key *rsa.PrivateKey, logger *slog.Logger) *Service {
	if codec == nil {
		codec = tokens.NewCodec()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, hasher: hasher, codec: codec, key: key, logger: logger}
}

// NormalizeLogin trims and NFC-normalizes a login name.
func NormalizeLogin(login string) string {
	return norm.NFC.String(strings.TrimSpace(login))
}

// Login checks credentials and issues a token bound to the user's current
// password hash. An outdated hash is replaced first, which revokes every
// token issued before.
func (s *Service) Login(ctx context.Context, login, password string) (*tokens.Token, error) {
	user, err := s.store.FindByLogin(ctx, NormalizeLogin(login))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, &Error{Kind: KindInvalidCredentials, Cause: err}
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &Error{Kind: KindInvalidCredentials}
	}

	hash := user.PasswordHash
	if s.hasher.NeedsRehash(hash) {
		hash = s.rehash(ctx, user, password)
	}

	tok, err := s.codec.Generate(tokens.Claims{UserID: user.ID}, s.key, hash)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "token issued", slog.Int64("user_id", user.ID))
	return tok, nil
}

// rehash stores a fresh hash and returns whichever hash is stored afterwards.
func (s *Service) rehash(ctx context.Context, user *UserRecord, password string) string {
	fresh, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "rehash password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return user.PasswordHash
	}
	swapped, err := s.store.UpdatePasswordHash(ctx, user.ID, user.PasswordHash, fresh)
	if err != nil {
		s.logger.WarnContext(ctx, "store rehashed password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return user.PasswordHash
	}
	if !swapped {
		// Concurrent change; the stored hash is no longer ours to bind to.
		current, err := s.store.GetByID(ctx, user.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "reload user after rehash", slog.Int64("user_id", user.ID), slog.Any("error", err))
			return user.PasswordHash
		}
		return current.PasswordHash
	}
	return fresh
}
