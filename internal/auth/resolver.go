package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agora-forum/agora/internal/platform/httpx"
	"github.com/agora-forum/agora/internal/rbac"
	"github.com/agora-forum/agora/internal/roles"
	"github.com/agora-forum/agora/internal/tokens"
)

// TokenHeader carries the serialized token on requests.
const TokenHeader = "token"

// Token verification outcomes reported to a VerificationObserver.
const (
	ResultAbsent       = "absent"
	ResultOK           = "ok"
	ResultMalformed    = "malformed"
	ResultUnknownUser  = "unknown_user"
	ResultInvalid      = "invalid"
	ResultInconsistent = "inconsistent"
	ResultError        = "error"
)

// VerificationObserver is notified of every resolution outcome.
type VerificationObserver interface {
	ObserveTokenVerification(result string)
}

// ResolverConfig groups Resolver dependencies.
type ResolverConfig struct {
	Store    UserStore
	Catalog  *roles.Catalog
	Codec    *tokens.Codec
	Key      *rsa.PublicKey
	Lifetime time.Duration
	Logger   *slog.Logger
	Observer VerificationObserver
}

// Resolver turns a request token into a principal.
type Resolver struct {
	store    UserStore
	catalog  *roles.Catalog
	codec    *tokens.Codec
	key      *rsa.PublicKey
	lifetime time.Duration
	logger   *slog.Logger
	observer VerificationObserver
}

// NewResolver builds a Resolver. It panics without a store.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Store == nil {
		panic("auth: resolver requires a user store")
	}
	r := &Resolver{
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		codec:    cfg.Codec,
		key:      cfg.Key,
		lifetime: cfg.Lifetime,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
	if r.catalog == nil {
		r.catalog = roles.DefaultCatalog()
	}
	if r.codec == nil {
		r.codec = tokens.NewCodec()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve returns a Guest for an empty token and a Registered principal for
// a token that verifies against the user's current password hash.
//
// Client problems yield an *Error of KindUnauthenticated whose message lists
// every token problem found. A stored role id
// missing from the catalog yields KindInternalInconsistency with an incident
// reference that is also logged. Store failures are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, raw string) (rbac.Principal, error) {
	if raw == "" {
		r.observe(ResultAbsent)
		return rbac.NewGuest(r.catalog.Lowest()), nil
	}

	tok, err := tokens.Parse(raw)
	if err != nil {
		r.observe(ResultMalformed)
		return nil, unauthenticated(err)
	}

	userID := tok.Claims().UserID
	user, err := r.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			r.observe(ResultUnknownUser)
			return nil, unauthenticated(err)
		}
		r.observe(ResultError)
		return nil, fmt.Errorf("auth: resolve user %d: %w", userID, err)
	}

	if err := r.codec.Verify(tok, r.key, user.PasswordHash, r.lifetime); err != nil {
		var tokErr *tokens.Error
		if !errors.As(err, &tokErr) {
			r.observe(ResultError)
			return nil, fmt.Errorf("auth: verify token: %w", err)
		}
		r.observe(ResultInvalid)
		return nil, unauthenticated(err)
	}

	role, err := r.catalog.RoleByID(user.RoleID)
	if err != nil {
		ref := uuid.NewString()
		r.logger.ErrorContext(ctx, "stored role id not in catalog",
			slog.Int64("user_id", user.ID),
			slog.Int("role_id", user.RoleID),
			slog.String("reference", ref),
			slog.Any("error", err))
		r.observe(ResultInconsistent)
		return nil, &Error{Kind: KindInternalInconsistency, Reference: ref, Cause: err}
	}

	r.observe(ResultOK)
	return rbac.NewRegistered(user.ID, role), nil
}

// Middleware resolves the request token and stores the principal in the
// request context. Requests with an invalid token are rejected.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p, err := r.Resolve(req.Context(), req.Header.Get(TokenHeader))
		if err != nil {
			var authErr *Error
			if !errors.As(err, &authErr) {
				r.logger.ErrorContext(req.Context(), "resolve principal", slog.Any("error", err))
			} else if authErr.Kind == KindUnauthenticated {
				r.logger.DebugContext(req.Context(), "rejected token", slog.Any("error", authErr.Cause))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), p)))
	})
}

func (r *Resolver) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveTokenVerification(result)
	}
}

// Describe renders a principal for API responses.
func Describe(p rbac.Principal) PrincipalView {
	view := PrincipalView{Kind: "guest", Role: p.Role().Name()}
	if u, ok := p.(rbac.Registered); ok {
		id := u.UserID()
		view.Kind = "registered"
		view.UserID = &id
	}
	return view
}
