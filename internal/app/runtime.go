package app

import (
	"crypto/rsa"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/agora-forum/agora/internal/auth"
	"github.com/agora-forum/agora/internal/observability"
	"github.com/agora-forum/agora/internal/rbac"
	"github.com/agora-forum/agora/internal/roles"
	"github.com/agora-forum/agora/internal/signing"
	"github.com/agora-forum/agora/internal/tokens"
)

const testModeEnv = "AGORA_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// Keys is the token key pair.
type Keys struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeys reads the key pair named by cfg and checks that the halves match.
func LoadKeys(cfg *Config) (Keys, error) {
	priv, err := signing.LoadPrivateKey(cfg.TokenPrivateKeyPath, cfg.TokenPrivateKeyPassphrase)
	if err != nil {
		return Keys{}, err
	}
	pub, err := signing.LoadPublicKey(cfg.TokenPublicKeyPath)
	if err != nil {
		return Keys{}, err
	}
	keys := Keys{Private: priv, Public: pub}
	if err := keys.Check(); err != nil {
		return Keys{}, err
	}
	return keys, nil
}

// Check reports a missing half or a public key that does not belong to the
// private key.
func (k Keys) Check() error {
	if k.Private == nil || k.Public == nil {
		return errors.New("app: token key pair incomplete")
	}
	if !k.Public.Equal(&k.Private.PublicKey) {
		return errors.New("app: token public key does not match private key")
	}
	return nil
}

// Services bundles the process-wide auth components. Everything in it is
// built once at startup and shared by all requests.
type Services struct {
	Catalog  *roles.Catalog
	Codec    *tokens.Codec
	Engine   *rbac.Engine
	Resolver *auth.Resolver
	Auth     *auth.Service
	Metrics  *observability.Metrics
}

// NewServices assembles the auth core around store. metrics may be nil.
func NewServices(cfg *Config, logger *slog.Logger, store auth.UserStore, keys Keys, metrics *observability.Metrics) (*Services, error) {
	if store == nil {
		return nil, errors.New("app: user store required")
	}
	if err := keys.Check(); err != nil {
		return nil, err
	}
	catalog := roles.DefaultCatalog()
	codec := tokens.NewCodec()

	var (
		decisions     rbac.Observer
		verifications auth.VerificationObserver
	)
	if metrics != nil {
		decisions, verifications = metrics, metrics
	}

	s := &Services{
		Catalog: catalog,
		Codec:   codec,
		Engine:  rbac.NewEngine(decisions),
		Resolver: auth.NewResolver(auth.ResolverConfig{
			Store:    store,
			Catalog:  catalog,
			Codec:    codec,
			Key:      keys.Public,
			Lifetime: cfg.TokenLifetime,
			Logger:   logger,
			Observer: verifications,
		}),
		Auth:    auth.NewService(store, auth.NewBcryptHasher(cfg.PasswordBcryptCost), codec, keys.Private, logger),
		Metrics: metrics,
	}
	logger.Info("auth core ready",
		slog.Int("roles", catalog.Len()),
		slog.String("token_lifetime", cfg.TokenLifetime.String()),
		slog.String("algorithm", signing.Algorithm()))
	return s, nil
}
