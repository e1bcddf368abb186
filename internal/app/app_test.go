package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agora-forum/agora/internal/auth"
	"github.com/agora-forum/agora/internal/observability"
)

var (
	keyOnce sync.Once
	keyA    *rsa.PrivateKey
	keyB    *rsa.PrivateKey
	keyErr  error
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		if keyA, keyErr = rsa.GenerateKey(rand.Reader, 2048); keyErr != nil {
			return
		}
		keyB, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, keyErr)
	return keyA, keyB
}

func writeKeys(t *testing.T, priv *rsa.PrivateKey, pub *rsa.PublicKey) (string, string) {
	t.Helper()
	dir := t.TempDir()
	privPath := filepath.Join(dir, "token.key")
	pubPath := filepath.Join(dir, "token.pub")

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))
	return privPath, pubPath
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TOKEN_PRIVATE_KEY_PATH", "/keys/token.key")
	t.Setenv("TOKEN_PUBLIC_KEY_PATH", "/keys/token.pub")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.TokenLifetime)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.Equal(t, bcrypt.DefaultCost, cfg.PasswordBcryptCost)
	assert.False(t, cfg.IsProduction())

	t.Setenv("TOKEN_LIFETIME", "1s")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "lifetime")
}

func TestLoadConfigRequiresKeyPaths(t *testing.T) {
	t.Setenv("TOKEN_PRIVATE_KEY_PATH", "")
	t.Setenv("TOKEN_PUBLIC_KEY_PATH", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := Config{TokenPrivateKeyPath: "a", TokenPublicKeyPath: "b", TokenLifetime: time.Hour, PasswordBcryptCost: 10}
	require.NoError(t, base.Validate())

	bad := base
	bad.PasswordBcryptCost = 99
	assert.Error(t, bad.Validate())

	bad = base
	bad.LoginRateLimit = -1
	assert.Error(t, bad.Validate())

	bad = base
	bad.TokenLifetime = 0
	assert.Error(t, bad.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.Int("n", 1))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Contains(t, entry, "source")
}

func TestLoadKeys(t *testing.T) {
	a, b := testKeys(t)

	privPath, pubPath := writeKeys(t, a, &a.PublicKey)
	keys, err := LoadKeys(&Config{TokenPrivateKeyPath: privPath, TokenPublicKeyPath: pubPath})
	require.NoError(t, err)
	assert.True(t, keys.Public.Equal(&a.PublicKey))

	privPath, pubPath = writeKeys(t, a, &b.PublicKey)
	_, err = LoadKeys(&Config{TokenPrivateKeyPath: privPath, TokenPublicKeyPath: pubPath})
	assert.ErrorContains(t, err, "does not match")

	_, err = LoadKeys(&Config{TokenPrivateKeyPath: filepath.Join(t.TempDir(), "missing"), TokenPublicKeyPath: pubPath})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type memoryStore struct {
	mu    sync.Mutex
	users map[int64]auth.UserRecord
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*auth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (s *memoryStore) FindByLogin(_ context.Context, login string) (*auth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Login == login {
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memoryStore) UpdatePasswordHash(_ context.Context, id int64, oldHash, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.PasswordHash != oldHash {
		return false, nil
	}
	u.PasswordHash = newHash
	s.users[id] = u
	return true, nil
}

func TestRouterEndToEnd(t *testing.T) {
	key, _ := testKeys(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &memoryStore{users: map[int64]auth.UserRecord{
		3: {ID: 3, Login: "ann", PasswordHash: string(hash), RoleID: 1},
	}}
	cfg := &Config{TokenLifetime: time.Hour, PasswordBcryptCost: bcrypt.MinCost, LoginRateLimit: 100}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewServices(cfg, logger, store, Keys{Private: key, Public: &key.PublicKey}, observability.NewMetrics())
	require.NoError(t, err)
	router := NewRouter(RouterParams{Logger: logger, Config: cfg, Services: svc})

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set(auth.TokenHeader, token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/auth/login", `{"login":"ann","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = do(http.MethodGet, "/auth/whoami", "", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"kind":"registered","user_id":3,"role":"USER"}`, rec.Body.String())

	rec = do(http.MethodGet, "/auth/whoami", "", login.Token+"x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(http.MethodGet, "/roles", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ADMIN"`)

	rec = do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agora_token_verifications_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `agora_authz_decisions_total{decision="allowed"} 1`)
}

func TestHealthzReportsStoreFailure(t *testing.T) {
	key, _ := testKeys(t)
	cfg := &Config{TokenLifetime: time.Hour, PasswordBcryptCost: bcrypt.MinCost}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewServices(cfg, logger, &memoryStore{}, Keys{Private: key, Public: &key.PublicKey}, nil)
	require.NoError(t, err)

	router := NewRouter(RouterParams{Logger: logger, Config: cfg, Services: svc, Health: func(context.Context) error {
		return errors.New("db down")
	}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServicesRejectsMismatchedKeys(t *testing.T) {
	a, b := testKeys(t)
	cfg := &Config{TokenLifetime: time.Hour, PasswordBcryptCost: bcrypt.MinCost}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewServices(cfg, logger, &memoryStore{}, Keys{Private: a, Public: &b.PublicKey}, nil)
	assert.Error(t, err)

	_, err = NewServices(cfg, logger, nil, Keys{Private: a, Public: &a.PublicKey}, nil)
	assert.Error(t, err)
}
