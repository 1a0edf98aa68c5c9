package walletserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"walletd/go-backend/internal/config"
	"walletd/go-backend/internal/securestore"
	"walletd/go-backend/internal/vault"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWithTestSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.TestMode = true
	cfg.CredentialsPath = filepath.Join(t.TempDir(), "credentials.json")

	srv, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected unlocked health, got %d", rec.Code)
	}
}

func TestNewRejectsBadSeeds(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = "definitely not a seed"
	if _, err := New(cfg, quietLogger()); !errors.Is(err, vault.ErrInvalidSeed) {
		t.Fatalf("expected ErrInvalidSeed, got %v", err)
	}

	sealed, err := securestore.Seal("right", []byte(vault.TestSeed))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	cfg.Seed = sealed
	cfg.Passphrase = "wrong"
	if _, err := New(cfg, quietLogger()); !errors.Is(err, vault.ErrUnlockFailed) {
		t.Fatalf("expected ErrUnlockFailed, got %v", err)
	}
}

func TestNewWithoutSeed(t *testing.T) {
	if _, err := New(config.Default(), quietLogger()); !errors.Is(err, config.ErrMissingSeed) {
		t.Fatalf("expected ErrMissingSeed, got %v", err)
	}
}

func TestNewRequiresCredentialsPathOutsideTestMode(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = vault.TestSeed
	if _, err := New(cfg, quietLogger()); !errors.Is(err, config.ErrMissingCredentialsPath) {
		t.Fatalf("expected ErrMissingCredentialsPath, got %v", err)
	}
}
