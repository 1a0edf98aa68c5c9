package challenge

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58/base58"

	"walletd/go-backend/internal/testutil/fsperm"
)

func newTestIssuer(now *time.Time) *Issuer {
	iss := NewIssuer(NewMemoryStore(), time.Minute)
	iss.now = func() time.Time { return *now }
	return iss
}

func TestIssueRequiresUser(t *testing.T) {
	iss := NewIssuer(NewMemoryStore(), 0)
	ctx := context.Background()
	if _, err := iss.ChallengeForRegistration(ctx, ""); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if _, err := iss.ChallengeForAuthentication(ctx, ""); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
}

func TestIssuedChallengeShape(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss := newTestIssuer(&now)
	c, err := iss.ChallengeForAuthentication(context.Background(), "//foo")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if c.Kind != KindAuthentication || c.User != "//foo" || c.ID == "" {
		t.Fatalf("unexpected challenge: %+v", c)
	}
	nonce, err := base58.Decode(c.Nonce)
	if err != nil || len(nonce) != nonceSize {
		t.Fatalf("nonce must be %d base58 bytes: %v", nonceSize, err)
	}
	if !c.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected expiry: %s", c.ExpiresAt)
	}
	other, err := iss.ChallengeForAuthentication(context.Background(), "//foo")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if other.ID == c.ID || other.Nonce == c.Nonce {
		t.Fatal("challenges must be unique")
	}
}

func TestMessageBindsUserAndKind(t *testing.T) {
	base := Challenge{ID: "id", Kind: KindAuthentication, User: "alice", Nonce: "n"}
	otherUser := base
	otherUser.User = "bob"
	otherKind := base
	otherKind.Kind = KindRegistration
	if bytes.Equal(base.Message(), otherUser.Message()) || bytes.Equal(base.Message(), otherKind.Message()) {
		t.Fatal("message must bind user and kind")
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss := newTestIssuer(&now)
	ctx := context.Background()
	c, err := iss.ChallengeForRegistration(ctx, "alice")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	got, err := iss.Redeem(ctx, c.ID, KindRegistration, "alice")
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if got.Nonce != c.Nonce {
		t.Fatal("redeem returned another challenge")
	}
	if _, err := iss.Redeem(ctx, c.ID, KindRegistration, "alice"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid on reuse, got %v", err)
	}
}

func TestRedeemRejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss := newTestIssuer(&now)
	ctx := context.Background()

	c, _ := iss.ChallengeForRegistration(ctx, "alice")
	if _, err := iss.Redeem(ctx, c.ID, KindAuthentication, "alice"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("wrong kind: expected ErrChallengeInvalid, got %v", err)
	}
	if _, err := iss.Redeem(ctx, c.ID, KindRegistration, "alice"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("mismatching attempt must burn the challenge, got %v", err)
	}

	c, _ = iss.ChallengeForAuthentication(ctx, "alice")
	if _, err := iss.Redeem(ctx, c.ID, KindAuthentication, "bob"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("wrong user: expected ErrChallengeInvalid, got %v", err)
	}

	c, _ = iss.ChallengeForAuthentication(ctx, "alice")
	now = now.Add(time.Minute)
	if _, err := iss.Redeem(ctx, c.ID, KindAuthentication, "alice"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expired: expected ErrChallengeInvalid, got %v", err)
	}

	if _, err := iss.Redeem(ctx, "unknown", KindAuthentication, "alice"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("unknown: expected ErrChallengeInvalid, got %v", err)
	}
	if _, err := iss.Redeem(ctx, "", KindAuthentication, "alice"); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("empty id: expected ErrMissingParameter, got %v", err)
	}
}

func TestMemoryStoreSweepsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	if err := s.Put(ctx, Challenge{ID: "old", ExpiresAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	now = now.Add(time.Hour)
	for i := 1; i < sweepEvery; i++ {
		id := string(rune('a'+i%26)) + time.Duration(i).String()
		if err := s.Put(ctx, Challenge{ID: id, User: id, ExpiresAt: now.Add(time.Minute)}); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	if _, ok, _ := s.Take(ctx, "old"); ok {
		t.Fatal("expired challenge must be swept")
	}
	if _, ok := s.byUser[""]; ok {
		t.Fatal("swept challenge must leave no per-user entry")
	}
}

func TestMemoryStoreCapsPendingPerUser(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss := newTestIssuer(&now)
	store := iss.store.(*MemoryStore)
	ctx := context.Background()

	var issued []Challenge
	for i := 0; i < maxPendingPerUser+2; i++ {
		c, err := iss.ChallengeForAuthentication(ctx, "alice")
		if err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
		issued = append(issued, c)
	}
	other, err := iss.ChallengeForAuthentication(ctx, "bob")
	if err != nil {
		t.Fatalf("issue for bob failed: %v", err)
	}
	if got := store.Len(); got != maxPendingPerUser+1 {
		t.Fatalf("expected %d pending, got %d", maxPendingPerUser+1, got)
	}

	for _, c := range issued[:2] {
		if _, err := iss.Redeem(ctx, c.ID, KindAuthentication, "alice"); !errors.Is(err, ErrChallengeInvalid) {
			t.Fatalf("displaced challenge: expected ErrChallengeInvalid, got %v", err)
		}
	}
	for _, c := range issued[2:] {
		if _, err := iss.Redeem(ctx, c.ID, KindAuthentication, "alice"); err != nil {
			t.Fatalf("recent challenge: redeem failed: %v", err)
		}
	}
	if _, err := iss.Redeem(ctx, other.ID, KindAuthentication, "bob"); err != nil {
		t.Fatalf("other user's challenge must survive: %v", err)
	}
	if store.Len() != 0 || len(store.byUser) != 0 {
		t.Fatalf("store must be empty, pending=%d users=%d", store.Len(), len(store.byUser))
	}
}

func TestCredentialVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	cr := Credential{User: "alice", PublicKey: pub}
	c := Challenge{ID: "id", Kind: KindAuthentication, User: "alice", Nonce: "n"}
	if err := cr.Verify(c, ed25519.Sign(priv, c.Message())); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	other := c
	other.Nonce = "m"
	if err := cr.Verify(other, ed25519.Sign(priv, c.Message())); !errors.Is(err, ErrAssertionInvalid) {
		t.Fatalf("expected ErrAssertionInvalid, got %v", err)
	}
	if err := (Credential{}).Verify(c, nil); !errors.Is(err, ErrAssertionInvalid) {
		t.Fatalf("expected ErrAssertionInvalid for empty credential, got %v", err)
	}
}

func TestMemoryCredentialStore(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	if _, err := s.Get(ctx, "alice"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	if err := s.Add(ctx, Credential{User: "alice", PublicKey: make([]byte, 32)}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.Add(ctx, Credential{User: "alice"}); !errors.Is(err, ErrCredentialExists) {
		t.Fatalf("expected ErrCredentialExists, got %v", err)
	}
}

func TestFileCredentialStorePersists(t *testing.T) {
	for _, secret := range []string{"", "store-secret"} {
		path := filepath.Join(t.TempDir(), "walletd", "credentials.json")
		ctx := context.Background()
		s := NewFileCredentialStore(path, secret)
		if err := s.Bootstrap(); err != nil {
			t.Fatalf("bootstrap empty failed: %v", err)
		}
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("generate key failed: %v", err)
		}
		if err := s.Add(ctx, Credential{User: "alice", PublicKey: pub, RegisteredAt: time.Unix(1, 0).UTC()}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		fsperm.AssertPrivateFile(t, path)

		reloaded := NewFileCredentialStore(path, secret)
		if err := reloaded.Bootstrap(); err != nil {
			t.Fatalf("bootstrap failed: %v", err)
		}
		cr, err := reloaded.Get(ctx, "alice")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !cr.PublicKey.Equal(pub) {
			t.Fatal("persisted public key mismatch")
		}
		if err := reloaded.Add(ctx, Credential{User: "alice", PublicKey: pub}); !errors.Is(err, ErrCredentialExists) {
			t.Fatalf("expected ErrCredentialExists after reload, got %v", err)
		}
	}
}

func TestFileCredentialStoreRequiresPath(t *testing.T) {
	if err := NewFileCredentialStore(" ", "").Bootstrap(); err == nil {
		t.Fatal("expected error for empty path")
	}
}
