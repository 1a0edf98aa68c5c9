package securestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"walletd/go-backend/internal/testutil/fsperm"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	data, err := Encrypt("pass", []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	plain, err := Decrypt("pass", data)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(plain) != "secret" {
		t.Fatalf("unexpected plaintext: %q", string(plain))
	}
}

func TestDecryptTamperedFailsDeterministically(t *testing.T) {
	data, err := Encrypt("pass", []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if len(data) < 10 {
		t.Fatalf("unexpected encrypted payload size: %d", len(data))
	}
	data[len(data)-2] ^= 0xFF
	_, err = Decrypt("pass", data)
	if !errors.Is(err, ErrAuthFailed) && !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	data, err := Encrypt("pass", []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := Decrypt("other", data); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	sealed, err := Seal("pass", []byte("0xabc"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if !IsSealed(sealed) || strings.ContainsAny(sealed, "\n ") {
		t.Fatalf("sealed value must be a single prefixed line: %q", sealed)
	}
	plain, err := Open("pass", sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(plain) != "0xabc" {
		t.Fatalf("unexpected plaintext: %q", string(plain))
	}
	if _, err := Open("wrong", sealed); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if _, err := Open("pass", "sealed:%%%"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestJSONFilePlainAndEncrypted(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	type payload struct {
		Name string `json:"name"`
	}

	plainPath := filepath.Join(dir, "plain.json")
	if err := WriteJSONFile(plainPath, "", payload{Name: "a"}); err != nil {
		t.Fatalf("write plain failed: %v", err)
	}
	var got payload
	if err := ReadJSONFile(plainPath, "", &got); err != nil || got.Name != "a" {
		t.Fatalf("read plain failed: %v %+v", err, got)
	}

	encPath := filepath.Join(dir, "enc.json")
	if err := WriteJSONFile(encPath, "s3cret", payload{Name: "b"}); err != nil {
		t.Fatalf("write encrypted failed: %v", err)
	}
	fsperm.AssertPrivateFile(t, encPath)
	raw, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatalf("read raw failed: %v", err)
	}
	if strings.Contains(string(raw), `"b"`) {
		t.Fatal("encrypted file leaks plaintext")
	}
	got = payload{}
	if err := ReadJSONFile(encPath, "s3cret", &got); err != nil || got.Name != "b" {
		t.Fatalf("read encrypted failed: %v %+v", err, got)
	}
	if err := ReadJSONFile(encPath, "nope", &got); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
