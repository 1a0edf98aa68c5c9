package challenge

import (
	"context"
	"crypto/ed25519"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"walletd/go-backend/internal/securestore"
)

var (
	ErrCredentialExists   = errors.New("credential already registered")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrAssertionInvalid   = errors.New("assertion invalid")
)

// Credential is the client key a user proved possession of at registration.
type Credential struct {
	User         string            `json:"user"`
	PublicKey    ed25519.PublicKey `json:"public_key"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// Verify checks that sig answers c with this credential.
func (cr Credential) Verify(c Challenge, sig []byte) error {
	if len(cr.PublicKey) != ed25519.PublicKeySize || !ed25519.Verify(cr.PublicKey, c.Message(), sig) {
		return ErrAssertionInvalid
	}
	return nil
}

type CredentialStore interface {
	// Add stores cr; ErrCredentialExists when the user already has one.
	Add(ctx context.Context, cr Credential) error
	Get(ctx context.Context, user string) (Credential, error)
}

type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{users: map[string]Credential{}}
}

func (s *MemoryCredentialStore) Add(_ context.Context, cr Credential) error {
	if cr.User == "" {
		return errors.New("credential user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[cr.User]; exists {
		return ErrCredentialExists
	}
	s.users[cr.User] = cr
	return nil
}

func (s *MemoryCredentialStore) Get(_ context.Context, user string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.users[user]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cr, nil
}

// FileCredentialStore persists credentials as JSON, encrypted with secret
// when one is configured.
type FileCredentialStore struct {
	mu     sync.RWMutex
	path   string
	secret string
	users  map[string]Credential
}

type credentialFile struct {
	Credentials map[string]Credential `json:"credentials"`
}

func NewFileCredentialStore(path, secret string) *FileCredentialStore {
	return &FileCredentialStore{
		path:   strings.TrimSpace(path),
		secret: strings.TrimSpace(secret),
		users:  map[string]Credential{},
	}
}

// Bootstrap loads the file; a missing file is an empty store.
func (s *FileCredentialStore) Bootstrap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return errors.New("credential store path is required")
	}
	var payload credentialFile
	if err := securestore.ReadJSONFile(s.path, s.secret, &payload); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.users = map[string]Credential{}
			return nil
		}
		return err
	}
	if payload.Credentials == nil {
		payload.Credentials = map[string]Credential{}
	}
	s.users = payload.Credentials
	return nil
}

func (s *FileCredentialStore) Add(_ context.Context, cr Credential) error {
	if cr.User == "" {
		return errors.New("credential user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[cr.User]; exists {
		return ErrCredentialExists
	}
	s.users[cr.User] = cr
	if err := s.persistLocked(); err != nil {
		delete(s.users, cr.User)
		return err
	}
	return nil
}

func (s *FileCredentialStore) Get(_ context.Context, user string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.users[user]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cr, nil
}

func (s *FileCredentialStore) persistLocked() error {
	if s.path == "" {
		return errors.New("credential store path is required")
	}
	return securestore.WriteJSONFile(s.path, s.secret, credentialFile{Credentials: s.users})
}
