package license

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/psdyuan2/AiMediaOps/internal/filestore"
)

// ErrNotActivated is returned by Load when no license document has been
// persisted yet.
var ErrNotActivated = errors.New("license: not activated")

const (
	keySize   = 32
	nonceSize = 24
)

// Store persists the Document encrypted at rest with NaCl secretbox (spec
// §3: "Stored encrypted with a key that is either read from an environment
// variable or generated and persisted to a sibling file on first use").
// Grounded on the teacher's golang.org/x/crypto dependency (used there for
// Argon2id password hashing); secretbox is the symmetric-encryption sibling
// of that same module, a better fit here than hand-rolling AES-GCM against
// the standard library.
type Store struct {
	docPath string
	keyPath string
	keyEnv  string

	mu sync.Mutex
}

// NewStore returns a Store writing the encrypted document to docPath. If
// keyEnv is set in the environment, its value (base64, keySize bytes) is
// used as the encryption key; otherwise a key is generated on first Save
// and persisted to keyPath (mode 0600), per spec §3.
func NewStore(docPath, keyPath, keyEnv string) *Store {
	return &Store{docPath: docPath, keyPath: keyPath, keyEnv: keyEnv}
}

// Save encrypts doc and writes it to docPath with mode 0600 (spec §4.4:
// "All state changes call save which writes mode 0600 encrypted bytes").
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.loadOrCreateKey()
	if err != nil {
		return fmt.Errorf("license: key: %w", err)
	}

	plaintext, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("license: marshal: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("license: nonce: %w", err)
	}
	var keyArr [keySize]byte
	copy(keyArr[:], key)

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &keyArr)
	if err := filestore.EnsureParentDir(s.docPath); err != nil {
		return err
	}
	if err := os.WriteFile(s.docPath+".tmp", sealed, 0o600); err != nil {
		return fmt.Errorf("license: write: %w", err)
	}
	if err := os.Rename(s.docPath+".tmp", s.docPath); err != nil {
		_ = os.Remove(s.docPath + ".tmp")
		return fmt.Errorf("license: rename: %w", err)
	}
	return nil
}

// Load decrypts and returns the persisted Document.
func (s *Store) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := filestore.ReadFileOrEmpty(s.docPath)
	if err != nil {
		return Document{}, fmt.Errorf("license: read: %w", err)
	}
	if data == nil {
		return Document{}, ErrNotActivated
	}
	if len(data) < nonceSize {
		return Document{}, fmt.Errorf("license: corrupt document")
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return Document{}, fmt.Errorf("license: key: %w", err)
	}
	var keyArr [keySize]byte
	copy(keyArr[:], key)

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])

	plaintext, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &keyArr)
	if !ok {
		return Document{}, fmt.Errorf("license: decrypt failed (wrong key or corrupt data)")
	}

	var doc Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return Document{}, fmt.Errorf("license: unmarshal: %w", err)
	}
	return doc, nil
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	if s.keyEnv != "" {
		if v := os.Getenv(s.keyEnv); v != "" {
			key, err := base64.StdEncoding.DecodeString(v)
			if err == nil && len(key) == keySize {
				return key, nil
			}
		}
	}

	if data, err := os.ReadFile(s.keyPath); err == nil {
		key, decErr := base64.StdEncoding.DecodeString(string(data))
		if decErr == nil && len(key) == keySize {
			return key, nil
		}
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := filestore.EnsureParentDir(s.keyPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.keyPath, []byte(encoded), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
