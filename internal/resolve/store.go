// Package resolve layers operation parameters from their three sources:
// explicit plan values, the secure store, and adapter defaults.
package resolve

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"gopkg.in/yaml.v3"

	reeveerrors "github.com/reeveops/reeve/pkg/errors"
)

const ageHeader = "age-encryption.org/v1"

// Key holds the credential needed to decrypt an encrypted store.
// Exactly one of IdentityFile or Passphrase should be non-empty.
type Key struct {
	IdentityFile string // path to an age identity file (secret key)
	Passphrase   string // scrypt passphrase (used when IdentityFile is empty)
}

func (k *Key) identities() ([]age.Identity, error) {
	if k.Passphrase != "" {
		id, err := age.NewScryptIdentity(k.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("create scrypt identity: %w", err)
		}
		return []age.Identity{id}, nil
	}
	if k.IdentityFile == "" {
		return nil, fmt.Errorf("no age identity configured; set store.identity in the plan or REEVE_AGE_IDENTITY")
	}
	f, err := os.Open(k.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identities: %w", err)
	}
	return identities, nil
}

// SecureStore holds namespaced parameter values: credentials, endpoints and
// tuning knobs that do not belong in the plan itself. Values live under the
// adapter's namespace, so two adapters can both keep a "token" without
// colliding.
type SecureStore struct {
	values map[string]map[string]any
}

// EmptyStore returns a store with no values. Lookups miss, resolution falls
// through to defaults.
func EmptyStore() *SecureStore {
	return &SecureStore{values: map[string]map[string]any{}}
}

// LoadStore reads a YAML store file. Files that start with the age format
// header are decrypted with key first; plaintext files load directly and
// key may be nil.
func LoadStore(path string, key *Key) (*SecureStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, reeveerrors.NewConfigurationError("store", fmt.Sprintf("read %s", path), err)
	}

	if bytes.HasPrefix(raw, []byte(ageHeader)) || looksArmored(raw) {
		if key == nil {
			return nil, reeveerrors.NewConfigurationError("store", fmt.Sprintf("%s is encrypted and no key was provided", path), nil)
		}
		identities, err := key.identities()
		if err != nil {
			return nil, reeveerrors.NewConfigurationError("store", "load decryption key", err)
		}
		r, err := age.Decrypt(bytes.NewReader(raw), identities...)
		if err != nil {
			return nil, reeveerrors.NewConfigurationError("store", fmt.Sprintf("decrypt %s", path), err)
		}
		raw, err = io.ReadAll(r)
		if err != nil {
			return nil, reeveerrors.NewConfigurationError("store", fmt.Sprintf("decrypt %s", path), err)
		}
	}

	var values map[string]map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, reeveerrors.NewParseError(path, 0, err)
	}
	if values == nil {
		values = map[string]map[string]any{}
	}
	return &SecureStore{values: values}, nil
}

func looksArmored(raw []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "-----BEGIN AGE ENCRYPTED FILE-----")
}

// EncryptStore reads a plaintext store file and writes its age-encrypted
// form to dst. The encrypted file uses age's binary format.
func EncryptStore(src, dst string, key *Key) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read plaintext: %w", err)
	}

	recipients, err := key.recipients()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("write ciphertext: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalise ciphertext: %w", err)
	}

	return os.WriteFile(dst, buf.Bytes(), 0o600)
}

func (k *Key) recipients() ([]age.Recipient, error) {
	if k == nil {
		return nil, fmt.Errorf("no encryption key configured")
	}
	if k.Passphrase != "" {
		r, err := age.NewScryptRecipient(k.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("create scrypt recipient: %w", err)
		}
		return []age.Recipient{r}, nil
	}

	identities, err := k.identities()
	if err != nil {
		return nil, err
	}
	var recipients []age.Recipient
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			recipients = append(recipients, x.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no X25519 identities found in %s", k.IdentityFile)
	}
	return recipients, nil
}

// Get returns the value stored for key under the given namespace.
func (s *SecureStore) Get(namespace, key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	ns, ok := s.values[namespace]
	if !ok {
		return nil, false
	}
	v, ok := ns[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Namespace returns a copy of all values stored under the namespace.
func (s *SecureStore) Namespace(namespace string) map[string]any {
	if s == nil {
		return nil
	}
	ns, ok := s.values[namespace]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}
