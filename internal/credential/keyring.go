package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "berrydesk"

// OpenKeyring returns the system keyring, falling back to an encrypted file
// under dir when no OS backend is available.
func OpenKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("berrydesk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Vault remembers session cookies per API host.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps ring. Tests pass keyring.NewArrayKeyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func sessionKey(host string) string {
	return "session:" + host
}

// SaveSession stores cookies for host, replacing anything saved before.
func (v *Vault) SaveSession(host string, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding session for %s: %w", host, err)
	}

	err = v.ring.Set(keyring.Item{
		Key:   sessionKey(host),
		Data:  data,
		Label: "berrydesk session (" + host + ")",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", sessionKey(host), err)
	}
	return nil
}

// LoadSession returns the cookies remembered for host. A host with nothing
// saved yields no cookies and no error.
func (v *Vault) LoadSession(host string) ([]*http.Cookie, error) {
	item, err := v.ring.Get(sessionKey(host))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", sessionKey(host), err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(item.Data, &stored); err != nil {
		return nil, fmt.Errorf("decoding session for %s: %w", host, err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	return cookies, nil
}

// DeleteSession forgets the cookies for host. Deleting a missing entry is
// not an error.
func (v *Vault) DeleteSession(host string) error {
	err := v.ring.Remove(sessionKey(host))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", sessionKey(host), err)
	}
	return nil
}
