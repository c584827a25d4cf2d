package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name for keyring-backed snapshots.
	keyringService  = "leadharvest-scrape"
	snapshotDirName = "sessions"
)

// Snapshot is the persisted cookie state of one portal's HTTP identity.
type Snapshot struct {
	Portal    string       `json:"portal"`
	Cookies   []SnapCookie `json:"cookies"`
	SavedAt   time.Time    `json:"saved_at"`
	ExpiresAt time.Time    `json:"expires_at,omitempty"`
}

// SnapCookie is one stored cookie.
type SnapCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Store persists cookie snapshots in the OS keyring when available, falling
// back to files under <base>/sessions (Codespaces, CI, headless boxes).
type Store struct {
	dir     string
	useFile bool
}

// NewStore creates a snapshot store rooted under base.
func NewStore(base string) (*Store, error) {
	dir := filepath.Join(base, snapshotDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &Store{dir: dir, useFile: fileStorageOnly()}, nil
}

// fileStorageOnly probes whether the keyring is usable in this environment.
func fileStorageOnly() bool {
	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		return true
	}
	const probe = "_keyring_probe_"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return true
	}
	_ = keyring.Delete(keyringService, probe)
	return false
}

func (st *Store) path(portal string) string {
	return filepath.Join(st.dir, portal+".json")
}

// SaveCookies stores the portal's cookie snapshot.
func (st *Store) SaveCookies(portal string, cookies []*http.Cookie) error {
	if portal == "" {
		return fmt.Errorf("portal name cannot be empty")
	}
	snap := Snapshot{Portal: portal, SavedAt: time.Now()}
	for _, c := range cookies {
		snap.Cookies = append(snap.Cookies, SnapCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
		if !c.Expires.IsZero() && c.Expires.After(snap.ExpiresAt) {
			snap.ExpiresAt = c.Expires
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if st.useFile {
		return os.WriteFile(st.path(portal), data, 0o600)
	}
	if err := keyring.Set(keyringService, portal, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// LoadCookies returns the portal's stored cookies, or an error when no
// usable snapshot exists.
func (st *Store) LoadCookies(portal string) ([]*http.Cookie, error) {
	if portal == "" {
		return nil, fmt.Errorf("portal name cannot be empty")
	}

	var data string
	if st.useFile {
		raw, err := os.ReadFile(st.path(portal))
		if err != nil {
			return nil, err
		}
		data = string(raw)
	} else {
		var err error
		data, err = keyring.Get(keyringService, portal)
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	if !snap.ExpiresAt.IsZero() && time.Now().After(snap.ExpiresAt) {
		return nil, fmt.Errorf("snapshot expired")
	}

	cookies := make([]*http.Cookie, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return cookies, nil
}

// Delete removes the portal's snapshot.
func (st *Store) Delete(portal string) error {
	if st.useFile {
		err := os.Remove(st.path(portal))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return keyring.Delete(keyringService, portal)
}

// List returns the portals with stored snapshots. Keyring mode keeps no
// manifest; file mode lists the directory.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var portals []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			portals = append(portals, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return portals, nil
}
