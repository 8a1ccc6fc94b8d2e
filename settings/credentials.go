// Package settings stores i18nkit user secrets outside the project tree.
//
// Secrets live in the XDG data directory:
//
//	$XDG_DATA_HOME/i18nkit/auth.json  (default: ~/.local/share/i18nkit/auth.json)
//
// The file is a JSON object keyed by provider ID, each value discriminated on
// "type":
//
//   - "psk"   — pre-shared key for the local translation server (mt-local)
//   - "api"   — API keys (libretranslate, validator, mymemory)
//   - "email" — the address registered with MyMemory for the higher quota
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order:
//  1. command-line flag
//  2. environment (I18NKIT_LOCAL_MT_KEY, I18NKIT_<ID>_API_KEY, I18NKIT_MYMEMORY_EMAIL)
//  3. this store
package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hypeshelf/i18nkit/atomicfile"
)

const (
	dataDirName = "i18nkit"
	fileName    = "auth.json"
)

// Entry types.
const (
	TypePSK   = "psk"
	TypeAPI   = "api"
	TypeEmail = "email"
)

// IDValidator is the store key of the LLM validator's API key.
const IDValidator = "validator"

// Info is one stored secret.
type Info struct {
	Type string `json:"type"`

	// Key is the pre-shared key or API key.
	Key string `json:"key,omitempty"`
	// Email is set for type "email".
	Email string `json:"email,omitempty"`

	// BaseURL optionally pins the endpoint the secret belongs to.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all secrets, keyed by provider ID.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the i18nkit data directory, honoring $XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the store. A missing or unreadable file yields an empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable credential store")
		return make(Store)
	}
	if store == nil {
		return make(Store)
	}

	return store
}

// Save writes the store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling credentials")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "creating data directory")
	}

	return errors.Wrap(atomicfile.WriteFile(path, append(data, '\n'), 0o600), "writing auth file")
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a provider, or nil.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// Set stores an entry for a provider (upsert).
func Set(providerID string, info *Info) error {
	store := Load()
	store[providerID] = info
	return Save(store)
}

// Remove deletes a provider's entry. Removing a missing entry is a no-op.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the store file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing auth file")
	}
	return nil
}

// SetKey stores a secret of the given type ("psk" or "api").
func SetKey(providerID, typ, key string) error {
	if typ != TypePSK && typ != TypeAPI {
		return errors.Errorf("unknown secret type %q (valid: %s, %s)", typ, TypePSK, TypeAPI)
	}
	return Set(providerID, &Info{Type: typ, Key: key})
}

// SetEmail stores the registered email for a provider.
func SetEmail(providerID, email string) error {
	if !strings.Contains(email, "@") {
		return errors.Errorf("%q is not an email address", email)
	}
	return Set(providerID, &Info{Type: TypeEmail, Email: email})
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// EnvVarForKey returns the environment variable holding a provider's key.
func EnvVarForKey(providerID string) string {
	if providerID == "mt-local" {
		return "I18NKIT_LOCAL_MT_KEY"
	}
	return "I18NKIT_" + envName(providerID) + "_API_KEY"
}

// EnvVarForEmail returns the environment variable holding a provider's email.
func EnvVarForEmail(providerID string) string {
	return "I18NKIT_" + envName(providerID) + "_EMAIL"
}

func envName(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
}

// ResolveKey returns the first non-empty of flag, environment and store.
func ResolveKey(providerID, flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(EnvVarForKey(providerID)); v != "" {
		return v
	}
	if info := Get(providerID); info != nil && (info.Type == TypePSK || info.Type == TypeAPI) {
		return info.Key
	}
	return ""
}

// ResolveEmail returns the first non-empty of configured, environment and store.
func ResolveEmail(providerID, configured string) string {
	if configured != "" {
		return configured
	}
	if v := os.Getenv(EnvVarForEmail(providerID)); v != "" {
		return v
	}
	if info := Get(providerID); info != nil && info.Type == TypeEmail {
		return info.Email
	}
	return ""
}

// MaskKey returns a masked version of a secret for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
