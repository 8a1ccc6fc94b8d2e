// Package provenance implements the translation provenance ledger: for every
// (message key, locale) pair that was written by a machine it records how the
// value was produced and a hash of the value as written. A later edit of the
// value changes its hash, which marks the entry as stale.
//
// The ledger is a single JSON file sorted by message key:
//
//	{
//	  "genres.rock": {
//	    "es": {"method": "machine", "engine": "dictionary", "source": "en",
//	           "date": "2026-10-16", "confidence": 0.95, "contentHash": "9c1f..."}
//	  }
//	}
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/hypeshelf/i18nkit/atomicfile"
)

// FileName is the default ledger file name, stored inside the messages directory.
const FileName = ".provenance.json"

// HashLength is the number of hex characters kept from the SHA-256 digest.
const HashLength = 16

// Provenance methods.
const (
	MethodAuthored           = "authored"
	MethodMachine            = "machine"
	MethodMachineNeedsReview = "machine-needs-review"
	MethodReviewed           = "reviewed"
)

// ReviewThreshold is the confidence at or above which a machine translation
// is trusted without human review.
const ReviewThreshold = 0.85

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Entry describes how one translated value came to be.
type Entry struct {
	Method      string   `json:"method"`
	Engine      string   `json:"engine,omitempty"`
	Source      string   `json:"source"`
	Date        string   `json:"date"`
	Confidence  *float64 `json:"confidence,omitempty"`
	ContentHash string   `json:"contentHash,omitempty"`
}

// Ledger holds every entry, keyed by message key then locale.
type Ledger struct {
	Entries map[string]map[string]Entry

	mu    sync.Mutex
	path  string
	dirty bool
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the ledger from path. Returns an empty ledger if the file
// doesn't exist.
func Load(path string) (*Ledger, error) {
	l := &Ledger{
		Entries: make(map[string]map[string]Entry),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	if err := json.Unmarshal(data, &l.Entries); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if l.Entries == nil {
		l.Entries = make(map[string]map[string]Entry)
	}

	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Dirty reports whether the ledger changed since it was loaded or saved.
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Save writes the ledger atomically when it has unsaved changes.
// Returns true if the file was written.
func (l *Ledger) Save() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return false, nil
	}
	if l.path == "" {
		return false, errors.New("provenance ledger path not set")
	}

	data, err := json.MarshalIndentWithOption(l.Entries, "", "  ", json.DisableHTMLEscape())
	if err != nil {
		return false, errors.Wrap(err, "marshaling provenance ledger")
	}
	data = append(data, '\n')

	if err := atomicfile.WriteFile(l.path, data, 0o644); err != nil {
		return false, err
	}
	l.dirty = false

	return true, nil
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Hash returns the truncated SHA-256 hex digest of a translated value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// Classify maps a machine confidence to a provenance method.
func Classify(confidence float64) string {
	if confidence >= ReviewThreshold {
		return MethodMachine
	}
	return MethodMachineNeedsReview
}

// Get returns the entry for key in locale.
func (l *Ledger) Get(key, locale string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.Entries[key][locale]
	return e, ok
}

// Set records entry for key in locale, replacing any previous one.
func (l *Ledger) Set(key, locale string, entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Entries[key] == nil {
		l.Entries[key] = make(map[string]Entry)
	}
	if old, ok := l.Entries[key][locale]; ok && sameEntry(old, entry) {
		return
	}
	l.Entries[key][locale] = entry
	l.dirty = true
}

func sameEntry(a, b Entry) bool {
	if a.Method != b.Method || a.Engine != b.Engine || a.Source != b.Source ||
		a.Date != b.Date || a.ContentHash != b.ContentHash {
		return false
	}
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	return a.Confidence == nil || *a.Confidence == *b.Confidence
}

// IsStale reports whether the recorded hash for key/locale no longer matches
// value. Entries without a hash are never stale.
func (l *Ledger) IsStale(key, locale, value string) bool {
	e, ok := l.Get(key, locale)
	if !ok || e.ContentHash == "" {
		return false
	}
	return e.ContentHash != Hash(value)
}

// Keys returns the sorted message keys present in the ledger.
func (l *Ledger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.Entries))
	for k := range l.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats counts entries per method for one locale.
func (l *Ledger) Stats(locale string) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, locales := range l.Entries {
		if e, ok := locales[locale]; ok {
			counts[e.Method]++
		}
	}
	return counts
}

// Summary returns a human-readable summary string.
func (l *Ledger) Summary() string {
	keys := l.Keys()
	if len(keys) == 0 {
		return "empty"
	}

	l.mu.Lock()
	perLocale := make(map[string]int)
	for _, locales := range l.Entries {
		for loc := range locales {
			perLocale[loc]++
		}
	}
	l.mu.Unlock()

	locs := make([]string, 0, len(perLocale))
	for loc := range perLocale {
		locs = append(locs, loc)
	}
	sort.Strings(locs)

	parts := make([]string, 0, len(locs))
	for _, loc := range locs {
		parts = append(parts, fmt.Sprintf("%s: %d", loc, perLocale[loc]))
	}
	return fmt.Sprintf("%d keys (%s)", len(keys), strings.Join(parts, ", "))
}
