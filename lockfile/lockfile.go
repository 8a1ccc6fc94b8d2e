// Package lockfile records, per locale, a hash of the source text each
// translation was made from. A target value whose source text has since
// changed is outdated even though its own content is untouched.
//
// The lock file lives next to the catalogs as .i18nkit.lock (YAML).
package lockfile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hypeshelf/i18nkit/atomicfile"
	"github.com/hypeshelf/i18nkit/provenance"
)

// FileName is the default lock file name.
const FileName = ".i18nkit.lock"

// Version is the lock file format version.
const Version = 1

// LockFile maps locale -> message key -> source text hash.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"`

	mu    sync.Mutex
	path  string
	dirty bool
}

// Load reads the lock file at path. A missing file yields an empty lock.
func Load(path string) (*LockFile, error) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if lf.Version > Version {
		return nil, errors.Errorf("%s: unsupported version %d", path, lf.Version)
	}
	lf.Version = Version
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// Save writes the lock file when it has changed and reports whether it did.
func (lf *LockFile) Save() (bool, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if !lf.dirty {
		return false, nil
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return false, errors.Wrap(err, "marshaling lock file")
	}
	if err := atomicfile.WriteFile(lf.path, data, 0o644); err != nil {
		return false, err
	}
	lf.dirty = false

	return true, nil
}

// ---------------------------------------------------------------------------
// Checksums
// ---------------------------------------------------------------------------

// Recorded reports whether a source hash exists for locale/key.
func (lf *LockFile) Recorded(locale, key string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	_, ok := lf.Checksums[locale][key]
	return ok
}

// IsOutdated reports whether the source text recorded for locale/key differs
// from source. Keys without a record are never outdated.
func (lf *LockFile) IsOutdated(locale, key, source string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[locale][key]
	return ok && old != provenance.Hash(source)
}

// Update records the source text a translation of locale/key was made from.
func (lf *LockFile) Update(locale, key, source string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[locale] == nil {
		lf.Checksums[locale] = make(map[string]string)
	}
	h := provenance.Hash(source)
	if lf.Checksums[locale][key] == h {
		return
	}
	lf.Checksums[locale][key] = h
	lf.dirty = true
}

// Clean drops records of locale for keys no longer in currentKeys.
func (lf *LockFile) Clean(locale string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[locale]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
			lf.dirty = true
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, locale)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Locales returns the sorted locales with records.
func (lf *LockFile) Locales() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	out := make([]string, 0, len(lf.Checksums))
	for loc := range lf.Checksums {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Summary returns e.g. "2 locales, 5 keys (es: 3, fr: 2)".
func (lf *LockFile) Summary() string {
	locales := lf.Locales()
	if len(locales) == 0 {
		return "empty"
	}

	lf.mu.Lock()
	defer lf.mu.Unlock()

	total := 0
	parts := make([]string, 0, len(locales))
	for _, loc := range locales {
		n := len(lf.Checksums[loc])
		total += n
		parts = append(parts, fmt.Sprintf("%s: %d", loc, n))
	}
	return fmt.Sprintf("%d locales, %d keys (%s)", len(locales), total, strings.Join(parts, ", "))
}
