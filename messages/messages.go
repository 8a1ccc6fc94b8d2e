// Package messages manages the per-locale UI message catalogs.
//
// Each locale lives in <dir>/<locale>.json as a nested JSON object whose
// leaves are strings:
//
//	{
//	  "common": {
//	    "save": "Save"
//	  },
//	  "genres": {
//	    "rock": "Rock"
//	  }
//	}
//
// Keys are addressed with dot paths ("common.save"). Arrays and non-string
// leaves are rejected at load time. Changes are accumulated in memory and
// written by Flush with recursively sorted keys, 2-space indentation and a
// trailing newline. Only locales that actually changed are written.
package messages

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hypeshelf/i18nkit/atomicfile"
	"github.com/hypeshelf/i18nkit/lockfile"
	"github.com/hypeshelf/i18nkit/provenance"
)

// Tree is one locale's nested message object. Values are either string or Tree.
type Tree map[string]any

// Manager holds every loaded locale tree plus the provenance ledger and the
// source lock.
type Manager struct {
	dir    string
	source string
	trees  map[string]Tree
	dirty  map[string]bool
	ledger *provenance.Ledger
	lock   *lockfile.LockFile

	now func() time.Time
}

// Options configure Load.
type Options struct {
	// Dir is the messages directory.
	Dir string
	// Source is the canonical locale (normally "en"). Its file must exist.
	Source string
	// Locales are the target locales. Missing files load as empty trees.
	Locales []string
	// LedgerPath is the provenance ledger file. Empty means <Dir>/.provenance.json.
	LedgerPath string
	// LockPath is the source lock file. Empty means <Dir>/.i18nkit.lock.
	LockPath string
	// Now overrides the clock used for provenance dates.
	Now func() time.Time
}

// Load reads the source tree, every target tree and the provenance ledger.
func Load(opts Options) (*Manager, error) {
	if opts.Source == "" {
		opts.Source = "en"
	}
	if opts.LedgerPath == "" {
		opts.LedgerPath = filepath.Join(opts.Dir, provenance.FileName)
	}
	if opts.LockPath == "" {
		opts.LockPath = filepath.Join(opts.Dir, lockfile.FileName)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		dir:    opts.Dir,
		source: opts.Source,
		trees:  make(map[string]Tree),
		dirty:  make(map[string]bool),
		now:    opts.Now,
	}

	src, err := readTree(m.Path(opts.Source))
	if err != nil {
		return nil, errors.Wrapf(err, "loading source locale %s", opts.Source)
	}
	m.trees[opts.Source] = src

	for _, loc := range opts.Locales {
		if loc == opts.Source {
			continue
		}
		tree, err := readTree(m.Path(loc))
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Str("locale", loc).Msg("no message file yet, starting empty")
			tree = Tree{}
		case err != nil:
			return nil, errors.Wrapf(err, "loading locale %s", loc)
		}
		m.trees[loc] = tree
	}

	ledger, err := provenance.Load(opts.LedgerPath)
	if err != nil {
		return nil, err
	}
	m.ledger = ledger

	lock, err := lockfile.Load(opts.LockPath)
	if err != nil {
		return nil, err
	}
	m.lock = lock

	return m, nil
}

func readTree(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a message tree and checks that every leaf is a string.
func Parse(data []byte) (Tree, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing JSON")
	}
	if raw == nil {
		return Tree{}, nil
	}
	return toTree(raw, "")
}

func toTree(raw map[string]any, prefix string) (Tree, error) {
	out := make(Tree, len(raw))
	for k, v := range raw {
		path := joinKey(prefix, k)
		switch val := v.(type) {
		case string:
			out[k] = val
		case map[string]any:
			sub, err := toTree(val, path)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		default:
			return nil, errors.Errorf("key %q: expected string or object, got %T", path, v)
		}
	}
	return out, nil
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Path returns the file path of a locale.
func (m *Manager) Path(locale string) string {
	return filepath.Join(m.dir, locale+".json")
}

// Source returns the canonical locale.
func (m *Manager) Source() string {
	return m.source
}

// Locales returns the loaded target locales, sorted, excluding the source.
func (m *Manager) Locales() []string {
	out := make([]string, 0, len(m.trees))
	for loc := range m.trees {
		if loc != m.source {
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out
}

// Ledger returns the provenance ledger.
func (m *Manager) Ledger() *provenance.Ledger {
	return m.ledger
}

// Get returns the string stored at key in locale.
func (m *Manager) Get(locale, key string) (string, bool) {
	node := any(m.trees[locale])
	for _, part := range strings.Split(key, ".") {
		t, ok := node.(Tree)
		if !ok {
			return "", false
		}
		if node, ok = t[part]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}

// HasKey reports whether locale has a string at key.
func (m *Manager) HasKey(locale, key string) bool {
	_, ok := m.Get(locale, key)
	return ok
}

// Flatten returns every leaf of locale as dot path -> value.
func (m *Manager) Flatten(locale string) map[string]string {
	out := make(map[string]string)
	flatten(m.trees[locale], "", out)
	return out
}

func flatten(t Tree, prefix string, out map[string]string) {
	for k, v := range t {
		path := joinKey(prefix, k)
		switch val := v.(type) {
		case string:
			out[path] = val
		case Tree:
			flatten(val, path, out)
		}
	}
}

// Keys returns the sorted dot paths of locale.
func (m *Manager) Keys(locale string) []string {
	flat := m.Flatten(locale)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// SetMessage stores value at key in locale, creating intermediate objects.
// It fails when a path segment is already a string or the key names an object.
func (m *Manager) SetMessage(locale, key, value string) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return errors.Errorf("invalid key %q", key)
		}
	}

	tree, ok := m.trees[locale]
	if !ok {
		tree = Tree{}
		m.trees[locale] = tree
	}

	node := tree
	for i, part := range parts[:len(parts)-1] {
		next, exists := node[part]
		if !exists {
			child := Tree{}
			node[part] = child
			node = child
			continue
		}
		child, isTree := next.(Tree)
		if !isTree {
			return errors.Errorf("%s: %q is a message, not a group", locale, strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	if old, exists := node[leaf]; exists {
		s, isString := old.(string)
		if !isString {
			return errors.Errorf("%s: %q is a group, not a message", locale, key)
		}
		if s == value {
			return nil
		}
	}
	node[leaf] = value
	m.dirty[locale] = true

	return nil
}

// SetProvenance records entry for key in locale. When value is non-nil its
// hash is stored as the entry's content hash; a missing date is filled with
// today's date.
func (m *Manager) SetProvenance(locale, key string, entry provenance.Entry, value *string) {
	if value != nil {
		entry.ContentHash = provenance.Hash(*value)
	}
	if entry.Date == "" {
		entry.Date = m.now().UTC().Format(time.DateOnly)
	}
	if entry.Source == "" {
		entry.Source = m.source
	}
	m.ledger.Set(key, locale, entry)
}

// RecordSource notes the current source text of key as the one the locale's
// value was translated from.
func (m *Manager) RecordSource(locale, key string) {
	if english, ok := m.Get(m.source, key); ok {
		m.lock.Update(locale, key, english)
	}
}

// IsOutdated reports whether the source text of key changed after the
// locale's value was translated from it.
func (m *Manager) IsOutdated(locale, key string) bool {
	english, ok := m.Get(m.source, key)
	return ok && m.lock.IsOutdated(locale, key, english)
}

// PruneSources forgets source records of locale for keys no longer in the
// source catalog.
func (m *Manager) PruneSources(locale string) {
	m.lock.Clean(locale, m.Keys(m.source))
}

// Dirty returns the locales with unsaved changes, sorted.
func (m *Manager) Dirty() []string {
	out := make([]string, 0, len(m.dirty))
	for loc := range m.dirty {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Marshal encodes a tree with sorted keys, 2-space indent and a trailing newline.
func Marshal(t Tree) ([]byte, error) {
	if t == nil {
		t = Tree{}
	}
	data, err := json.MarshalIndentWithOption(t, "", "  ", json.DisableHTMLEscape())
	if err != nil {
		return nil, errors.Wrap(err, "marshaling message tree")
	}
	return append(data, '\n'), nil
}

// Flush writes every modified locale, the ledger and the source lock, and
// returns the paths written. Calling Flush again without further changes writes nothing.
func (m *Manager) Flush() ([]string, error) {
	var written []string

	for _, loc := range m.Dirty() {
		data, err := Marshal(m.trees[loc])
		if err != nil {
			return written, errors.Wrapf(err, "locale %s", loc)
		}
		path := m.Path(loc)
		if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
			return written, err
		}
		delete(m.dirty, loc)
		written = append(written, path)
	}

	ok, err := m.ledger.Save()
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, m.ledger.Path())
	}

	ok, err = m.lock.Save()
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, m.lock.Path())
	}

	return written, nil
}
