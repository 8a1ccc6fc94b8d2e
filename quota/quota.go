// Package quota tracks daily character usage per cloud translation provider.
//
// Usage is stored in a small JSON file:
//
//	{
//	  "mymemory": {"date": "2026-10-16", "chars": 1830}
//	}
//
// A record whose date is not today (UTC) counts as zero. Every AddUsage call
// rewrites the file before returning.
package quota

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileName is the default quota file name.
const FileName = ".i18nkit-quota.json"

// Record is the usage of one provider on one UTC day.
type Record struct {
	Date  string `json:"date"`
	Chars int    `json:"chars"`
}

// Manager reads and persists quota records.
type Manager struct {
	mu      sync.Mutex
	path    string
	records map[string]Record

	// today returns the current UTC date as YYYY-MM-DD. Replaced in tests.
	today func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the function returning today's UTC date.
func WithClock(today func() string) Option {
	return func(m *Manager) {
		m.today = today
	}
}

// UTCDate formats t as the date key used in the quota file.
func UTCDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Load reads the quota file at path. A missing file yields an empty manager.
// A corrupt file is logged and replaced on the next write.
func Load(path string, opts ...Option) (*Manager, error) {
	m := &Manager{
		path:    path,
		records: make(map[string]Record),
		today:   func() string { return UTCDate(time.Now()) },
	}
	for _, opt := range opts {
		opt(m)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, errors.Wrapf(err, "reading quota file %s", path)
	}

	if err := json.Unmarshal(data, &m.records); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("quota file is corrupt, starting from zero")
		m.records = make(map[string]Record)
	}
	if m.records == nil {
		m.records = make(map[string]Record)
	}

	return m, nil
}

// Path returns the quota file path.
func (m *Manager) Path() string {
	return m.path
}

// Used returns the characters consumed today by provider.
func (m *Manager) Used(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.usedLocked(provider)
}

func (m *Manager) usedLocked(provider string) int {
	rec, ok := m.records[provider]
	if !ok || rec.Date != m.today() {
		return 0
	}
	return rec.Chars
}

// Remaining returns how many characters provider may still send today under
// the given daily limit. Never negative.
func (m *Manager) Remaining(provider string, dailyLimit int) int {
	left := dailyLimit - m.Used(provider)
	if left < 0 {
		return 0
	}
	return left
}

// AddUsage adds chars to today's usage of provider and persists the file.
func (m *Manager) AddUsage(provider string, chars int) error {
	if chars < 0 {
		return errors.Errorf("negative usage %d for %s", chars, provider)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[provider] = Record{
		Date:  m.today(),
		Chars: m.usedLocked(provider) + chars,
	}

	return m.saveLocked()
}

// Providers returns the provider names present in the file, sorted.
func (m *Manager) Providers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.records))
	for name := range m.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling quota records")
	}
	data = append(data, '\n')

	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing quota file %s", m.path)
	}

	return nil
}
