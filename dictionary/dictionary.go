// Package dictionary holds the curated glossary used for short UI labels and
// genre names, where a human-picked word beats any machine translation.
//
// Every entry lists its senses and a translation table per locale and domain.
// The domain comes from the message key's namespace; music and game are close
// enough that each falls back to the other.
package dictionary

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Domains.
const (
	DomainMusic   = "music"
	DomainGame    = "game"
	DomainUI      = "ui"
	DomainGeneral = "general"
)

//go:embed data/dictionary.yaml
var embedded []byte

// Sense is one meaning of an English term.
type Sense struct {
	POS    string `yaml:"pos" json:"pos"`
	Gloss  string `yaml:"gloss" json:"gloss"`
	Domain string `yaml:"domain" json:"domain"`
}

// Entry is the glossary record for one English term.
type Entry struct {
	Senses       []Sense                      `yaml:"senses"`
	Translations map[string]map[string]string `yaml:"translations"` // locale -> domain -> value
}

// Dictionary is an immutable glossary.
type Dictionary struct {
	entries map[string]Entry
	locales map[string]bool
}

// Default returns the glossary compiled into the binary.
func Default() (*Dictionary, error) {
	return Parse(embedded)
}

// LoadFile reads a glossary from a YAML file.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return d, nil
}

// Parse decodes a YAML glossary.
func Parse(data []byte) (*Dictionary, error) {
	var raw map[string]Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding dictionary")
	}

	d := &Dictionary{
		entries: make(map[string]Entry, len(raw)),
		locales: make(map[string]bool),
	}
	for term, e := range raw {
		key := Normalize(term)
		if key == "" {
			return nil, errors.New("dictionary contains an empty term")
		}
		if _, dup := d.entries[key]; dup {
			return nil, errors.Errorf("duplicate dictionary term %q", term)
		}
		d.entries[key] = e
		for loc := range e.Translations {
			d.locales[loc] = true
		}
	}

	return d, nil
}

// Normalize is the lookup form of a term: NFC, lower-cased, trimmed.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// DomainForKey maps a message key's namespace to a dictionary domain.
func DomainForKey(key string) string {
	ns, _, _ := strings.Cut(key, ".")
	switch ns {
	case "genres":
		return DomainMusic
	case "filters", "common", "admin", "auth":
		return DomainUI
	default:
		return DomainGeneral
	}
}

// fallbackDomain pairs domains that share vocabulary.
var fallbackDomain = map[string]string{
	DomainMusic: DomainGame,
	DomainGame:  DomainMusic,
}

// Len returns the number of terms.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Locales returns the locales with at least one translation, sorted.
func (d *Dictionary) Locales() []string {
	out := make([]string, 0, len(d.locales))
	for loc := range d.locales {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// HasLocale reports whether any entry translates into locale or into its base
// language written in the same script (pt-BR reads pt, zh-TW never reads zh).
func (d *Dictionary) HasLocale(locale string) bool {
	return d.locales[locale] || d.locales[baseLocale(locale)]
}

// Senses returns the senses of text, or nil when the term is unknown.
func (d *Dictionary) Senses(text string) []Sense {
	e, ok := d.entries[Normalize(text)]
	if !ok {
		return nil
	}
	return e.Senses
}

// Lookup returns the translation of text into locale for domain. The exact
// domain is tried first, then its fallback (music <-> game).
func (d *Dictionary) Lookup(text, locale, domain string) (string, bool) {
	e, ok := d.entries[Normalize(text)]
	if !ok {
		return "", false
	}

	table, ok := e.Translations[locale]
	if !ok {
		if table, ok = e.Translations[baseLocale(locale)]; !ok {
			return "", false
		}
	}

	if v, ok := table[domain]; ok && v != "" {
		return v, true
	}
	if fb, ok := fallbackDomain[domain]; ok {
		if v, ok := table[fb]; ok && v != "" {
			return v, true
		}
	}

	return "", false
}

// Candidates returns every distinct translation of text into locale across
// all domains, in sense order.
func (d *Dictionary) Candidates(text, locale string) []string {
	e, ok := d.entries[Normalize(text)]
	if !ok {
		return nil
	}
	table, ok := e.Translations[locale]
	if !ok {
		if table, ok = e.Translations[baseLocale(locale)]; !ok {
			return nil
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, s := range e.Senses {
		add(table[s.Domain])
	}
	domains := make([]string, 0, len(table))
	for dom := range table {
		domains = append(domains, dom)
	}
	sort.Strings(domains)
	for _, dom := range domains {
		add(table[dom])
	}
	return out
}

func baseLocale(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	base, _, found := strings.Cut(locale, "-")
	if !found {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	baseTag, err := language.Parse(base)
	if err != nil {
		return ""
	}
	script, _ := tag.Script()
	baseScript, _ := baseTag.Script()
	if script != baseScript {
		return ""
	}
	return base
}
