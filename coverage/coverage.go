// Package coverage audits target catalogs against the source catalog.
package coverage

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/messages"
	"github.com/hypeshelf/i18nkit/provenance"
)

// IdenticalMinLength is the shortest value flagged when it equals the source
// text. Shorter strings ("OK", "Pop") are often legitimately unchanged.
const IdenticalMinLength = 4

// Locale is the audit of one target locale.
type Locale struct {
	Locale      string
	Total       int
	Present     int
	Missing     []string
	Identical   []string
	Stale       []string
	Outdated    []string
	NeedsReview []string
	Orphaned    []string
}

// Percent returns the share of source keys present, 0 to 100.
func (l Locale) Percent() float64 {
	if l.Total == 0 {
		return 100
	}
	return float64(l.Present) * 100 / float64(l.Total)
}

// Clean reports whether nothing is missing and nothing has drifted from
// either side.
func (l Locale) Clean() bool {
	return len(l.Missing) == 0 && len(l.Stale) == 0 && len(l.Outdated) == 0
}

// Report is the audit of every target locale.
type Report struct {
	Source  string
	Locales []Locale
}

// Clean reports whether every locale is clean.
func (r *Report) Clean() bool {
	for _, l := range r.Locales {
		if !l.Clean() {
			return false
		}
	}
	return true
}

// Build audits each target locale of m.
func Build(m *messages.Manager) *Report {
	src := m.Flatten(m.Source())
	ledger := m.Ledger()
	r := &Report{Source: m.Source()}

	for _, loc := range m.Locales() {
		target := m.Flatten(loc)
		l := Locale{Locale: loc, Total: len(src)}

		for key, english := range src {
			value, ok := target[key]
			if !ok {
				l.Missing = append(l.Missing, key)
				continue
			}
			l.Present++
			if value == english && utf8.RuneCountInString(value) >= IdenticalMinLength {
				l.Identical = append(l.Identical, key)
			}
			if ledger.IsStale(key, loc, value) {
				l.Stale = append(l.Stale, key)
			}
			if m.IsOutdated(loc, key) {
				l.Outdated = append(l.Outdated, key)
			}
			if e, ok := ledger.Get(key, loc); ok && e.Method == provenance.MethodMachineNeedsReview {
				l.NeedsReview = append(l.NeedsReview, key)
			}
		}
		for key := range target {
			if _, ok := src[key]; !ok {
				l.Orphaned = append(l.Orphaned, key)
			}
		}

		sort.Strings(l.Missing)
		sort.Strings(l.Identical)
		sort.Strings(l.Stale)
		sort.Strings(l.Outdated)
		sort.Strings(l.NeedsReview)
		sort.Strings(l.Orphaned)
		r.Locales = append(r.Locales, l)
	}

	return r
}

// Write renders the report as a table followed by per-locale details.
func (r *Report) Write(w io.Writer, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCALE\tLANGUAGE\tCOVERAGE\tMISSING\tIDENTICAL\tSTALE\tOUTDATED\tREVIEW\tORPHANED")
	for _, l := range r.Locales {
		name := l.Locale
		if meta, ok := langmeta.Lookup(l.Locale); ok {
			name = meta.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d (%.0f%%)\t%d\t%d\t%d\t%d\t%d\t%d\n",
			l.Locale, name, l.Present, l.Total, l.Percent(),
			len(l.Missing), len(l.Identical), len(l.Stale), len(l.Outdated), len(l.NeedsReview), len(l.Orphaned))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !verbose {
		return nil
	}
	for _, l := range r.Locales {
		section(w, l.Locale, "missing", l.Missing)
		section(w, l.Locale, "identical to source", l.Identical)
		section(w, l.Locale, "stale", l.Stale)
		section(w, l.Locale, "source changed", l.Outdated)
		section(w, l.Locale, "needs review", l.NeedsReview)
		section(w, l.Locale, "orphaned", l.Orphaned)
	}
	return nil
}

func section(w io.Writer, locale, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s %s (%d):\n  %s\n", locale, title, len(keys), strings.Join(keys, "\n  "))
}
