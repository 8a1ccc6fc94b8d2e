// Package translate drives a batch run: for every target locale it walks the
// source catalog, skips what is already translated, runs the cascade for the
// rest and flushes the catalogs once at the end.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hypeshelf/i18nkit/messages"
	"github.com/hypeshelf/i18nkit/strategy"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// KeyTranslator translates a single message.
type KeyTranslator interface {
	TranslateKey(ctx context.Context, key, english, locale string) (*strategy.Result, error)
}

// Options controls a batch run.
type Options struct {
	// Locales restricts the run. Empty means every target locale of the manager.
	Locales []string
	// DryRun lists the keys that would be translated without calling any
	// provider or writing files.
	DryRun bool
	// Force re-translates keys that already have a value.
	Force bool
	// Outdated re-translates keys whose source text changed after they were
	// translated. Without it such keys are only reported.
	Outdated bool
	// Limit caps the number of keys sent through the cascade in this run
	// (0 = no limit).
	Limit int
	// RunID tags log output. Generated when empty.
	RunID string
	// OnResult is called after every key that went through the cascade.
	OnResult func(res *strategy.Result, err error)
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
	// Verbose echoes each result's audit trail through OnLog.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Failure is one key whose cascade failed outright.
type Failure struct {
	Locale string
	Key    string
	Err    error
}

// Summary is the outcome of a run.
type Summary struct {
	RunID      string
	Translated int
	Skipped    int
	Failed     int
	// Pending counts keys a dry run would have translated.
	Pending int
	Stale   int
	// Outdated counts existing values translated from an older source text.
	Outdated int
	Failures []Failure
	Written  []string
	// LimitReached is set when Limit stopped the run early.
	LimitReached bool
}

// OK reports whether no key failed.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// Err returns an error naming the failed keys, or nil.
func (s *Summary) Err() error {
	if s.OK() {
		return nil
	}
	names := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		names = append(names, f.Locale+"/"+f.Key)
	}
	return errors.Errorf("%d key(s) failed: %s", s.Failed, strings.Join(names, ", "))
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run processes the locales one after another and keys in sorted order. A
// failing key is recorded and the run moves on. Catalogs are flushed once,
// after the last locale, unless DryRun is set; a flush error is returned.
func Run(ctx context.Context, m *messages.Manager, t KeyTranslator, opts Options) (*Summary, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := log.With().Str("run", opts.RunID).Logger()

	locales := opts.Locales
	if len(locales) == 0 {
		locales = m.Locales()
	}

	sum := &Summary{RunID: opts.RunID}
	sourceKeys := m.Keys(m.Source())
	budget := opts.Limit

	for _, locale := range locales {
		if err := ctx.Err(); err != nil {
			return sum, flushOnCancel(m, sum, opts, err)
		}
		if locale == m.Source() {
			continue
		}

		if !opts.DryRun {
			m.PruneSources(locale)
		}
		todo := pendingKeys(m, locale, sourceKeys, opts, sum)
		if len(todo) == 0 {
			opts.log("%s: nothing to translate", locale)
			continue
		}
		opts.log("Translating %s: %d key(s)", locale, len(todo))
		logger.Debug().Str("locale", locale).Int("keys", len(todo)).Msg("locale started")

		for _, key := range todo {
			if opts.Limit > 0 && budget == 0 {
				sum.LimitReached = true
				break
			}
			if err := ctx.Err(); err != nil {
				return sum, flushOnCancel(m, sum, opts, err)
			}
			budget--

			if opts.DryRun {
				sum.Pending++
				opts.log("  would translate %s", key)
				continue
			}

			english, _ := m.Get(m.Source(), key)
			res, err := t.TranslateKey(ctx, key, english, locale)
			if err == nil {
				err = apply(m, locale, key, res)
			}
			if opts.OnResult != nil {
				opts.OnResult(res, err)
			}
			if opts.Verbose && res != nil {
				for _, line := range res.Audit {
					opts.log("    %s", line)
				}
			}
			if err != nil {
				sum.Failed++
				sum.Failures = append(sum.Failures, Failure{Locale: locale, Key: key, Err: err})
				logger.Warn().Err(err).Str("locale", locale).Str("key", key).Msg("key failed")
				continue
			}
			sum.Translated++
		}

		if sum.LimitReached {
			opts.log("Key limit of %d reached", opts.Limit)
			break
		}
	}

	if opts.DryRun {
		return sum, nil
	}

	written, err := m.Flush()
	sum.Written = written
	if err != nil {
		return sum, errors.Wrap(err, "saving catalogs")
	}
	for _, path := range written {
		opts.log("Saved %s", path)
	}
	logger.Info().
		Int("translated", sum.Translated).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("outdated", sum.Outdated).
		Msg("run finished")

	return sum, nil
}

// pendingKeys returns the source keys that need translating for locale and
// counts the rest as skipped. Existing values with drifted provenance or an
// outdated source are reported.
func pendingKeys(m *messages.Manager, locale string, keys []string, opts Options, sum *Summary) []string {
	ledger := m.Ledger()
	var todo []string
	for _, key := range keys {
		value, exists := m.Get(locale, key)
		if exists && ledger.IsStale(key, locale, value) {
			sum.Stale++
			opts.logError("%s/%s: value changed since it was recorded in the ledger", locale, key)
		}
		outdated := exists && m.IsOutdated(locale, key)
		if outdated {
			sum.Outdated++
			if !opts.Outdated && !opts.Force {
				opts.logError("%s/%s: source text changed since it was translated", locale, key)
			}
		}
		if exists && !opts.Force && !(outdated && opts.Outdated) {
			sum.Skipped++
			continue
		}
		todo = append(todo, key)
	}
	return todo
}

func apply(m *messages.Manager, locale, key string, res *strategy.Result) error {
	if res == nil || res.Translation == "" {
		return errors.Errorf("%s/%s: empty translation", locale, key)
	}
	if err := m.SetMessage(locale, key, res.Translation); err != nil {
		return err
	}
	m.SetProvenance(locale, key, res.Provenance(m.Source()), &res.Translation)
	m.RecordSource(locale, key)
	return nil
}

// flushOnCancel keeps the work done before cancellation.
func flushOnCancel(m *messages.Manager, sum *Summary, opts Options, cause error) error {
	if opts.DryRun {
		return cause
	}
	written, err := m.Flush()
	sum.Written = written
	if err != nil {
		opts.logError("Error saving catalogs: %v", err)
	}
	return cause
}

// FormatResult renders the one-line per-key report.
func FormatResult(res *strategy.Result, err error) string {
	if res == nil {
		res = &strategy.Result{}
	}
	if err != nil {
		return fmt.Sprintf("[FAIL] %s %s: %v", res.Locale, res.Key, err)
	}
	return fmt.Sprintf("[OK] %s %s → %q (%.0f%%, %s)", res.Locale, res.Key, res.Translation, res.Confidence*100, res.Method)
}
