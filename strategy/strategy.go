// Package strategy runs the per-key translation cascade:
//
//  1. dictionary, for values of at most two words
//  2. the local neural model, if it answered its health probe
//  3. the cloud provider chain, with back-translation for 3+ words
//  4. an optional LLM grade of whichever translation won
//
// Each step appends a line to the result's audit trail. The confidence
// constants below feed the machine / machine-needs-review classification and
// must not be tuned independently.
package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hypeshelf/i18nkit/dictionary"
	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/provenance"
	"github.com/hypeshelf/i18nkit/provider"
	"github.com/hypeshelf/i18nkit/validator"
)

// Methods reported in Result.Method.
const (
	MethodDictionary = "dictionary"
	MethodLocal      = "mt-local"
	MethodCloud      = "mt-cloud"
)

// Cascade constants.
const (
	DictionaryMaxWords   = 2
	ConfidenceDictionary = 0.95

	ConfidenceLocal          = 0.70
	ConfidenceLocalAgreement = 0.90

	ConfidenceCloud        = 0.60
	BackTranslationWords   = 3
	SimilarityHigh         = 0.6
	SimilarityLow          = 0.3
	SimilarityBonus        = 0.15
	SimilarityBonusCap     = 0.85
	SimilarityPenalty      = 0.10
	SimilarityPenaltyFloor = 0.30

	ValidatorHigh         = 0.8
	ValidatorLow          = 0.5
	ValidatorBonus        = 0.10
	ValidatorBonusCap     = 1.0
	ValidatorPenalty      = 0.15
	ValidatorPenaltyFloor = 0.20
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Dictionary is the glossary provider.
type Dictionary interface {
	provider.Provider
	Senses(text string) []dictionary.Sense
	Candidates(text, locale string) []string
}

// LocalModel is the self-hosted model provider.
type LocalModel interface {
	provider.Provider
	Available(ctx context.Context) bool
}

// Chain is the cloud fallback.
type Chain interface {
	Translate(ctx context.Context, text, from, to string, hint *provider.Context) (string, string, error)
	TranslateWithVerification(ctx context.Context, text, from, to string, hint *provider.Context) (*provider.Verified, error)
}

// Validator grades and arbitrates translations.
type Validator interface {
	Available(ctx context.Context) bool
	ValidateTranslation(ctx context.Context, original, translation, locale, hint string) validator.Validation
	DisambiguateTranslation(ctx context.Context, original, locale, key string, senses []dictionary.Sense, candidates []string) validator.Disambiguation
}

type metricsReporter interface {
	LastMetrics() *provider.Metrics
}

// Orchestrator holds the cascade's collaborators. Any of them may be nil,
// which skips the corresponding step.
type Orchestrator struct {
	Source     string
	Dictionary Dictionary
	Local      LocalModel
	Chain      Chain
	Validator  Validator
}

// ---------------------------------------------------------------------------
// Result
// ---------------------------------------------------------------------------

// Arbitration is the validator's verdict when the local model and the
// dictionary disagree. It is informational only.
type Arbitration struct {
	Candidates []string
	Winner     int
	Reasoning  string
}

// Result is the outcome of one key's cascade.
type Result struct {
	Key             string
	Locale          string
	Translation     string
	Method          string
	Confidence      float64
	Provider        string
	BackTranslation string
	Similarity      *float64
	Senses          []dictionary.Sense
	ValidatorScore  *float64
	Feedback        string
	Arbitration     *Arbitration
	Audit           []string
}

func (r *Result) audit(format string, args ...any) {
	r.Audit = append(r.Audit, fmt.Sprintf(format, args...))
}

// Provenance converts the result into a ledger entry.
func (r *Result) Provenance(source string) provenance.Entry {
	conf := r.Confidence
	return provenance.Entry{
		Method:     provenance.Classify(r.Confidence),
		Engine:     r.Provider,
		Source:     source,
		Confidence: &conf,
	}
}

// ---------------------------------------------------------------------------
// Cascade
// ---------------------------------------------------------------------------

// TranslateKey runs the cascade for one message. On failure the partial
// result, with its audit trail, is returned together with the error.
func (o *Orchestrator) TranslateKey(ctx context.Context, key, english, locale string) (*Result, error) {
	source := o.Source
	if source == "" {
		source = "en"
	}
	res := &Result{Key: key, Locale: locale}
	hint := &provider.Context{Key: key}
	words := len(strings.Fields(english))
	logger := log.With().Str("key", key).Str("locale", locale).Logger()
	var attempts []provider.Attempt

	if o.Dictionary != nil {
		res.Senses = o.Dictionary.Senses(english)
	}

	// 1. Dictionary
	switch {
	case o.Dictionary == nil:
		res.audit("dictionary: not configured")
	case words > DictionaryMaxWords:
		res.audit("dictionary: skipped (%d words)", words)
	default:
		out, err := o.Dictionary.Translate(ctx, english, source, locale, hint)
		if err == nil {
			res.Translation = out
			res.Method = MethodDictionary
			res.Provider = o.Dictionary.Name()
			res.Confidence = ConfidenceDictionary
			res.audit("dictionary: hit %q (%s domain) -> %.2f", out, dictionary.DomainForKey(key), ConfidenceDictionary)
			return res, nil
		}
		res.audit("dictionary: %v", err)
		attempts = append(attempts, provider.Attempt{Provider: o.Dictionary.Name(), Err: err})
	}

	// 2. Local model
	resolved := false
	switch {
	case o.Local == nil:
		res.audit("mt-local: not configured")
	case !o.Local.Available(ctx):
		res.audit("mt-local: unavailable")
		attempts = append(attempts, provider.Attempt{Provider: o.Local.Name(), Err: provider.ErrUnavailable})
	default:
		out, err := o.Local.Translate(ctx, english, source, locale, hint)
		if err != nil {
			logger.Warn().Err(err).Msg("local model failed, falling back to cloud")
			res.audit("mt-local: failed: %v", err)
			attempts = append(attempts, provider.Attempt{Provider: o.Local.Name(), Err: err})
			break
		}
		resolved = true
		res.Translation = out
		res.Method = MethodLocal
		res.Provider = o.Local.Name()
		res.Confidence = ConfidenceLocal
		res.audit("mt-local: %q -> %.2f", out, ConfidenceLocal)
		if mr, ok := o.Local.(metricsReporter); ok {
			if m := mr.LastMetrics(); m != nil {
				res.audit("mt-local: %.0fms on %s (%.1f tok/s)", m.LatencyMS, orDash(m.Device), m.TokensPerSecond)
			}
		}
		o.crossCheck(ctx, res, english, locale, logger)
	}

	// 3. Cloud
	if !resolved {
		if o.Chain == nil {
			res.audit("cloud: not configured")
			return res, provider.NewExhaustedError(locale, attempts)
		}
		if err := o.cloud(ctx, res, english, source, locale, words, hint); err != nil {
			return res, exhausted(locale, attempts, err)
		}
	}

	// 4. Validation
	o.validate(ctx, res, english, locale, key)

	res.Confidence = round2(res.Confidence)
	res.audit("final: %.2f (%s)", res.Confidence, provenance.Classify(res.Confidence))

	return res, nil
}

// exhausted merges the dictionary and local attempts into the cloud chain's
// failure so the error names every provider that was tried.
func exhausted(locale string, earlier []provider.Attempt, err error) error {
	attempts := append([]provider.Attempt(nil), earlier...)
	var chainErr *provider.ExhaustedError
	if errors.As(err, &chainErr) {
		attempts = append(attempts, chainErr.Attempts...)
	} else {
		attempts = append(attempts, provider.Attempt{Provider: "cloud", Err: err})
	}
	return provider.NewExhaustedError(locale, attempts)
}

// crossCheck compares the local output with the dictionary's translations
// of the term in any domain.
func (o *Orchestrator) crossCheck(ctx context.Context, res *Result, english, locale string, logger zerolog.Logger) {
	if o.Dictionary == nil {
		return
	}
	candidates := o.Dictionary.Candidates(english, locale)
	if len(candidates) == 0 {
		return
	}

	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(res.Translation)) {
			res.Confidence = ConfidenceLocalAgreement
			res.audit("mt-local: agrees with dictionary %q -> %.2f", c, ConfidenceLocalAgreement)
			return
		}
	}

	logger.Info().Str("local", res.Translation).Strs("dictionary", candidates).Msg("local model disagrees with dictionary")
	res.audit("mt-local: disagrees with dictionary %s, keeping local output", quoteAll(candidates))

	if o.Validator == nil || !o.Validator.Available(ctx) {
		return
	}
	options := append([]string{res.Translation}, candidates...)
	d := o.Validator.DisambiguateTranslation(ctx, english, locale, res.Key, res.Senses, options)
	if !d.Available || d.WinnerIndex < 0 || d.WinnerIndex >= len(options) {
		res.audit("validator: no arbitration verdict")
		return
	}
	res.Arbitration = &Arbitration{Candidates: options, Winner: d.WinnerIndex, Reasoning: d.Reasoning}
	res.audit("validator: prefers %q (%s)", options[d.WinnerIndex], d.Reasoning)
}

func (o *Orchestrator) cloud(ctx context.Context, res *Result, english, source, locale string, words int, hint *provider.Context) error {
	if sub := langmeta.CloudLocale(locale); sub != langmeta.Normalize(locale) {
		res.audit("cloud: %s is sent to cloud services as %s", locale, sub)
	}
	if words < BackTranslationWords {
		out, name, err := o.Chain.Translate(ctx, english, source, locale, hint)
		if err != nil {
			res.audit("cloud: %v", err)
			return err
		}
		res.Translation = out
		res.Method = MethodCloud
		res.Provider = name
		res.Confidence = ConfidenceCloud
		res.audit("cloud: %s %q -> %.2f", name, out, ConfidenceCloud)
		return nil
	}

	v, err := o.Chain.TranslateWithVerification(ctx, english, source, locale, hint)
	if err != nil {
		res.audit("cloud: %v", err)
		return err
	}
	res.Translation = v.Translation
	res.Method = MethodCloud
	res.Provider = v.Provider
	res.Confidence = ConfidenceCloud
	res.audit("cloud: %s %q -> %.2f", v.Provider, v.Translation, ConfidenceCloud)

	if v.BackTranslation == "" {
		res.audit("back-translation: unavailable")
		return nil
	}
	sim := v.Similarity
	res.BackTranslation = v.BackTranslation
	res.Similarity = &sim
	res.Confidence = AdjustForSimilarity(res.Confidence, sim)
	res.audit("back-translation: %q similarity %.2f -> %.2f", v.BackTranslation, sim, res.Confidence)

	return nil
}

func (o *Orchestrator) validate(ctx context.Context, res *Result, english, locale, key string) {
	if o.Validator == nil || !o.Validator.Available(ctx) {
		res.audit("validator: unavailable")
		return
	}

	v := o.Validator.ValidateTranslation(ctx, english, res.Translation, locale, NamespaceContext(key))
	if !v.Available || v.Score < 0 {
		res.audit("validator: no score")
		return
	}
	score := v.Score
	res.ValidatorScore = &score
	res.Feedback = v.Feedback
	res.Confidence = AdjustForValidator(res.Confidence, score)
	res.audit("validator: score %.2f -> %.2f", score, res.Confidence)
}

// ---------------------------------------------------------------------------
// Confidence arithmetic
// ---------------------------------------------------------------------------

// AdjustForSimilarity applies the back-translation rule to a cloud confidence.
func AdjustForSimilarity(conf, sim float64) float64 {
	switch {
	case sim >= SimilarityHigh:
		return math.Min(conf+SimilarityBonus, SimilarityBonusCap)
	case sim < SimilarityLow:
		return math.Max(conf-SimilarityPenalty, SimilarityPenaltyFloor)
	default:
		return conf
	}
}

// AdjustForValidator applies the validator rule.
func AdjustForValidator(conf, score float64) float64 {
	switch {
	case score >= ValidatorHigh:
		return math.Min(conf+ValidatorBonus, ValidatorBonusCap)
	case score < ValidatorLow:
		return math.Max(conf-ValidatorPenalty, ValidatorPenaltyFloor)
	default:
		return conf
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NamespaceContext describes where a key's text appears, for the validator.
func NamespaceContext(key string) string {
	ns, _, _ := strings.Cut(key, ".")
	switch ns {
	case "genres":
		return "a music genre name used as a filter and tag"
	case "filters":
		return "a short label in a search filter panel"
	case "common":
		return "a common UI label or button"
	case "admin":
		return "text in the admin dashboard"
	case "auth":
		return "text on the sign-in and sign-up screens"
	default:
		return fmt.Sprintf("UI text in the %q section", ns)
	}
}

func quoteAll(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
