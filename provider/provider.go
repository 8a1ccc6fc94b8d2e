// Package provider defines the translation provider capability and its
// implementations: the curated dictionary, the self-hosted neural model and
// the quota-limited cloud services. Chain tries cloud providers in priority
// order.
package provider

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Provider identifiers.
const (
	IDDictionary     = "dictionary"
	IDLocalModel     = "mt-local"
	IDMyMemory       = "mymemory"
	IDLibreTranslate = "libretranslate"
)

// Unlimited is the RemainingQuota of providers without a daily budget.
var Unlimited = math.Inf(1)

// Error kinds. Use errors.Is to test for them.
var (
	ErrNotFound           = errors.New("no translation found")
	ErrUnavailable        = errors.New("provider unavailable")
	ErrQuotaExhausted     = errors.New("quota exhausted")
	ErrUnsupportedLocale  = errors.New("unsupported locale")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Context carries per-message hints.
type Context struct {
	// Key is the dot-path message key ("genres.rock").
	Key string
	// Domain overrides the domain derived from Key.
	Domain string
}

// Provider translates text between two locales.
type Provider interface {
	// Name is the stable identifier used in logs, quota records and provenance.
	Name() string
	// Translate returns text rendered in locale to.
	Translate(ctx context.Context, text, from, to string, hint *Context) (string, error)
	// SupportsLocale reports whether the provider can translate into locale.
	SupportsLocale(locale string) bool
	// RemainingQuota is the number of characters still allowed today.
	RemainingQuota() float64
}

// kindError attaches an error kind to a provider failure without losing the
// underlying cause.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

func kindf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

func kindWrap(kind error, cause error) error {
	return &kindError{kind: kind, cause: cause}
}
