package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hypeshelf/i18nkit/similarity"
)

// Attempt records why one provider in a chain did not produce a translation.
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError is returned when no provider in a chain succeeded.
// It matches ErrAllProvidersFailed with errors.Is and lists every attempt.
type ExhaustedError struct {
	Locale   string
	Attempts []Attempt
	errs     *multierror.Error
}

// NewExhaustedError aggregates attempts, in the order they were made.
func NewExhaustedError(locale string, attempts []Attempt) *ExhaustedError {
	var merr *multierror.Error
	for _, a := range attempts {
		merr = multierror.Append(merr, errors.Wrap(a.Err, a.Provider))
	}
	if merr != nil {
		merr.ErrorFormat = func(es []error) string {
			parts := make([]string, len(es))
			for i, e := range es {
				parts[i] = e.Error()
			}
			return strings.Join(parts, "; ")
		}
	}
	return &ExhaustedError{Locale: locale, Attempts: attempts, errs: merr}
}

func (e *ExhaustedError) Error() string {
	if e.errs == nil {
		return fmt.Sprintf("%s for %s: no provider configured", ErrAllProvidersFailed, e.Locale)
	}
	return fmt.Sprintf("%s for %s: %s", ErrAllProvidersFailed, e.Locale, e.errs.Error())
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllProvidersFailed }

func (e *ExhaustedError) Unwrap() error {
	if e.errs == nil {
		return nil
	}
	return e.errs
}

// Verified is a chain translation with its back-translation check.
type Verified struct {
	Translation     string
	BackTranslation string
	Similarity      float64
	Provider        string
}

// Chain tries providers in fixed priority order. It never retries a provider.
type Chain struct {
	providers []Provider
}

// NewChain returns a chain over providers, highest priority first.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Providers returns the chain members in priority order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// SupportsLocale reports whether any member supports locale.
func (c *Chain) SupportsLocale(locale string) bool {
	for _, p := range c.providers {
		if p.SupportsLocale(locale) {
			return true
		}
	}
	return false
}

// Translate returns the first successful forward translation and the name of
// the provider that produced it. Providers that don't support the target
// locale or lack the quota for text are skipped without a network call.
func (c *Chain) Translate(ctx context.Context, text, from, to string, hint *Context) (string, string, error) {
	var attempts []Attempt
	chars := float64(utf8.RuneCountInString(text))

	for _, p := range c.providers {
		if !p.SupportsLocale(to) {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: kindf(ErrUnsupportedLocale, "%s", to)})
			continue
		}
		if p.RemainingQuota() < chars {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: kindf(ErrQuotaExhausted, "%.0f chars left, %.0f needed", p.RemainingQuota(), chars)})
			continue
		}

		out, err := p.Translate(ctx, text, from, to, hint)
		if err != nil {
			log.Debug().Err(err).Str("provider", p.Name()).Str("locale", to).Msg("chain provider failed")
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		return out, p.Name(), nil
	}

	return "", "", NewExhaustedError(to, attempts)
}

// TranslateWithVerification translates forward through the chain and then
// back-translates through the same provider. A failed back-translation is
// not an error: it leaves BackTranslation empty and Similarity at 0.
func (c *Chain) TranslateWithVerification(ctx context.Context, text, from, to string, hint *Context) (*Verified, error) {
	out, name, err := c.Translate(ctx, text, from, to, hint)
	if err != nil {
		return nil, err
	}

	v := &Verified{Translation: out, Provider: name}

	p := c.byName(name)
	back, err := p.Translate(ctx, out, to, from, hint)
	if err != nil {
		log.Info().Err(err).Str("provider", name).Str("locale", to).Msg("back-translation failed")
		return v, nil
	}
	v.BackTranslation = back
	v.Similarity = similarity.Compute(text, back)

	return v, nil
}

func (c *Chain) byName(name string) Provider {
	for _, p := range c.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
