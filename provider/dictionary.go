package provider

import (
	"context"

	"github.com/hypeshelf/i18nkit/dictionary"
)

// Dictionary serves translations from the curated glossary. It never touches
// the network.
type Dictionary struct {
	dict *dictionary.Dictionary
}

// NewDictionary wraps a glossary as a Provider.
func NewDictionary(d *dictionary.Dictionary) *Dictionary {
	return &Dictionary{dict: d}
}

func (d *Dictionary) Name() string { return IDDictionary }

func (d *Dictionary) Translate(_ context.Context, text, _, to string, hint *Context) (string, error) {
	if !d.dict.HasLocale(to) {
		return "", kindf(ErrUnsupportedLocale, "dictionary has no %s table", to)
	}

	domain := dictionary.DomainGeneral
	if hint != nil {
		switch {
		case hint.Domain != "":
			domain = hint.Domain
		case hint.Key != "":
			domain = dictionary.DomainForKey(hint.Key)
		}
	}

	v, ok := d.dict.Lookup(text, to, domain)
	if !ok {
		return "", kindf(ErrNotFound, "%q not in dictionary for %s/%s", text, to, domain)
	}
	return v, nil
}

func (d *Dictionary) SupportsLocale(locale string) bool { return d.dict.HasLocale(locale) }

func (d *Dictionary) RemainingQuota() float64 { return Unlimited }

// Senses exposes the glossary senses of text for disambiguation prompts.
func (d *Dictionary) Senses(text string) []dictionary.Sense {
	return d.dict.Senses(text)
}

// Candidates returns every translation of text into locale regardless of domain.
func (d *Dictionary) Candidates(text, locale string) []string {
	return d.dict.Candidates(text, locale)
}
