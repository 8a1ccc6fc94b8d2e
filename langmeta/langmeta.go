// Package langmeta provides the shared language registry: display names and
// flags for the CLI, the script-qualified codes the local translation model
// expects, and the locale sent to cloud providers that lack a language.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
)

// Meta describes one language.
type Meta struct {
	Name string
	Flag string
	// Script is the local model's language code (e.g. "spa_Latn").
	Script string
	// LegacyScript is an approximate code for model builds that predate
	// a dedicated Script code.
	LegacyScript string
	// CloudSubstitute is the related locale sent to cloud providers that
	// don't support this one.
	CloudSubstitute string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", Flag: "🇸🇦", Script: "arb_Arab"},
	"bn":    {Name: "বাংলা", Flag: "🇧🇩", Script: "ben_Beng"},
	"cs":    {Name: "Čeština", Flag: "🇨🇿", Script: "ces_Latn"},
	"da":    {Name: "Dansk", Flag: "🇩🇰", Script: "dan_Latn"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪", Script: "deu_Latn"},
	"el":    {Name: "Ελληνικά", Flag: "🇬🇷", Script: "ell_Grek"},
	"en":    {Name: "English", Flag: "🇺🇸", Script: "eng_Latn"},
	"es":    {Name: "Español", Flag: "🇪🇸", Script: "spa_Latn"},
	"fa":    {Name: "فارسی", Flag: "🇮🇷", Script: "pes_Arab"},
	"fi":    {Name: "Suomi", Flag: "🇫🇮", Script: "fin_Latn"},
	"fr":    {Name: "Français", Flag: "🇫🇷", Script: "fra_Latn"},
	"he":    {Name: "עברית", Flag: "🇮🇱", Script: "heb_Hebr"},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳", Script: "hin_Deva"},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩", Script: "ind_Latn"},
	"it":    {Name: "Italiano", Flag: "🇮🇹", Script: "ita_Latn"},
	"ja":    {Name: "日本語", Flag: "🇯🇵", Script: "jpn_Jpan"},
	"ko":    {Name: "한국어", Flag: "🇰🇷", Script: "kor_Hang"},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱", Script: "nld_Latn"},
	"pl":    {Name: "Polski", Flag: "🇵🇱", Script: "pol_Latn"},
	"pt":    {Name: "Português", Flag: "🇵🇹", Script: "por_Latn"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷", Script: "por_Latn"},
	"ru":    {Name: "Русский", Flag: "🇷🇺", Script: "rus_Cyrl"},
	"sv":    {Name: "Svenska", Flag: "🇸🇪", Script: "swe_Latn"},
	"th":    {Name: "ไทย", Flag: "🇹🇭", Script: "tha_Thai"},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷", Script: "tur_Latn"},
	"uk":    {Name: "Українська", Flag: "🇺🇦", Script: "ukr_Cyrl"},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳", Script: "vie_Latn"},
	"yue":   {Name: "粵語", Flag: "🇭🇰", Script: "yue_Hant", LegacyScript: "zho_Hant", CloudSubstitute: "zh-TW"},
	"zh":    {Name: "中文", Flag: "🇨🇳", Script: "zho_Hans"},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳", Script: "zho_Hans"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼", Script: "zho_Hant"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Normalize returns the BCP-47 form of lang ("pt_br" -> "pt-BR",
// "zh-hant" -> "zh-Hant"). Codes the parser rejects are case-folded only.
func Normalize(lang string) string {
	c := canonicalize(lang)
	if c == "" {
		return ""
	}
	tag, err := language.Parse(c)
	if err != nil {
		return c
	}
	return tag.String()
}

// Lookup returns the registry entry for lang, trying the exact code, its
// normalized form and finally its base language.
func Lookup(lang string) (Meta, bool) {
	if m, ok := Registry[lang]; ok {
		return m, true
	}
	normalized := Normalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m, true
	}
	if tag, err := language.Parse(normalized); err == nil {
		base, _ := tag.Base()
		if m, ok := Registry[base.String()]; ok {
			return m, true
		}
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Lookup(lang); ok {
		return m
	}
	return Meta{Name: lang}
}

// ScriptCode returns the local model code for lang. With legacy set, a
// language that has a LegacyScript uses it instead of its dedicated code.
func ScriptCode(lang string, legacy bool) (string, bool) {
	m, ok := Lookup(lang)
	if !ok || m.Script == "" {
		return "", false
	}
	if legacy && m.LegacyScript != "" {
		return m.LegacyScript, true
	}
	return m.Script, true
}

// CloudLocale returns the locale to send to a cloud provider for lang.
func CloudLocale(lang string) string {
	if m, ok := Lookup(lang); ok && m.CloudSubstitute != "" {
		return m.CloudSubstitute
	}
	return Normalize(lang)
}
