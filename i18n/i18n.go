// Package i18n localizes i18nkit's own user-facing strings.
//
// Catalogs are embedded from locales/{lang}/LC_MESSAGES/i18nkit.po. Strings
// without a translation pass through unchanged.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "i18nkit"

var (
	po *gotext.Locale
	// catalog indexes the loaded messages by msgid so T never routes a
	// msgid through gotext's printf-style Get.
	catalog map[string]*gotext.Translation
)

// Init loads the catalog for lang, or for the environment's language when
// lang is empty (LANGUAGE, LC_ALL, LC_MESSAGES, LANG, as GNU gettext does).
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	catalog = po.GetTranslations()
}

// T translates msgid.
func T(msgid string) string {
	if tr, ok := catalog[msgid]; ok {
		return tr.Get()
	}
	return msgid
}

// Tf translates format and applies args.
func Tf(format string, args ...any) string {
	return fmt.Sprintf(T(format), args...)
}

// N translates a plural message for count n and applies n as the first
// format argument.
func N(singular, plural string, n int, args ...any) string {
	var format string
	if po == nil {
		format = plural
		if n == 1 {
			format = singular
		}
	} else {
		format = po.GetN(singular, plural, n)
	}
	return fmt.Sprintf(format, append([]any{n}, args...)...)
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		val, _, _ = strings.Cut(val, ".")
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
