package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"LANGUAGE wins", map[string]string{"LANGUAGE": "es_ES.UTF-8:en_US", "LC_ALL": "de_DE.UTF-8"}, "es_ES"},
		{"C and POSIX skipped", map[string]string{"LANGUAGE": "C", "LC_ALL": "POSIX", "LC_MESSAGES": "fr_FR.UTF-8"}, "fr_FR"},
		{"LANG last", map[string]string{"LANG": "pt_BR.UTF-8"}, "pt_BR"},
		{"fallback", nil, "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, detectLanguage())
		})
	}
}

func TestPassthroughWhenUninitialized(t *testing.T) {
	old, oldCatalog := po, catalog
	po, catalog = nil, nil
	t.Cleanup(func() { po, catalog = old, oldCatalog })

	assert.Equal(t, "Nothing to translate", T("Nothing to translate"))
	assert.Equal(t, "1 key failed", N("%d key failed", "%d keys failed", 1))
	assert.Equal(t, "3 keys failed", N("%d keys failed", "%d keys failed", 3))
	assert.Equal(t, "run abc", Tf("run %s", "abc"))
}

func TestSpanishCatalog(t *testing.T) {
	old, oldCatalog := po, catalog
	t.Cleanup(func() { po, catalog = old, oldCatalog })

	Init("es")
	assert.Equal(t, "Nada que traducir", T("Nothing to translate"))
	assert.Equal(t, "2 claves fallaron", N("%d key failed", "%d keys failed", 2))
	assert.Equal(t, "1 clave falló", N("%d key failed", "%d keys failed", 1))

	assert.Equal(t, "100% done", T("100% done"), "untranslated text is returned verbatim")
	assert.Equal(t, "Traducidas: 2, omitidas: 1, fallidas: 0", Tf("Translated: %d, skipped: %d, failed: %d", 2, 1, 0))

	Init("xx")
	assert.Equal(t, "Nothing to translate", T("Nothing to translate"))
}
