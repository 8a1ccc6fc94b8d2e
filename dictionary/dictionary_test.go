package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoads(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 10)
	assert.Contains(t, d.Locales(), "es")
	assert.True(t, d.HasLocale("es"))
	assert.True(t, d.HasLocale("pt-BR"), "base language fallback")
	assert.False(t, d.HasLocale("ko"))
}

func TestBaseLocaleNeedsSameScript(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	v, ok := d.Lookup("Rock", "zh-CN", DomainMusic)
	require.True(t, ok)
	assert.Equal(t, "摇滚", v)

	assert.False(t, d.HasLocale("zh-TW"))
	_, ok = d.Lookup("Rock", "zh-TW", DomainMusic)
	assert.False(t, ok, "Traditional Chinese must not read the Simplified table")
	assert.Empty(t, d.Candidates("Rock", "zh_TW"))

	v, ok = d.Lookup("Rock", "yue-HK", DomainMusic)
	require.True(t, ok)
	assert.Equal(t, "搖滾", v)
}

func TestDomainForKey(t *testing.T) {
	cases := map[string]string{
		"genres.rock":       DomainMusic,
		"filters.clearAll":  DomainUI,
		"common.save":       DomainUI,
		"admin.users.title": DomainUI,
		"auth.signIn":       DomainUI,
		"home.hero.title":   DomainGeneral,
		"standalone":        DomainGeneral,
	}
	for key, want := range cases {
		assert.Equal(t, want, DomainForKey(key), key)
	}
}

func TestLookup(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	cases := []struct {
		name   string
		text   string
		locale string
		domain string
		want   string
		ok     bool
	}{
		{name: "music sense", text: "Rock", locale: "es", domain: DomainMusic, want: "Rock", ok: true},
		{name: "general sense", text: "rock", locale: "es", domain: DomainGeneral, want: "Roca", ok: true},
		{name: "normalized input", text: "  ROCK ", locale: "fr", domain: DomainMusic, want: "Rock", ok: true},
		{name: "ui sense", text: "Save", locale: "de", domain: DomainUI, want: "Speichern", ok: true},
		{name: "game falls back to music", text: "Jazz", locale: "it", domain: DomainGame, want: "Jazz", ok: true},
		{name: "music falls back to game", text: "Strategy", locale: "es", domain: DomainMusic, want: "Estrategia", ok: true},
		{name: "no cross fallback to general", text: "Jazz", locale: "es", domain: DomainGeneral, ok: false},
		{name: "unknown locale", text: "Rock", locale: "ko", domain: DomainMusic, ok: false},
		{name: "unknown term", text: "Shoegaze", locale: "es", domain: DomainMusic, ok: false},
		{name: "regional locale", text: "Cancel", locale: "pt-BR", domain: DomainUI, want: "Cancelar", ok: true},
		{name: "multi-word term", text: "Sign in", locale: "es", domain: DomainUI, want: "Iniciar sesión", ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := d.Lookup(tc.text, tc.locale, tc.domain)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSenses(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	senses := d.Senses("Rock")
	require.Len(t, senses, 2)
	assert.Equal(t, DomainMusic, senses[0].Domain)
	assert.Nil(t, d.Senses("unknown"))
}

func TestCandidates(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Rock", "Roca"}, d.Candidates("rock", "es"))
	assert.Equal(t, []string{"Guardar", "Salvar"}, d.Candidates("Save", "es-MX"))
	assert.Nil(t, d.Candidates("rock", "ko"))
	assert.Nil(t, d.Candidates("unknown", "es"))
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("Rock: {}\nrock: {}\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
playlist:
  senses: [{pos: noun, gloss: "ordered tracks", domain: ui}]
  translations:
    es: {ui: Lista de reproducción}
`), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	got, ok := d.Lookup("Playlist", "es", DomainUI)
	require.True(t, ok)
	assert.Equal(t, "Lista de reproducción", got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
