package langmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, canonicalize(tc.in), "canonicalize(%q)", tc.in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "pt-BR", Normalize("pt_br"))
	assert.Equal(t, "en-US", Normalize("EN-us"))
	assert.Equal(t, "yue", Normalize("YUE"))
	assert.Equal(t, "", Normalize("  "))
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got := Resolve("pt-BR")
		assert.Equal(t, "Português (Brasil)", got.Name)
		assert.NotEmpty(t, got.Flag)
	})

	t.Run("normalized match", func(t *testing.T) {
		assert.Equal(t, "Português (Brasil)", Resolve("pt_br").Name)
	})

	t.Run("base fallback", func(t *testing.T) {
		got := Resolve("fr-LU")
		assert.Equal(t, "Français", got.Name)
		assert.Equal(t, "🇫🇷", got.Flag)
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zz-ZZ")
		assert.Equal(t, "zz-ZZ", got.Name)
		assert.Empty(t, got.Flag)
	})
}

func TestScriptCode(t *testing.T) {
	cases := []struct {
		lang   string
		legacy bool
		want   string
		ok     bool
	}{
		{lang: "es", want: "spa_Latn", ok: true},
		{lang: "es-MX", want: "spa_Latn", ok: true},
		{lang: "zh", want: "zho_Hans", ok: true},
		{lang: "yue", want: "yue_Hant", ok: true},
		{lang: "yue", legacy: true, want: "zho_Hant", ok: true},
		{lang: "es", legacy: true, want: "spa_Latn", ok: true},
		{lang: "tlh", ok: false},
	}

	for _, tc := range cases {
		got, ok := ScriptCode(tc.lang, tc.legacy)
		assert.Equal(t, tc.ok, ok, "ScriptCode(%q, %v)", tc.lang, tc.legacy)
		assert.Equal(t, tc.want, got, "ScriptCode(%q, %v)", tc.lang, tc.legacy)
	}
}

func TestCloudLocale(t *testing.T) {
	assert.Equal(t, "zh-TW", CloudLocale("yue"))
	assert.Equal(t, "es", CloudLocale("es"))
	assert.Equal(t, "pt-BR", CloudLocale("pt_BR"))
}
