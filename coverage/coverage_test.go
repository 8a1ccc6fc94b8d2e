package coverage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypeshelf/i18nkit/messages"
	"github.com/hypeshelf/i18nkit/provenance"
)

func setup(t *testing.T) *messages.Manager {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"en.json": `{"common": {"cancel": "Cancel", "settings": "Settings", "ok": "OK"}, "genres": {"rock": "Rock"}}`,
		"es.json": `{"common": {"cancel": "Cancelar", "settings": "Settings", "ok": "OK", "legacy": "Viejo"}}`,
		"fr.json": `{"common": {"cancel": "Annuler", "settings": "Paramètres", "ok": "OK"}, "genres": {"rock": "Rock"}}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	m, err := messages.Load(messages.Options{Dir: dir, Locales: []string{"es", "fr"}})
	require.NoError(t, err)

	low := 0.6
	m.SetProvenance("es", "common.cancel", provenance.Entry{Method: provenance.MethodMachineNeedsReview, Confidence: &low}, ptr("Cancelado"))
	m.SetProvenance("fr", "common.cancel", provenance.Entry{Method: provenance.MethodAuthored}, ptr("Annuler"))
	return m
}

func ptr(s string) *string { return &s }

func TestBuild(t *testing.T) {
	r := Build(setup(t))
	require.Len(t, r.Locales, 2)

	es := r.Locales[0]
	assert.Equal(t, "es", es.Locale)
	assert.Equal(t, 4, es.Total)
	assert.Equal(t, 3, es.Present)
	assert.Equal(t, []string{"genres.rock"}, es.Missing)
	assert.Equal(t, []string{"common.settings"}, es.Identical)
	assert.Equal(t, []string{"common.cancel"}, es.Stale)
	assert.Equal(t, []string{"common.cancel"}, es.NeedsReview)
	assert.Equal(t, []string{"common.legacy"}, es.Orphaned)
	assert.False(t, es.Clean())
	assert.InDelta(t, 75.0, es.Percent(), 0.001)

	fr := r.Locales[1]
	assert.Empty(t, fr.Missing)
	assert.Empty(t, fr.Stale)
	assert.Equal(t, []string{"genres.rock"}, fr.Identical)
	assert.True(t, fr.Clean())
	assert.False(t, r.Clean())
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(setup(t)).Write(&buf, true))

	out := buf.String()
	assert.Contains(t, out, "LOCALE")
	assert.Contains(t, out, "3/4 (75%)")
	assert.Contains(t, out, "es missing (1):\n  genres.rock")
	assert.Contains(t, out, "es orphaned (1):\n  common.legacy")
}

func TestBuildOutdated(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("en.json", `{"common": {"save": "Save"}}`)
	write("de.json", `{"common": {"save": "Speichern"}}`)

	m, err := messages.Load(messages.Options{Dir: dir, Locales: []string{"de"}})
	require.NoError(t, err)
	m.RecordSource("de", "common.save")
	_, err = m.Flush()
	require.NoError(t, err)

	write("en.json", `{"common": {"save": "Save changes"}}`)
	m, err = messages.Load(messages.Options{Dir: dir, Locales: []string{"de"}})
	require.NoError(t, err)

	de := Build(m).Locales[0]
	assert.Equal(t, []string{"common.save"}, de.Outdated)
	assert.False(t, de.Clean())

	var buf bytes.Buffer
	require.NoError(t, Build(m).Write(&buf, true))
	assert.Contains(t, buf.String(), "de source changed (1):\n  common.save")
}
