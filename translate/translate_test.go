package translate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypeshelf/i18nkit/lockfile"
	"github.com/hypeshelf/i18nkit/messages"
	"github.com/hypeshelf/i18nkit/provenance"
	"github.com/hypeshelf/i18nkit/provider"
	"github.com/hypeshelf/i18nkit/strategy"
)

type fakeTranslator struct {
	out   map[string]string
	calls []string
}

func (f *fakeTranslator) TranslateKey(_ context.Context, key, english, locale string) (*strategy.Result, error) {
	f.calls = append(f.calls, locale+"/"+key)
	res := &strategy.Result{Key: key, Locale: locale, Audit: []string{"fake: " + english}}
	out, ok := f.out[english]
	if !ok {
		return res, errors.Wrap(provider.ErrAllProvidersFailed, english)
	}
	res.Translation = out
	res.Method = strategy.MethodDictionary
	res.Provider = provider.IDDictionary
	res.Confidence = 0.95
	return res, nil
}

func writeCatalog(t *testing.T, dir, locale, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, locale+".json"), []byte(body), 0o644))
}

func load(t *testing.T, dir string, locales ...string) *messages.Manager {
	t.Helper()
	m, err := messages.Load(messages.Options{Dir: dir, Source: "en", Locales: locales})
	require.NoError(t, err)
	return m
}

const source = `{"common": {"cancel": "Cancel", "save": "Save"}, "genres": {"rock": "Rock"}}`

func TestRunTranslatesMissingKeys(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)
	writeCatalog(t, dir, "es", `{"common": {"cancel": "Cancelar"}}`)

	m := load(t, dir, "es")
	tr := &fakeTranslator{out: map[string]string{"Save": "Guardar", "Rock": "Rock"}}

	var reported []string
	sum, err := Run(context.Background(), m, tr, Options{
		RunID:    "test",
		OnResult: func(res *strategy.Result, err error) { reported = append(reported, FormatResult(res, err)) },
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Translated)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Failed)
	assert.True(t, sum.OK())
	assert.Equal(t, []string{"es/common.save", "es/genres.rock"}, tr.calls)
	assert.Contains(t, reported, `[OK] es genres.rock → "Rock" (95%, dictionary)`)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "es.json"),
		filepath.Join(dir, provenance.FileName),
		filepath.Join(dir, lockfile.FileName),
	}, sum.Written)

	reloaded := load(t, dir, "es")
	v, ok := reloaded.Get("es", "common.save")
	require.True(t, ok)
	assert.Equal(t, "Guardar", v)

	e, ok := reloaded.Ledger().Get("genres.rock", "es")
	require.True(t, ok)
	assert.Equal(t, provenance.MethodMachine, e.Method)
	assert.Equal(t, provenance.Hash("Rock"), e.ContentHash)
}

func TestRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)

	m := load(t, dir, "es", "fr")
	tr := &fakeTranslator{out: map[string]string{"Save": "Guardar", "Cancel": "Cancelar"}}

	sum, err := Run(context.Background(), m, tr, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Translated)
	assert.Equal(t, 2, sum.Failed)
	assert.False(t, sum.OK())
	require.Error(t, sum.Err())
	assert.Contains(t, sum.Err().Error(), "es/genres.rock")
	assert.True(t, errors.Is(sum.Failures[0].Err, provider.ErrAllProvidersFailed))
	assert.Len(t, tr.calls, 6)
}

func TestRunForceAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)
	writeCatalog(t, dir, "es", `{"common": {"cancel": "Cancelar"}}`)

	m := load(t, dir, "es")
	tr := &fakeTranslator{out: map[string]string{"Save": "Guardar", "Cancel": "Cancelar", "Rock": "Rock"}}

	sum, err := Run(context.Background(), m, tr, Options{Force: true, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Translated)
	assert.Zero(t, sum.Skipped)
	assert.True(t, sum.LimitReached)
	assert.Equal(t, []string{"es/common.cancel", "es/common.save"}, tr.calls)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)

	m := load(t, dir, "es")
	tr := &fakeTranslator{}

	sum, err := Run(context.Background(), m, tr, Options{DryRun: true, Locales: []string{"es"}})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Pending)
	assert.Empty(t, tr.calls)
	assert.Empty(t, sum.Written)
	_, statErr := os.Stat(filepath.Join(dir, "es.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWarnsOnStaleProvenance(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)
	writeCatalog(t, dir, "es", `{"common": {"save": "Salvar"}}`)
	ledger := `{"common.save": {"es": {"method": "machine", "date": "2026-01-01", "contentHash": "` + provenance.Hash("Guardar") + `"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, provenance.FileName), []byte(ledger), 0o644))

	m := load(t, dir, "es")
	var warnings []string
	sum, err := Run(context.Background(), m, &fakeTranslator{out: map[string]string{"Cancel": "Cancelar", "Rock": "Rock"}}, Options{
		OnError: func(format string, args ...any) { warnings = append(warnings, format) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Stale)
	assert.Equal(t, 1, sum.Skipped)
	assert.Len(t, warnings, 1)
}

func TestRunOutdatedSource(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)

	m := load(t, dir, "es")
	tr := &fakeTranslator{out: map[string]string{"Save": "Guardar", "Cancel": "Cancelar", "Rock": "Rock"}}
	_, err := Run(context.Background(), m, tr, Options{})
	require.NoError(t, err)

	writeCatalog(t, dir, "en", `{"common": {"cancel": "Cancel", "save": "Save changes"}, "genres": {"rock": "Rock"}}`)
	tr.out["Save changes"] = "Guardar cambios"

	var warnings []string
	tr.calls = nil
	sum, err := Run(context.Background(), load(t, dir, "es"), tr, Options{
		OnError: func(format string, args ...any) { warnings = append(warnings, format) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Outdated)
	assert.Equal(t, 3, sum.Skipped)
	assert.Empty(t, tr.calls)
	assert.Len(t, warnings, 1)

	sum, err = Run(context.Background(), load(t, dir, "es"), tr, Options{Outdated: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Translated)
	assert.Equal(t, []string{"es/common.save"}, tr.calls)

	reloaded := load(t, dir, "es")
	v, _ := reloaded.Get("es", "common.save")
	assert.Equal(t, "Guardar cambios", v)
	assert.False(t, reloaded.IsOutdated("es", "common.save"))
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en", source)
	m := load(t, dir, "es")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, m, &fakeTranslator{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatResultFailure(t *testing.T) {
	res := &strategy.Result{Key: "genres.rock", Locale: "es"}
	assert.Equal(t, "[FAIL] es genres.rock: boom", FormatResult(res, errors.New("boom")))
}
