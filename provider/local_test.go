package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPSK = "s3cret-psk"

type localServer struct {
	*httptest.Server
	healthHits    int32
	translateHits int32
	lastBody      translateRequest
	lastAuth      string
}

func newLocalServer(t *testing.T, health string, translate func(w http.ResponseWriter)) *localServer {
	t.Helper()
	ls := &localServer{}
	ls.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			atomic.AddInt32(&ls.healthHits, 1)
			_, _ = io.WriteString(w, health)
		case "/translate":
			atomic.AddInt32(&ls.translateHits, 1)
			ls.lastAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &ls.lastBody)
			translate(w)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ls.Close)
	return ls
}

func TestAuthHeader(t *testing.T) {
	ts := time.Unix(1760000000, 0)
	got := AuthHeader(testPSK, ts)

	mac := hmac.New(sha256.New, []byte(testPSK))
	mac.Write([]byte("1760000000"))
	want := "Bearer HMAC-SHA256:1760000000:" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, got)
}

func TestLocalModelTranslate(t *testing.T) {
	srv := newLocalServer(t, `{"status":"ok"}`, func(w http.ResponseWriter) {
		_, _ = io.WriteString(w, `{"translation":" Guardar cambios ","metrics":{"latency_ms":42.5,"tokens_per_second":118,"device":"cuda"}}`)
	})

	lm := NewLocalModel(LocalModelConfig{URL: srv.URL + "/", Key: testPSK, Timeout: 5 * time.Second})
	lm.now = func() time.Time { return time.Unix(1760000000, 0) }

	got, err := lm.Translate(context.Background(), "Save changes", "en", "es", nil)
	require.NoError(t, err)
	assert.Equal(t, "Guardar cambios", got)

	assert.Equal(t, translateRequest{Text: "Save changes", SourceLang: "eng_Latn", TargetLang: "spa_Latn"}, srv.lastBody)
	assert.Equal(t, AuthHeader(testPSK, time.Unix(1760000000, 0)), srv.lastAuth)

	m := lm.LastMetrics()
	require.NotNil(t, m)
	assert.InDelta(t, 42.5, m.LatencyMS, 1e-9)
	assert.Equal(t, "cuda", m.Device)

	_, err = lm.Translate(context.Background(), "Cancel", "en", "fr", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.healthHits), "health is probed once per instance")
	assert.Equal(t, int32(2), atomic.LoadInt32(&srv.translateHits))
}

func TestLocalModelLegacyCodes(t *testing.T) {
	srv := newLocalServer(t, `{"status":"ok"}`, func(w http.ResponseWriter) {
		_, _ = io.WriteString(w, `{"translation":"儲存"}`)
	})

	lm := NewLocalModel(LocalModelConfig{URL: srv.URL})
	_, err := lm.Translate(context.Background(), "Save", "en", "yue", nil)
	require.NoError(t, err)
	assert.Equal(t, "yue_Hant", srv.lastBody.TargetLang)
	assert.Empty(t, srv.lastAuth, "no key, no Authorization header")

	legacy := NewLocalModel(LocalModelConfig{URL: srv.URL, LegacyCodes: true})
	_, err = legacy.Translate(context.Background(), "Save", "en", "yue", nil)
	require.NoError(t, err)
	assert.Equal(t, "zho_Hant", srv.lastBody.TargetLang)
}

func TestLocalModelUnavailable(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		srv := newLocalServer(t, `{"status":"loading","phase":"downloading"}`, func(w http.ResponseWriter) {
			t.Error("translate must not be called while the model loads")
		})
		lm := NewLocalModel(LocalModelConfig{URL: srv.URL})
		assert.False(t, lm.Available(context.Background()))

		_, err := lm.Translate(context.Background(), "Save", "en", "es", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
		_, err = lm.Translate(context.Background(), "Save", "en", "es", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, int32(1), atomic.LoadInt32(&srv.healthHits))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		lm := NewLocalModel(LocalModelConfig{URL: url, ProbeTimeout: 200 * time.Millisecond})
		_, err := lm.Translate(context.Background(), "Save", "en", "es", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		lm := NewLocalModel(LocalModelConfig{})
		assert.False(t, lm.Available(context.Background()))
	})
}

func TestLocalModelErrors(t *testing.T) {
	cases := []struct {
		name    string
		respond func(w http.ResponseWriter)
		kind    error
	}{
		{
			name:    "server error",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			kind:    ErrUnavailable,
		},
		{
			name:    "unauthorized",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusUnauthorized) },
			kind:    ErrUnavailable,
		},
		{
			name:    "not json",
			respond: func(w http.ResponseWriter) { _, _ = io.WriteString(w, "<html>oops</html>") },
			kind:    ErrMalformedResponse,
		},
		{
			name:    "empty translation",
			respond: func(w http.ResponseWriter) { _, _ = io.WriteString(w, `{"translation":"  "}`) },
			kind:    ErrMalformedResponse,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newLocalServer(t, `{"status":"ok"}`, tc.respond)
			lm := NewLocalModel(LocalModelConfig{URL: srv.URL})
			_, err := lm.Translate(context.Background(), "Save", "en", "es", nil)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestLocalModelUnsupportedLocale(t *testing.T) {
	srv := newLocalServer(t, `{"status":"ok"}`, func(w http.ResponseWriter) {
		t.Error("unexpected translate call")
	})
	lm := NewLocalModel(LocalModelConfig{URL: srv.URL})

	assert.False(t, lm.SupportsLocale("tlh"))
	_, err := lm.Translate(context.Background(), "Save", "en", "tlh", nil)
	assert.ErrorIs(t, err, ErrUnsupportedLocale)
	assert.True(t, strings.Contains(err.Error(), "tlh"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("é", 150)
	got := truncate(body, 201)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 100)+"...", got)
}
