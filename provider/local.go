package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/probe"
)

// LocalModelConfig configures the self-hosted translation server client.
type LocalModelConfig struct {
	// URL is the server base URL, e.g. https://localhost:8443.
	URL string
	// Key is the pre-shared HMAC key. Empty disables the Authorization header.
	Key string
	// Timeout bounds one translation request.
	Timeout time.Duration
	// ProbeTimeout bounds the health probe.
	ProbeTimeout time.Duration
	// LegacyCodes sends approximate codes for languages older model builds
	// lack a dedicated code for (yue -> zho_Hant).
	LegacyCodes bool
}

// Metrics is the optional performance report attached to a translation.
type Metrics struct {
	LatencyMS       float64 `json:"latency_ms,omitempty"`
	TokensPerSecond float64 `json:"tokens_per_second,omitempty"`
	Device          string  `json:"device,omitempty"`
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// LocalModel talks to the self-hosted neural translation server over HTTPS.
// The server usually runs with a self-signed certificate, so certificate
// verification is disabled for this client only.
type LocalModel struct {
	cfg    LocalModelConfig
	client *req.Client
	probe  *req.Client
	health probe.Once

	mu          sync.Mutex
	lastMetrics *Metrics

	now func() time.Time
}

// NewLocalModel builds the client. Nothing is contacted until first use.
func NewLocalModel(cfg LocalModelConfig) *LocalModel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = probe.DefaultTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &LocalModel{
		cfg: cfg,
		client: req.C().
			SetTimeout(cfg.Timeout).
			EnableInsecureSkipVerify().
			SetJsonMarshal(json.Marshal).
			SetJsonUnmarshal(json.Unmarshal),
		probe: probe.NewClient(cfg.ProbeTimeout, true),
		now:   time.Now,
	}
}

func (l *LocalModel) Name() string { return IDLocalModel }

// AuthHeader builds the Authorization value for a request sent at ts:
// "Bearer HMAC-SHA256:<unix-ts>:<hex hmac of the ts>".
func AuthHeader(key string, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(unix))
	return fmt.Sprintf("Bearer HMAC-SHA256:%s:%s", unix, hex.EncodeToString(mac.Sum(nil)))
}

// Available probes GET /health once and caches the answer for the life of l.
func (l *LocalModel) Available(ctx context.Context) bool {
	res := l.health.Do(func() probe.Result {
		if l.cfg.URL == "" {
			return probe.Result{Name: IDLocalModel, Status: "not configured"}
		}
		start := time.Now()
		h, err := probe.CheckHealth(ctx, l.probe, l.cfg.URL)
		res := probe.Result{Name: IDLocalModel, Target: l.cfg.URL, Latency: time.Since(start), Status: h.Status, Err: err}
		res.Reachable = err == nil && h.Ready()
		if err != nil {
			log.Info().Err(err).Str("url", l.cfg.URL).Msg("local translation model unreachable")
		} else if !res.Reachable {
			log.Info().Str("status", h.Status).Str("phase", h.Phase).Msg("local translation model not ready")
		}
		return res
	})
	return res.Reachable
}

func (l *LocalModel) SupportsLocale(locale string) bool {
	_, ok := langmeta.ScriptCode(locale, l.cfg.LegacyCodes)
	return ok
}

func (l *LocalModel) RemainingQuota() float64 { return Unlimited }

// LastMetrics returns the metrics of the most recent translation, if any.
func (l *LocalModel) LastMetrics() *Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastMetrics
}

func (l *LocalModel) Translate(ctx context.Context, text, from, to string, _ *Context) (string, error) {
	if !l.Available(ctx) {
		return "", kindf(ErrUnavailable, "local model at %s", l.cfg.URL)
	}

	src, ok := langmeta.ScriptCode(from, l.cfg.LegacyCodes)
	if !ok {
		return "", kindf(ErrUnsupportedLocale, "local model has no code for %s", from)
	}
	tgt, ok := langmeta.ScriptCode(to, l.cfg.LegacyCodes)
	if !ok {
		return "", kindf(ErrUnsupportedLocale, "local model has no code for %s", to)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	r := l.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(translateRequest{Text: text, SourceLang: src, TargetLang: tgt})
	if l.cfg.Key != "" {
		r.SetHeader("Authorization", AuthHeader(l.cfg.Key, l.now()))
	}

	resp, err := r.Post(l.cfg.URL + "/translate")
	if err != nil {
		return "", kindWrap(ErrUnavailable, err)
	}
	body := resp.Bytes()
	if !resp.IsSuccessState() {
		return "", kindf(ErrUnavailable, "POST /translate: %s: %s", resp.Status, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return "", kindf(ErrMalformedResponse, "POST /translate: invalid JSON: %s", truncate(string(body), 200))
	}

	translation := strings.TrimSpace(gjson.GetBytes(body, "translation").String())
	if translation == "" {
		return "", kindf(ErrMalformedResponse, "POST /translate: empty translation")
	}

	if m := gjson.GetBytes(body, "metrics"); m.Exists() && m.IsObject() {
		var metrics Metrics
		if err := json.Unmarshal([]byte(m.Raw), &metrics); err == nil {
			l.mu.Lock()
			l.lastMetrics = &metrics
			l.mu.Unlock()
			log.Debug().
				Float64("latency_ms", metrics.LatencyMS).
				Float64("tokens_per_second", metrics.TokensPerSecond).
				Str("device", metrics.Device).
				Msg("local model metrics")
		}
	}

	return translation, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
