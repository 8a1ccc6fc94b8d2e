package provider

import (
	"context"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/quota"
)

// Default daily character budgets.
const (
	MyMemoryAnonymousLimit  = 5000
	MyMemoryRegisteredLimit = 50000
)

// CloudConfig configures one cloud translation service.
type CloudConfig struct {
	// Name selects the service: "mymemory" or "libretranslate".
	Name string
	// URL overrides the service endpoint.
	URL string
	// Email registers MyMemory requests for the larger daily budget.
	Email string
	// APIKey is sent to LibreTranslate instances that require one.
	APIKey string
	// DailyLimit is the character budget per UTC day. Zero picks the
	// service default; negative means unlimited.
	DailyLimit int
	// Timeout bounds one request.
	Timeout time.Duration
	// Locales overrides the built-in list of supported target locales.
	Locales []string
}

var myMemoryLocales = []string{
	"ar", "bg", "bn", "ca", "cs", "da", "de", "el", "en", "es", "et", "fa", "fi", "fr",
	"he", "hi", "hr", "hu", "id", "it", "ja", "ko", "lt", "lv", "ms", "nb", "nl", "pl",
	"pt", "pt-BR", "ro", "ru", "sk", "sl", "sr", "sv", "th", "tr", "uk", "vi",
	"zh", "zh-CN", "zh-TW",
}

var libreLocales = []string{
	"ar", "az", "cs", "da", "de", "el", "en", "eo", "es", "fa", "fi", "fr", "ga", "he",
	"hi", "hu", "id", "it", "ja", "ko", "nl", "pl", "pt", "ru", "sk", "sv", "tr", "uk",
	"zh", "zh-TW",
}

type cloudBackend func(ctx context.Context, c *Cloud, text, from, to string) (string, error)

// Cloud is a quota-limited remote translation service. Calls from every Cloud
// sharing a limiter are spaced by the limiter's interval.
type Cloud struct {
	cfg       CloudConfig
	quota     *quota.Manager
	limiter   *rate.Limiter
	client    *req.Client
	supported map[string]bool
	backend   cloudBackend
}

// NewCloud builds the named cloud provider. The limiter may be shared
// between providers; nil disables pacing.
func NewCloud(cfg CloudConfig, q *quota.Manager, limiter *rate.Limiter) (*Cloud, error) {
	if q == nil {
		return nil, errors.Errorf("cloud provider %s needs a quota manager", cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Cloud{
		cfg:     cfg,
		quota:   q,
		limiter: limiter,
		client: req.C().
			SetTimeout(cfg.Timeout).
			SetJsonMarshal(json.Marshal).
			SetJsonUnmarshal(json.Unmarshal),
	}

	var locales []string
	switch cfg.Name {
	case IDMyMemory:
		if c.cfg.URL == "" {
			c.cfg.URL = "https://api.mymemory.translated.net"
		}
		if c.cfg.DailyLimit == 0 {
			c.cfg.DailyLimit = MyMemoryAnonymousLimit
			if cfg.Email != "" {
				c.cfg.DailyLimit = MyMemoryRegisteredLimit
			}
		}
		c.backend = myMemoryTranslate
		locales = myMemoryLocales
	case IDLibreTranslate:
		if c.cfg.URL == "" {
			c.cfg.URL = "https://libretranslate.com"
		}
		if c.cfg.DailyLimit == 0 {
			c.cfg.DailyLimit = -1
		}
		c.backend = libreTranslate
		locales = libreLocales
	default:
		return nil, errors.Errorf("unknown cloud provider %q", cfg.Name)
	}
	c.cfg.URL = strings.TrimRight(c.cfg.URL, "/")

	if len(cfg.Locales) > 0 {
		locales = cfg.Locales
	}
	c.supported = make(map[string]bool, len(locales))
	for _, loc := range locales {
		c.supported[langmeta.Normalize(loc)] = true
	}

	return c, nil
}

func (c *Cloud) Name() string { return c.cfg.Name }

// DailyLimit returns the configured budget; negative means unlimited.
func (c *Cloud) DailyLimit() int { return c.cfg.DailyLimit }

func (c *Cloud) SupportsLocale(locale string) bool {
	loc := langmeta.CloudLocale(locale)
	if c.supported[loc] {
		return true
	}
	base, _, _ := strings.Cut(loc, "-")
	return c.supported[base]
}

func (c *Cloud) RemainingQuota() float64 {
	if c.cfg.DailyLimit < 0 {
		return Unlimited
	}
	return float64(c.quota.Remaining(c.cfg.Name, c.cfg.DailyLimit))
}

// Translate checks support and remaining quota before any network traffic,
// waits for the pacing limiter, calls the service and records the usage.
func (c *Cloud) Translate(ctx context.Context, text, from, to string, _ *Context) (string, error) {
	if !c.SupportsLocale(to) {
		return "", kindf(ErrUnsupportedLocale, "%s does not support %s", c.cfg.Name, to)
	}
	if !c.SupportsLocale(from) {
		return "", kindf(ErrUnsupportedLocale, "%s does not support %s", c.cfg.Name, from)
	}

	chars := utf8.RuneCountInString(text)
	if remaining := c.RemainingQuota(); remaining < float64(chars) {
		return "", kindf(ErrQuotaExhausted, "%s: %d chars requested, %.0f left today", c.cfg.Name, chars, remaining)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "waiting for cloud rate limiter")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target := langmeta.CloudLocale(to)
	if target != langmeta.Normalize(to) {
		log.Debug().Str("provider", c.cfg.Name).Str("locale", to).Str("sent_as", target).Msg("cloud locale substituted")
	}

	out, err := c.backend(ctx, c, text, langmeta.CloudLocale(from), target)
	if err != nil {
		return "", err
	}

	if err := c.quota.AddUsage(c.cfg.Name, chars); err != nil {
		log.Error().Err(err).Str("provider", c.cfg.Name).Int("chars", chars).Msg("failed to persist quota usage")
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// MyMemory
// ---------------------------------------------------------------------------

// GET /get?q=<text>&langpair=<from>|<to>[&de=<email>]
func myMemoryTranslate(ctx context.Context, c *Cloud, text, from, to string) (string, error) {
	r := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", text).
		SetQueryParam("langpair", from+"|"+to)
	if c.cfg.Email != "" {
		r.SetQueryParam("de", c.cfg.Email)
	}

	resp, err := r.Get(c.cfg.URL + "/get")
	if err != nil {
		return "", kindWrap(ErrUnavailable, err)
	}
	body := resp.Bytes()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", kindf(ErrQuotaExhausted, "mymemory: %s", resp.Status)
	}
	if !resp.IsSuccessState() {
		return "", kindf(ErrUnavailable, "mymemory: %s", resp.Status)
	}
	if !gjson.ValidBytes(body) {
		return "", kindf(ErrMalformedResponse, "mymemory: invalid JSON: %s", truncate(string(body), 200))
	}

	status := gjson.GetBytes(body, "responseStatus").Int()
	translated := gjson.GetBytes(body, "responseData.translatedText").String()
	details := gjson.GetBytes(body, "responseDetails").String()

	if status == http.StatusTooManyRequests || gjson.GetBytes(body, "quotaFinished").Bool() ||
		strings.HasPrefix(strings.ToUpper(translated), "MYMEMORY WARNING") {
		return "", kindf(ErrQuotaExhausted, "mymemory: %s", firstNonEmpty(details, translated))
	}
	if status != http.StatusOK {
		return "", kindf(ErrUnavailable, "mymemory: status %d: %s", status, details)
	}

	translated = strings.TrimSpace(html.UnescapeString(translated))
	if translated == "" {
		return "", kindf(ErrMalformedResponse, "mymemory: empty translatedText")
	}
	return translated, nil
}

// ---------------------------------------------------------------------------
// LibreTranslate
// ---------------------------------------------------------------------------

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// libreCode maps a BCP-47 locale to LibreTranslate's codes, which use "zt"
// for Traditional Chinese and bare language codes otherwise.
func libreCode(locale string) string {
	switch locale {
	case "zh-TW", "zh-Hant", "zh-HK":
		return "zt"
	}
	base, _, _ := strings.Cut(locale, "-")
	return base
}

// POST /translate {q, source, target, format, api_key}
func libreTranslate(ctx context.Context, c *Cloud, text, from, to string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(libreRequest{
			Q:      text,
			Source: libreCode(from),
			Target: libreCode(to),
			Format: "text",
			APIKey: c.cfg.APIKey,
		}).
		Post(c.cfg.URL + "/translate")
	if err != nil {
		return "", kindWrap(ErrUnavailable, err)
	}
	body := resp.Bytes()
	msg := gjson.GetBytes(body, "error").String()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", kindf(ErrQuotaExhausted, "libretranslate: %s", firstNonEmpty(msg, resp.Status))
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "not supported"):
		return "", kindf(ErrUnsupportedLocale, "libretranslate: %s", msg)
	case !resp.IsSuccessState():
		return "", kindf(ErrUnavailable, "libretranslate: %s: %s", resp.Status, msg)
	case !gjson.ValidBytes(body):
		return "", kindf(ErrMalformedResponse, "libretranslate: invalid JSON: %s", truncate(string(body), 200))
	}

	translated := strings.TrimSpace(gjson.GetBytes(body, "translatedText").String())
	if translated == "" {
		return "", kindf(ErrMalformedResponse, "libretranslate: empty translatedText")
	}
	return translated, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
