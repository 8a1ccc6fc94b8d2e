// Package validator asks an OpenAI-compatible chat model to grade machine
// translations and to pick between competing candidates.
//
// The model is optional. When the endpoint cannot be reached, or answers
// with something that isn't the requested JSON, every call returns a
// sentinel result (score -1, winner -1) with Available set to false.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/hypeshelf/i18nkit/dictionary"
	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/probe"
)

// Unavailable is the score and winner index reported when no verdict exists.
const Unavailable = -1

// Config configures the validator endpoint.
type Config struct {
	// URL is the OpenAI-compatible base URL, e.g. http://localhost:11434/v1.
	URL string
	// Model is the chat model name.
	Model string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout bounds one completion.
	Timeout time.Duration
	// ProbeTimeout bounds the reachability probe.
	ProbeTimeout time.Duration
}

// Validation is the graded quality of one translation.
type Validation struct {
	// Score is in [0,1], or Unavailable.
	Score     float64
	Feedback  string
	Available bool
}

// Disambiguation is the model's pick among candidate translations.
type Disambiguation struct {
	// WinnerIndex indexes the candidates slice, or is Unavailable.
	WinnerIndex int
	Reasoning   string
	Available   bool
}

// Validator is a chat-completions client with a cached reachability probe.
type Validator struct {
	cfg    Config
	client *req.Client
	probe  *req.Client
	reach  probe.Once
}

// New builds a validator. Nothing is contacted until first use.
func New(cfg Config) *Validator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = probe.DefaultTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Validator{
		cfg: cfg,
		client: req.C().
			SetTimeout(cfg.Timeout).
			SetJsonMarshal(json.Marshal).
			SetJsonUnmarshal(json.Unmarshal),
		probe: probe.NewClient(cfg.ProbeTimeout, false),
	}
}

// Available probes the endpoint once and caches the answer.
func (v *Validator) Available(ctx context.Context) bool {
	res := v.reach.Do(func() probe.Result {
		if v.cfg.URL == "" || v.cfg.Model == "" {
			return probe.Result{Name: "validator", Status: "not configured"}
		}
		r := probe.HTTP(ctx, v.probe, v.cfg.URL+"/models")
		if !r.Reachable {
			log.Info().Err(r.Err).Str("url", v.cfg.URL).Msg("translation validator unreachable")
		}
		return r
	})
	return res.Reachable
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// ValidateTranslation grades translation of original into locale on a 1-10
// scale, reported as score/10.
func (v *Validator) ValidateTranslation(ctx context.Context, original, translation, locale, hint string) Validation {
	none := Validation{Score: Unavailable}
	if !v.Available(ctx) {
		return none
	}

	content, err := v.complete(ctx, validatePrompt(original, translation, locale, hint))
	if err != nil {
		log.Warn().Err(err).Msg("validator request failed")
		return none
	}

	obj, ok := extractJSONObject(content)
	if !ok {
		log.Warn().Str("reply", truncate(content, 200)).Msg("validator reply has no JSON object")
		return none
	}
	rating, ok := numericScore(gjson.Get(obj, "score"))
	if !ok {
		log.Warn().Str("reply", truncate(content, 200)).Msg("validator reply has no numeric score")
		return none
	}

	if rating < 1 {
		rating = 1
	}
	if rating > 10 {
		rating = 10
	}

	return Validation{
		Score:     rating / 10,
		Feedback:  gjson.Get(obj, "feedback").String(),
		Available: true,
	}
}

// DisambiguateTranslation asks which candidate fits the message key best.
// Candidates are labelled A, B, C... in the prompt.
func (v *Validator) DisambiguateTranslation(ctx context.Context, original, locale, key string, senses []dictionary.Sense, candidates []string) Disambiguation {
	none := Disambiguation{WinnerIndex: Unavailable}
	if len(candidates) == 0 || len(candidates) > 26 {
		return none
	}
	if !v.Available(ctx) {
		return none
	}

	content, err := v.complete(ctx, disambiguatePrompt(original, locale, key, senses, candidates))
	if err != nil {
		log.Warn().Err(err).Msg("validator request failed")
		return none
	}

	obj, ok := extractJSONObject(content)
	if !ok {
		return none
	}
	winner := strings.ToUpper(strings.TrimSpace(gjson.Get(obj, "winner").String()))
	if len(winner) != 1 {
		return none
	}
	idx := int(winner[0] - 'A')
	if idx < 0 || idx >= len(candidates) {
		return none
	}

	return Disambiguation{
		WinnerIndex: idx,
		Reasoning:   gjson.Get(obj, "reasoning").String(),
		Available:   true,
	}
}

// ---------------------------------------------------------------------------
// Prompts
// ---------------------------------------------------------------------------

func languageName(locale string) string {
	m := langmeta.Resolve(locale)
	if m.Name == "" || m.Name == locale {
		return locale
	}
	return fmt.Sprintf("%s (%s)", m.Name, locale)
}

func validatePrompt(original, translation, locale, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You review UI translations from English into %s.\n", languageName(locale))
	if hint != "" {
		fmt.Fprintf(&b, "Context: %s\n", hint)
	}
	fmt.Fprintf(&b, "English: %q\nTranslation: %q\n\n", original, translation)
	b.WriteString("Rate accuracy and naturalness from 1 (wrong) to 10 (perfect). ")
	b.WriteString(`Reply with JSON only: {"score": <1-10>, "feedback": "<one sentence>"}`)
	return b.String()
}

func disambiguatePrompt(original, locale, key string, senses []dictionary.Sense, candidates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The English UI string %q (message key %q) must be translated into %s.\n", original, key, languageName(locale))
	if len(senses) > 0 {
		b.WriteString("Known senses of the word:\n")
		for _, s := range senses {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", s.Gloss, s.POS, s.Domain)
		}
	}
	b.WriteString("Candidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, c)
	}
	b.WriteString(`Pick the candidate that fits this key. Reply with JSON only: {"winner": "<letter>", "reasoning": "<one sentence>"}`)
	return b.String()
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

func (v *Validator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	r := v.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(chatRequest{
			Model:    v.cfg.Model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		})
	if v.cfg.APIKey != "" {
		r.SetBearerAuthToken(v.cfg.APIKey)
	}

	resp, err := r.Post(v.cfg.URL + "/chat/completions")
	if err != nil {
		return "", errors.Wrap(err, "POST /chat/completions")
	}
	body := resp.Bytes()
	if !resp.IsSuccessState() {
		return "", errors.Errorf("POST /chat/completions: %s: %s", resp.Status, truncate(string(body), 200))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.Errorf("no choices in completion: %s", truncate(string(body), 200))
	}
	return content.String(), nil
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSONObject finds the JSON object in a chat reply that may wrap it
// in prose or a fenced code block.
func extractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	obj := content[start : end+1]
	if !gjson.Valid(obj) {
		return "", false
	}
	return obj, true
}

// numericScore accepts {"score": 8} as well as {"score": "8"}.
func numericScore(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
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
