// Package config loads .i18nkit.yaml.
//
// Values come from, in increasing priority: built-in defaults, the YAML file,
// a .env file next to it, and I18NKIT_* environment variables (nested keys
// use "_", e.g. I18NKIT_LOCAL_MODEL_URL).
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/hypeshelf/i18nkit/lockfile"
	"github.com/hypeshelf/i18nkit/provenance"
	"github.com/hypeshelf/i18nkit/provider"
	"github.com/hypeshelf/i18nkit/quota"
)

// FileName is the default config file name.
const FileName = ".i18nkit.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "I18NKIT"

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// Config is the resolved project configuration.
type Config struct {
	// Root is the directory relative paths are resolved against.
	Root string `mapstructure:"-"`
	// File is the config file that was read, empty when none existed.
	File string `mapstructure:"-"`

	SourceLocale   string        `mapstructure:"source_locale"`
	Locales        []string      `mapstructure:"locales"`
	MessagesDir    string        `mapstructure:"messages_dir"`
	ProvenanceFile string        `mapstructure:"provenance_file"`
	LockFile       string        `mapstructure:"lock_file"`
	QuotaFile      string        `mapstructure:"quota_file"`
	DictionaryFile string        `mapstructure:"dictionary_file"`
	CloudDelay     time.Duration `mapstructure:"cloud_delay"`

	LocalModel LocalModel `mapstructure:"local_model"`
	Validator  Validator  `mapstructure:"validator"`
	Cloud      []Cloud    `mapstructure:"cloud"`
	Log        Log        `mapstructure:"log"`
}

// LocalModel configures the self-hosted translation server.
type LocalModel struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// Warmup bounds the cold-start wait loop of `probe --wait`.
	Warmup time.Duration `mapstructure:"warmup"`
	// LegacyCodes selects approximated script codes (zho_Hant for yue).
	LegacyCodes bool `mapstructure:"legacy_codes"`
}

// Validator configures the OpenAI-compatible grading endpoint.
type Validator struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// Cloud is one entry of the cloud fallback chain, in priority order.
type Cloud struct {
	Name       string `mapstructure:"name"`
	URL        string `mapstructure:"url"`
	Email      string `mapstructure:"email"`
	APIKey     string `mapstructure:"api_key"`
	DailyLimit int    `mapstructure:"daily_limit"`
}

// Log configures the global logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_locale", "en")
	v.SetDefault("locales", []string{})
	v.SetDefault("messages_dir", "messages")
	v.SetDefault("provenance_file", "")
	v.SetDefault("lock_file", "")
	v.SetDefault("quota_file", quota.FileName)
	v.SetDefault("dictionary_file", "")
	v.SetDefault("cloud_delay", time.Second)

	v.SetDefault("local_model.enabled", true)
	v.SetDefault("local_model.url", "https://localhost:8443")
	v.SetDefault("local_model.timeout", 30*time.Second)
	v.SetDefault("local_model.probe_timeout", 2*time.Second)
	v.SetDefault("local_model.warmup", 3*time.Minute)
	v.SetDefault("local_model.legacy_codes", false)

	v.SetDefault("validator.enabled", true)
	v.SetDefault("validator.url", "http://localhost:11434/v1")
	v.SetDefault("validator.model", "llama3.1")
	v.SetDefault("validator.timeout", 30*time.Second)
	v.SetDefault("validator.probe_timeout", 2*time.Second)

	v.SetDefault("cloud", []map[string]any{{"name": provider.IDMyMemory}})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the config for the project in root. file overrides the default
// <root>/.i18nkit.yaml; a missing default file yields the defaults, a missing
// explicit file is an error.
func Load(root, file string) (*Config, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", root)
	}

	if err := godotenv.Load(filepath.Join(abs, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "loading .env")
	}

	explicit := file != ""
	if !explicit {
		file = filepath.Join(abs, FileName)
	} else if !filepath.IsAbs(file) {
		file = filepath.Join(abs, file)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{Root: abs}
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "reading %s", file)
		}
	} else {
		cfg.File = file
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}
	if err := cfg.validate(); err != nil {
		if cfg.File != "" {
			return nil, errors.Wrap(err, cfg.File)
		}
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := language.Parse(c.SourceLocale); err != nil {
		return errors.Errorf("source_locale %q is not a valid language tag", c.SourceLocale)
	}
	for _, loc := range c.Locales {
		if _, err := language.Parse(loc); err != nil {
			return errors.Errorf("locale %q is not a valid language tag", loc)
		}
	}
	if c.CloudDelay < 0 {
		return errors.New("cloud_delay must not be negative")
	}
	if c.MessagesDir == "" {
		return errors.New("messages_dir is required")
	}

	seen := make(map[string]bool)
	for i, cl := range c.Cloud {
		cl.Name = strings.ToLower(strings.TrimSpace(cl.Name))
		switch cl.Name {
		case provider.IDMyMemory, provider.IDLibreTranslate:
		case "":
			return errors.Errorf("cloud provider #%d has no name", i+1)
		default:
			return errors.Errorf("cloud provider %q is unknown (valid: %s, %s)", cl.Name, provider.IDMyMemory, provider.IDLibreTranslate)
		}
		if seen[cl.Name] {
			return errors.Errorf("cloud provider %q is listed twice", cl.Name)
		}
		seen[cl.Name] = true
		c.Cloud[i] = cl
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("log.format %q is unknown (valid: console, json)", c.Log.Format)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Resolved paths
// ---------------------------------------------------------------------------

// Path resolves p against Root. Absolute paths are returned unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// MessagesPath is the absolute messages directory.
func (c *Config) MessagesPath() string {
	return c.Path(c.MessagesDir)
}

// ProvenancePath is the absolute ledger path; it defaults to a file inside
// the messages directory.
func (c *Config) ProvenancePath() string {
	if c.ProvenanceFile == "" {
		return filepath.Join(c.MessagesPath(), provenance.FileName)
	}
	return c.Path(c.ProvenanceFile)
}

// LockPath is the absolute source lock path; it defaults to a file inside
// the messages directory.
func (c *Config) LockPath() string {
	if c.LockFile == "" {
		return filepath.Join(c.MessagesPath(), lockfile.FileName)
	}
	return c.Path(c.LockFile)
}

// QuotaPath is the absolute quota file path.
func (c *Config) QuotaPath() string {
	return c.Path(c.QuotaFile)
}

// TargetLocales returns the configured locales, or the locales that have a
// catalog in the messages directory when none are configured. The source
// locale is never included.
func (c *Config) TargetLocales() []string {
	locales := c.Locales
	if len(locales) == 0 {
		locales = detectLocales(c.MessagesPath())
	}
	out := make([]string, 0, len(locales))
	for _, loc := range locales {
		if loc != c.SourceLocale {
			out = append(out, loc)
		}
	}
	return out
}

// detectLocales finds language codes from <lang>.json files in dir.
func detectLocales(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		lang := strings.TrimSuffix(name, ".json")
		if _, err := language.Parse(lang); err == nil {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}
