// i18nkit — translates missing UI message keys through a dictionary, a local
// model and cloud MT, and records how every value was produced.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/hypeshelf/i18nkit/config"
	"github.com/hypeshelf/i18nkit/coverage"
	"github.com/hypeshelf/i18nkit/dictionary"
	"github.com/hypeshelf/i18nkit/i18n"
	"github.com/hypeshelf/i18nkit/langmeta"
	"github.com/hypeshelf/i18nkit/logger"
	"github.com/hypeshelf/i18nkit/messages"
	"github.com/hypeshelf/i18nkit/probe"
	"github.com/hypeshelf/i18nkit/provider"
	"github.com/hypeshelf/i18nkit/quota"
	"github.com/hypeshelf/i18nkit/settings"
	"github.com/hypeshelf/i18nkit/strategy"
	"github.com/hypeshelf/i18nkit/translate"
	"github.com/hypeshelf/i18nkit/validator"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors, cleared when stderr is not a terminal.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
	logLevel   string
	logFormat  string

	cfg   *config.Config
	runID string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18nkit",
		Short: "Multi-source machine translation for UI message catalogs",
		Long: `i18nkit translates missing keys of nested JSON message catalogs.

Each key goes through a cascade: a curated dictionary for short terms, a
self-hosted neural model, then cloud MT (MyMemory, LibreTranslate) within a
daily character budget. An optional LLM grades the result. Every written
value is recorded in a provenance ledger with its method and confidence.

Commands:
  translate   Translate missing keys
  status      Show coverage, drift and review counts per locale
  probe       Check the local model server and validator
  quota       Show today's cloud character usage
  auth        Manage stored secrets`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return setup()
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default <root>/"+config.FileName+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")

	root.AddCommand(
		newTranslateCmd(),
		newStatusCmd(),
		newProbeCmd(),
		newQuotaCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

// setup loads the config and configures logging for every command but version.
func setup() error {
	var err error
	cfg, err = config.Load(rootDir, configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	runID = uuid.NewString()
	return logger.Setup(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		RunID:  runID,
	})
}

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		disableColors()
	}
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("i18nkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	langs        string
	dryRun       bool
	force        bool
	outdated     bool
	limit        int
	noLocal      bool
	noValidate   bool
	localURL     string
	validatorURL string
	cloudDelay   time.Duration
	verbose      bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate missing keys",
		Long: `Translate every key of the source catalog that is missing from a target
catalog. Existing values are kept unless --force is given; values whose
provenance hash no longer matches are reported, and so are values whose
source text changed since they were translated (--outdated re-translates
those).

Examples:
  # Translate all configured locales
  i18nkit translate

  # Spanish and Cantonese only, at most 20 keys, show the audit trail
  i18nkit translate --lang es,yue --limit 20 --verbose

  # List what would be translated
  i18nkit translate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cloud-delay") {
				a.cloudDelay = cfg.CloudDelay
			}
			ctx, cancel := signalContext()
			defer cancel()
			return runTranslate(ctx, cfg, a)
		},
	}

	bindTranslateFlags(cmd.Flags(), &a)

	return cmd
}

func bindTranslateFlags(f *pflag.FlagSet, a *translateArgs) {
	f.StringVarP(&a.langs, "lang", "l", "", "Comma-separated target locales (default: all configured)")
	f.BoolVar(&a.dryRun, "dry-run", false, "List keys that would be translated without calling any service")
	f.BoolVar(&a.force, "force", false, "Re-translate keys that already have a value")
	f.BoolVar(&a.outdated, "outdated", false, "Re-translate keys whose source text changed since they were translated")
	f.IntVar(&a.limit, "limit", 0, "Translate at most N keys in this run (0 = no limit)")
	f.BoolVar(&a.noLocal, "no-local", false, "Skip the local model")
	f.BoolVar(&a.noValidate, "no-validate", false, "Skip LLM validation")
	f.StringVar(&a.localURL, "local-url", "", "Local model server URL (overrides config)")
	f.StringVar(&a.validatorURL, "validator-url", "", "Validator base URL (overrides config)")
	f.DurationVar(&a.cloudDelay, "cloud-delay", time.Second, "Minimum spacing between cloud calls")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Print each key's audit trail")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runTranslate(ctx context.Context, cfg *config.Config, a translateArgs) error {
	locales := cfg.TargetLocales()
	if a.langs != "" {
		locales = splitList(a.langs)
	}
	if len(locales) == 0 {
		return errors.Errorf("no target locales: set locales in %s or pass --lang", config.FileName)
	}

	m, err := messages.Load(messages.Options{
		Dir:        cfg.MessagesPath(),
		Source:     cfg.SourceLocale,
		Locales:    locales,
		LedgerPath: cfg.ProvenancePath(),
		LockPath:   cfg.LockPath(),
	})
	if err != nil {
		return err
	}

	var orch *strategy.Orchestrator
	if !a.dryRun {
		q, err := quota.Load(cfg.QuotaPath())
		if err != nil {
			return err
		}
		orch, err = buildOrchestrator(cfg, a, q)
		if err != nil {
			return err
		}
		reportSupport(ctx, orch, locales)
	}

	logInfo("Run %s: %s", runID, strings.Join(locales, ", "))

	sum, err := translate.Run(ctx, m, orch, translate.Options{
		Locales:  locales,
		DryRun:   a.dryRun,
		Force:    a.force,
		Outdated: a.outdated,
		Limit:    a.limit,
		RunID:    runID,
		Verbose:  a.verbose,
		OnResult: func(res *strategy.Result, err error) {
			line := translate.FormatResult(res, err)
			if err != nil {
				fmt.Fprintln(os.Stderr, colorRed+line+colorReset)
				return
			}
			fmt.Fprintln(os.Stderr, colorGreen+line+colorReset)
		},
		OnLog:   logInfo,
		OnError: logWarning,
	})
	if err != nil {
		return err
	}

	printSummary(sum, a.dryRun)
	return sum.Err()
}

// buildOrchestrator wires the cascade from config, flags and stored secrets.
func buildOrchestrator(cfg *config.Config, a translateArgs, q *quota.Manager) (*strategy.Orchestrator, error) {
	var (
		dict *dictionary.Dictionary
		err  error
	)
	if cfg.DictionaryFile != "" {
		dict, err = dictionary.LoadFile(cfg.Path(cfg.DictionaryFile))
	} else {
		dict, err = dictionary.Default()
	}
	if err != nil {
		return nil, err
	}

	orch := &strategy.Orchestrator{
		Source:     cfg.SourceLocale,
		Dictionary: provider.NewDictionary(dict),
	}

	if cfg.LocalModel.Enabled && !a.noLocal {
		orch.Local = provider.NewLocalModel(provider.LocalModelConfig{
			URL:          firstNonEmpty(a.localURL, cfg.LocalModel.URL),
			Key:          settings.ResolveKey(provider.IDLocalModel, ""),
			Timeout:      cfg.LocalModel.Timeout,
			ProbeTimeout: cfg.LocalModel.ProbeTimeout,
			LegacyCodes:  cfg.LocalModel.LegacyCodes,
		})
	}

	limit := rate.Inf
	if a.cloudDelay > 0 {
		limit = rate.Every(a.cloudDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var clouds []provider.Provider
	for _, c := range cfg.Cloud {
		cp, err := provider.NewCloud(provider.CloudConfig{
			Name:       c.Name,
			URL:        c.URL,
			Email:      settings.ResolveEmail(c.Name, c.Email),
			APIKey:     settings.ResolveKey(c.Name, c.APIKey),
			DailyLimit: c.DailyLimit,
		}, q, limiter)
		if err != nil {
			return nil, err
		}
		clouds = append(clouds, cp)
	}
	if len(clouds) > 0 {
		orch.Chain = provider.NewChain(clouds...)
	}

	if cfg.Validator.Enabled && !a.noValidate {
		orch.Validator = validator.New(validator.Config{
			URL:          firstNonEmpty(a.validatorURL, cfg.Validator.URL),
			Model:        cfg.Validator.Model,
			APIKey:       settings.ResolveKey(settings.IDValidator, ""),
			Timeout:      cfg.Validator.Timeout,
			ProbeTimeout: cfg.Validator.ProbeTimeout,
		})
	}

	return orch, nil
}

// reportSupport probes the optional services once and warns about locales
// nothing but the dictionary can serve.
func reportSupport(ctx context.Context, orch *strategy.Orchestrator, locales []string) {
	localUp := orch.Local != nil && orch.Local.Available(ctx)
	switch {
	case orch.Local == nil:
		logInfo("Local model: disabled")
	case localUp:
		logInfo("Local model: available")
	default:
		logWarning("Local model: unreachable, using cloud fallback")
	}

	if orch.Validator != nil {
		if orch.Validator.Available(ctx) {
			logInfo("Validator: available")
		} else {
			logWarning("Validator: unreachable, confidence will not be adjusted")
		}
	}

	for _, loc := range locales {
		local := localUp && orch.Local.SupportsLocale(loc)
		cloud := false
		if c, ok := orch.Chain.(*provider.Chain); ok {
			cloud = c.SupportsLocale(loc)
		}
		if !local && !cloud {
			logWarning("%s: no translation service supports this locale; only dictionary terms will be translated", loc)
		}
	}
}

func printSummary(sum *translate.Summary, dryRun bool) {
	fmt.Fprintln(os.Stderr)
	if dryRun {
		if sum.Pending == 0 {
			logInfo("%s", i18n.T("Nothing to translate"))
			return
		}
		logInfo("%s", i18n.N("%d key would be translated", "%d keys would be translated", sum.Pending))
		return
	}

	if sum.Translated == 0 && sum.Failed == 0 {
		logInfo("%s", i18n.T("Nothing to translate"))
	}
	logInfo("%s", i18n.Tf("Translated: %d, skipped: %d, failed: %d", sum.Translated, sum.Skipped, sum.Failed))
	if sum.Stale > 0 {
		logWarning("%s", i18n.N("%d existing value changed since it was recorded", "%d existing values changed since they were recorded", sum.Stale))
	}
	if sum.Outdated > 0 {
		logWarning("%s", i18n.N("%d value was translated from an older source text", "%d values were translated from an older source text", sum.Outdated))
	}
	if sum.LimitReached {
		logWarning("%s", i18n.T("Key limit reached; run again to continue"))
	}
	if sum.Failed > 0 {
		logError("%s", i18n.N("%d key failed", "%d keys failed", sum.Failed))
		return
	}
	if sum.Translated > 0 {
		logSuccess("%s", i18n.T("All keys translated"))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var (
		strict  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show coverage, drift and review counts per locale",
		Long: `Audit every target catalog against the source catalog.

Reports missing keys, values identical to the source, values edited since
they were machine-translated (stale), values below the review threshold and
keys that no longer exist in the source. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cfg, strict, verbose)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit 1 when any key is missing or stale")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the affected keys")

	return cmd
}

func runStatus(cfg *config.Config, strict, verbose bool) error {
	m, err := messages.Load(messages.Options{
		Dir:        cfg.MessagesPath(),
		Source:     cfg.SourceLocale,
		Locales:    cfg.TargetLocales(),
		LedgerPath: cfg.ProvenancePath(),
		LockPath:   cfg.LockPath(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", cfg.Root)
	fmt.Fprintf(os.Stderr, "  Messages:   %s\n", cfg.MessagesPath())
	fmt.Fprintf(os.Stderr, "  Source:     %s (%d keys)\n", cfg.SourceLocale, len(m.Keys(m.Source())))
	fmt.Fprintf(os.Stderr, "  Provenance: %s\n", m.Ledger().Summary())
	fmt.Fprintln(os.Stderr)

	report := coverage.Build(m)
	for _, l := range report.Locales {
		fmt.Fprintf(os.Stderr, "  %-28s %s\n", localeLabel(l.Locale), progressBar(int(l.Percent()), 20))
	}
	fmt.Fprintln(os.Stderr)

	if err := report.Write(os.Stdout, verbose); err != nil {
		return err
	}

	if strict && !report.Clean() {
		return errors.New(i18n.T("catalogs have missing or stale keys"))
	}
	return nil
}

// progressBar renders a fixed-width bar colored by completeness.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent == 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}

	return fmt.Sprintf("%s%s%s%s %3d%%", color,
		strings.Repeat("█", filled), strings.Repeat("░", width-filled), colorReset, percent)
}

// ---------------------------------------------------------------------------
// probe
// ---------------------------------------------------------------------------

func newProbeCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the local model server and validator",
		Long: `Check whether the local translation server and the LLM validator are
reachable, and recommend a server profile for this machine.

With --wait, poll the local server's /health endpoint until the model has
loaded (bounded by local_model.warmup).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runProbe(ctx, cfg, wait)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the local model server to become healthy")

	return cmd
}

// hostPort extracts host:port from a URL, defaulting the port from the scheme.
func hostPort(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parsing %s", raw)
	}
	if u.Host == "" {
		return "", errors.Errorf("%s has no host", raw)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func runProbe(ctx context.Context, cfg *config.Config, wait bool) error {
	insecure := probe.NewClient(cfg.LocalModel.ProbeTimeout, true)
	plain := probe.NewClient(cfg.Validator.ProbeTimeout, false)

	var checks []probe.Check
	if addr, err := hostPort(cfg.LocalModel.URL); err == nil {
		checks = append(checks,
			probe.Check{Name: "local model (tcp)", Fn: func(ctx context.Context) probe.Result {
				return probe.TCP(ctx, addr, cfg.LocalModel.ProbeTimeout)
			}},
			probe.Check{Name: "local model (/health)", Fn: func(ctx context.Context) probe.Result {
				return probe.HTTP(ctx, insecure, strings.TrimRight(cfg.LocalModel.URL, "/")+"/health")
			}},
		)
	} else {
		logWarning("local_model.url: %v", err)
	}
	checks = append(checks, probe.Check{Name: "validator (/models)", Fn: func(ctx context.Context) probe.Result {
		return probe.HTTP(ctx, plain, strings.TrimRight(cfg.Validator.URL, "/")+"/models")
	}})

	fmt.Fprintf(os.Stderr, "\n%sServices%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, r := range probe.Run(ctx, checks) {
		if r.Reachable {
			fmt.Fprintf(os.Stderr, "  %-22s %sreachable%s %s (%s)\n", r.Name, colorGreen, colorReset, r.Status, r.Latency.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-22s %sunreachable%s %v\n", r.Name, colorRed, colorReset, r.Err)
	}

	hw := probe.DetectHardware(ctx)
	fmt.Fprintf(os.Stderr, "\n%sHardware%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  CPU:      %s (%d cores, %d threads)\n", hw.CPU, hw.Cores, hw.Threads)
	fmt.Fprintf(os.Stderr, "  AVX2:     %v   AVX-512: %v\n", hw.AVX2, hw.AVX512)
	if hw.GPU {
		fmt.Fprintf(os.Stderr, "  GPU:      %s\n", strings.Join(hw.GPUNames, ", "))
	} else {
		fmt.Fprintf(os.Stderr, "  GPU:      none detected\n")
	}
	fmt.Fprintf(os.Stderr, "  Profile:  %s%s%s\n\n", colorYellow, probe.RecommendProfile(hw), colorReset)

	if !wait {
		return nil
	}

	logInfo("Waiting up to %s for %s to become healthy...", cfg.LocalModel.Warmup, cfg.LocalModel.URL)
	h, err := probe.WaitHealthy(ctx, insecure, cfg.LocalModel.URL, cfg.LocalModel.Warmup, func(h probe.Health, err error) {
		if err != nil {
			log.Debug().Err(err).Msg("health poll failed")
			return
		}
		logInfo("status=%s phase=%s", h.Status, h.Phase)
	})
	if err != nil {
		return errors.Wrap(err, "local model did not become healthy")
	}
	logSuccess("Local model is ready (%s)", h.Status)
	return nil
}

// ---------------------------------------------------------------------------
// quota
// ---------------------------------------------------------------------------

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's cloud character usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuota(cfg)
		},
	}
}

func runQuota(cfg *config.Config) error {
	q, err := quota.Load(cfg.QuotaPath())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sCloud quota%s (%s, UTC %s)\n", colorBlue, colorReset, q.Path(), quota.UTCDate(time.Now()))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	seen := make(map[string]bool)
	for _, c := range cfg.Cloud {
		cp, err := provider.NewCloud(provider.CloudConfig{
			Name:       c.Name,
			Email:      settings.ResolveEmail(c.Name, c.Email),
			DailyLimit: c.DailyLimit,
		}, q, nil)
		if err != nil {
			return err
		}
		seen[c.Name] = true

		used := q.Used(c.Name)
		if cp.DailyLimit() < 0 {
			fmt.Fprintf(os.Stderr, "  %-16s %8d used   unlimited\n", c.Name, used)
			continue
		}
		remaining := q.Remaining(c.Name, cp.DailyLimit())
		color := colorGreen
		if remaining == 0 {
			color = colorRed
		} else if remaining*5 < cp.DailyLimit() {
			color = colorYellow
		}
		fmt.Fprintf(os.Stderr, "  %-16s %8d used   %s%d of %d left%s\n", c.Name, used, color, remaining, cp.DailyLimit(), colorReset)
	}

	for _, name := range q.Providers() {
		if !seen[name] {
			fmt.Fprintf(os.Stderr, "  %-16s %8d used   (not configured)\n", name, q.Used(name))
		}
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

// secretProviders lists what can be stored, in display order.
var secretProviders = []struct {
	id    string
	name  string
	types []string
}{
	{provider.IDLocalModel, "Local translation server", []string{settings.TypePSK}},
	{provider.IDMyMemory, "MyMemory", []string{settings.TypeEmail, settings.TypeAPI}},
	{provider.IDLibreTranslate, "LibreTranslate", []string{settings.TypeAPI}},
	{settings.IDValidator, "LLM validator", []string{settings.TypeAPI}},
}

func knownSecretProvider(id string) ([]string, bool) {
	for _, p := range secretProviders {
		if p.id == id {
			return p.types, true
		}
	}
	return nil, false
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored secrets",
		Long: `Manage secrets stored in ` + "$XDG_DATA_HOME/i18nkit/auth.json" + `.

  mt-local        pre-shared key of the local translation server
  mymemory        registered email (raises the daily limit) or API key
  libretranslate  API key for instances that require one
  validator       API key of the OpenAI-compatible endpoint

Environment variables (I18NKIT_LOCAL_MT_KEY, I18NKIT_<ID>_API_KEY,
I18NKIT_MYMEMORY_EMAIL) take precedence over stored values.

Examples:
  i18nkit auth set mt-local              Prompt for the pre-shared key
  i18nkit auth set mymemory --email me@example.com
  i18nkit auth list
  i18nkit auth remove libretranslate`,
	}

	cmd.AddCommand(
		newAuthSetCmd(),
		newAuthListCmd(),
		newAuthRemoveCmd(),
	)

	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var key, email string

	cmd := &cobra.Command{
		Use:   "set PROVIDER",
		Short: "Store a key or email for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			types, ok := knownSecretProvider(id)
			if !ok {
				return errors.Errorf("unknown provider %q", id)
			}

			if email != "" {
				if id != provider.IDMyMemory {
					return errors.Errorf("%s does not take an email", id)
				}
				if err := settings.SetEmail(id, email); err != nil {
					return err
				}
				logSuccess("Stored email for %s", id)
				return nil
			}

			if key == "" {
				fmt.Fprintf(os.Stderr, "Enter key for %s: ", id)
				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					return errors.New("no input received")
				}
				key = strings.TrimSpace(scanner.Text())
			}
			if key == "" {
				return errors.New("empty key")
			}

			typ := settings.TypeAPI
			if types[0] == settings.TypePSK {
				typ = settings.TypePSK
			}
			if err := settings.SetKey(id, typ, key); err != nil {
				return err
			}
			logSuccess("Stored %s key for %s (%s)", typ, id, settings.MaskKey(key))
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key value (prompted when omitted)")
	cmd.Flags().StringVar(&email, "email", "", "Registered email (mymemory)")

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored secrets",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored secrets%s (%s)\n", colorBlue, colorReset, settings.FilePath())
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			store := settings.Load()
			for _, p := range secretProviders {
				entry := store[p.id]
				switch {
				case entry == nil:
					fmt.Fprintf(os.Stderr, "  %-16s %snot configured%s\n", p.id, colorRed, colorReset)
				case entry.Type == settings.TypeEmail:
					fmt.Fprintf(os.Stderr, "  %-16s %sconfigured%s (email: %s)\n", p.id, colorGreen, colorReset, entry.Email)
				default:
					fmt.Fprintf(os.Stderr, "  %-16s %sconfigured%s (%s: %s)\n", p.id, colorGreen, colorReset, entry.Type, settings.MaskKey(entry.Key))
				}
			}

			fmt.Fprintf(os.Stderr, "\n  %sEnvironment%s\n", colorYellow, colorReset)
			for _, p := range secretProviders {
				for _, env := range []string{settings.EnvVarForKey(p.id), settings.EnvVarForEmail(p.id)} {
					if v := os.Getenv(env); v != "" {
						fmt.Fprintf(os.Stderr, "  %s: %s%s%s (overrides stored value)\n", env, colorGreen, settings.MaskKey(v), colorReset)
					}
				}
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

func newAuthRemoveCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remove [PROVIDER]",
		Short: "Remove a stored secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("Removed all stored secrets")
				return nil
			}
			if len(args) == 0 {
				return errors.New("name a provider or pass --all")
			}
			if err := settings.Remove(args[0]); err != nil {
				return err
			}
			logSuccess("Removed %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every stored secret")

	return cmd
}

// localeLabel renders "es (Español 🇪🇸)" style labels.
func localeLabel(loc string) string {
	meta, ok := langmeta.Lookup(loc)
	if !ok {
		return loc
	}
	if meta.Flag == "" {
		return fmt.Sprintf("%s (%s)", loc, meta.Name)
	}
	return fmt.Sprintf("%s (%s %s)", loc, meta.Name, meta.Flag)
}
