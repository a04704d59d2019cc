package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/theirongolddev/cloudburn/internal/billing"
	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/logging"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/source"
	"github.com/theirongolddev/cloudburn/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDays    int
	flagRegion  string
	flagAccount string
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "cloudburn",
	Short: "Cloud spend budgets and cost trends",
	Long:  "Track cloud consumption against recurring budgets and project cost trends.",
	RunE:  runBudgetList,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 0, "Window in days ending today (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "Only count consumption in this region")
	rootCmd.PersistentFlags().StringVar(&flagAccount, "account", "", "Only count consumption of this account")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// env is what every command needs after reading the config.
type env struct {
	cfg     config.Config
	path    string
	logger  *logging.Logger
	src     source.ConsumptionSource
	closeFn func() error
}

func (e *env) Close() error {
	if e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}

// days is the window length: --days, then config, then 90.
func (e *env) days() int {
	if flagDays > 0 {
		return flagDays
	}
	if e.cfg.General.DefaultDays > 0 {
		return e.cfg.General.DefaultDays
	}
	return 90
}

func (e *env) region() string {
	if flagRegion != "" {
		return flagRegion
	}
	return e.cfg.Source.Region
}

func (e *env) account() string {
	if flagAccount != "" {
		return flagAccount
	}
	return e.cfg.Source.Account
}

func (e *env) currency() string {
	if e.cfg.Source.Currency != "" {
		return e.cfg.Source.Currency
	}
	return "USD"
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

// loadConfig reads the config and builds the logger. Log lines go to w.
func loadConfig(w io.Writer) (*env, error) {
	path := configPath()
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log, w)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return &env{cfg: cfg, path: path, logger: logger}, nil
}

// loadEnv reads the config and opens the configured consumption source.
func loadEnv() (*env, error) {
	return loadEnvTo(os.Stderr)
}

func loadEnvTo(w io.Writer) (*env, error) {
	e, err := loadConfig(w)
	if err != nil {
		return nil, err
	}
	if err := e.openSource(); err != nil {
		return nil, err
	}
	return e, nil
}

// openSource builds the sqlite or http source named by [source] kind,
// wrapped in a result cache.
func (e *env) openSource() error {
	sc := e.cfg.Source
	var src source.ConsumptionSource

	switch sc.Kind {
	case "", config.SourceSQLite:
		path := sc.DBPath
		if path == "" {
			path = pipeline.StorePath()
		}
		st, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("opening consumption store: %w", err)
		}
		st.SetCurrency(sc.Currency)
		src = st
		e.closeFn = st.Close

	case config.SourceHTTP:
		client, err := billing.NewClient(billing.Options{
			BaseURL:           sc.BaseURL,
			APIKey:            config.GetAPIKey(e.cfg),
			Timeout:           time.Duration(sc.TimeoutSec) * time.Second,
			RequestsPerSecond: sc.RequestsPerSec,
		})
		if errors.Is(err, billing.ErrNoAPIKey) {
			return errors.New("no billing API key: set [source] api_key or CLOUDBURN_API_KEY")
		}
		if err != nil {
			return err
		}
		src = client

	default:
		return fmt.Errorf("unknown source kind %q (want sqlite or http)", sc.Kind)
	}

	e.src = source.Cached(src, source.NewLRUCache(sc.CacheSize, time.Duration(sc.CacheTTLSec)*time.Second))
	return nil
}

// progress returns a stderr progress printer, or nil with --quiet.
func progress(label string) pipeline.ProgressFunc {
	if flagQuiet {
		return nil
	}
	return func(current, total int) {
		fmt.Fprintf(os.Stderr, "\r  %s %s", label, cli.RenderProgressBar(current, total, 20))
		if current == total {
			fmt.Fprint(os.Stderr, "\r\033[K")
		}
	}
}

// dateFlag parses an ISO date flag, returning def when the flag is empty.
func dateFlag(name, value string, def calendar.Date) (calendar.Date, error) {
	if value == "" {
		return def, nil
	}
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
