package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Funds  FundsConfig  `yaml:"funds" mapstructure:"funds"`
	Edgar  EdgarConfig  `yaml:"edgar" mapstructure:"edgar"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Scan   ScanConfig   `yaml:"scan" mapstructure:"scan"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FundsConfig configures the fund statistics scan.
type FundsConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Tickers is the default scan universe, used when a command gets no
	// tickers on its command line.
	Tickers []string `yaml:"tickers" mapstructure:"tickers"`
	// TablesPath points at an optional YAML file overriding the built-in
	// metric labels, aliases, and fallback patterns.
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
	Render     bool   `yaml:"render" mapstructure:"render"`
	// WaitTexts are page fragments the rendering fetcher polls for before
	// capturing the DOM, so late-hydrating metrics are present. Empty
	// defers to the metric tables' wait markers.
	WaitTexts []string `yaml:"wait_texts" mapstructure:"wait_texts"`
	// DebugDir, when set, gets a copy of every fetched fund page.
	DebugDir string `yaml:"debug_dir" mapstructure:"debug_dir"`
}

// EdgarConfig configures the SEC EDGAR filing scan. The SEC requires a
// descriptive User-Agent with a contact address on every request.
type EdgarConfig struct {
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// Tickers is the default scan universe, used when a command gets no
	// tickers on its command line.
	Tickers    []string `yaml:"tickers" mapstructure:"tickers"`
	WindowDays int      `yaml:"window_days" mapstructure:"window_days"`
	// Forms narrows the filing scan to these form types. Empty keeps the
	// built-in tradeability-relevant set.
	Forms []string `yaml:"forms" mapstructure:"forms"`
	// RPS budgets requests per second across the EDGAR hosts.
	RPS float64 `yaml:"rps" mapstructure:"rps"`
}

// FetchConfig configures outbound HTTP behavior.
type FetchConfig struct {
	TimeoutSecs       int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RenderTimeoutSecs int `yaml:"render_timeout_secs" mapstructure:"render_timeout_secs"`
}

// ScanConfig configures pipeline retry rounds and pacing.
type ScanConfig struct {
	// Rounds bounds how many extra passes a scan makes over tickers that
	// failed retryably. Permanent failures are never retried.
	Rounds int `yaml:"rounds" mapstructure:"rounds"`
	// MinDelaySecs and MaxDelaySecs bound the randomized pause between
	// consecutive fund page fetches.
	MinDelaySecs int `yaml:"min_delay_secs" mapstructure:"min_delay_secs"`
	MaxDelaySecs int `yaml:"max_delay_secs" mapstructure:"max_delay_secs"`
	// BackoffFactor widens the pause window on every retry round. 1 keeps
	// the window fixed.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Concurrency caps parallel ticker processing in the filing scan.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ExportConfig configures output file locations.
type ExportConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	FundWorkbook string `yaml:"fund_workbook" mapstructure:"fund_workbook"`
	FundCSV      string `yaml:"fund_csv" mapstructure:"fund_csv"`
	FilingCSV    string `yaml:"filing_csv" mapstructure:"filing_csv"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "fundwatch.db")
	v.SetDefault("funds.base_url", "https://cefdata.com")
	v.SetDefault("funds.render", false)
	v.SetDefault("edgar.user_agent", "Sells Advisors blake@sellsadvisors.com")
	v.SetDefault("edgar.window_days", 90)
	v.SetDefault("edgar.rps", 4.0)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.render_timeout_secs", 30)
	v.SetDefault("scan.rounds", 3)
	v.SetDefault("scan.min_delay_secs", 5)
	v.SetDefault("scan.max_delay_secs", 15)
	v.SetDefault("scan.backoff_factor", 1.0)
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.fund_workbook", "Cef_Data_Base.xlsx")
	v.SetDefault("export.fund_csv", "Cef_Data_Base.csv")
	v.SetDefault("export.filing_csv", "tradeability_risk_events.csv")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
