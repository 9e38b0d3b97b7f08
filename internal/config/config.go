package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once per
// process and passed by pointer into every component constructor.
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Gate      GateConfig      `yaml:"gate" mapstructure:"gate"`
	Embed     EmbedConfig     `yaml:"embed" mapstructure:"embed"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	RunLog    RunLogConfig    `yaml:"runlog" mapstructure:"runlog"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Webhook   WebhookConfig   `yaml:"webhook" mapstructure:"webhook"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Training  TrainingConfig  `yaml:"training" mapstructure:"training"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DiscoveryConfig configures candidate discovery.
type DiscoveryConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	Query       string `yaml:"query" mapstructure:"query"`
	NumResults  int    `yaml:"num_results" mapstructure:"num_results"`
	PageDelayMs int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
}

// GoogleConfig holds Google Programmable Search credentials.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	CSEID   string `yaml:"cse_id" mapstructure:"cse_id"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FetchConfig configures candidate downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// ExtractConfig configures text extraction.
type ExtractConfig struct {
	PDFProvider   string `yaml:"pdf_provider" mapstructure:"pdf_provider"`
	MaxPDFPages   int    `yaml:"max_pdf_pages" mapstructure:"max_pdf_pages"`
	WordsPerPage  int    `yaml:"words_per_page" mapstructure:"words_per_page"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfInfoPath   string `yaml:"pdfinfo_path" mapstructure:"pdfinfo_path"`
	TitleMaxLen   int    `yaml:"title_max_len" mapstructure:"title_max_len"`
	SummaryChars  int    `yaml:"summary_chars" mapstructure:"summary_chars"`
}

// GateConfig holds the admission thresholds.
type GateConfig struct {
	MinYear       int `yaml:"min_year" mapstructure:"min_year"`
	MinPages      int `yaml:"min_pages" mapstructure:"min_pages"`
	YearScanChars int `yaml:"year_scan_chars" mapstructure:"year_scan_chars"`
}

// EmbedConfig configures chunking, the embedding provider and scoring.
type EmbedConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	Model           string `yaml:"model" mapstructure:"model"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	WindowTokens    int    `yaml:"window_tokens" mapstructure:"window_tokens"`
	WindowStride    int    `yaml:"window_stride" mapstructure:"window_stride"`
	MinWindowTokens int    `yaml:"min_window_tokens" mapstructure:"min_window_tokens"`
	Dimensions      int    `yaml:"dimensions" mapstructure:"dimensions"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffMs  int    `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	Scorer          string `yaml:"scorer" mapstructure:"scorer"`
}

// LedgerConfig locates the durable record files.
type LedgerConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	JSONName string `yaml:"json_name" mapstructure:"json_name"`
	CSVName  string `yaml:"csv_name" mapstructure:"csv_name"`
}

// RunLogConfig configures the run history database.
type RunLogConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// NotifyConfig selects the review digest transport.
type NotifyConfig struct {
	Transport     string `yaml:"transport" mapstructure:"transport"`
	ReviewerEmail string `yaml:"reviewer_email" mapstructure:"reviewer_email"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// WebhookConfig holds the review webhook endpoint.
type WebhookConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// NotionConfig holds Notion API credentials and the review database ID.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// PipelineConfig configures candidate processing.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// TrainingConfig configures the relevance classifier trainer.
type TrainingConfig struct {
	LabelsDir    string  `yaml:"labels_dir" mapstructure:"labels_dir"`
	ModelPath    string  `yaml:"model_path" mapstructure:"model_path"`
	MinLabeled   int     `yaml:"min_labeled" mapstructure:"min_labeled"`
	Epochs       int     `yaml:"epochs" mapstructure:"epochs"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
}

// MetricsConfig configures the Prometheus Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
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
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discovery.provider", "google")
	v.SetDefault("discovery.query", "")
	v.SetDefault("discovery.num_results", 20)
	v.SetDefault("discovery.page_delay_ms", 1000)
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.cse_id", "")
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.user_agent", "report-agent/1.0")
	v.SetDefault("fetch.max_bytes", 50<<20)
	v.SetDefault("extract.pdf_provider", "native")
	v.SetDefault("extract.max_pdf_pages", 5)
	v.SetDefault("extract.words_per_page", 500)
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.pdfinfo_path", "pdfinfo")
	v.SetDefault("extract.title_max_len", 120)
	v.SetDefault("extract.summary_chars", 3000)
	v.SetDefault("gate.min_year", 2015)
	v.SetDefault("gate.min_pages", 5)
	v.SetDefault("gate.year_scan_chars", 4000)
	v.SetDefault("embed.provider", "ollama")
	v.SetDefault("embed.model", "all-minilm")
	v.SetDefault("embed.base_url", "")
	v.SetDefault("embed.api_key", "")
	v.SetDefault("embed.window_tokens", 350)
	v.SetDefault("embed.window_stride", 300)
	v.SetDefault("embed.min_window_tokens", 100)
	v.SetDefault("embed.dimensions", 384)
	v.SetDefault("embed.timeout_secs", 30)
	v.SetDefault("embed.max_attempts", 3)
	v.SetDefault("embed.retry_backoff_ms", 500)
	v.SetDefault("embed.scorer", "mean")
	v.SetDefault("ledger.dir", "data")
	v.SetDefault("ledger.json_name", "reports_master.json")
	v.SetDefault("ledger.csv_name", "reports_master.csv")
	v.SetDefault("runlog.driver", "sqlite")
	v.SetDefault("runlog.database_url", "data/runs.db")
	v.SetDefault("notify.transport", "log")
	v.SetDefault("notify.reviewer_email", "")
	v.SetDefault("notify.subject_prefix", "[Climate Agent]")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("webhook.url", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.review_db", "")
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("training.labels_dir", "data/labels")
	v.SetDefault("training.model_path", "data/model_latest.json")
	v.SetDefault("training.min_labeled", 10)
	v.SetDefault("training.epochs", 500)
	v.SetDefault("training.learning_rate", 0.1)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "report_agent")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	if c.Embed.WindowTokens <= 0 {
		return eris.New("config: embed.window_tokens must be positive")
	}
	if c.Embed.WindowStride <= 0 || c.Embed.WindowStride > c.Embed.WindowTokens {
		return eris.Errorf("config: embed.window_stride must be in (0, %d]", c.Embed.WindowTokens)
	}
	if c.Embed.MinWindowTokens <= 0 {
		return eris.New("config: embed.min_window_tokens must be positive")
	}
	if c.Extract.WordsPerPage <= 0 {
		return eris.New("config: extract.words_per_page must be positive")
	}
	if c.Discovery.NumResults <= 0 {
		return eris.New("config: discovery.num_results must be positive")
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 1
	}
	return nil
}

// ValidateFor checks the settings a specific command needs. All missing
// fields are reported together.
func (c *Config) ValidateFor(command string) error {
	var missing []string
	require := func(ok bool, msg string) {
		if !ok {
			missing = append(missing, msg)
		}
	}

	switch command {
	case "run":
		require(c.Discovery.Query != "", "discovery.query is required")
		switch c.Discovery.Provider {
		case "google":
			require(c.Google.APIKey != "", "google.api_key is required")
			require(c.Google.CSEID != "", "google.cse_id is required")
		case "jina":
			require(c.Jina.Key != "", "jina.key is required")
		default:
			missing = append(missing, "discovery.provider must be google or jina")
		}
		missing = append(missing, c.notifyMissing()...)
	case "digest":
		missing = append(missing, c.notifyMissing()...)
	case "train":
		require(c.Training.MinLabeled > 0, "training.min_labeled must be positive")
		require(c.Training.ModelPath != "", "training.model_path is required")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

func (c *Config) notifyMissing() []string {
	var missing []string
	switch c.Notify.Transport {
	case "log", "":
	case "smtp":
		if c.SMTP.Host == "" {
			missing = append(missing, "smtp.host is required")
		}
		if c.Notify.ReviewerEmail == "" {
			missing = append(missing, "notify.reviewer_email is required")
		}
	case "webhook":
		if c.Webhook.URL == "" {
			missing = append(missing, "webhook.url is required")
		}
	case "notion":
		if c.Notion.Token == "" {
			missing = append(missing, "notion.token is required")
		}
		if c.Notion.ReviewDB == "" {
			missing = append(missing, "notion.review_db is required")
		}
	default:
		missing = append(missing, "notify.transport must be log, smtp, webhook or notion")
	}
	return missing
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
