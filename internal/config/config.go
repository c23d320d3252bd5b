package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DealScanner/internal/domain"
)

const (
	defaultTimezone = "Asia/Seoul"
	configPathEnv   = "DEAL_SCANNER_CONFIG"

	databaseURLEnv    = "DB_URL"
	databaseKeyEnv    = "DB_KEY"
	searchIDEnv       = "SEARCH_API_ID"
	searchSecretEnv   = "SEARCH_API_SECRET"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmProviderEnv    = "LLM_PROVIDER"
	llmModelEnv       = "LLM_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Adapter kinds accepted by --adapters.
const (
	AdapterHTML   = "html"
	AdapterRSS    = "rss"
	AdapterSearch = "search"
	AdapterLLM    = "llm"
	AdapterManual = "manual"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var knownAdapters = []string{AdapterHTML, AdapterRSS, AdapterSearch, AdapterLLM, AdapterManual}

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
	Rate          RateConfig         `yaml:"rate"`
	Budget        BudgetConfig       `yaml:"budget"`
	Quota         QuotaConfig        `yaml:"quota"`
	Search        SearchConfig       `yaml:"search"`
	LLM           LLMConfig          `yaml:"llm"`
	Extract       ExtractConfig      `yaml:"extract"`
	Sources       []SourceConfig     `yaml:"sources"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Run           RunConfig          `yaml:"run"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	URL string `yaml:"url"`
	// Key is the password injected into URL when set.
	Key string `yaml:"-"`
}

// DSN returns URL with Key set as the password.
func (d DatabaseConfig) DSN() string {
	if d.Key == "" || d.URL == "" {
		return d.URL
	}
	parsed, err := url.Parse(d.URL)
	if err != nil || parsed.User == nil {
		return d.URL
	}
	parsed.User = url.UserPassword(parsed.User.Username(), d.Key)
	return parsed.String()
}

// SchedulerConfig defines when recurring runs fire.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateConfig bounds request pacing.
type RateConfig struct {
	MinInterval time.Duration `yaml:"minInterval"`
	Concurrency int           `yaml:"concurrency"`
}

// BudgetConfig bounds adapter wall clock and LLM spend.
type BudgetConfig struct {
	Adapter   time.Duration `yaml:"adapter"`
	Listing   time.Duration `yaml:"listing"`
	HTTP      time.Duration `yaml:"http"`
	LLMCall   time.Duration `yaml:"llmCall"`
	LLMTokens int           `yaml:"llmTokens"`
}

// QuotaConfig caps process-wide external calls; zero is unlimited.
type QuotaConfig struct {
	SearchCalls int `yaml:"searchCalls"`
	LLMCalls    int `yaml:"llmCalls"`
}

// SearchConfig configures the news search API.
type SearchConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	ClientID       string   `yaml:"-"`
	ClientSecret   string   `yaml:"-"`
	Display        int      `yaml:"display"`
	QueryTemplates []string `yaml:"queryTemplates"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// GroundedModel is used for web-search grounded candidate discovery.
	GroundedModel  string `yaml:"groundedModel"`
	BaseURL        string `yaml:"baseUrl"`
	APIKey         string `yaml:"-"`
	PromptTemplate string `yaml:"promptTemplate"`
}

// ExtractConfig tunes the extractor.
type ExtractConfig struct {
	// USDKRW is the frozen conversion rate used for dollar amounts.
	USDKRW float64 `yaml:"usdKrw"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MetricsConfig names the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// RunConfig holds the per-invocation options; CLI flags override it.
type RunConfig struct {
	UniversePath string    `yaml:"universe"`
	SourcesPath  string    `yaml:"sources"`
	ManualPath   string    `yaml:"manual"`
	Since        string    `yaml:"since"`
	DryRun       bool      `yaml:"dryRun"`
	MaxPages     int       `yaml:"maxPages"`
	Adapters     []string  `yaml:"adapters"`
	since        time.Time `yaml:"-"`
}

// SinceTime returns the parsed collection window start.
func (r RunConfig) SinceTime() time.Time {
	return r.since
}

// Enabled reports whether the adapter kind is active for this run.
func (r RunConfig) Enabled(kind string) bool {
	if len(r.Adapters) == 0 {
		return true
	}
	for _, a := range r.Adapters {
		if strings.EqualFold(strings.TrimSpace(a), kind) {
			return true
		}
	}
	return false
}

// Load reads .env files, the YAML configuration found at path (or DEAL_SCANNER_CONFIG)
// and applies environment overrides.
func Load(path string) (Config, error) {
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: load %s: %v", domain.ErrConfig, envFile, err)
		}
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(databaseKeyEnv); v != "" {
		c.Database.Key = v
	}
	if v := os.Getenv(searchIDEnv); v != "" {
		c.Search.ClientID = v
	}
	if v := os.Getenv(searchSecretEnv); v != "" {
		c.Search.ClientSecret = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %s", domain.ErrConfig, tz)
	}
	c.Scheduler.location = loc
	return nil
}

// Validate checks everything a run needs before it starts. Every problem is reported
// in one error wrapping domain.ErrConfig.
func (c *Config) Validate() error {
	var problems []error

	if c.Run.Since != "" {
		since, err := time.ParseInLocation(time.DateOnly, c.Run.Since, c.Scheduler.Location())
		if err != nil {
			problems = append(problems, fmt.Errorf("--since %q is not YYYY-MM-DD", c.Run.Since))
		} else {
			c.Run.since = since
		}
	}
	for _, name := range c.Run.Adapters {
		if !known(name) {
			problems = append(problems, fmt.Errorf("unknown adapter %q (want one of %s)", name, strings.Join(knownAdapters, ", ")))
		}
	}
	if c.Run.UniversePath == "" {
		problems = append(problems, errors.New("universe file is required"))
	}
	if c.Database.URL == "" && !c.Run.DryRun {
		problems = append(problems, fmt.Errorf("%s is required unless --dry-run", databaseURLEnv))
	}
	if c.Run.Enabled(AdapterSearch) && c.hasMethod(domain.MethodSearchAPI) && (c.Search.ClientID == "" || c.Search.ClientSecret == "") {
		problems = append(problems, fmt.Errorf("%s and %s are required for the search adapter", searchIDEnv, searchSecretEnv))
	}
	if c.Run.Enabled(AdapterLLM) && c.hasMethod(domain.MethodLLMGrounded) && c.LLM.APIKey == "" {
		problems = append(problems, fmt.Errorf("%s is required for the llm adapter", llmAPIKeyEnv))
	}
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderAnthropic {
		problems = append(problems, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.Run.MaxPages < 0 {
		problems = append(problems, fmt.Errorf("--max-pages must not be negative"))
	}
	if c.Extract.USDKRW <= 0 {
		problems = append(problems, fmt.Errorf("extract.usdKrw must be positive"))
	}
	seen := map[int]struct{}{}
	for _, src := range c.Sources {
		if !domain.ValidSiteNumber(src.Number) {
			problems = append(problems, fmt.Errorf("source %q: number %d outside %d..%d", src.Name, src.Number, domain.MinSiteNumber, domain.MaxSiteNumber))
		}
		if _, dup := seen[src.Number]; dup {
			problems = append(problems, fmt.Errorf("source number %d is defined twice", src.Number))
		}
		seen[src.Number] = struct{}{}
		if _, ok := domain.ParseCollectionMethod(src.Method); !ok {
			problems = append(problems, fmt.Errorf("source %q: unknown collection method %q", src.Name, src.Method))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(problems...))
	}
	return nil
}

// hasMethod reports whether an active source, or the default roster, uses method.
func (c *Config) hasMethod(method domain.CollectionMethod) bool {
	for _, src := range c.Sources {
		m, ok := domain.ParseCollectionMethod(src.Method)
		if ok && m == method && src.IsActive() {
			return true
		}
	}
	return false
}

func known(name string) bool {
	for _, k := range knownAdapters {
		if strings.EqualFold(strings.TrimSpace(name), k) {
			return true
		}
	}
	return false
}

func mergeConfig(base, override Config) Config {
	if override.Database.URL != "" {
		base.Database.URL = override.Database.URL
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Rate.MinInterval > 0 {
		base.Rate.MinInterval = override.Rate.MinInterval
	}
	if override.Rate.Concurrency > 0 {
		base.Rate.Concurrency = override.Rate.Concurrency
	}

	if override.Budget.Adapter > 0 {
		base.Budget.Adapter = override.Budget.Adapter
	}
	if override.Budget.Listing > 0 {
		base.Budget.Listing = override.Budget.Listing
	}
	if override.Budget.HTTP > 0 {
		base.Budget.HTTP = override.Budget.HTTP
	}
	if override.Budget.LLMCall > 0 {
		base.Budget.LLMCall = override.Budget.LLMCall
	}
	if override.Budget.LLMTokens > 0 {
		base.Budget.LLMTokens = override.Budget.LLMTokens
	}

	if override.Quota.SearchCalls > 0 {
		base.Quota.SearchCalls = override.Quota.SearchCalls
	}
	if override.Quota.LLMCalls > 0 {
		base.Quota.LLMCalls = override.Quota.LLMCalls
	}

	if override.Search.Endpoint != "" {
		base.Search.Endpoint = override.Search.Endpoint
	}
	if override.Search.Display > 0 {
		base.Search.Display = override.Search.Display
	}
	if len(override.Search.QueryTemplates) > 0 {
		base.Search.QueryTemplates = override.Search.QueryTemplates
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = strings.ToLower(override.LLM.Provider)
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.GroundedModel != "" {
		base.LLM.GroundedModel = override.LLM.GroundedModel
	}
	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.PromptTemplate != "" {
		base.LLM.PromptTemplate = override.LLM.PromptTemplate
	}

	if override.Extract.USDKRW > 0 {
		base.Extract.USDKRW = override.Extract.USDKRW
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.Textfile != "" {
		base.Metrics.Textfile = override.Metrics.Textfile
	}

	if override.Run.UniversePath != "" {
		base.Run.UniversePath = override.Run.UniversePath
	}
	if override.Run.SourcesPath != "" {
		base.Run.SourcesPath = override.Run.SourcesPath
	}
	if override.Run.ManualPath != "" {
		base.Run.ManualPath = override.Run.ManualPath
	}
	if override.Run.Since != "" {
		base.Run.Since = override.Run.Since
	}
	if override.Run.DryRun {
		base.Run.DryRun = true
	}
	if override.Run.MaxPages > 0 {
		base.Run.MaxPages = override.Run.MaxPages
	}
	if len(override.Run.Adapters) > 0 {
		base.Run.Adapters = override.Run.Adapters
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Scheduler: SchedulerConfig{CronExpression: "0 7 * * MON", Timezone: defaultTimezone},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Rate:      RateConfig{MinInterval: 500 * time.Millisecond, Concurrency: 4},
		Budget: BudgetConfig{
			Adapter:   30 * time.Second,
			Listing:   120 * time.Second,
			HTTP:      10 * time.Second,
			LLMCall:   60 * time.Second,
			LLMTokens: 8000,
		},
		Search: SearchConfig{
			Endpoint: "https://openapi.naver.com/v1/search/news.json",
			Display:  20,
		},
		LLM: LLMConfig{
			Provider:      ProviderOpenAI,
			Model:         "gpt-4o-mini",
			GroundedModel: "gpt-4o-mini-search-preview",
		},
		Extract: ExtractConfig{USDKRW: 1300},
		Sources: defaultSources(),
	}
}
