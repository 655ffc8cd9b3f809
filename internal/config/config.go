// Package config loads complaints settings from viper.
package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/spf13/viper"
)

// DefaultAPIBase is the complaint database search endpoint.
const DefaultAPIBase = "https://www.consumerfinance.gov/data-research/consumer-complaints/search/api/v1/"

// Config is the typed view of the application configuration.
type Config struct {
	Fetch     FetchConfig
	Data      DataConfig
	Relevance RelevanceConfig
	LLM       LLMConfig
	Database  DatabaseConfig
	CI        CIConfig
}

// FetchConfig controls the incremental fetcher.
type FetchConfig struct {
	APIBase      string
	UserAgent    string
	Companies    []string
	PageSize     int
	RequestDelay time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	Timeout      time.Duration
	OverlapDays  int
}

// DataConfig names the data files.
type DataConfig struct {
	ComplaintsFile      string
	ClassificationsFile string
	CategoriesFile      string
}

// RelevanceConfig overrides the built-in allow-lists when non-empty.
type RelevanceConfig struct {
	PureCompanies  []string
	MixedCompanies []string
	SubProducts    []string
}

// LLMConfig configures the batch classifier.
type LLMConfig struct {
	Provider   string
	APIKey     string
	Model      string
	BatchSize  int
	RateLimit  int
	MaxRetries int
	RetryDelay time.Duration
}

// DatabaseConfig locates the run history database.
type DatabaseConfig struct {
	Path string
}

// CIConfig controls key=value output for automated jobs.
type CIConfig struct {
	OutputFile string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fetch.api_base", DefaultAPIBase)
	v.SetDefault("fetch.user_agent", "CryptoComplaintsDashboard/1.0")
	v.SetDefault("fetch.companies", DefaultCompanies())
	v.SetDefault("fetch.page_size", 100)
	v.SetDefault("fetch.request_delay", 500*time.Millisecond)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay", 2*time.Second)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.overlap_days", 7)

	v.SetDefault("data.complaints_file", "data/complaints.json")
	v.SetDefault("data.classifications_file", "data/classifications.json")
	v.SetDefault("data.categories_file", "")

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.batch_size", 10)
	v.SetDefault("llm.rate_limit", 15)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", 5*time.Second)

	v.SetDefault("database.path", "$HOME/.local/share/complaints/runs.db")
	v.SetDefault("ci.output_file", "")
}

// Load builds a Config from v, applying defaults and expanding paths.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		Fetch: FetchConfig{
			APIBase:      v.GetString("fetch.api_base"),
			UserAgent:    v.GetString("fetch.user_agent"),
			Companies:    v.GetStringSlice("fetch.companies"),
			PageSize:     v.GetInt("fetch.page_size"),
			RequestDelay: v.GetDuration("fetch.request_delay"),
			MaxRetries:   v.GetInt("fetch.max_retries"),
			RetryDelay:   v.GetDuration("fetch.retry_delay"),
			Timeout:      v.GetDuration("fetch.timeout"),
			OverlapDays:  v.GetInt("fetch.overlap_days"),
		},
		Data: DataConfig{
			ComplaintsFile:      ExpandPath(v.GetString("data.complaints_file")),
			ClassificationsFile: ExpandPath(v.GetString("data.classifications_file")),
			CategoriesFile:      ExpandPath(v.GetString("data.categories_file")),
		},
		Relevance: RelevanceConfig{
			PureCompanies:  v.GetStringSlice("relevance.pure_companies"),
			MixedCompanies: v.GetStringSlice("relevance.mixed_companies"),
			SubProducts:    v.GetStringSlice("relevance.sub_products"),
		},
		LLM: LLMConfig{
			Provider:   v.GetString("llm.provider"),
			APIKey:     v.GetString("llm.api_key"),
			Model:      v.GetString("llm.model"),
			BatchSize:  v.GetInt("llm.batch_size"),
			RateLimit:  v.GetInt("llm.rate_limit"),
			MaxRetries: v.GetInt("llm.max_retries"),
			RetryDelay: v.GetDuration("llm.retry_delay"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		CI: CIConfig{
			OutputFile: ExpandPath(v.GetString("ci.output_file")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would make a run misbehave.
func (c Config) Validate() error {
	switch {
	case c.Fetch.APIBase == "":
		return fmt.Errorf("%w: fetch.api_base", common.ErrMissingConfig)
	case c.Fetch.PageSize <= 0:
		return fmt.Errorf("%w: fetch.page_size must be positive", common.ErrInvalidConfig)
	case c.Fetch.MaxRetries <= 0:
		return fmt.Errorf("%w: fetch.max_retries must be positive", common.ErrInvalidConfig)
	case c.Fetch.OverlapDays < 0:
		return fmt.Errorf("%w: fetch.overlap_days cannot be negative", common.ErrInvalidConfig)
	case c.Data.ComplaintsFile == "":
		return fmt.Errorf("%w: data.complaints_file", common.ErrMissingConfig)
	}
	return nil
}

// DefaultCompanies is the company list sent to the search API.
func DefaultCompanies() []string {
	return []string{
		"Block, Inc.",
		"Coinbase, Inc.",
		"ROBINHOOD MARKETS INC.",
		"Foris DAX, Inc.",
		"Paypal Holdings, Inc",
		"Winklevoss Exchange LLC",
		"BAM Management US Holdings Inc.",
		"Payward Ventures Inc. dba Kraken",
		"Blockchain.com, Inc.",
		"Abra",
		"BlockFi Inc",
		"Paxos Trust Company, LLC",
		"Voyager Digital (Canada) Ltd.",
		"Celsius Network LLC",
		"FTX Trading Ltd.",
	}
}
