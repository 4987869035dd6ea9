package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Empty-filter policies for subcategory descent.
const (
	PolicyKeep       = "keep"       // stop descending, keep the current category
	PolicyUnfiltered = "unfiltered" // draw from the unfiltered subcategory set
)

// Backoff strategies between fetch attempts.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// DefaultSeedCategories is the built-in catalog of top-level history categories.
var DefaultSeedCategories = []string{
	"日本の歴史",
	"日本の時代",
	"縄文時代",
	"弥生時代",
	"古墳時代",
	"飛鳥時代",
	"奈良時代",
	"平安時代",
	"鎌倉時代",
	"室町時代",
	"戦国時代 (日本)",
	"安土桃山時代",
	"江戸時代",
	"幕末",
	"明治時代",
	"大正時代",
	"昭和時代",
	"日本の城",
	"日本の合戦",
	"戦国武将",
	"日本の文化史",
	"日本の外交史",
}

// DefaultBlocklist holds the markers of administrative categories skipped during descent.
var DefaultBlocklist = []string{
	"スタブ",
	"画像",
	"テンプレート",
	"Wikipedia",
	"一覧",
	"索引",
	"のカテゴリ",
}

// DefaultSortKeyAlphabet is the pool of sort-key start prefixes.
const DefaultSortKeyAlphabet = "あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわABCDE"

type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"log"`

	Wiki struct {
		APIURL          string        `mapstructure:"api_url"`
		Timeout         time.Duration `mapstructure:"timeout"`
		UserAgent       string        `mapstructure:"user_agent"`
		FollowRedirects bool          `mapstructure:"follow_redirects"`
	} `mapstructure:"wiki"`

	Selector struct {
		SeedCategories    []string `mapstructure:"seed_categories"`
		CatalogFile       string   `mapstructure:"catalog_file"` // overrides seed_categories when set
		DescentDepth      int      `mapstructure:"descent_depth"`
		SubcategoryLimit  int      `mapstructure:"subcategory_limit"`
		PageLimit         int      `mapstructure:"page_limit"`
		Blocklist         []string `mapstructure:"blocklist"`
		SortKeyAlphabet   string   `mapstructure:"sort_key_alphabet"`
		EmptyFilterPolicy string   `mapstructure:"empty_filter_policy"`
		Seed              int64    `mapstructure:"seed"` // 0 means seed from the clock
	} `mapstructure:"selector"`

	Fetcher struct {
		MaxRetries       int           `mapstructure:"max_retries"`
		Backoff          time.Duration `mapstructure:"backoff"`
		BackoffStrategy  string        `mapstructure:"backoff_strategy"`
		FallbackTopic    string        `mapstructure:"fallback_topic"`
		FallbackCategory string        `mapstructure:"fallback_category"`
	} `mapstructure:"fetcher"`

	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
		Schedule    string         `mapstructure:"schedule"` // cron spec, empty disables
	} `mapstructure:"worker"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("wiki.api_url", "https://ja.wikipedia.org/w/api.php")
	v.SetDefault("wiki.timeout", 15*time.Second)
	v.SetDefault("wiki.user_agent", "histreader/1.0 (https://github.com/histreader/histreader)")
	v.SetDefault("wiki.follow_redirects", true)

	v.SetDefault("selector.seed_categories", DefaultSeedCategories)
	v.SetDefault("selector.descent_depth", 2)
	v.SetDefault("selector.subcategory_limit", 40)
	v.SetDefault("selector.page_limit", 100)
	v.SetDefault("selector.blocklist", DefaultBlocklist)
	v.SetDefault("selector.sort_key_alphabet", DefaultSortKeyAlphabet)
	v.SetDefault("selector.empty_filter_policy", PolicyKeep)
	v.SetDefault("selector.seed", 0)

	v.SetDefault("fetcher.max_retries", 3)
	v.SetDefault("fetcher.backoff", 300*time.Millisecond)
	v.SetDefault("fetcher.backoff_strategy", BackoffFixed)
	v.SetDefault("fetcher.fallback_topic", "日本の歴史")
	v.SetDefault("fetcher.fallback_category", "最終フォールバック")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "histreader.db")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.queues", map[string]int{"default": 1})
	v.SetDefault("worker.schedule", "")
}

// LoadConfig reads config.yaml (or configFile when given), a .env file if
// present, and HISTREADER_* environment variables, in increasing precedence.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/histreader")
	}

	v.SetEnvPrefix("HISTREADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if cfg.Selector.CatalogFile != "" {
		categories, err := LoadCategoryCatalog(cfg.Selector.CatalogFile)
		if err != nil {
			return nil, err
		}
		cfg.Selector.SeedCategories = categories
	}

	return &cfg, nil
}
