package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override: qiita.token is read from
// EHONHUB_QIITA_TOKEN and so on.
const EnvPrefix = "EHONHUB"

type QiitaConfig struct {
	BaseURL string
	Token   string
	RPS     float64
}

type GoogleBooksConfig struct {
	BaseURL      string
	APIKey       string
	RPS          float64
	TitleResults int
}

type BuildConfig struct {
	Quota       int
	Concurrency int
	PerQuery    int
	MinStocks   int
	Topics      []string

	MinMentions              int
	MaxResults               int
	StockWeight              float64
	RequireTitleConfirmation bool
	ScanBareASIN             bool

	Language      string
	SearchTimeout time.Duration
	LookupTimeout time.Duration
}

type RebuildConfig struct {
	Secret     string
	SecretHash string
}

type StoreConfig struct {
	// Backend is "sqlite", "redis" or "memory".
	Backend  string
	DBPath   string
	RedisURL string
	RedisKey string
}

type LogConfig struct {
	Level  string
	Format string
}

type AffiliateConfig struct {
	AID  string
	PID  string
	PCID string
	PLID string
}

type Config struct {
	Listen      string
	Qiita       QiitaConfig
	GoogleBooks GoogleBooksConfig
	Build       BuildConfig
	Rebuild     RebuildConfig
	Store       StoreConfig
	Log         LogConfig
	Affiliate   AffiliateConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")

	v.SetDefault("qiita.base_url", "https://qiita.com")
	v.SetDefault("qiita.token", "")
	v.SetDefault("qiita.rps", 1.0)

	v.SetDefault("googlebooks.base_url", "https://www.googleapis.com")
	v.SetDefault("googlebooks.api_key", "")
	v.SetDefault("googlebooks.rps", 5.0)
	v.SetDefault("googlebooks.title_results", 3)

	v.SetDefault("build.quota", 200)
	v.SetDefault("build.concurrency", 4)
	v.SetDefault("build.per_query", 50)
	v.SetDefault("build.min_stocks", 3)
	v.SetDefault("build.topics", []string{})
	v.SetDefault("build.min_mentions", 2)
	v.SetDefault("build.max_results", 100)
	v.SetDefault("build.stock_weight", 0.3)
	v.SetDefault("build.require_title_confirmation", true)
	v.SetDefault("build.scan_bare_asin", false)
	v.SetDefault("build.language", "ja")
	v.SetDefault("build.search_timeout", 8*time.Second)
	v.SetDefault("build.lookup_timeout", 4*time.Second)

	v.SetDefault("rebuild.secret", "")
	v.SetDefault("rebuild.secret_hash", "")

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("db.path", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key", "ehonhub:ranking:latest")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("affiliate.a_id", "")
	v.SetDefault("affiliate.p_id", "")
	v.SetDefault("affiliate.pc_id", "")
	v.SetDefault("affiliate.pl_id", "")
}

// LoadConfig reads defaults, then the optional config file at path (or
// $EHONHUB_CONFIG), then EHONHUB_* environment overrides.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Listen: v.GetString("listen"),
		Qiita: QiitaConfig{
			BaseURL: v.GetString("qiita.base_url"),
			Token:   v.GetString("qiita.token"),
			RPS:     v.GetFloat64("qiita.rps"),
		},
		GoogleBooks: GoogleBooksConfig{
			BaseURL:      v.GetString("googlebooks.base_url"),
			APIKey:       v.GetString("googlebooks.api_key"),
			RPS:          v.GetFloat64("googlebooks.rps"),
			TitleResults: v.GetInt("googlebooks.title_results"),
		},
		Build: BuildConfig{
			Quota:                    v.GetInt("build.quota"),
			Concurrency:              v.GetInt("build.concurrency"),
			PerQuery:                 v.GetInt("build.per_query"),
			MinStocks:                v.GetInt("build.min_stocks"),
			Topics:                   v.GetStringSlice("build.topics"),
			MinMentions:              v.GetInt("build.min_mentions"),
			MaxResults:               v.GetInt("build.max_results"),
			StockWeight:              v.GetFloat64("build.stock_weight"),
			RequireTitleConfirmation: v.GetBool("build.require_title_confirmation"),
			ScanBareASIN:             v.GetBool("build.scan_bare_asin"),
			Language:                 v.GetString("build.language"),
			SearchTimeout:            v.GetDuration("build.search_timeout"),
			LookupTimeout:            v.GetDuration("build.lookup_timeout"),
		},
		Rebuild: RebuildConfig{
			Secret:     v.GetString("rebuild.secret"),
			SecretHash: v.GetString("rebuild.secret_hash"),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(v.GetString("store.backend")),
			DBPath:   v.GetString("db.path"),
			RedisURL: v.GetString("redis.url"),
			RedisKey: v.GetString("redis.key"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Affiliate: AffiliateConfig{
			AID:  v.GetString("affiliate.a_id"),
			PID:  v.GetString("affiliate.p_id"),
			PCID: v.GetString("affiliate.pc_id"),
			PLID: v.GetString("affiliate.pl_id"),
		},
	}

	switch cfg.Store.Backend {
	case "sqlite", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "redis" && cfg.Store.RedisURL == "" {
		return Config{}, fmt.Errorf("store backend redis needs redis.url")
	}
	return cfg, nil
}
