package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/version"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/shelfwatch.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	Hostname                  string        `koanf:"-"`
	ImportPath                string        `koanf:"import_path"`
	JWTSecret                 string        `koanf:"jwt_secret"`
	LibraryPath               string        `koanf:"library_path" default:"./tmp/library"`
	MetricsEnabled            bool          `koanf:"metrics_enabled" default:"true"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"3689"`
	WatchlistIntervalMinutes  int           `koanf:"watchlist_interval_minutes" default:"360"`
	WorkerProcesses           int           `koanf:"worker_processes" default:"2"`

	// External sources.
	AmazonURL                string        `koanf:"amazon_url" default:"https://www.amazon.com"`
	OpenLibraryURL           string        `koanf:"openlibrary_url" default:"https://openlibrary.org"`
	RedisURL                 string        `koanf:"redis_url"`
	ScraperCacheTTL          time.Duration `koanf:"scraper_cache_ttl" default:"6h"`
	ScraperRequestsPerMinute int           `koanf:"scraper_requests_per_minute" default:"20"`
	ScraperTimeout           time.Duration `koanf:"scraper_timeout" default:"30s"`
	ScraperUserAgent         string        `koanf:"scraper_user_agent"`

	// Ollama is disabled while OllamaURL is empty.
	OllamaModel       string  `koanf:"ollama_model" default:"llama3"`
	OllamaTemperature float64 `koanf:"ollama_temperature" default:"0.2"`
	OllamaURL         string  `koanf:"ollama_url"`
}

// New loads the config from defaults, then the YAML file named by CONFIG_FILE (if it exists), then
// environment variables. Env var names are the upper-cased YAML keys.
func New() (*Config, error) {
	base := &Config{}
	if err := defaults.Set(base); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load config defaults")
	}

	configFile := os.Getenv(configFileEnv)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	// Only env vars that map onto a known key are loaded, so PATH, HOME and friends are ignored.
	err := k.Load(env.Provider("", ".", func(key string) string {
		key = strings.ToLower(key)
		if !k.Exists(key) {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config from environment")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	if cfg.ScraperUserAgent == "" {
		cfg.ScraperUserAgent = "shelfwatch/" + version.Version
	}

	return cfg, nil
}

// NewForTest returns a config with every default applied and an in-memory database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-secret"
	cfg.MetricsEnabled = false
	cfg.ScraperUserAgent = "shelfwatch/test"
	return cfg
}

// OllamaEnabled reports whether AI enrichment has somewhere to send prompts.
func (cfg *Config) OllamaEnabled() bool {
	return cfg.OllamaURL != ""
}

func (cfg *Config) WatchlistInterval() time.Duration {
	return time.Duration(cfg.WatchlistIntervalMinutes) * time.Minute
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			key := toSnakeCase(field.Name)
			missing = append(missing, strings.ToUpper(key)+" ("+key+")")
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
