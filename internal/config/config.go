// Package config resolves gha-watch settings from flags, GHA_WATCH_*
// environment variables and an optional config file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/altinukshini/gha-watch/internal/api"
)

const EnvPrefix = "GHA_WATCH"

// Keys, shared by flags, env vars and the config file.
const (
	KeyRepo            = "repo"
	KeyToken           = "token"
	KeyAPIURL          = "api_url"
	KeyPageSize        = "page_size"
	KeyPollInterval    = "poll_interval"
	KeyRefreshInterval = "refresh_interval"
	KeyCacheSize       = "cache_size"
	KeyRateLimit       = "rate_limit"
	KeyWorkers         = "workers"
	KeyLogCacheDir     = "log_cache_dir"
	KeyLogCacheSizeMB  = "log_cache_size_mb"
	KeyLogCacheTTL     = "log_cache_ttl"
	KeyLogLevel        = "log_level"
	KeyLogFile         = "log_file"
	KeyBranch          = "branch"
	KeyStatus          = "status"
	KeyActor           = "actor"
	KeyEvent           = "event"
	KeyWorkflow        = "workflow"
)

type Config struct {
	Owner string
	Repo  string
	Token string

	APIURL          string
	PageSize        int
	PollInterval    time.Duration
	RefreshInterval time.Duration
	CacheSize       int
	RateLimit       float64
	Workers         int

	LogCacheDir    string
	LogCacheSizeMB int
	LogCacheTTL    time.Duration

	LogLevel string
	LogFile  string

	Filters Filters
}

// Filters narrow the run list.
type Filters struct {
	Branch   string
	Status   string
	Actor    string
	Event    string
	Workflow string // workflow file name or numeric id
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, api.DefaultBaseURL)
	v.SetDefault(KeyPageSize, 30)
	v.SetDefault(KeyPollInterval, "30s")
	v.SetDefault(KeyRefreshInterval, "5s")
	v.SetDefault(KeyCacheSize, 200)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyLogCacheDir, filepath.Join(os.TempDir(), "gha-watch", "logs"))
	v.SetDefault(KeyLogCacheSizeMB, 500)
	v.SetDefault(KeyLogCacheTTL, "24h")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, filepath.Join(os.TempDir(), "gha-watch", "gha-watch.log"))
}

// Init prepares v for Load: defaults, environment binding and, if file is
// set or a gha-watch.yaml exists in the user config dir, the config file.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("gha-watch")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "gha-watch"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Token:           v.GetString(KeyToken),
		APIURL:          v.GetString(KeyAPIURL),
		PageSize:        v.GetInt(KeyPageSize),
		PollInterval:    v.GetDuration(KeyPollInterval),
		RefreshInterval: v.GetDuration(KeyRefreshInterval),
		CacheSize:       v.GetInt(KeyCacheSize),
		RateLimit:       v.GetFloat64(KeyRateLimit),
		Workers:         v.GetInt(KeyWorkers),
		LogCacheDir:     v.GetString(KeyLogCacheDir),
		LogCacheSizeMB:  v.GetInt(KeyLogCacheSizeMB),
		LogCacheTTL:     v.GetDuration(KeyLogCacheTTL),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFile:         v.GetString(KeyLogFile),
		Filters: Filters{
			Branch:   v.GetString(KeyBranch),
			Status:   v.GetString(KeyStatus),
			Actor:    v.GetString(KeyActor),
			Event:    v.GetString(KeyEvent),
			Workflow: v.GetString(KeyWorkflow),
		},
	}
	if cfg.Token == "" {
		cfg.Token = tokenFromEnv()
	}

	repo := v.GetString(KeyRepo)
	if repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || strings.Contains(name, "/") {
			return Config{}, fmt.Errorf("repo must be in owner/repo format, got %q", repo)
		}
		cfg.Owner, cfg.Repo = owner, name
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// tokenFromEnv falls back to the variables the gh CLI honours.
func tokenFromEnv() string {
	for _, name := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if tok := os.Getenv(name); tok != "" {
			return tok
		}
	}
	return ""
}

func (c Config) RepoNWO() string {
	return fmt.Sprintf("%s/%s", c.Owner, c.Repo)
}

func (c Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("owner and repo are required (use -R owner/repo)")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.PollInterval <= 0 || c.RefreshInterval <= 0 {
		return fmt.Errorf("poll and refresh intervals must be positive")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// RunsFilter converts the configured filters into a query for the runs
// endpoint.
func (c Config) RunsFilter() api.RunsFilter {
	f := api.RunsFilter{
		Branch:  c.Filters.Branch,
		Status:  c.Filters.Status,
		Actor:   c.Filters.Actor,
		Event:   c.Filters.Event,
		PerPage: c.PageSize,
	}
	if wf := c.Filters.Workflow; wf != "" {
		if id, err := strconv.ParseInt(wf, 10, 64); err == nil && id > 0 {
			f.WorkflowID = id
		} else {
			f.WorkflowFile = wf
		}
	}
	return f
}
