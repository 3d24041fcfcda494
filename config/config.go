package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSeeds are the well-known pRPC endpoints tried when the primary
// endpoint yields no nodes.
var DefaultSeeds = []string{
	"173.212.203.145",
	"173.212.220.65",
	"161.97.97.41",
	"192.190.136.36",
	"192.190.136.37",
	"192.190.136.38",
	"192.190.136.28",
	"192.190.136.29",
}

// Config holds every setting of the service. Each key can be set in the
// optional config file or through its upper-case environment variable.
type Config struct {
	RESTAPIAddress string `mapstructure:"rest_api_address"`
	OriginAllowed  string `mapstructure:"origin_allowed"`
	APIRowsPerPage int    `mapstructure:"api_rows_per_page"`

	LogLevel       string `mapstructure:"log_level"`
	ProductionMode bool   `mapstructure:"production_mode"`

	RedisURL string `mapstructure:"redis_url"`

	OnlineThresholdSeconds int           `mapstructure:"online_threshold_seconds"`
	PRPCPrimaryIP          string        `mapstructure:"prpc_primary_ip"`
	PRPCPort               int           `mapstructure:"prpc_port"`
	PRPCSeedIPs            []string      `mapstructure:"prpc_seed_ips"`
	PRPCTimeout            time.Duration `mapstructure:"prpc_timeout"`

	StatsRPCTimeout time.Duration `mapstructure:"stats_rpc_timeout"`
	StatsInterval   time.Duration `mapstructure:"stats_interval"`
	StatsBatchSize  int           `mapstructure:"stats_batch_size"`
	StatsBatchDelay time.Duration `mapstructure:"stats_batch_delay"`
	StatsCacheTTL   time.Duration `mapstructure:"stats_cache_ttl"`

	GeoAPIURL            string        `mapstructure:"geo_api_url"`
	GeoBatchSize         int           `mapstructure:"geo_batch_size"`
	GeoTimeout           time.Duration `mapstructure:"geo_timeout"`
	GeoRequestsPerMinute int           `mapstructure:"geo_requests_per_minute"`

	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rest_api_address", ":8090")
	v.SetDefault("origin_allowed", "*")
	v.SetDefault("api_rows_per_page", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("production_mode", false)
	v.SetDefault("redis_url", "")
	v.SetDefault("online_threshold_seconds", 300)
	v.SetDefault("prpc_primary_ip", "")
	v.SetDefault("prpc_port", 6000)
	v.SetDefault("prpc_seed_ips", DefaultSeeds)
	v.SetDefault("prpc_timeout", 10*time.Second)
	v.SetDefault("stats_rpc_timeout", 8*time.Second)
	v.SetDefault("stats_interval", 90*time.Second)
	v.SetDefault("stats_batch_size", 15)
	v.SetDefault("stats_batch_delay", 100*time.Millisecond)
	v.SetDefault("stats_cache_ttl", 120*time.Second)
	v.SetDefault("geo_api_url", "http://ip-api.com")
	v.SetDefault("geo_batch_size", 100)
	v.SetDefault("geo_timeout", 5*time.Second)
	v.SetDefault("geo_requests_per_minute", 15)
	v.SetDefault("postgres_host", "")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db", "")
}

// Load reads the configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	seeds := make([]string, 0, len(c.PRPCSeedIPs))
	for _, s := range c.PRPCSeedIPs {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				seeds = append(seeds, part)
			}
		}
	}
	c.PRPCSeedIPs = seeds

	// The primary defaults to the first seed.
	c.PRPCPrimaryIP = strings.TrimSpace(c.PRPCPrimaryIP)
	if c.PRPCPrimaryIP == "" && len(seeds) > 0 {
		c.PRPCPrimaryIP = seeds[0]
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OriginAllowed == "" {
		c.OriginAllowed = "*"
	}
}

func (c *Config) validate() error {
	if c.RESTAPIAddress == "" {
		return fmt.Errorf("rest_api_address is required")
	}
	if c.PRPCPrimaryIP == "" && len(c.PRPCSeedIPs) == 0 {
		return fmt.Errorf("prpc_primary_ip or prpc_seed_ips is required")
	}
	if c.OnlineThresholdSeconds <= 0 {
		return fmt.Errorf("online_threshold_seconds must be positive")
	}
	if c.PRPCPort <= 0 || c.PRPCPort > 65535 {
		return fmt.Errorf("prpc_port %d is out of range", c.PRPCPort)
	}
	for name, d := range map[string]time.Duration{
		"prpc_timeout":      c.PRPCTimeout,
		"stats_rpc_timeout": c.StatsRPCTimeout,
		"stats_interval":    c.StatsInterval,
		"stats_batch_delay": c.StatsBatchDelay,
		"stats_cache_ttl":   c.StatsCacheTTL,
		"geo_timeout":       c.GeoTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.StatsBatchSize <= 0 {
		return fmt.Errorf("stats_batch_size must be positive")
	}
	if c.GeoBatchSize <= 0 || c.GeoBatchSize > 100 {
		return fmt.Errorf("geo_batch_size must be between 1 and 100")
	}
	if c.APIRowsPerPage <= 0 {
		return fmt.Errorf("api_rows_per_page must be positive")
	}
	return nil
}

func (c *Config) OnlineThreshold() time.Duration {
	return time.Duration(c.OnlineThresholdSeconds) * time.Second
}

// HistoryEnabled reports whether a postgres database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.PostgresHost != ""
}
