/*
Package config loads the application configuration.

PRECEDENCE:
  CLI flags > environment (RETURNS_ prefix) > config file (YAML) > defaults

SECTIONS:
  server:
    host, port, db, allowed_origins, read_timeout, write_timeout,
    policy_reload_interval (0 disables hot reload)
  log:
    level (debug|info|warn|error), format (text|json)
  evaluation:
    timezone (IANA name), locale (es|en)
  policy:
    return_window_online_days, exchange_window_online_days,
    exchange_window_in_person_days, defect_warranty_days,
    require_tags_for_return, require_unused_for_return

ENVIRONMENT:
  Dots become underscores: RETURNS_SERVER_PORT, RETURNS_LOG_LEVEL,
  RETURNS_POLICY_DEFECT_WARRANTY_DAYS, ...

Any invalid value, including an out-of-range policy window, fails Load.
The policy error wraps eligibility.ErrInvalidConfiguration.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/warp/returns-engine/eligibility"
)

const envPrefix = "RETURNS"

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Evaluation EvaluationConfig

	// Policy is the validated policy built from the policy section.
	Policy *eligibility.PolicyConfig

	// File is the config file Load read, empty when none.
	File string
}

type ServerConfig struct {
	Host                 string
	Port                 int
	DBPath               string
	AllowedOrigins       []string
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	PolicyReloadInterval time.Duration
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string
	Format string
}

type EvaluationConfig struct {
	TimeZone string
	Locale   eligibility.Locale

	// Location is TimeZone resolved.
	Location *time.Location
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"db":         "server.db",
	"log-level":  "log.level",
	"log-format": "log.format",
	"timezone":   "evaluation.timezone",
	"locale":     "evaluation.locale",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.db", "returns.db")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.policy_reload_interval", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("evaluation.timezone", eligibility.DefaultTimeZone)
	v.SetDefault("evaluation.locale", string(eligibility.DefaultLocale))
}

// Load reads configuration. configPath may be empty; flags may be nil.
// Only flags the user actually set override lower layers.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:                 v.GetString("server.host"),
			Port:                 v.GetInt("server.port"),
			DBPath:               v.GetString("server.db"),
			AllowedOrigins:       v.GetStringSlice("server.allowed_origins"),
			ReadTimeout:          v.GetDuration("server.read_timeout"),
			WriteTimeout:         v.GetDuration("server.write_timeout"),
			PolicyReloadInterval: v.GetDuration("server.policy_reload_interval"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Evaluation: EvaluationConfig{
			TimeZone: v.GetString("evaluation.timezone"),
		},
		File: configPath,
	}

	if err := validateConfig(cfg, v.GetString("evaluation.locale")); err != nil {
		return nil, err
	}

	policy, err := eligibility.Load(policyOverrides(v))
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	cfg.Policy = policy

	return cfg, nil
}

// LoadPolicy re-reads only the policy of configPath, with environment
// overrides. Used by hot reload.
func LoadPolicy(configPath string) (*eligibility.PolicyConfig, error) {
	cfg, err := Load(configPath, nil)
	if err != nil {
		return nil, err
	}
	return cfg.Policy, nil
}

// policyOverrides collects the policy section of the file plus any
// RETURNS_POLICY_* variables. Unknown file keys are passed through so
// eligibility.Load rejects them.
func policyOverrides(v *viper.Viper) map[string]any {
	overrides := make(map[string]any)
	for key, value := range v.GetStringMap("policy") {
		overrides[key] = value
	}
	for _, key := range eligibility.PolicyKeys {
		if v.IsSet("policy." + key) {
			overrides[key] = v.Get("policy." + key)
		}
	}
	return overrides
}

// validateConfig checks port range, timeouts, log settings, time zone and locale.
func validateConfig(cfg *Config, locale string) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.DBPath == "" {
		return fmt.Errorf("server.db must not be empty")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if cfg.Server.PolicyReloadInterval < 0 {
		return fmt.Errorf("policy_reload_interval must not be negative, got %v", cfg.Server.PolicyReloadInterval)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	loc, err := time.LoadLocation(cfg.Evaluation.TimeZone)
	if err != nil {
		return fmt.Errorf("evaluation.timezone: %w", err)
	}
	cfg.Evaluation.Location = loc

	l, err := eligibility.ParseLocale(locale)
	if err != nil {
		return fmt.Errorf("evaluation.locale: %w", err)
	}
	cfg.Evaluation.Locale = l
	return nil
}
