package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Settings  Settings                  `yaml:"settings" mapstructure:"settings"`
}

type ProviderConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	OrgID  string `yaml:"org_id,omitempty" mapstructure:"org_id"`
}

type Settings struct {
	WindowDays int           `yaml:"window_days" mapstructure:"window_days"`
	CacheTTL   time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CachePath  string        `yaml:"cache_path,omitempty" mapstructure:"cache_path"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIPort    int           `yaml:"api_port" mapstructure:"api_port"`
	CarryStale bool          `yaml:"carry_stale" mapstructure:"carry_stale"`
	Retry      RetrySettings `yaml:"retry" mapstructure:"retry"`
}

type RetrySettings struct {
	Attempts     int           `yaml:"attempts" mapstructure:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	Backoff      float64       `yaml:"backoff" mapstructure:"backoff"`
}

// Load reads the config file, searching ~, /etc and the working directory for
// .ai-spend-tracker.{yaml,yml,json} when no explicit path is given. A missing
// file in search mode falls back to defaults; an explicit path must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		v.SetConfigName(".ai-spend-tracker")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := DefaultConfig()

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)

	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, err
	}

	for id, pc := range cfg.Providers {
		pc.APIKey = os.ExpandEnv(pc.APIKey)
		pc.OrgID = os.ExpandEnv(pc.OrgID)
		cfg.Providers[id] = pc
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Providers: make(map[string]ProviderConfig),
		Settings: Settings{
			WindowDays: 30,
			CacheTTL:   5 * time.Minute,
			Timeout:    10 * time.Second,
			APIPort:    4580,
			Retry: RetrySettings{
				Attempts:     3,
				InitialDelay: time.Second,
				Backoff:      2.0,
			},
		},
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ai-spend-tracker.yaml"
	}
	return filepath.Join(home, ".ai-spend-tracker.yaml")
}

// WriteStarter creates a commented starter config with a placeholder entry
// per known provider. It refuses to overwrite an existing file.
func WriteStarter(path string, ids []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	providers := make(map[string]ProviderConfig, len(ids))
	for _, id := range ids {
		providers[id] = ProviderConfig{APIKey: fmt.Sprintf("${%s}", envName(id, "API_KEY"))}
	}

	body, err := yaml.Marshal(map[string]any{"providers": providers})
	if err != nil {
		return err
	}

	def := DefaultConfig()
	var buf bytes.Buffer
	buf.WriteString("# ai-spend-tracker configuration.\n")
	buf.WriteString("# Credentials resolve from <PROVIDER>_API_KEY environment variables first,\n")
	buf.WriteString("# then from api_key values below. ${VAR} references expand at load time.\n\n")
	buf.Write(body)
	fmt.Fprintf(&buf, "settings:\n")
	fmt.Fprintf(&buf, "  window_days: %d\n", def.Settings.WindowDays)
	fmt.Fprintf(&buf, "  cache_ttl: %s\n", def.Settings.CacheTTL)
	fmt.Fprintf(&buf, "  timeout: %s\n", def.Settings.Timeout)
	fmt.Fprintf(&buf, "  api_port: %d\n", def.Settings.APIPort)
	fmt.Fprintf(&buf, "  carry_stale: %t\n", def.Settings.CarryStale)
	fmt.Fprintf(&buf, "  retry:\n")
	fmt.Fprintf(&buf, "    attempts: %d\n", def.Settings.Retry.Attempts)
	fmt.Fprintf(&buf, "    initial_delay: %s\n", def.Settings.Retry.InitialDelay)
	fmt.Fprintf(&buf, "    backoff: %g\n", def.Settings.Retry.Backoff)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
