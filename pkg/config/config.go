// Package config loads settings from a .env file, an optional YAML file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings.
//
//nolint:govet // fieldalignment: grouped by concern
type Config struct {
	SERPHost     string `yaml:"serp_host"`
	SERPPort     string `yaml:"serp_port"`
	SERPUser     string `yaml:"serp_user"`
	SERPPassword string `yaml:"serp_password"`
	SERPCountry  string `yaml:"serp_country"`
	SERPLanguage string `yaml:"serp_language"`
	SERPResults  int    `yaml:"serp_results"`

	DetailProvider string `yaml:"detail_provider"` // rapidapi or instagram
	RapidAPIKey    string `yaml:"rapidapi_key"`
	RapidAPIHost   string `yaml:"rapidapi_host"`
	BrowserCookies bool   `yaml:"browser_cookies"` // read Instagram cookies from local browsers

	Ranker          string `yaml:"ranker"` // llm or heuristic
	LLMAPIKey       string `yaml:"llm_api_key"`
	LLMBaseURL      string `yaml:"llm_base_url"`
	LLMModel        string `yaml:"llm_model"`
	LLMPromptTokens int    `yaml:"llm_prompt_tokens"`

	ProfileDelay    time.Duration `yaml:"-"`
	ProfileDelaySec int           `yaml:"profile_delay"`
	CacheSize       int           `yaml:"cache_size"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	StoreDriver string `yaml:"store_driver"`
	StoreDSN    string `yaml:"store_dsn"`
	HTTPAddr    string `yaml:"http_addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		SERPHost:        "brd.superproxy.io",
		SERPPort:        "33335",
		SERPCountry:     "us",
		SERPLanguage:    "en",
		SERPResults:     20,
		DetailProvider:  "rapidapi",
		RapidAPIHost:    "social-api4.p.rapidapi.com",
		Ranker:          "llm",
		LLMBaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai/",
		LLMModel:        "gemini-2.0-flash",
		LLMPromptTokens: 6000,
		ProfileDelaySec: 3,
		CacheSize:       4096,
		MonitorInterval: 15 * time.Second,
		StoreDriver:     "sqlite3",
		StoreDSN:        "igfinder.db",
		HTTPAddr:        ":8080",
	}
}

// Load reads .env from the working directory if present, then the YAML file at
// path if path is not empty, then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ProfileDelay = time.Duration(cfg.ProfileDelaySec) * time.Second
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("SERP_HOST", &c.SERPHost)
	str("SERP_PORT", &c.SERPPort)
	str("SERP_USER", &c.SERPUser)
	str("SERP_PASSWORD", &c.SERPPassword)
	str("SERP_COUNTRY", &c.SERPCountry)
	str("SERP_LANGUAGE", &c.SERPLanguage)
	num("SERP_RESULTS", &c.SERPResults)

	str("DETAIL_PROVIDER", &c.DetailProvider)
	str("RAPIDAPI_KEY", &c.RapidAPIKey)
	str("RAPIDAPI_HOST", &c.RapidAPIHost)
	if v := os.Getenv("INSTAGRAM_BROWSER_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INSTAGRAM_BROWSER_COOKIES: %w", err))
		}
		c.BrowserCookies = b
	}

	str("RANKER", &c.Ranker)
	str("GEMINI_API_KEY", &c.LLMAPIKey)
	str("LLM_API_KEY", &c.LLMAPIKey)
	str("LLM_BASE_URL", &c.LLMBaseURL)
	str("LLM_MODEL", &c.LLMModel)
	num("LLM_PROMPT_TOKENS", &c.LLMPromptTokens)

	// Non-numeric delays keep the default.
	if v := os.Getenv("PROFILE_DELAY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.ProfileDelaySec = n
		}
	}
	num("CACHE_SIZE", &c.CacheSize)
	if v := strings.TrimSpace(os.Getenv("MONITOR_INTERVAL")); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MONITOR_INTERVAL: %w", err))
		} else {
			c.MonitorInterval = d
		}
	}

	str("STORE_DRIVER", &c.StoreDriver)
	str("STORE_DSN", &c.StoreDSN)
	str("HTTP_ADDR", &c.HTTPAddr)
	return errors.Join(errs...)
}

// parseInterval accepts a Go duration or a whole number of seconds.
func parseInterval(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.SERPResults <= 0 {
		errs = append(errs, fmt.Errorf("serp results must be positive, got %d", c.SERPResults))
	}
	if c.StoreDriver != "sqlite3" && c.StoreDriver != "postgres" {
		errs = append(errs, fmt.Errorf("store driver must be sqlite3 or postgres, got %q", c.StoreDriver))
	}
	if c.Ranker != "llm" && c.Ranker != "heuristic" {
		errs = append(errs, fmt.Errorf("ranker must be llm or heuristic, got %q", c.Ranker))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache size must be positive, got %d", c.CacheSize))
	}
	if c.MonitorInterval < time.Second {
		errs = append(errs, fmt.Errorf("monitor interval must be at least 1s, got %s", c.MonitorInterval))
	}
	if c.ProfileDelaySec < 0 {
		errs = append(errs, fmt.Errorf("profile delay must not be negative, got %d", c.ProfileDelaySec))
	}
	return errors.Join(errs...)
}
