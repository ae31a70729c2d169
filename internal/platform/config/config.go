package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	strutil "qualifier/pkg/platform/strings"
)

// Columns names the dataset columns the engine reads. Column names are
// configuration: different registration forms label the same fields differently.
type Columns struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	ProgramEmail string `yaml:"program_email"`
	Phone        string `yaml:"phone"`
	Consent      string `yaml:"consent"`
	ProfileURL   string `yaml:"profile_url"`
}

// Program captures the fixed rule parameters for one qualification run.
type Program struct {
	Year            int      `yaml:"year"`
	ReservedDomain  string   `yaml:"reserved_domain"`
	AcceptedConsent string   `yaml:"accepted_consent"`
	TrackedBadges   []string `yaml:"tracked_badges"`
}

// Fetch configures the profile evidence collector.
type Fetch struct {
	Attempts         int           `yaml:"attempts"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	CourtesyInterval time.Duration `yaml:"courtesy_interval"`
	Workers          int           `yaml:"workers"`
	UserAgent        string        `yaml:"user_agent"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

// Output configures the exported results table.
type Output struct {
	DropColumns []string `yaml:"drop_columns"`
}

// Infra holds optional backing services. Empty values disable the component.
type Infra struct {
	DatabaseURL  string `yaml:"database_url"`
	RedisURL     string `yaml:"redis_url"`
	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`
	HTTPAddr     string `yaml:"http_addr"`
}

// Config is the full runtime configuration.
type Config struct {
	Columns   Columns `yaml:"columns"`
	Program   Program `yaml:"program"`
	Fetch     Fetch   `yaml:"fetch"`
	Output    Output  `yaml:"output"`
	Infra     Infra   `yaml:"infra"`
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() Config {
	return Config{
		Columns: Columns{
			Name:         "Name",
			Email:        "Email Address",
			ProgramEmail: "Skills Boost Email",
			Phone:        "Phone Number",
			Consent:      "Terms",
			ProfileURL:   "Skills Boost Public Profile URL",
		},
		Program: Program{
			Year:            2025,
			ReservedDomain:  ".gdgocbcet@gmail.com",
			AcceptedConsent: "Yes, I accept the terms",
		},
		Fetch: Fetch{
			Attempts:         3,
			RetryDelay:       2 * time.Second,
			Timeout:          10 * time.Second,
			CourtesyInterval: time.Second,
			Workers:          4,
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			CacheTTL:         6 * time.Hour,
		},
		Output: Output{
			DropColumns: []string{"Terms", "Internet", "Verify", "Completing", "Signup"},
		},
		Infra: Infra{
			KafkaTopic: "qualification.outcomes",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load builds a Config from defaults, an optional YAML file, then environment
// variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("QUALIFIER_RESERVED_DOMAIN", &c.Program.ReservedDomain)
	str("QUALIFIER_ACCEPTED_CONSENT", &c.Program.AcceptedConsent)
	str("QUALIFIER_USER_AGENT", &c.Fetch.UserAgent)
	str("DATABASE_URL", &c.Infra.DatabaseURL)
	str("REDIS_URL", &c.Infra.RedisURL)
	str("KAFKA_BROKERS", &c.Infra.KafkaBrokers)
	str("KAFKA_TOPIC", &c.Infra.KafkaTopic)
	str("QUALIFIER_HTTP_ADDR", &c.Infra.HTTPAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup("QUALIFIER_TRACKED_BADGES"); ok && v != "" {
		c.Program.TrackedBadges = strutil.SplitList(v, ";")
	}
	if v, ok := lookup("QUALIFIER_DROP_COLUMNS"); ok {
		c.Output.DropColumns = strutil.SplitList(v, ",")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"QUALIFIER_PROGRAM_YEAR", &c.Program.Year},
		{"QUALIFIER_FETCH_ATTEMPTS", &c.Fetch.Attempts},
		{"QUALIFIER_WORKERS", &c.Fetch.Workers},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.key, err)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"QUALIFIER_RETRY_DELAY", &c.Fetch.RetryDelay},
		{"QUALIFIER_FETCH_TIMEOUT", &c.Fetch.Timeout},
		{"QUALIFIER_COURTESY_INTERVAL", &c.Fetch.CourtesyInterval},
		{"QUALIFIER_CACHE_TTL", &c.Fetch.CacheTTL},
	}
	for _, e := range durations {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.key, err)
		}
		*e.dst = d
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Program.Year <= 0:
		return fmt.Errorf("program year must be positive")
	case c.Fetch.Attempts <= 0:
		return fmt.Errorf("fetch attempts must be positive")
	case c.Fetch.Workers <= 0:
		return fmt.Errorf("fetch workers must be positive")
	case c.Fetch.Timeout <= 0:
		return fmt.Errorf("fetch timeout must be positive")
	case c.Fetch.RetryDelay < 0, c.Fetch.CourtesyInterval < 0:
		return fmt.Errorf("fetch delays must not be negative")
	}
	required := map[string]string{
		"name":          c.Columns.Name,
		"email":         c.Columns.Email,
		"program_email": c.Columns.ProgramEmail,
		"phone":         c.Columns.Phone,
		"profile_url":   c.Columns.ProfileURL,
	}
	for key, col := range required {
		if strings.TrimSpace(col) == "" {
			return fmt.Errorf("column %s must be configured", key)
		}
	}
	return nil
}
