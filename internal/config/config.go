package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the immutable application configuration. It is loaded from the
// environment once at startup and handed to components at construction; no
// component reads the environment directly.
type Config struct {
	GitHub    GitHub
	SonarQube SonarQube
	NexusIQ   NexusIQ
	Mongo     Mongo
	Dashboard Dashboard
	Runtime   Runtime
}

type GitHub struct {
	// Org is the GitHub organization whose repositories are scanned.
	Org string `env:"GITHUB_ORG"`

	// Repos is the explicit repository-name list. Empty means discover the
	// whole organization.
	Repos []string `env:"GITHUB_REPOS" envSeparator:","`

	// Token authenticates all GitHub API calls.
	Token string `env:"GITHUB_TOKEN"`

	// MaxRepos bounds org-wide discovery when Repos is empty. 0 means the
	// built-in discovery limit.
	MaxRepos int `env:"GITHUB_MAX_REPOS"`
}

type SonarQube struct {
	URL   string `env:"SONAR_URL"`
	Token string `env:"SONAR_TOKEN"`

	// ProjectKeyPrefix overrides the default "<org>_" project key prefix.
	ProjectKeyPrefix string `env:"SONAR_PROJECT_KEY_PREFIX"`
}

type NexusIQ struct {
	URL      string `env:"NEXUS_URL"`
	Username string `env:"NEXUS_USERNAME"`
	Password string `env:"NEXUS_PASSWORD"`
}

type Mongo struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DATABASE" envDefault:"repopulse"`
}

type Dashboard struct {
	// Addr is the listen address for the read-only dashboard API.
	Addr string `env:"DASHBOARD_ADDR" envDefault:":8080"`
}

type Runtime struct {
	// Interval is the scheduler cadence between cycles.
	Interval time.Duration `env:"SCAN_INTERVAL" envDefault:"30m"`

	// Concurrency bounds how many targets reconcile in parallel.
	Concurrency int `env:"SCAN_CONCURRENCY" envDefault:"5"`

	// SourceTimeout bounds each individual upstream call.
	SourceTimeout time.Duration `env:"SOURCE_TIMEOUT" envDefault:"30s"`

	// RetryLimit is the number of additional attempts after a transient
	// failure. RetryBackoff is the base delay, doubled per attempt.
	RetryLimit   int           `env:"SOURCE_RETRY_LIMIT" envDefault:"2"`
	RetryBackoff time.Duration `env:"SOURCE_RETRY_BACKOFF" envDefault:"1s"`

	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first without overriding already-set variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate normalizes list inputs and checks everything the scanner needs to
// start. Missing required configuration is a startup-fatal error, never a
// per-cycle one.
func (c *Config) Validate() error {
	c.GitHub.Repos = splitCommaList(c.GitHub.Repos)
	c.GitHub.Org = strings.TrimSpace(c.GitHub.Org)

	if c.GitHub.Org == "" {
		return errors.New("GITHUB_ORG is required")
	}
	if strings.Contains(c.GitHub.Org, "/") {
		return fmt.Errorf("GITHUB_ORG must be an organization name, got %q", c.GitHub.Org)
	}
	if c.GitHub.Token == "" {
		return errors.New("GITHUB_TOKEN is required")
	}
	if c.GitHub.MaxRepos < 0 {
		return errors.New("GITHUB_MAX_REPOS must be >= 0")
	}

	for _, pair := range []struct{ name, raw string }{
		{"SONAR_URL", c.SonarQube.URL},
		{"NEXUS_URL", c.NexusIQ.URL},
	} {
		if pair.raw == "" {
			return fmt.Errorf("%s is required", pair.name)
		}
		if _, err := url.ParseRequestURI(pair.raw); err != nil {
			return fmt.Errorf("invalid %s: %w", pair.name, err)
		}
	}
	c.SonarQube.URL = strings.TrimSuffix(c.SonarQube.URL, "/")
	c.NexusIQ.URL = strings.TrimSuffix(c.NexusIQ.URL, "/")

	if c.SonarQube.Token == "" {
		return errors.New("SONAR_TOKEN is required")
	}
	if c.NexusIQ.Username == "" || c.NexusIQ.Password == "" {
		return errors.New("NEXUS_USERNAME and NEXUS_PASSWORD are required")
	}

	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("MONGO_DATABASE must not be empty")
	}

	if c.Runtime.Interval <= 0 {
		return errors.New("SCAN_INTERVAL must be > 0")
	}
	if c.Runtime.Concurrency <= 0 {
		return errors.New("SCAN_CONCURRENCY must be >= 1")
	}
	if c.Runtime.SourceTimeout <= 0 {
		return errors.New("SOURCE_TIMEOUT must be > 0")
	}
	if c.Runtime.RetryLimit < 0 {
		return errors.New("SOURCE_RETRY_LIMIT must be >= 0")
	}
	if c.Runtime.RetryBackoff <= 0 {
		return errors.New("SOURCE_RETRY_BACKOFF must be > 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Runtime.LogLevel)) {
	case "debug", "info", "warn", "error":
		c.Runtime.LogLevel = strings.ToLower(strings.TrimSpace(c.Runtime.LogLevel))
	default:
		return fmt.Errorf("unsupported LOG_LEVEL: %s (must be one of: debug, info, warn, error)", c.Runtime.LogLevel)
	}

	return nil
}

// ProjectKeyPrefix returns the effective SonarQube project key prefix.
func (c *Config) ProjectKeyPrefix() string {
	if c.SonarQube.ProjectKeyPrefix != "" {
		return c.SonarQube.ProjectKeyPrefix
	}
	return strings.ToLower(c.GitHub.Org) + "_"
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
