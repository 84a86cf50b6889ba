// Package config loads the bucketpulse configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/younsl/bucketpulse/internal/models"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config mirrors bucketpulse.yaml
type Config struct {
	Region  string        `yaml:"region" validate:"required"`
	Tables  TablesConfig  `yaml:"tables"`
	Athena  AthenaConfig  `yaml:"athena"`
	Cycle   CycleConfig   `yaml:"cycle"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Metrics MetricsConfig `yaml:"metrics"`
	Store   StoreConfig   `yaml:"store"`

	// Seed data for the memory backend
	TrackedPrefixes []models.PrefixConfig `yaml:"tracked_prefixes" validate:"dive"`
	Buckets         []models.BucketInfo   `yaml:"buckets"`
}

// TablesConfig names the DynamoDB tables
type TablesConfig struct {
	Buckets             string `yaml:"buckets" validate:"required"`
	PrefixConfig        string `yaml:"prefix_config" validate:"required"`
	PrefixStatus        string `yaml:"prefix_status" validate:"required"`
	PrefixEvaluations   string `yaml:"prefix_evaluations" validate:"required"`
	Alerts              string `yaml:"alerts" validate:"required"`
	AlertsByBucketIndex string `yaml:"alerts_by_bucket_index" validate:"required"`
}

// AthenaConfig tunes query submission and polling
type AthenaConfig struct {
	Workgroup      string `yaml:"workgroup" validate:"required"`
	ResultLocation string `yaml:"result_location" validate:"omitempty,startswith=s3://"`
	Database       string `yaml:"database"` // for convention table names, empty leaves them unqualified

	PollInterval   time.Duration `yaml:"poll_interval" validate:"gt=0"`
	QueryTimeout   time.Duration `yaml:"query_timeout" validate:"gtfield=PollInterval"`
	MaxRows        int           `yaml:"max_rows" validate:"gt=0,lte=100000"`
	SubmitRatePerS float64       `yaml:"submit_rate_per_second" validate:"gt=0"`
	SubmitBurst    int           `yaml:"submit_burst" validate:"gt=0"`
}

// CycleConfig tunes the aggregation cycle
type CycleConfig struct {
	Interval             time.Duration `yaml:"interval" validate:"gt=0"`
	JournalWindowMinutes int           `yaml:"journal_window_minutes" validate:"gt=0"`
	Concurrency          int           `yaml:"concurrency" validate:"gte=1,lte=64"`
}

// AlertsConfig configures alert delivery
type AlertsConfig struct {
	TopicARN string `yaml:"topic_arn" validate:"omitempty,startswith=arn:"`
}

// MetricsConfig configures metric exposition
type MetricsConfig struct {
	Listen              string `yaml:"listen" validate:"required"`
	CloudWatchEnabled   bool   `yaml:"cloudwatch_enabled"`
	CloudWatchNamespace string `yaml:"cloudwatch_namespace"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=dynamodb memory"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Region: "us-east-1",
		Tables: TablesConfig{
			Buckets:             "bp_buckets",
			PrefixConfig:        "bp_prefix_config",
			PrefixStatus:        "bp_prefix_status",
			PrefixEvaluations:   "bp_prefix_evaluations",
			Alerts:              "bp_alerts",
			AlertsByBucketIndex: "byBucket",
		},
		Athena: AthenaConfig{
			Workgroup:      "bucket_pulse",
			PollInterval:   500 * time.Millisecond,
			QueryTimeout:   30 * time.Second,
			MaxRows:        1000,
			SubmitRatePerS: 5,
			SubmitBurst:    5,
		},
		Cycle: CycleConfig{
			Interval:             5 * time.Minute,
			JournalWindowMinutes: 60,
			Concurrency:          1,
		},
		Metrics: MetricsConfig{
			Listen:              ":9102",
			CloudWatchNamespace: "BucketPulse",
		},
		Store: StoreConfig{Backend: BackendDynamoDB},
	}
}

// Load reads path (if non-empty), applies env overrides, normalizes and validates
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envOverrides maps environment variables onto config fields
var envOverrides = map[string]func(*Config, string){
	"AWS_REGION":                    func(c *Config, v string) { c.Region = v },
	"BUCKETS_TABLE_NAME":            func(c *Config, v string) { c.Tables.Buckets = v },
	"PREFIX_CONFIG_TABLE_NAME":      func(c *Config, v string) { c.Tables.PrefixConfig = v },
	"PREFIX_STATUS_TABLE_NAME":      func(c *Config, v string) { c.Tables.PrefixStatus = v },
	"PREFIX_EVALUATIONS_TABLE_NAME": func(c *Config, v string) { c.Tables.PrefixEvaluations = v },
	"ALERTS_TABLE_NAME":             func(c *Config, v string) { c.Tables.Alerts = v },
	"ALERTS_TOPIC_ARN":              func(c *Config, v string) { c.Alerts.TopicARN = v },
	"ATHENA_WORKGROUP":              func(c *Config, v string) { c.Athena.Workgroup = v },
	"ATHENA_RESULT_LOCATION":        func(c *Config, v string) { c.Athena.ResultLocation = v },
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	for name, set := range envOverrides {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			set(cfg, strings.TrimSpace(v))
		}
	}
}

func normalize(cfg *Config) {
	def := Default()
	if cfg.Region == "" {
		cfg.Region = def.Region
	}
	if cfg.Athena.PollInterval <= 0 {
		cfg.Athena.PollInterval = def.Athena.PollInterval
	}
	if cfg.Athena.QueryTimeout <= 0 {
		cfg.Athena.QueryTimeout = def.Athena.QueryTimeout
	}
	if cfg.Athena.MaxRows <= 0 {
		cfg.Athena.MaxRows = def.Athena.MaxRows
	}
	if cfg.Athena.SubmitRatePerS <= 0 {
		cfg.Athena.SubmitRatePerS = def.Athena.SubmitRatePerS
	}
	if cfg.Athena.SubmitBurst <= 0 {
		cfg.Athena.SubmitBurst = def.Athena.SubmitBurst
	}
	if cfg.Cycle.Interval <= 0 {
		cfg.Cycle.Interval = def.Cycle.Interval
	}
	if cfg.Cycle.JournalWindowMinutes <= 0 {
		cfg.Cycle.JournalWindowMinutes = def.Cycle.JournalWindowMinutes
	}
	if cfg.Cycle.Concurrency <= 0 {
		cfg.Cycle.Concurrency = def.Cycle.Concurrency
	}
	if cfg.Metrics.CloudWatchNamespace == "" {
		cfg.Metrics.CloudWatchNamespace = def.Metrics.CloudWatchNamespace
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	for i := range cfg.Buckets {
		if cfg.Buckets[i].Region == "" {
			cfg.Buckets[i].Region = cfg.Region
		}
		if cfg.Buckets[i].Status == "" {
			cfg.Buckets[i].Status = models.StatusUnknown
		}
	}
}

var validate = validator.New()

// Validate checks field constraints and threshold ordering of seeded prefixes
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, p := range c.TrackedPrefixes {
		if p.BucketName == "" {
			return fmt.Errorf("invalid config: tracked prefix %q has no bucket", p.Prefix)
		}
		if p.FreshnessWarningThresholdMinutes > p.FreshnessCriticalThresholdMinutes {
			return fmt.Errorf("invalid config: %s warning threshold %dm exceeds critical %dm",
				p.Key(), p.FreshnessWarningThresholdMinutes, p.FreshnessCriticalThresholdMinutes)
		}
	}
	return nil
}
