// Package config loads service settings from a YAML file, NAJDENO_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "najdeno.yaml"

// Config is the full service configuration.
type Config struct {
	Addr              string        `yaml:"addr"`
	DB                string        `yaml:"db"`
	LogFile           string        `yaml:"logFile"`
	AdminUser         string        `yaml:"adminUser"`
	StoreTimeout      time.Duration `yaml:"storeTimeout"`
	RetentionMonths   int           `yaml:"retentionMonths"`
	SweepInterval     time.Duration `yaml:"sweepInterval"`
	ReconcileInterval time.Duration `yaml:"reconcileInterval"`
	Matching          Matching      `yaml:"matching"`
	Notify            Notify        `yaml:"notify"`
	Redis             Redis         `yaml:"redis"`
	Metrics           Metrics       `yaml:"metrics"`
}

// Matching holds the date-order rule for each place a pass is started.
type Matching struct {
	DateOrderOnReport   bool `yaml:"dateOrderOnReport"`
	DateOrderOnFound    bool `yaml:"dateOrderOnFound"`
	DateOrderOnSchedule bool `yaml:"dateOrderOnSchedule"`
}

// Notify selects and configures the notification transport.
type Notify struct {
	Transport   string        `yaml:"transport"`
	QueueSize   int           `yaml:"queueSize"`
	SendTimeout time.Duration `yaml:"sendTimeout"`
	SMTP        SMTP          `yaml:"smtp"`
	AMQP        AMQP          `yaml:"amqp"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AMQP struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routingKey"`
}

// Redis configures the job lease. An empty Addr disables it.
type Redis struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	LockPrefix string        `yaml:"lockPrefix"`
	LockTTL    time.Duration `yaml:"lockTTL"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DB:                "najdeno.sqlite3",
		AdminUser:         "Admin",
		StoreTimeout:      5 * time.Second,
		RetentionMonths:   6,
		SweepInterval:     24 * time.Hour,
		ReconcileInterval: time.Hour,
		Matching: Matching{
			DateOrderOnReport:   true,
			DateOrderOnFound:    false,
			DateOrderOnSchedule: true,
		},
		Notify: Notify{
			Transport:   "log",
			QueueSize:   100,
			SendTimeout: 10 * time.Second,
			SMTP:        SMTP{Port: 587},
			AMQP:        AMQP{Exchange: "najdeno", RoutingKey: "notify.match"},
		},
		Redis: Redis{
			LockPrefix: "najdeno:lock",
			LockTTL:    10 * time.Minute,
		},
		Metrics: Metrics{Enabled: true},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is an error only when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("NAJDENO_ADDR", &c.Addr)
	str("NAJDENO_DB", &c.DB)
	str("NAJDENO_LOG_FILE", &c.LogFile)
	str("NAJDENO_ADMIN_USER", &c.AdminUser)
	dur("NAJDENO_STORE_TIMEOUT", &c.StoreTimeout)
	num("NAJDENO_RETENTION_MONTHS", &c.RetentionMonths)
	dur("NAJDENO_SWEEP_INTERVAL", &c.SweepInterval)
	dur("NAJDENO_RECONCILE_INTERVAL", &c.ReconcileInterval)
	flag("NAJDENO_DATE_ORDER_ON_REPORT", &c.Matching.DateOrderOnReport)
	flag("NAJDENO_DATE_ORDER_ON_FOUND", &c.Matching.DateOrderOnFound)
	flag("NAJDENO_DATE_ORDER_ON_SCHEDULE", &c.Matching.DateOrderOnSchedule)
	str("NAJDENO_NOTIFY_TRANSPORT", &c.Notify.Transport)
	num("NAJDENO_NOTIFY_QUEUE_SIZE", &c.Notify.QueueSize)
	dur("NAJDENO_NOTIFY_SEND_TIMEOUT", &c.Notify.SendTimeout)
	str("NAJDENO_SMTP_HOST", &c.Notify.SMTP.Host)
	num("NAJDENO_SMTP_PORT", &c.Notify.SMTP.Port)
	str("NAJDENO_SMTP_USERNAME", &c.Notify.SMTP.Username)
	str("NAJDENO_SMTP_PASSWORD", &c.Notify.SMTP.Password)
	str("NAJDENO_SMTP_FROM", &c.Notify.SMTP.From)
	str("NAJDENO_AMQP_URL", &c.Notify.AMQP.URL)
	str("NAJDENO_AMQP_EXCHANGE", &c.Notify.AMQP.Exchange)
	str("NAJDENO_AMQP_ROUTING_KEY", &c.Notify.AMQP.RoutingKey)
	str("NAJDENO_REDIS_ADDR", &c.Redis.Addr)
	str("NAJDENO_REDIS_PASSWORD", &c.Redis.Password)
	str("NAJDENO_REDIS_LOCK_PREFIX", &c.Redis.LockPrefix)
	dur("NAJDENO_REDIS_LOCK_TTL", &c.Redis.LockTTL)
	flag("NAJDENO_METRICS_ENABLED", &c.Metrics.Enabled)

	return errors.Join(errs...)
}

// NewFlagSet returns the command-line flags of the najdeno binary.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", DefaultPath, "YAML config file")
	fs.StringP("db", "d", d.DB, "SQLite database path")
	fs.StringP("addr", "a", d.Addr, "listen address")
	fs.StringP("user", "u", d.AdminUser, "admin username on first run")
	fs.StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	fs.String("notify", d.Notify.Transport, "notification transport: log, smtp or amqp")
	fs.String("redis", "", "Redis address for the job lease (default: no lease)")
	fs.Int("retention-months", d.RetentionMonths, "months a pending record stays active")
	fs.Bool("metrics", d.Metrics.Enabled, "serve Prometheus metrics on /metrics")
	return fs
}

// ApplyFlags copies the flags set on the command line into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"db":     &c.DB,
		"addr":   &c.Addr,
		"user":   &c.AdminUser,
		"log":    &c.LogFile,
		"notify": &c.Notify.Transport,
		"redis":  &c.Redis.Addr,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if fs.Changed("retention-months") {
		n, err := fs.GetInt("retention-months")
		if err != nil {
			return err
		}
		c.RetentionMonths = n
	}
	if fs.Changed("metrics") {
		b, err := fs.GetBool("metrics")
		if err != nil {
			return err
		}
		c.Metrics.Enabled = b
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("config: addr is required"))
	}
	if c.DB == "" {
		errs = append(errs, errors.New("config: db is required"))
	}
	if c.AdminUser == "" {
		errs = append(errs, errors.New("config: adminUser is required"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("config: storeTimeout must be positive"))
	}
	if c.RetentionMonths <= 0 {
		errs = append(errs, errors.New("config: retentionMonths must be positive"))
	}
	if c.SweepInterval <= 0 || c.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("config: sweepInterval and reconcileInterval must be positive"))
	}
	if c.Notify.QueueSize <= 0 {
		errs = append(errs, errors.New("config: notify.queueSize must be positive"))
	}
	if c.Notify.SendTimeout <= 0 {
		errs = append(errs, errors.New("config: notify.sendTimeout must be positive"))
	}

	switch c.Notify.Transport {
	case "log":
	case "smtp":
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.From == "" {
			errs = append(errs, errors.New("config: notify.smtp.host and notify.smtp.from are required for smtp"))
		}
		if c.Notify.SMTP.Port <= 0 || c.Notify.SMTP.Port > 65535 {
			errs = append(errs, fmt.Errorf("config: notify.smtp.port %d out of range", c.Notify.SMTP.Port))
		}
	case "amqp":
		if c.Notify.AMQP.URL == "" {
			errs = append(errs, errors.New("config: notify.amqp.url is required for amqp"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown notify.transport %q", c.Notify.Transport))
	}

	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("config: redis.lockTTL must be positive"))
	}
	return errors.Join(errs...)
}
