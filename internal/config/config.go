package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Checkout CheckoutConfig `json:"checkout" yaml:"checkout"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// ServerConfig.MetricsPort, when non-zero, moves /metrics to its own listener.
type ServerConfig struct {
	Host            string   `json:"host" yaml:"host"`
	Port            int      `json:"port" yaml:"port"`
	MetricsPort     int      `json:"metrics_port" yaml:"metrics_port"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver         string `json:"driver" yaml:"driver"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	User           string `json:"user" yaml:"user"`
	Password       string `json:"password" yaml:"password"`
	DBName         string `json:"dbname" yaml:"dbname"`
	SSLMode        string `json:"sslmode" yaml:"sslmode"`
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
}

type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type CheckoutConfig struct {
	Currency              string   `json:"currency" yaml:"currency"`
	TaxRate               string   `json:"tax_rate" yaml:"tax_rate"`
	ShippingFeeCents      int64    `json:"shipping_fee_cents" yaml:"shipping_fee_cents"`
	FreeShippingThreshold int64    `json:"free_shipping_threshold_cents" yaml:"free_shipping_threshold_cents"`
	PaymentTimeout        Duration `json:"payment_timeout" yaml:"payment_timeout"`
	SessionTTL            Duration `json:"session_ttl" yaml:"session_ttl"`
	SweepInterval         Duration `json:"sweep_interval" yaml:"sweep_interval"`
	CatalogConcurrency    int      `json:"catalog_concurrency" yaml:"catalog_concurrency"`
}

// StorageConfig selects the adapters behind the cart, catalog and order ports.
// "memory" keeps everything in-process and needs neither postgres nor redis.
type StorageConfig struct {
	Driver  string   `json:"driver" yaml:"driver"`
	CartTTL Duration `json:"cart_ttl" yaml:"cart_ttl"`
}

// Duration accepts "30s"-style strings in both JSON and YAML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, ShutdownTimeout: Duration{30 * time.Second}},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "disable",
			MigrationsPath: "migrations",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Checkout: CheckoutConfig{
			Currency:              "USD",
			TaxRate:               "0.08",
			ShippingFeeCents:      500,
			FreeShippingThreshold: 5000,
			PaymentTimeout:        Duration{2 * time.Minute},
			SessionTTL:            Duration{30 * time.Minute},
			SweepInterval:         Duration{15 * time.Second},
			CatalogConcurrency:    8,
		},
		Storage:  StorageConfig{Driver: "redis", CartTTL: Duration{30 * 24 * time.Hour}},
		LogLevel: "info",
	}
}

// LoadConfig reads a JSON or YAML file on top of Default(). The format is
// picked from the extension; anything that is not .yaml/.yml is JSON.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, config); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(content, config); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	var errs []error

	rate, err := c.Checkout.TaxRateDecimal()
	if err != nil {
		errs = append(errs, err)
	} else if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("checkout.tax_rate must be in [0, 1), got %s", rate))
	}

	if c.Checkout.Currency == "" {
		errs = append(errs, errors.New("checkout.currency is required"))
	}
	if c.Checkout.ShippingFeeCents < 0 || c.Checkout.FreeShippingThreshold < 0 {
		errs = append(errs, errors.New("checkout shipping amounts cannot be negative"))
	}
	if c.Checkout.PaymentTimeout.Duration <= 0 {
		errs = append(errs, errors.New("checkout.payment_timeout must be positive"))
	}
	if c.Checkout.SessionTTL.Duration <= 0 {
		errs = append(errs, errors.New("checkout.session_ttl must be positive"))
	}
	if c.Checkout.SweepInterval.Duration <= 0 {
		errs = append(errs, errors.New("checkout.sweep_interval must be positive"))
	}

	switch c.Storage.Driver {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be redis or memory, got %q", c.Storage.Driver))
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or pgx, got %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func (c *CheckoutConfig) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("checkout.tax_rate %q: %w", c.TaxRate, err)
	}
	return rate, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}
