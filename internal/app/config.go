// Package app holds the configuration shared by the back office binaries.
package app

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain/billing"
)

// Config holds the complete application configuration, loadable from
// environment variables (BOOKSHOP_ prefix) or YAML config files.
type Config struct {
	DatabaseURL string `usage:"PostgreSQL connection URL (BOOKSHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	TaxRate     string `default:"0.10" usage:"Bill tax rate as a decimal fraction, e.g. 0.10 for 10%" flag:"tax-rate"`
	Seed        SeedConfig
	Ingest      IngestConfig
}

// SeedConfig controls the seed-db tool.
type SeedConfig struct {
	File string `default:"" usage:"Path to a seed JSON file; empty uses the embedded fixture" flag:"seed-file"`
}

// IngestConfig controls the catalog-ingest tool.
type IngestConfig struct {
	DataDir   string `default:"data" usage:"Directory containing itemfeedN.gz supplier files" flag:"data-dir"`
	BatchSize int    `default:"500" usage:"Items per upsert batch" flag:"batch-size"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKSHOP",
		Files:     []string{"config.yaml", "/etc/bookshop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BOOKSHOP_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.BillingConfig(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BillingConfig parses the configured tax rate into billing engine settings.
func (c *Config) BillingConfig() (billing.Config, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return billing.Config{}, errors.Wrapf(err, "parse tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() {
		return billing.Config{}, errors.Errorf("tax rate %s must not be negative", rate)
	}
	return billing.Config{TaxRate: rate}, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL to the BOOKSHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}
