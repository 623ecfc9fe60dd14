package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig holds the tax and shipping policy. Decimal amounts are
// configured as strings to avoid float rounding.
type PricingConfig struct {
	TaxRate          string `default:"0.08" usage:"Sales tax rate applied to the subtotal" flag:"tax-rate"`
	FreeShippingOver string `default:"100" usage:"Subtotal at or above which shipping is free" flag:"free-shipping-over"`
	FlatShipping     string `default:"10" usage:"Flat shipping cost below the free threshold" flag:"flat-shipping"`
}

// Pricing parses the configured policy into domain values.
func (c PricingConfig) Pricing() (order.Pricing, error) {
	taxRate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse tax rate")
	}
	freeOver, err := decimal.NewFromString(c.FreeShippingOver)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse free shipping threshold")
	}
	flat, err := decimal.NewFromString(c.FlatShipping)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse flat shipping cost")
	}
	return order.Pricing{
		TaxRate:          taxRate,
		FreeShippingOver: freeOver,
		FlatShipping:     flat,
	}, nil
}

// CheckoutConfig controls discount policy at checkout.
type CheckoutConfig struct {
	CapFixedToBase bool `default:"true" usage:"Cap fixed discounts at the purchase amount" flag:"cap-fixed-to-base"`
	LenientCoupon  bool `default:"true" usage:"Proceed without discount when an inline checkout code fails" flag:"lenient-coupon"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/fashion-store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
