package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SCARF_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SCARF_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Stripe      StripeConfig
	AusPost     AusPostConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StripeConfig holds the payment gateway credentials.
type StripeConfig struct {
	SecretKey string `usage:"Stripe secret API key (SCARF_STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
}

// AusPostConfig holds the shipping rate gateway settings.
type AusPostConfig struct {
	APIKey       string        `usage:"Australia Post API key (SCARF_AUSPOST_API_KEY)" flag:"auspost-api-key"`
	BaseURL      string        `default:"" usage:"Override for the Australia Post API base URL" flag:"auspost-base-url"`
	FromPostcode string        `default:"2077" usage:"Origin postcode for postage quotes" flag:"auspost-from-postcode"`
	Timeout      time.Duration `default:"10s" usage:"Timeout for postage quote requests" flag:"auspost-timeout"`
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

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform defaults. Gateway credentials are validated here so a
// misconfigured deployment fails at startup instead of on the first order.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SCARF",
		Files:     []string{"config.yaml", "/etc/scarf/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SCARF_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("Stripe secret key is required: set SCARF_STRIPE_SECRET_KEY")
	}
	if cfg.AusPost.APIKey == "" {
		return nil, errors.New("Australia Post API key is required: set SCARF_AUSPOST_API_KEY")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SCARF_-prefixed configuration.
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
