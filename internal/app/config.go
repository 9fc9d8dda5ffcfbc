package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (TOKO_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (TOKO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Shipping    ShippingConfig
	Midtrans    MidtransConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// ShippingConfig points at the external shipping-rate provider.
type ShippingConfig struct {
	BaseURL    string        `usage:"Cost-calculation API root" flag:"shipping-base-url"`
	APIKey     string        `usage:"Cost-calculation API key" flag:"shipping-api-key"`
	GeoBaseURL string        `default:"https://rajaongkir.komerce.id/api/v1" usage:"Destination lookup API root" flag:"shipping-geo-base-url"`
	GeoAPIKey  string        `usage:"Destination lookup API key" flag:"shipping-geo-api-key"`
	OriginID   string        `default:"5296" usage:"Warehouse origin destination id"`
	Timeout    time.Duration `default:"10s" usage:"Shipping provider call timeout"`
}

// MidtransConfig points at the payment gateway's Snap API.
type MidtransConfig struct {
	SnapURL         string        `default:"https://app.sandbox.midtrans.com/snap/v1" usage:"Snap API root" flag:"midtrans-snap-url"`
	ServerKey       string        `usage:"Gateway server key (TOKO_MIDTRANS_SERVER_KEY)" flag:"midtrans-server-key"`
	VerifySignature bool          `default:"true" usage:"Reject webhook deliveries with a bad signature" flag:"midtrans-verify-signature"`
	Timeout         time.Duration `default:"15s" usage:"Gateway call timeout"`
}

// RateLimitConfig controls the per-client rate limiter.
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
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TOKO",
		Files:     []string{"config.yaml", "/etc/toko/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set TOKO_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT to the TOKO_-prefixed
// configuration.
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
