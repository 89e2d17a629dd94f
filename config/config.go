// config/config.go
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded once at startup from the environment (after godotenv).
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":5300"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9300"`

	// Shared secret the gateway presents on every request
	ServiceToken   string `envconfig:"KARMA_SERVICE_TOKEN" required:"true"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// External collaborators
	TokenIssuerURL   string `envconfig:"TOKEN_ISSUER_URL"`
	TokenIssuerToken string `envconfig:"TOKEN_ISSUER_TOKEN"`
	ProfileSyncURL   string `envconfig:"PROFILE_SYNC_URL"`

	// Caches are read-through with these staleness bounds
	StatsCacheTTL  time.Duration `envconfig:"STATS_CACHE_TTL" default:"15s"`
	LeaderboardTTL time.Duration `envconfig:"LEADERBOARD_TTL" default:"30s"`

	// Redemption behaviour
	RedemptionExpiry   time.Duration `envconfig:"REDEMPTION_EXPIRY" default:"72h"`
	RedeemMaxRetries   int           `envconfig:"REDEEM_MAX_RETRIES" default:"3"`
	RedeemRetryBackoff time.Duration `envconfig:"REDEEM_RETRY_BACKOFF" default:"50ms"`

	// Worker cadence
	TokenIssuerInterval time.Duration `envconfig:"TOKEN_ISSUER_INTERVAL" default:"15s"`
	ProfileSyncInterval time.Duration `envconfig:"PROFILE_SYNC_INTERVAL" default:"60s"`
	TokenIssuerMaxTries int           `envconfig:"TOKEN_ISSUER_MAX_TRIES" default:"10"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
