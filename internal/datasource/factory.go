package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// OpenF1SourceType is the OpenF1 REST API.
	OpenF1SourceType SourceType = "openf1"
)

// NewSessionProvider creates the configured provider, wrapped in a session
// cache when cache_ttl_minutes is positive.
func NewSessionProvider(cfg config.DataSourceConfig, logger *logrus.Logger) (SessionProvider, error) {
	httpCfg := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = cfg.Timeout()
	}
	if cfg.MaxRetries > 0 {
		httpCfg.MaxRetries = cfg.MaxRetries
	}
	if cfg.RateLimit > 0 {
		httpCfg.RateLimit = cfg.RateLimit
	}
	if cfg.CircuitBreakerMax > 0 {
		httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
	}

	var provider SessionProvider
	switch SourceType(cfg.Name) {
	case OpenF1SourceType, "":
		httpCfg.Name = string(OpenF1SourceType)
		provider = NewOpenF1Client(NewRateLimitedHTTPClient(httpCfg, logger), cfg.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Name)
	}

	if cfg.CacheTTLMinutes > 0 {
		provider = NewCachedProvider(provider, NewSessionCache(cfg.CacheTTL()), logger)
	}
	return provider, nil
}
