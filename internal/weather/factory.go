package weather

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/config"
	"github.com/yourusername/f1-predictor/internal/datasource"
)

// NewProvider returns an OpenWeatherMap client when weather is enabled, or a
// StaticProvider answering with the default forecast.
func NewProvider(cfg config.WeatherConfig, logger *logrus.Logger) Provider {
	if !cfg.Enabled {
		return NewStaticProvider()
	}
	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.Name = "openweathermap"
	httpCfg.RateLimit = 1.0
	httpCfg.MaxRetries = 2
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = cfg.Timeout()
	}
	return NewOpenWeatherClient(datasource.NewRateLimitedHTTPClient(httpCfg, logger), cfg.BaseURL, cfg.APIKey, logger)
}
