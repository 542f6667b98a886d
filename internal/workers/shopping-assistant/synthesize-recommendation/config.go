// internal/workers/shopping-assistant/synthesize-recommendation/config.go
package synthesizerecommendation

import (
	"shopping-assistant/internal/common/config"
	"shopping-assistant/internal/common/retry"
)

type Config struct {
	Retry retry.Policy
}

func LoadConfig(cfg config.PipelineConfig) *Config {
	return &Config{
		Retry: retry.Policy{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: config.GetDuration(cfg.InitialBackoff),
			MaxBackoff:     config.GetDuration(cfg.MaxBackoff),
		},
	}
}
