// internal/workers/shopping-assistant/retrieve-products/config.go
package retrieveproducts

import (
	"shopping-assistant/internal/common/config"
	"shopping-assistant/internal/common/retry"
)

const DefaultTopK = 4

type Config struct {
	TopK  int
	Retry retry.Policy
}

func LoadConfig(cfg config.PipelineConfig) *Config {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Config{
		TopK: topK,
		Retry: retry.Policy{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: config.GetDuration(cfg.InitialBackoff),
			MaxBackoff:     config.GetDuration(cfg.MaxBackoff),
		},
	}
}
