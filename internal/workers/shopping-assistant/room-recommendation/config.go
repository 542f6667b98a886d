// internal/workers/shopping-assistant/room-recommendation/config.go
package roomrecommendation

import (
	"time"

	"shopping-assistant/internal/common/config"
	describeroom "shopping-assistant/internal/workers/shopping-assistant/describe-room"
	retrieveproducts "shopping-assistant/internal/workers/shopping-assistant/retrieve-products"
	synthesizerecommendation "shopping-assistant/internal/workers/shopping-assistant/synthesize-recommendation"
)

type Config struct {
	// RequestTimeout is the single deadline shared by every stage of a run.
	RequestTimeout time.Duration
	// MinStageBudget is the smallest slice a stage may start with.
	MinStageBudget time.Duration
	Weights        Weights

	Describe   *describeroom.Config
	Retrieve   *retrieveproducts.Config
	Synthesize *synthesizerecommendation.Config
}

// Weights split the remaining deadline between the external stages.
type Weights struct {
	Describe   int
	Retrieve   int
	Synthesize int
}

func (w Weights) Total() int {
	return w.Describe + w.Retrieve + w.Synthesize
}

func LoadConfig(cfg config.PipelineConfig) *Config {
	return &Config{
		RequestTimeout: config.GetDuration(cfg.RequestTimeout),
		MinStageBudget: config.GetDuration(cfg.MinStageBudget),
		Weights: Weights{
			Describe:   cfg.StageWeights.Describe,
			Retrieve:   cfg.StageWeights.Retrieve,
			Synthesize: cfg.StageWeights.Synthesize,
		},
		Describe:   describeroom.LoadConfig(cfg),
		Retrieve:   retrieveproducts.LoadConfig(cfg),
		Synthesize: synthesizerecommendation.LoadConfig(cfg),
	}
}
