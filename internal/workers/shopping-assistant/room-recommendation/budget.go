// internal/workers/shopping-assistant/room-recommendation/budget.go
package roomrecommendation

import (
	"context"
	"math"
	"time"
)

// stageBudget gives a stage of the given weight its share of remaining,
// where pending is the summed weight of this stage and every later one.
func stageBudget(remaining time.Duration, weight, pending int) time.Duration {
	if remaining <= 0 || weight <= 0 || pending <= 0 {
		return 0
	}
	if weight >= pending {
		return remaining
	}
	return time.Duration(float64(remaining) * float64(weight) / float64(pending))
}

func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return time.Duration(math.MaxInt64)
	}
	return time.Until(deadline)
}
