// internal/workers/shopping-assistant/room-recommendation/models.go
package roomrecommendation

import (
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/genai"
	"shopping-assistant/internal/models"
)

// Request is a validated conversation request.
type Request struct {
	Message string
	Image   *genai.Image
}

type Output struct {
	Recommendation models.Recommendation
	Trace          Trace
	DocumentCount  int
}

// Trace lists the states a run entered, in order.
type Trace []apperrors.Stage

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

// Last returns the most recent state, or Start for an empty trace.
func (t Trace) Last() apperrors.Stage {
	if len(t) == 0 {
		return apperrors.StageStart
	}
	return t[len(t)-1]
}
