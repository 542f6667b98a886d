// internal/workers/shopping-assistant/describe-room/models.go
package describeroom

import "shopping-assistant/internal/common/genai"

type Input struct {
	Image *genai.Image
}

type Output struct {
	Description string `json:"description"`
}
