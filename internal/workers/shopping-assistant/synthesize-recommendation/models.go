// internal/workers/shopping-assistant/synthesize-recommendation/models.go
package synthesizerecommendation

import "shopping-assistant/internal/models"

type Input struct {
	Message     string
	Description string
	Documents   []models.RetrievedDocument
}

type Output struct {
	Content string `json:"content"`
}
