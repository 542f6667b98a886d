// internal/workers/shopping-assistant/retrieve-products/models.go
package retrieveproducts

import "shopping-assistant/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	// Documents holds at most TopK entries, highest score first. It may be empty.
	Documents []models.RetrievedDocument `json:"documents"`
}
