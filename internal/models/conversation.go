// internal/models/conversation.go
package models

// ConversationRequest is the body of a room recommendation request.
type ConversationRequest struct {
	Message string `json:"message"`
	// Image is an http(s) URL, a data: URI or a raw base64 payload.
	Image string `json:"image"`
}

// RetrievedDocument is one catalog hit returned by semantic retrieval.
type RetrievedDocument struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
	Score    float64          `json:"score"`
}

type DocumentMetadata struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Recommendation is the grounded answer. By prompt convention Content ends
// with up to three bracketed product IDs.
type Recommendation struct {
	Content string `json:"content"`
}
