// internal/workers/shopping-assistant/compose-query/handler.go
package composequery

import "fmt"

const TaskType = "compose-query"

const queryTemplate = "This is the user's request: %s Find the most relevant items for that prompt, while matching style of the room described here: %s"

// Compose builds the semantic search query from the customer's message and
// the room description. It is pure: equal inputs give equal output.
func Compose(message, description string) string {
	return fmt.Sprintf(queryTemplate, message, description)
}
