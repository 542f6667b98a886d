// internal/workers/shopping-assistant/synthesize-recommendation/handler.go
package synthesizerecommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/genai"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/metrics"
	"shopping-assistant/internal/common/retry"
	"shopping-assistant/internal/models"
)

const TaskType = "synthesize-recommendation"

// NoProductsLine grounds the model when retrieval found nothing.
const NoProductsLine = "No relevant items were found in the catalog for this request."

var ErrEmptyRecommendation = errors.New("model returned an empty recommendation")

type GenerativeModel interface {
	Generate(ctx context.Context, prompt string, image *genai.Image) (string, error)
}

type Handler struct {
	config *Config
	model  GenerativeModel
	logger logger.Logger
}

func NewHandler(config *Config, model GenerativeModel, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		model:  model,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	prompt := BuildPrompt(input)

	var content string
	err := retry.Do(ctx, h.config.Retry, func(ctx context.Context) error {
		text, err := h.model.Generate(ctx, prompt, nil)
		if err != nil {
			if !genai.IsRetryable(err) {
				return &retry.Permanent{Err: err}
			}
			return err
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyRecommendation
		}
		content = text
		return nil
	}, func(attempt int, err error) {
		metrics.UpstreamRetries.WithLabelValues(TaskType).Inc()
		h.logger.Warn("retrying recommendation synthesis", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	})
	if err != nil {
		return nil, apperrors.NewUpstreamModelError(TaskType, err)
	}

	h.logger.Info("recommendation synthesized", map[string]interface{}{
		"documentCount": len(input.Documents),
		"contentLength": len(content),
	})
	return &Output{Content: content}, nil
}

// BuildPrompt assembles the grounded design prompt.
func BuildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, "You are an interior designer that works for Online Boutique. "+
		"You are tasked with providing recommendations to a customer on what they should add to a given room from our catalog.")

	parts = append(parts, "\nThis is the description of the room:")
	parts = append(parts, input.Description)

	if len(input.Documents) == 0 {
		parts = append(parts, "\n"+NoProductsLine)
	} else {
		parts = append(parts, "\nHere is a list of products that are relevant to it:")
		for i, d := range input.Documents {
			parts = append(parts, formatDocument(i+1, d))
		}
	}

	parts = append(parts, "\nSpecifically, this is what the customer has asked for, see if you can accommodate it:")
	parts = append(parts, input.Message)

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Start by repeating a brief description of the room's design to the customer, then provide your recommendations.")
	parts = append(parts, "- Only recommend products from the list above. Never invent a product.")
	parts = append(parts, "- If none of the products seem relevant, say so instead of recommending something else.")
	parts = append(parts, "- At the end of the response, add a list of the IDs of the relevant products in the following format for the top 3 results, most relevant first: [<first product ID>], [<second product ID>], [<third product ID>]")

	return strings.Join(parts, "\n")
}

func formatDocument(n int, d models.RetrievedDocument) string {
	name := d.Metadata.Name
	if name == "" {
		name = "(unnamed)"
	}
	line := fmt.Sprintf("%d. ID: %s | Name: %s", n, d.ID, name)
	if len(d.Metadata.Categories) > 0 {
		line += " | Categories: " + strings.Join(d.Metadata.Categories, ", ")
	}
	return line + " | Description: " + strings.TrimSpace(d.Content)
}
