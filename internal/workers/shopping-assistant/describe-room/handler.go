// internal/workers/shopping-assistant/describe-room/handler.go
package describeroom

import (
	"context"
	"errors"
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/genai"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/metrics"
	"shopping-assistant/internal/common/retry"
)

const TaskType = "describe-room"

// Prompt is the persona instruction sent with the room photo.
const Prompt = "You are a professional interior designer, give me a detailed description of the style of the room in this image"

var ErrEmptyDescription = errors.New("model returned an empty room description")

// GenerativeModel produces text from a prompt and an optional image.
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

// Execute asks the vision model to describe the room. ctx carries the
// stage's deadline; retries never outlive it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Image == nil {
		return nil, apperrors.NewValidationError("image is required")
	}

	var description string
	err := retry.Do(ctx, h.config.Retry, func(ctx context.Context) error {
		text, err := h.model.Generate(ctx, Prompt, input.Image)
		if err != nil {
			if !genai.IsRetryable(err) {
				return &retry.Permanent{Err: err}
			}
			return err
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyDescription
		}
		description = text
		return nil
	}, func(attempt int, err error) {
		metrics.UpstreamRetries.WithLabelValues(TaskType).Inc()
		h.logger.Warn("retrying room description", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	})
	if err != nil {
		return nil, apperrors.NewUpstreamModelError(TaskType, err)
	}

	h.logger.Debug("room described", map[string]interface{}{
		"descriptionLength": len(description),
	})
	return &Output{Description: description}, nil
}
