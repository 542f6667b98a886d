// internal/workers/shopping-assistant/retrieve-products/handler.go
package retrieveproducts

import (
	"context"
	"sort"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/genai"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/metrics"
	"shopping-assistant/internal/common/retry"
	"shopping-assistant/internal/common/vectorstore"
	"shopping-assistant/internal/models"
)

const TaskType = "retrieve-products"

type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error)
}

type Handler struct {
	config   *Config
	embedder EmbeddingService
	index    VectorIndex
	logger   logger.Logger
}

func NewHandler(config *Config, embedder EmbeddingService, index VectorIndex, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		embedder: embedder,
		index:    index,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute embeds the query and returns its nearest catalog documents. An
// empty result is not an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var vector []float32
	err := retry.Do(ctx, h.config.Retry, func(ctx context.Context) error {
		v, err := h.embedder.Embed(ctx, input.Query)
		if err != nil {
			if !genai.IsRetryable(err) {
				return &retry.Permanent{Err: err}
			}
			return err
		}
		vector = v
		return nil
	}, h.onRetry("embed"))
	if err != nil {
		return nil, apperrors.NewRetrievalError("embed", err)
	}

	var hits []models.RetrievedDocument
	err = retry.Do(ctx, h.config.Retry, func(ctx context.Context) error {
		docs, err := h.index.Query(ctx, vector, h.config.TopK)
		if err != nil {
			if !vectorstore.IsTransient(err) {
				return &retry.Permanent{Err: err}
			}
			return err
		}
		hits = docs
		return nil
	}, h.onRetry("vector_query"))
	if err != nil {
		return nil, apperrors.NewRetrievalError("vector_query", err)
	}

	docs := rank(hits, h.config.TopK)
	metrics.RetrievedDocuments.Observe(float64(len(docs)))
	h.logger.Info("products retrieved", map[string]interface{}{
		"documentCount": len(docs),
		"topK":          h.config.TopK,
	})

	return &Output{Documents: docs}, nil
}

func (h *Handler) onRetry(op string) retry.OnRetry {
	return func(attempt int, err error) {
		metrics.UpstreamRetries.WithLabelValues(TaskType).Inc()
		h.logger.Warn("retrying retrieval call", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
			"error":     err.Error(),
		})
	}
}

// rank copies hits, orders them by descending score (index order breaks
// ties) and keeps at most k.
func rank(hits []models.RetrievedDocument, k int) []models.RetrievedDocument {
	docs := make([]models.RetrievedDocument, len(hits))
	copy(docs, hits)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}
