// internal/workers/shopping-assistant/room-recommendation/handler.go
package roomrecommendation

import (
	"context"
	"strings"
	"time"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/common/metrics"
	"shopping-assistant/internal/common/observability"
	"shopping-assistant/internal/models"
	composequery "shopping-assistant/internal/workers/shopping-assistant/compose-query"
	describeroom "shopping-assistant/internal/workers/shopping-assistant/describe-room"
	retrieveproducts "shopping-assistant/internal/workers/shopping-assistant/retrieve-products"
	synthesizerecommendation "shopping-assistant/internal/workers/shopping-assistant/synthesize-recommendation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TaskType = "room-recommendation"

// Dependencies are the long-lived collaborators shared by every run.
type Dependencies struct {
	Model    describeroom.GenerativeModel
	Embedder retrieveproducts.EmbeddingService
	Index    retrieveproducts.VectorIndex
}

type Handler struct {
	config       *Config
	describer    *describeroom.Handler
	retriever    *retrieveproducts.Handler
	synthesizer  *synthesizerecommendation.Handler
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler wires the stage handlers. obs may be nil.
func NewHandler(config *Config, deps Dependencies, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		describer:    describeroom.NewHandler(config.Describe, deps.Model, log),
		retriever:    retrieveproducts.NewHandler(config.Retrieve, deps.Embedder, deps.Index, log),
		synthesizer:  synthesizerecommendation.NewHandler(config.Synthesize, deps.Model, log),
		obs:          obs,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// run is the state of one pipeline execution.
type run struct {
	trace   Trace
	pending int
}

// Execute runs Start -> DescribingRoom -> ComposingQuery -> Retrieving ->
// Synthesizing -> Done. The first failing stage ends the run with a
// *errors.StageError and no partial output.
func (h *Handler) Execute(ctx context.Context, req *Request) (*Output, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, h.config.RequestTimeout)
	defer cancel()

	ctx, span := h.obs.Tracer().Start(ctx, "pipeline."+TaskType)

	r := &run{trace: Trace{apperrors.StageStart}, pending: h.config.Weights.Total()}
	out, err := h.execute(ctx, r, req)

	observability.EndSpan(span, err)
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(apperrors.CodeOf(err)))
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	metrics.PipelineDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	h.obs.RecordRequest(ctx, time.Since(started), outcome)

	fields := map[string]interface{}{
		"trace":      r.trace.String(),
		"durationMs": time.Since(started).Milliseconds(),
	}
	if err != nil {
		fields["failedStage"] = string(r.trace.Last())
		fields["errorCode"] = string(apperrors.CodeOf(err))
		fields["error"] = err.Error()
		h.logger.Error("room recommendation failed", fields)
		return nil, err
	}
	h.logger.Info("room recommendation completed", fields)
	return out, nil
}

func (h *Handler) execute(ctx context.Context, r *run, req *Request) (*Output, error) {
	w := h.config.Weights

	var description string
	if err := h.stage(ctx, r, apperrors.StageDescribingRoom, w.Describe, func(ctx context.Context) error {
		out, err := h.describer.Execute(ctx, &describeroom.Input{Image: req.Image})
		if err != nil {
			return err
		}
		description = out.Description
		return nil
	}); err != nil {
		return nil, err
	}

	var query string
	_ = h.stage(ctx, r, apperrors.StageComposingQuery, 0, func(context.Context) error {
		query = composequery.Compose(req.Message, description)
		return nil
	})

	var docs []models.RetrievedDocument
	if err := h.stage(ctx, r, apperrors.StageRetrieving, w.Retrieve, func(ctx context.Context) error {
		out, err := h.retriever.Execute(ctx, &retrieveproducts.Input{Query: query})
		if err != nil {
			return err
		}
		docs = out.Documents
		return nil
	}); err != nil {
		return nil, err
	}

	var content string
	if err := h.stage(ctx, r, apperrors.StageSynthesizing, w.Synthesize, func(ctx context.Context) error {
		out, err := h.synthesizer.Execute(ctx, &synthesizerecommendation.Input{
			Message:     req.Message,
			Description: description,
			Documents:   docs,
		})
		if err != nil {
			return err
		}
		content = out.Content
		return nil
	}); err != nil {
		return nil, err
	}

	r.trace = append(r.trace, apperrors.StageDone)
	return &Output{
		Recommendation: models.Recommendation{Content: content},
		Trace:          r.trace,
		DocumentCount:  len(docs),
	}, nil
}

// stage enters the given state and runs fn. A positive weight marks an
// external stage: fn gets its own slice of the remaining deadline, and the
// stage is not started at all when that slice is below MinStageBudget.
func (h *Handler) stage(ctx context.Context, r *run, stage apperrors.Stage, weight int, fn func(context.Context) error) error {
	r.trace = append(r.trace, stage)

	if weight > 0 {
		remaining := timeLeft(ctx)
		budget := stageBudget(remaining, weight, r.pending)
		r.pending -= weight
		if budget <= 0 || budget < h.config.MinStageBudget {
			err := apperrors.NewTimeoutError(stage, remaining)
			metrics.StageFailures.WithLabelValues(string(stage), string(err.Code)).Inc()
			return apperrors.NewStageError(stage, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	ctx, span := h.obs.Tracer().Start(ctx, "stage."+string(stage), trace.WithAttributes(
		attribute.Int("stage.weight", weight),
	))
	started := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
	observability.EndSpan(span, err)

	if err != nil {
		metrics.StageFailures.WithLabelValues(string(stage), string(apperrors.CodeOf(err))).Inc()
		return apperrors.NewStageError(stage, err)
	}
	return nil
}

// Handle runs the pipeline as a Camunda job. Job variables carry the same
// message and image fields as the HTTP body.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()
	req, err := ParseRequest([]byte(job.Variables))
	if err == nil {
		var out *Output
		out, err = h.Execute(ctx, req)
		if err == nil {
			h.completeJob(ctx, client, job, out)
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, out *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(map[string]interface{}{
			"content":       out.Recommendation.Content,
			"documentCount": out.DocumentCount,
		})
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
