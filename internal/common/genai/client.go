// Package genai is a client for the Gemini generateContent and embedContent
// REST endpoints.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopping-assistant/internal/common/config"
	httpx "shopping-assistant/internal/common/http"
	"shopping-assistant/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	maxResponseBody = 10 * 1024 * 1024
	maxImageBytes   = 20 * 1024 * 1024
)

var (
	ErrEmptyResponse  = errors.New("model returned no content")
	ErrEmptyEmbedding = errors.New("model returned an empty embedding")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("genai api status %d", e.StatusCode)
	}
	return fmt.Sprintf("genai api status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether repeating the call could succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, httpx.ErrCircuitOpen) || errors.Is(err, ErrInvalidImage) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

// callerFault errors do not count against the breaker.
func callerFault(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrInvalidImage) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// Client is safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	visionModel    string
	textModel      string
	embeddingModel string

	http     *http.Client
	generate *httpx.Breaker[string]
	embed    *httpx.Breaker[[]float32]
	tracer   trace.Tracer
	logger   logger.Logger
}

func NewClient(cfg config.GenAIConfig, httpClient *http.Client, log logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breakerCfg := httpx.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: config.GetDuration(cfg.Breaker.OpenTimeout),
		Interval:    config.GetDuration(cfg.Breaker.Interval),
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		visionModel:    cfg.VisionModel,
		textModel:      cfg.TextModel,
		embeddingModel: cfg.EmbeddingModel,
		http:           httpClient,
		generate:       httpx.NewBreaker[string]("genai:generate", breakerCfg, log, callerFault),
		embed:          httpx.NewBreaker[[]float32]("genai:embed", breakerCfg, log, callerFault),
		tracer:         otel.Tracer("shopping-assistant/genai"),
		logger:         log.With(map[string]interface{}{"component": "genai"}),
	}
}

// BreakerStates reports the state of both breakers for readiness checks.
func (c *Client) BreakerStates() map[string]string {
	return map[string]string{
		"generate": c.generate.State(),
		"embed":    c.embed.State(),
	}
}

// --- wire types ---

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *blob     `json:"inlineData,omitempty"`
	FileData   *fileData `json:"fileData,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one generateContent call. With an image the vision model is
// used, otherwise the text model.
func (c *Client) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	model := c.textModel
	if image != nil {
		model = c.visionModel
	}

	ctx, span := c.tracer.Start(ctx, "genai.generate", trace.WithAttributes(
		attribute.String("genai.model", model),
		attribute.Bool("genai.image", image != nil),
	))
	defer span.End()

	return c.generate.Execute(func() (string, error) {
		parts := []part{{Text: prompt}}
		if image != nil {
			p, err := c.imagePart(ctx, image)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}

		var resp generateResponse
		if err := c.post(ctx, model, "generateContent", generateRequest{
			Contents: []content{{Role: "user", Parts: parts}},
		}, &resp); err != nil {
			span.RecordError(err)
			return "", err
		}

		var sb strings.Builder
		if len(resp.Candidates) > 0 {
			for _, p := range resp.Candidates[0].Content.Parts {
				sb.WriteString(p.Text)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
}

// Embed returns the query embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := c.tracer.Start(ctx, "genai.embed", trace.WithAttributes(
		attribute.String("genai.model", c.embeddingModel),
	))
	defer span.End()

	return c.embed.Execute(func() ([]float32, error) {
		var resp embedResponse
		if err := c.post(ctx, c.embeddingModel, "embedContent", embedRequest{
			Model:    modelPath(c.embeddingModel),
			Content:  content{Parts: []part{{Text: text}}},
			TaskType: "RETRIEVAL_QUERY",
		}, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if len(resp.Embedding.Values) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return resp.Embedding.Values, nil
	})
}

func (c *Client) imagePart(ctx context.Context, image *Image) (part, error) {
	switch {
	case len(image.Data) > 0:
		return part{InlineData: &blob{
			MIMEType: image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(image.Data),
		}}, nil
	case strings.HasPrefix(image.URL, "gs://"):
		return part{FileData: &fileData{MIMEType: image.MIMEType, FileURI: image.URL}}, nil
	case image.URL != "":
		data, mimeType, err := c.fetchImage(ctx, image.URL)
		if err != nil {
			return part{}, err
		}
		if mimeType == "" {
			mimeType = image.MIMEType
		}
		return part{InlineData: &blob{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}, nil
	default:
		return part{}, fmt.Errorf("%w: no image data", ErrInvalidImage)
	}
}

// fetchImage downloads a remote image so it can be sent inline.
func (c *Client) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: image url returned status %d", ErrInvalidImage, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidImage, maxImageBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}
	return data, mimeType, nil
}

func (c *Client) post(ctx context.Context, model, method string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/%s:%s", c.baseURL, modelPath(model), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb apiErrorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Message = eb.Error.Message
		}
		c.logger.Warn("genai call rejected", map[string]interface{}{
			"model":  model,
			"method": method,
			"status": resp.StatusCode,
		})
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
