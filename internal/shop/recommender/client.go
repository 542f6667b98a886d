// Package recommender calls the shop's recommendation service over JSON/HTTP.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "shopping-assistant/internal/common/errors"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type listRequest struct {
	UserID     string   `json:"userId"`
	ProductIDs []string `json:"productIds"`
}

type listResponse struct {
	ProductIDs []string `json:"productIds"`
}

// ListRecommendations asks for recommendations for userID among productIDs.
func (c *Client) ListRecommendations(ctx context.Context, userID string, productIDs []string) ([]string, error) {
	body, err := json.Marshal(listRequest{UserID: userID, ProductIDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommendations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("recommendation", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewExternalServiceError("recommendation",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewExternalServiceError("recommendation", fmt.Errorf("decode: %w", err))
	}
	if out.ProductIDs == nil {
		out.ProductIDs = []string{}
	}
	return out.ProductIDs, nil
}
