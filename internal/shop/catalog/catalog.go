// Package catalog reads products from the Elasticsearch search index and the
// Postgres catalog table.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
)

const defaultSearchSize = 20

type Catalog struct {
	es     *elasticsearch.Client
	index  string
	db     *sql.DB
	list   string
	logger logger.Logger
}

func New(es *elasticsearch.Client, index string, db *sql.DB, table string, log logger.Logger) *Catalog {
	return &Catalog{
		es:    es,
		index: index,
		db:    db,
		list: fmt.Sprintf(
			"SELECT id, name, description, categories FROM %s ORDER BY id",
			pq.QuoteIdentifier(table)),
		logger: log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				ID          string   `json:"id"`
				Name        string   `json:"name"`
				Description string   `json:"description"`
				Picture     string   `json:"picture"`
				Categories  []string `json:"categories"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a keyword search over name, description and categories.
func (c *Catalog) Search(ctx context.Context, query string, size int) ([]models.Product, error) {
	if size <= 0 {
		size = defaultSearchSize
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^3", "description^2", "categories"},
				"type":   "best_fields",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithSize(size),
	)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("catalog-search", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, apperrors.NewResourceNotFoundError("catalog-search", "index "+c.index)
	}
	if res.IsError() {
		return nil, apperrors.NewExternalServiceError("catalog-search", fmt.Errorf("status %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewExternalServiceError("catalog-search", fmt.Errorf("decode: %w", err))
	}

	products := make([]models.Product, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		p := models.Product{
			ID:          hit.Source.ID,
			Name:        hit.Source.Name,
			Description: hit.Source.Description,
			Picture:     hit.Source.Picture,
			Categories:  hit.Source.Categories,
		}
		if p.ID == "" {
			p.ID = hit.ID
		}
		products = append(products, p)
	}

	c.logger.Debug("catalog search completed", map[string]interface{}{
		"query": query,
		"hits":  len(products),
	})
	return products, nil
}

// List returns every product in the catalog table.
func (c *Catalog) List(ctx context.Context) ([]models.Product, error) {
	rows, err := c.db.QueryContext(ctx, c.list)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("catalog-db", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p           models.Product
			name, descr sql.NullString
			categories  pq.StringArray
		)
		if err := rows.Scan(&p.ID, &name, &descr, &categories); err != nil {
			return nil, apperrors.NewExternalServiceError("catalog-db", err)
		}
		p.Name = name.String
		p.Description = descr.String
		p.Categories = []string(categories)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalServiceError("catalog-db", err)
	}
	return products, nil
}

// ListIDs returns the IDs of every catalog product.
func (c *Catalog) ListIDs(ctx context.Context) ([]string, error) {
	products, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}
