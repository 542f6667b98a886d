// Package vectorstore queries the product catalog's pgvector embeddings.
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shopping-assistant/internal/models"

	"github.com/lib/pq"
)

var (
	ErrEmptyVector  = errors.New("query vector is empty")
	ErrMalformedRow = errors.New("malformed catalog row")
)

// PGVectorIndex runs cosine-distance nearest neighbour queries against the
// catalog table (id, description, name, categories, product_embedding).
type PGVectorIndex struct {
	db    *sql.DB
	query string
}

func NewPGVectorIndex(db *sql.DB, table string) *PGVectorIndex {
	return &PGVectorIndex{
		db: db,
		query: fmt.Sprintf(
			`SELECT id, description, name, categories, 1 - (product_embedding <=> $1::vector) AS score
FROM %s
ORDER BY product_embedding <=> $1::vector
LIMIT $2`, quoteTable(table)),
	}
}

// quoteTable quotes each part of a possibly schema-qualified table name.
func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// Query returns up to k documents, nearest first.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]models.RetrievedDocument, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return []models.RetrievedDocument{}, nil
	}

	rows, err := p.db.QueryContext(ctx, p.query, VectorLiteral(vector), k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	docs := make([]models.RetrievedDocument, 0, k)
	for rows.Next() {
		var (
			doc        models.RetrievedDocument
			name       sql.NullString
			categories pq.StringArray
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &name, &categories, &doc.Score); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		doc.Metadata = models.DocumentMetadata{
			Name:       name.String,
			Categories: []string(categories),
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}

	return docs, nil
}

// IsTransient reports whether repeating a failed Query could succeed.
// Postgres errors are judged by SQLSTATE class; connection-level errors
// without one are assumed transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrEmptyVector) || errors.Is(err, ErrMalformedRow) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // transaction rollback
			"53", // insufficient resources
			"57", // operator intervention
			"58": // system error
			return true
		default:
			return false
		}
	}
	return true
}

// VectorLiteral renders v in pgvector's text form, e.g. [0.1,0.2].
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.Grow(len(v) * 10)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
