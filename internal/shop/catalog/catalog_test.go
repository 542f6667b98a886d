package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

func newESServer(t *testing.T, status int, body string, gotQuery *map[string]interface{}) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if gotQuery != nil && r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(gotQuery)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return es
}

func newCatalog(t *testing.T, es *elasticsearch.Client) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(es, "products", db, "catalog_items", logger.NewTestLogger(t)), mock
}

// ==========================
// Search
// ==========================

func TestSearch_MapsHits(t *testing.T) {
	var query map[string]interface{}
	es := newESServer(t, http.StatusOK, `{"hits":{"hits":[
		{"_id":"doc-1","_source":{"id":"OLJCESPC7Z","name":"Sunglasses","description":"Add a modern touch","picture":"/static/img/products/sunglasses.jpg","categories":["accessories"]}},
		{"_id":"L9ECAV7KIM","_source":{"name":"Loafers","categories":["footwear"]}}
	]}}`, &query)
	c, _ := newCatalog(t, es)

	products, err := c.Search(context.Background(), "sunglasses", 0)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "OLJCESPC7Z", products[0].ID)
	assert.Equal(t, "/static/img/products/sunglasses.jpg", products[0].Picture)
	assert.Equal(t, "L9ECAV7KIM", products[1].ID)

	mm := query["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "sunglasses", mm["query"])
}

func TestSearch_IndexMissing(t *testing.T) {
	es := newESServer(t, http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`, nil)
	c, _ := newCatalog(t, es)

	_, err := c.Search(context.Background(), "lamp", 5)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestSearch_ServerError(t *testing.T) {
	es := newESServer(t, http.StatusInternalServerError, `{}`, nil)
	c, _ := newCatalog(t, es)

	_, err := c.Search(context.Background(), "lamp", 5)
	assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.CodeOf(err))
}

// ==========================
// List
// ==========================

func TestList(t *testing.T) {
	c, mock := newCatalog(t, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, description, categories FROM "catalog_items" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "categories"}).
			AddRow("0PUK6V6EV0", "Candle Holder", "Glass", "{home}").
			AddRow("1YMWWN1N4O", "Watch", nil, "{accessories,watches}"))

	ids, err := c.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0PUK6V6EV0", "1YMWWN1N4O"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_DatabaseError(t *testing.T) {
	c, mock := newCatalog(t, nil)
	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err := c.List(context.Background())
	assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.CodeOf(err))
}
