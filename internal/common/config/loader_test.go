package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
apis:
  genai:
    api_key: ${TEST_GENAI_KEY}
database:
  postgres:
    host: localhost
    database: catalog
    user: postgres
  redis:
    address: localhost:6379
  elasticsearch:
    url: http://localhost:9200
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "secret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIs.GenAI.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Pipeline.TopK)
	assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 60000, cfg.Pipeline.RequestTimeout)
	assert.Equal(t, StageWeights{Describe: 3, Retrieve: 2, Synthesize: 5}, cfg.Pipeline.StageWeights)
	assert.Equal(t, "gemini-1.5-flash", cfg.APIs.GenAI.VisionModel)
	assert.Equal(t, "embedding-001", cfg.APIs.GenAI.EmbeddingModel)
	assert.Equal(t, "catalog_items", cfg.Database.Postgres.CatalogTable)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Database.Elasticsearch.Addresses)
	assert.Equal(t, "products", cfg.Database.Elasticsearch.ProductsIndex)
	assert.Equal(t, "shopping-assistant", cfg.Observability.ServiceName)
}

func TestLoadFromFile_KeepsExplicitValues(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "secret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
pipeline:
  top_k: 8
  max_retries: 1
  stage_weights:
    describe: 1
    retrieve: 1
    synthesize: 1
server:
  port: 9090
`))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.TopK)
	assert.Equal(t, 1, cfg.Pipeline.MaxRetries)
	assert.Equal(t, StageWeights{Describe: 1, Retrieve: 1, Synthesize: 1}, cfg.Pipeline.StageWeights)
	assert.Equal(t, ":9090", cfg.Server.Addr())
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing api key",
			body: `
database:
  postgres: {host: h, database: d, user: u}
  redis: {address: r:6379}
  elasticsearch: {url: http://es:9200}
`,
			wantErr: "apis.genai.api_key is required",
		},
		{
			name: "missing redis",
			body: `
apis: {genai: {api_key: k}}
database:
  postgres: {host: h, database: d, user: u}
  elasticsearch: {url: http://es:9200}
`,
			wantErr: "database.redis.address is required",
		},
		{
			name: "camunda enabled without broker",
			body: `
apis: {genai: {api_key: k}}
database:
  postgres: {host: h, database: d, user: u}
  redis: {address: r:6379}
  elasticsearch: {url: http://es:9200}
camunda: {enabled: true}
`,
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "zero stage weight",
			body: `
apis: {genai: {api_key: k}}
database:
  postgres: {host: h, database: d, user: u}
  redis: {address: r:6379}
  elasticsearch: {url: http://es:9200}
pipeline:
  stage_weights: {describe: 0, retrieve: 2, synthesize: 5}
`,
			wantErr: "pipeline.stage_weights must all be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_API_KEY", "")
			t.Setenv("APIS_GENAI_API_KEY", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
