package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/logger"
	"shopping-assistant/internal/models"
	"shopping-assistant/internal/shop/support"
	roomrecommendation "shopping-assistant/internal/workers/shopping-assistant/room-recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	calls int
	got   *roomrecommendation.Request
	out   *roomrecommendation.Output
	err   error
}

func (f *fakePipeline) Execute(ctx context.Context, req *roomrecommendation.Request) (*roomrecommendation.Output, error) {
	f.calls++
	f.got = req
	return f.out, f.err
}

type fakeCatalog struct {
	products []models.Product
	ids      []string
	err      error
}

func (f *fakeCatalog) Search(ctx context.Context, query string, size int) ([]models.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) ListIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

type fakeCarts struct {
	added map[string][]models.CartItem
}

func (f *fakeCarts) AddItem(ctx context.Context, userID string, item models.CartItem) error {
	if f.added == nil {
		f.added = map[string][]models.CartItem{}
	}
	f.added[userID] = append(f.added[userID], item)
	return nil
}

func (f *fakeCarts) ProductIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	for _, item := range f.added[userID] {
		ids = append(ids, item.ProductID)
	}
	return ids, nil
}

type fakeRecommendations struct {
	gotUser string
	gotIDs  []string
}

func (f *fakeRecommendations) ListRecommendations(ctx context.Context, userID string, productIDs []string) ([]string, error) {
	f.gotUser = userID
	f.gotIDs = productIDs
	return productIDs[:1], nil
}

type fixture struct {
	pipeline *fakePipeline
	catalog  *fakeCatalog
	carts    *fakeCarts
	recs     *fakeRecommendations
	handler  http.Handler
}

func newFixture(t *testing.T, checks map[string]ReadinessCheck) *fixture {
	f := &fixture{
		pipeline: &fakePipeline{},
		catalog:  &fakeCatalog{},
		carts:    &fakeCarts{},
		recs:     &fakeRecommendations{},
	}
	s := NewServer(f.pipeline, f.catalog, f.carts, f.recs, checks, logger.NewTestLogger(t))
	f.handler = s.Handler()
	return f
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestConversation_ReturnsRecommendation(t *testing.T) {
	f := newFixture(t, nil)
	f.pipeline.out = &roomrecommendation.Output{
		Recommendation: models.Recommendation{Content: "Try the Loafers [ABC123]"},
	}

	for _, path := range []string{"/", "/conversation"} {
		rec := f.do(http.MethodPost, path, `{"message":"a%20lamp","image":"https://example.com/room.jpg"}`)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "Try the Loafers [ABC123]", decodeBody(t, rec)["content"])
	}
	assert.Equal(t, 2, f.pipeline.calls)
	assert.Equal(t, "a lamp", f.pipeline.got.Message)
	assert.Equal(t, "https://example.com/room.jpg", f.pipeline.got.Image.URL)
}

func TestConversation_EmptyMessageNeverReachesPipeline(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/", `{"message": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), decodeBody(t, rec)["code"])
	assert.Zero(t, f.pipeline.calls)
}

func TestConversation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apperrors.ErrorCode
	}{
		{
			name:   "model outage",
			err:    apperrors.NewStageError(apperrors.StageDescribingRoom, apperrors.NewUpstreamModelError("describe-room", errors.New("503 from https://upstream/v1beta"))),
			status: http.StatusBadGateway,
			code:   apperrors.ErrCodeUpstreamModelFailed,
		},
		{
			name:   "retrieval outage",
			err:    apperrors.NewStageError(apperrors.StageRetrieving, apperrors.NewRetrievalError("retrieve-products", errors.New("connection refused"))),
			status: http.StatusBadGateway,
			code:   apperrors.ErrCodeRetrievalFailed,
		},
		{
			name:   "deadline",
			err:    apperrors.NewStageError(apperrors.StageSynthesizing, apperrors.NewTimeoutError(apperrors.StageSynthesizing, 0)),
			status: http.StatusGatewayTimeout,
			code:   apperrors.ErrCodePipelineTimeout,
		},
		{
			name:   "unclassified",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   apperrors.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.pipeline.err = tt.err

			rec := f.do(http.MethodPost, "/conversation", `{"message":"a lamp","image":"https://example.com/room.jpg"}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, string(tt.code), body["code"])
			assert.NotContains(t, rec.Body.String(), "upstream")
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/system-status", "", RequestIDHeader, "req-42")
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	rec = f.do(http.MethodGet, "/system-status", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.products = []models.Product{{ID: "OLJCESPC7Z", Name: "Sunglasses"}}

	rec := f.do(http.MethodPost, "/search", `{"query":"sunglasses"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "OLJCESPC7Z", results[0].(map[string]interface{})["id"])

	rec = f.do(http.MethodPost, "/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_BackendFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.err = apperrors.NewExternalServiceError("elasticsearch", errors.New("dial tcp"))

	rec := f.do(http.MethodPost, "/search", `{"query":"rug"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRecommend(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.ids = []string{"A", "B"}

	rec := f.do(http.MethodPost, "/recommend", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"A"}, decodeBody(t, rec)["product_ids"])
	assert.Equal(t, "u1", f.recs.gotUser)
	assert.Equal(t, []string{"A", "B"}, f.recs.gotIDs)
}

func TestCart_AddThenView(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/cart/add", `{"user_id":"u1","product_id":"P1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Added to cart", body["message"])

	rec = f.do(http.MethodPost, "/cart/add", `{"user_id":"u1","product_id":"P2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), f.carts.added["u1"][1].Quantity)

	for _, path := range []string{"/cart/view?user_id=u1", "/personalize?user_id=u1"} {
		rec = f.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, []interface{}{"P1", "P2"}, decodeBody(t, rec)["product_ids"])
	}

	rec = f.do(http.MethodGet, "/cart/view", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/cart/add", `{"user_id":"u1","product_id":"P1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupportEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/faq?question=anything", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, support.Answer("anything"), decodeBody(t, rec)["answer"])

	rec = f.do(http.MethodGet, "/order-status?user_id=u1", "")
	assert.Equal(t, support.OrderStatusUnavailable, decodeBody(t, rec)["order_status"])

	rec = f.do(http.MethodGet, "/track-order?tracking_id=t1", "")
	assert.Equal(t, support.TrackingUnavailable, decodeBody(t, rec)["tracking_info"])

	rec = f.do(http.MethodGet, "/system-status", "")
	status := decodeBody(t, rec)["status"].(map[string]interface{})
	assert.Len(t, status, len(support.SystemStatus()))

	rec = f.do(http.MethodGet, "/troubleshoot?service=cartservice", "")
	assert.Equal(t, support.Logs("cartservice"), decodeBody(t, rec)["logs"])

	rec = f.do(http.MethodGet, "/troubleshoot", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/conversation", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, map[string]ReadinessCheck{
		"redis":    func(ctx context.Context) error { return nil },
		"postgres": func(ctx context.Context) error { return errors.New("down") },
	})

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ready"])
	assert.Equal(t, map[string]interface{}{"redis": "ok", "postgres": "unavailable"}, body["dependencies"])

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := NewServer(&fakePipeline{}, &fakeCatalog{}, &fakeCarts{}, &fakeRecommendations{}, nil, logger.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0", ServeOptions{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
