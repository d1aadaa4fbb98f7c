package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/engine"
	"matchengine/internal/eventbus"
)

func newTestRouter() (*gin.Engine, *engine.MatchingEngine) {
	gin.SetMode(gin.TestMode)
	eng := engine.New(eventbus.New(nil))
	h := NewHandlers(eng)

	r := gin.New()
	r.POST("/v1/orders", h.HandleSubmit)
	r.DELETE("/v1/orders/:symbol/:id", h.HandleCancel)
	r.GET("/v1/books/:symbol", h.HandleSnapshot)
	r.GET("/v1/books/:symbol/bbo", h.HandleBBO)
	r.GET("/healthz", h.HandleHealth)
	return r, eng
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSubmit_RestingLimitOrderThenFillsOnCrossingSell(t *testing.T) {
	r, _ := newTestRouter()

	buy := orderRequest{Symbol: "BTC-USDT", Side: "buy", OrderType: "limit", Quantity: d("1"), LimitPrice: d("50000")}
	w := doJSON(t, r, http.MethodPost, "/v1/orders", buy)
	require.Equal(t, http.StatusOK, w.Code)
	var buyResp submissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &buyResp))
	assert.Equal(t, "PENDING", buyResp.Status)

	sell := orderRequest{Symbol: "BTC-USDT", Side: "sell", OrderType: "limit", Quantity: d("1"), LimitPrice: d("50000")}
	w = doJSON(t, r, http.MethodPost, "/v1/orders", sell)
	require.Equal(t, http.StatusOK, w.Code)
	var sellResp submissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sellResp))
	assert.Equal(t, "FILLED", sellResp.Status)
	require.Len(t, sellResp.Trades, 1)
}

func TestHandleSubmit_InvalidSideRejectsAtGateway(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/v1/orders", orderRequest{Symbol: "BTC-USDT", Side: "sideways", OrderType: "limit", Quantity: d("1")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCancel_UnknownOrderReportsNotFound(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(t, r, http.MethodDelete, "/v1/orders/BTC-USDT/00000000-0000-0000-0000-000000000000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp cancelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Outcome)
}

func TestHandleBBO_EmptyBookOmitsBothSides(t *testing.T) {
	r, _ := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/v1/books/BTC-USDT/bbo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp bboResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Bid)
	assert.Nil(t, resp.Ask)
}

func TestHandleSnapshot_ReflectsRestingOrder(t *testing.T) {
	r, _ := newTestRouter()
	doJSON(t, r, http.MethodPost, "/v1/orders", orderRequest{Symbol: "BTC-USDT", Side: "buy", OrderType: "limit", Quantity: d("2"), LimitPrice: d("49000")})

	w := doJSON(t, r, http.MethodGet, "/v1/books/BTC-USDT?depth=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp depthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bids, 1)
	assert.True(t, resp.Bids[0].Qty.Equal(d("2")))
}
