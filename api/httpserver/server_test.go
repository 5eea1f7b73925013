package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cross/api/ws"
	"cross/domain/book"
	"cross/domain/tradelog"
	"cross/domain/user"
	"cross/infra/sequence"
	"cross/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *user.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	svc := service.NewOrderService(
		book.New(sequence.New(0)),
		nil,
		tradelog.NewLog(),
		nil,
		nil,
		nil,
		log,
	)
	users := user.NewManager()
	srv := New(svc, users, ws.NewHub(log), log)
	return srv.Router(), users
}

func post(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username string) {
	t.Helper()
	w := post(t, r, "/register", gin.H{"username": username, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	w = post(t, r, "/login", gin.H{"username": username, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp codeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, user.CodeOK, resp.Response)
}

func TestRegisterAndLoginCodes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(t, r, "/register", gin.H{"username": "alice", "password": "short"})
	var resp codeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 101, resp.Response)
	assert.Equal(t, "invalid password", resp.ErrorMessage)

	w = post(t, r, "/register", gin.H{"username": "alice", "password": "password123"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.CodeOK, resp.Response)

	w = post(t, r, "/login", gin.H{"username": "alice", "password": "wrongpass123"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 101, resp.Response)
}

func TestOrdersRequireLogin(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(t, r, "/orders/limit", gin.H{"username": "ghost", "type": "bid", "size": 10, "price": 100})
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.OrderID)
}

func TestOrderWithoutSideRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")

	for _, path := range []string{"/orders/limit", "/orders/market", "/orders/stop"} {
		w := post(t, r, path, gin.H{"username": "alice", "size": 10, "price": 100})
		var resp orderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(-1), resp.OrderID, path)
	}

	// a malformed side value is rejected the same way
	w := post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "sideways", "size": 10, "price": 100})
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.OrderID)
}

func TestLimitOrderLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")
	login(t, r, "bob")

	w := post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "bid", "size": 10, "price": 100})
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.OrderID)

	// invalid values come back as -1
	w = post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "bid", "size": 0, "price": 100})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.OrderID)

	w = post(t, r, "/orders/limit", gin.H{"username": "bob", "type": "ask", "size": 4, "price": 100})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(2), resp.OrderID)

	w = get(t, r, "/book")
	var snap book.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, int64(6), snap.Bids[0].Size)
	assert.Empty(t, snap.Asks)
}

func TestCancelOrder(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")
	login(t, r, "mallory")

	w := post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "bid", "size": 10, "price": 100})
	var placed orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	var resp codeResponse
	w = post(t, r, "/orders/cancel", gin.H{"username": "mallory", "orderId": placed.OrderID})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 101, resp.Response)

	w = post(t, r, "/orders/cancel", gin.H{"username": "alice", "orderId": placed.OrderID})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.CodeOK, resp.Response)
}

func TestMarketOrderRejectedOnThinBook(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")

	w := post(t, r, "/orders/market", gin.H{"username": "alice", "type": "bid", "size": 10})
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.OrderID)
}

func TestAvailableSizeQuery(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")

	post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "ask", "size": 7, "price": 100})

	w := get(t, r, "/book/available?type=ask&username=bob")
	var resp struct {
		Size int64 `json:"size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Size)

	w = get(t, r, "/book/available?type=ask&username=alice")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Size)

	w = get(t, r, "/book/available?type=sideways&username=bob")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPriceHistory(t *testing.T) {
	r, _ := newTestRouter(t)
	login(t, r, "alice")
	login(t, r, "bob")

	post(t, r, "/orders/limit", gin.H{"username": "alice", "type": "bid", "size": 5, "price": 100})
	post(t, r, "/orders/limit", gin.H{"username": "bob", "type": "ask", "size": 5, "price": 100})

	w := get(t, r, "/history/badmonth")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
