package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/configs"
)

func sqliteConfig() configs.Config {
	var cfg configs.Config
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = time.Second
	cfg.HTTP.RequestTimeout = time.Second
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = ":memory:"
	cfg.Store.Migrate = true
	cfg.Cache.Driver = "memory"
	cfg.Cache.Size = 100
	cfg.Cache.TTL = time.Minute
	cfg.Dispatch.Driver = "log"
	cfg.Dispatch.QueueSize = 16
	cfg.Dispatch.Workers = 1
	cfg.Dispatch.PublishTimeout = time.Second
	return cfg
}

type apiResponse struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestApp_OrderLifecycle(t *testing.T) {
	require.NoError(t, sqliteConfig().Validate())

	app, err := New(context.Background(), sqliteConfig())
	require.NoError(t, err)
	defer app.Close()

	code, resp := call(t, app.Router, http.MethodPost, "/api/v1/order",
		`{"user_id":1,"total_amount":15,"product_list":[{"product_id":1,"ean":"0123456789123","name":"Goleador","qty":150,"price":0.1}]}`)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, resp.Status)

	var created struct {
		ID          int64           `json:"id"`
		Status      *string         `json:"status"`
		TotalAmount string          `json:"total_amount"`
		ProductList json.RawMessage `json:"product_list"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Positive(t, created.ID)
	assert.Nil(t, created.Status)
	assert.Equal(t, "15", created.TotalAmount)
	assert.JSONEq(t, `[{"product_id":1,"ean":"0123456789123","name":"Goleador","qty":150,"price":0.1}]`, string(created.ProductList))

	orderPath := "/api/v1/order/" + strconv.FormatInt(created.ID, 10)

	code, resp = call(t, app.Router, http.MethodPut, orderPath, `{"status":"Shipped"}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"Shipped"}`, string(resp.Data))

	code, resp = call(t, app.Router, http.MethodPut, orderPath, `{"status":"Lost"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"status":["The selected status is invalid."]}`, string(resp.Data))

	code, resp = call(t, app.Router, http.MethodGet, orderPath, "")
	require.Equal(t, http.StatusOK, code)
	var fetched struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &fetched))
	assert.Equal(t, "Shipped", fetched.Status)

	code, resp = call(t, app.Router, http.MethodGet, "/api/v1/order/user/1", "")
	require.Equal(t, http.StatusOK, code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	code, _ = call(t, app.Router, http.MethodDelete, orderPath, "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = call(t, app.Router, http.MethodGet, orderPath, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, `"Order not found"`, string(resp.Data))

	code, _ = call(t, app.Router, http.MethodDelete, orderPath, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := New(context.Background(), sqliteConfig())
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_BadStore(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Store.Driver = "mysql"
	cfg.Store.DSN = "root:root@tcp(127.0.0.1:1)/orders?parseTime=true&timeout=200ms"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
