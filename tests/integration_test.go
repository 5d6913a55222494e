package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/order-service/configs"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/bootstrap"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
)

func testConfig() configs.Config {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/orders?parseTime=true&loc=UTC"
	}

	var cfg configs.Config
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = time.Second
	cfg.HTTP.RequestTimeout = 3 * time.Second
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Store.Driver = "mysql"
	cfg.Store.DSN = mysqlDSN
	cfg.Store.MaxConns = 20
	cfg.Store.Migrate = true
	cfg.Redis.Addr = redisAddr
	cfg.Redis.PoolSize = 20
	cfg.Cache.Driver = "redis"
	cfg.Cache.TTL = time.Minute
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 100000
	cfg.RateLimit.Window = time.Minute
	cfg.Idempotency.Enabled = true
	cfg.Dispatch.Driver = "log"
	cfg.Dispatch.QueueSize = 1000
	cfg.Dispatch.Workers = 2
	cfg.Dispatch.PublishTimeout = time.Second
	return cfg
}

func setupApp(t *testing.T) *bootstrap.App {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	app, err := bootstrap.New(ctx, testConfig())
	if err != nil {
		t.Skipf("MySQL/Redis not available: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

type envelope struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func call(t *testing.T, h http.Handler, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	w := serve(h, method, path, body, headers...)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s %s: %v body=%q", method, path, err, w.Body.String())
	}
	return w.Code, resp
}

func createBody(userID int64) string {
	return fmt.Sprintf(`{"user_id":%d,"total_amount":"19.90","product_list":[{"product_id":1,"ean":"0123456789123","name":"Goleador","qty":150,"price":0.1}]}`, userID)
}

func TestIntegration_FullOrderLifecycle(t *testing.T) {
	app := setupApp(t)
	userID := time.Now().UnixNano() % 1_000_000_000

	code, resp := call(t, app.Router, http.MethodPost, "/api/v1/order", createBody(userID))
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", code, resp.Data)
	}
	var created domain.Order
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if created.Status != domain.OrderStatusUnset {
		t.Errorf("expected unset status, got %q", created.Status)
	}
	if created.TotalAmount.String() != "19.9" {
		t.Errorf("expected total 19.9, got %s", created.TotalAmount)
	}

	path := fmt.Sprintf("/api/v1/order/%d", created.ID)

	// warm the cache, then make sure the update is visible through it
	if code, _ := call(t, app.Router, http.MethodGet, path, ""); code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", code)
	}
	for _, status := range []string{"Processing", "Shipped", "Completed"} {
		code, resp := call(t, app.Router, http.MethodPut, path, `{"status":"`+status+`"}`)
		if code != http.StatusOK {
			t.Fatalf("update %s: expected 200, got %d (%s)", status, code, resp.Data)
		}

		_, resp = call(t, app.Router, http.MethodGet, path, "")
		var got domain.Order
		if err := json.Unmarshal(resp.Data, &got); err != nil {
			t.Fatalf("decode order: %v", err)
		}
		if string(got.Status) != status {
			t.Errorf("expected status %s after update, got %s", status, got.Status)
		}
	}

	code, resp = call(t, app.Router, http.MethodGet, fmt.Sprintf("/api/v1/order/user/%d", userID), "")
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	var list []domain.Order
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 order for user %d, got %d", userID, len(list))
	}

	if code, _ := call(t, app.Router, http.MethodDelete, path, ""); code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
	if code, _ := call(t, app.Router, http.MethodGet, path, ""); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete (stale cache?), got %d", code)
	}
}

func TestIntegration_ConcurrentCreates(t *testing.T) {
	app := setupApp(t)
	userID := time.Now().UnixNano()%1_000_000_000 + 1
	const total = 50

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		ids     sync.Map
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := serve(app.Router, http.MethodPost, "/api/v1/order", createBody(userID))
			if w.Code != http.StatusCreated {
				return
			}
			var resp struct {
				Data domain.Order `json:"data"`
			}
			if json.Unmarshal(w.Body.Bytes(), &resp) == nil {
				ids.Store(resp.Data.ID, true)
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	distinct := 0
	ids.Range(func(_, _ any) bool { distinct++; return true })
	if success.Load() != total || distinct != total {
		t.Fatalf("expected %d distinct orders, got %d created / %d distinct", total, success.Load(), distinct)
	}

	_, resp := call(t, app.Router, http.MethodGet, fmt.Sprintf("/api/v1/order/user/%d", userID), "")
	var list []domain.Order
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != total {
		t.Errorf("expected %d orders in store, got %d", total, len(list))
	}
}

func TestIntegration_IdempotencyPreventsDoubleOrder(t *testing.T) {
	app := setupApp(t)
	userID := time.Now().UnixNano()%1_000_000_000 + 2
	key := "same-request-id-" + uuid.New().String()

	code, _ := call(t, app.Router, http.MethodPost, "/api/v1/order", createBody(userID), "X-Idempotency-Key", key)
	if code != http.StatusCreated {
		t.Fatalf("first create failed: %d", code)
	}

	code, _ = call(t, app.Router, http.MethodPost, "/api/v1/order", createBody(userID), "X-Idempotency-Key", key)
	if code != http.StatusConflict {
		t.Errorf("expected 409 on replay, got %d", code)
	}

	_, resp := call(t, app.Router, http.MethodGet, fmt.Sprintf("/api/v1/order/user/%d", userID), "")
	var list []domain.Order
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 order, got %d", len(list))
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func TestIntegration_StatusEventsOverMySQL(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	db, err := storage.OpenSQL(ctx, storage.DialectMySQL, cfg.Store.DSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	repo := storage.NewSQLAdapter(db, storage.DialectMySQL)
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	events := &recordingDispatcher{}
	svc := service.NewOrderService(repo, events, nil, nil)

	order, err := svc.Create(ctx, service.CreateOrderInput{
		UserID:      int64(7),
		ProductList: []any{map[string]any{"product_id": 1}},
		TotalAmount: "15",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, status := range []string{"Shipped", "Processing", "Completed", "Cancelled"} {
		if _, err := svc.UpdateStatus(ctx, order.ID, status); err != nil {
			t.Fatalf("update %s: %v", status, err)
		}
	}

	want := []domain.EventName{
		domain.EventProcessOrder,
		domain.EventOrderShipped,
		domain.EventOrderCompleted,
		domain.EventOrderCancelled,
	}
	if len(events.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events.events))
	}
	for i, name := range want {
		if events.events[i].Name != name {
			t.Errorf("event %d: expected %s, got %s", i, name, events.events[i].Name)
		}
		if events.events[i].Order.ID != order.ID {
			t.Errorf("event %d carries order %d, want %d", i, events.events[i].Order.ID, order.ID)
		}
	}

	if err := svc.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
