// Command loadgen drives a running order-service with concurrent create,
// status update and read calls, then prints a summary.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var statuses = []string{"Processing", "Shipped", "Completed", "Cancelled"}

type counters struct {
	mu    sync.Mutex
	codes map[string]map[int]int

	latencies []time.Duration
	failures  atomic.Int64
}

func (c *counters) record(op string, code int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes[op] == nil {
		c.codes[op] = map[int]int{}
	}
	c.codes[op][code]++
	c.latencies = append(c.latencies, d)
}

type client struct {
	base string
	http *http.Client
	c    *counters
}

func (cl *client) do(ctx context.Context, op, method, path string, body any, headers map[string]string) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, cl.base+path, r)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := cl.http.Do(req)
	if err != nil {
		cl.c.failures.Add(1)
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	cl.c.record(op, resp.StatusCode, time.Since(start))
	return resp.StatusCode, data, err
}

// placeOrder runs one create, one status update and one read for a user.
func (cl *client) placeOrder(ctx context.Context, userID int) error {
	key := uuid.NewString()
	code, data, err := cl.do(ctx, "create", http.MethodPost, "/api/v1/order", map[string]any{
		"user_id":      userID,
		"total_amount": 15,
		"product_list": []map[string]any{
			{"product_id": 1, "ean": "0123456789123", "name": "Goleador", "qty": 150, "price": 0.1},
		},
	}, map[string]string{"X-Idempotency-Key": key})
	if err != nil || code != http.StatusCreated {
		return err
	}

	var created struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return err
	}

	// a replay must be rejected when the idempotency guard is on
	if _, _, err := cl.do(ctx, "replay", http.MethodPost, "/api/v1/order", map[string]any{
		"user_id": userID, "total_amount": 15, "product_list": []int{1},
	}, map[string]string{"X-Idempotency-Key": key}); err != nil {
		return err
	}

	path := fmt.Sprintf("/api/v1/order/%d", created.Data.ID)
	status := statuses[rand.IntN(len(statuses))]
	if _, _, err := cl.do(ctx, "update", http.MethodPut, path, map[string]string{"status": status}, nil); err != nil {
		return err
	}
	_, _, err = cl.do(ctx, "get", http.MethodGet, path, nil, nil)
	return err
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "order-service base URL")
	total := flag.Int("orders", 200, "orders to place")
	concurrency := flag.Int("concurrency", 20, "parallel clients")
	users := flag.Int("users", 10, "distinct user ids")
	flag.Parse()

	c := &counters{codes: map[string]map[int]int{}}
	cl := &client{base: *addr, http: &http.Client{Timeout: 10 * time.Second}, c: c}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	start := time.Now()
	for i := 0; i < *total; i++ {
		userID := i%*users + 1
		g.Go(func() error {
			if err := cl.placeOrder(ctx, userID); err != nil {
				log.Printf("user %d: %v", userID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Orders:           %d\n", *total)
	fmt.Printf("Concurrency:      %d\n", *concurrency)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Transport errors: %d\n", c.failures.Load())

	ops := make([]string, 0, len(c.codes))
	for op := range c.codes {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Printf("%-8s %v\n", op, c.codes[op])
	}

	if n := len(c.latencies); n > 0 {
		sort.Slice(c.latencies, func(i, j int) bool { return c.latencies[i] < c.latencies[j] })
		fmt.Printf("p50: %v  p95: %v  p99: %v\n",
			c.latencies[n*50/100], c.latencies[n*95/100], c.latencies[n*99/100])
		fmt.Printf("Throughput:       %.1f req/s\n", float64(n)/elapsed.Seconds())
	}
	fmt.Println("========================================")

	if created := c.codes["create"][http.StatusCreated]; created != *total {
		fmt.Printf("FAIL: expected %d orders created, got %d\n", *total, created)
	} else {
		fmt.Println("PASS: every order created")
	}
	if replays := c.codes["replay"]; replays[http.StatusCreated] > 0 {
		fmt.Printf("NOTE: %d replays accepted (idempotency guard off?)\n", replays[http.StatusCreated])
	}
}
