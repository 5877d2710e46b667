package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type LoadTestConfig struct {
	BaseURL         string
	ConcurrentUsers int
	Duration        time.Duration
	RampUp          time.Duration
	DeclineRate     float64
}

type TestResult struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	CheckoutsStarted   int64
	OrdersConfirmed    int64
	PaymentsDeclined   int64
	CheckoutFailures   int64
	ResponseTimes      map[string][]time.Duration
	Errors             map[string]int64
	mutex              sync.Mutex
}

type PerformanceMetrics struct {
	StartTime           time.Time                `json:"start_time"`
	EndTime             time.Time                `json:"end_time"`
	TotalDuration       time.Duration            `json:"total_duration"`
	ThroughputRPS       float64                  `json:"throughput_rps"`
	ErrorRate           float64                  `json:"error_rate"`
	CheckoutSuccessRate float64                  `json:"checkout_success_rate"`
	OrdersConfirmed     int64                    `json:"orders_confirmed"`
	PaymentsDeclined    int64                    `json:"payments_declined"`
	Latency             map[string]LatencyReport `json:"latency"`
	Errors              map[string]int64         `json:"errors,omitempty"`
}

type LatencyReport struct {
	Count int           `json:"count"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

type productData struct {
	ID             string `json:"id"`
	AvailableStock int    `json:"available_stock"`
}

type sessionData struct {
	ID              string `json:"id"`
	State           string `json:"state"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type LoadTester struct {
	config *LoadTestConfig
	result *TestResult
	client *http.Client

	productsMu     sync.RWMutex
	products       []string
	productsLoaded time.Time
}

func NewLoadTester(config *LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		result: &TestResult{
			ResponseTimes: make(map[string][]time.Duration),
			Errors:        make(map[string]int64),
		},
		client: &http.Client{
			Timeout: 3 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				MaxConnsPerHost:     200,
			},
		},
	}
}

func (lt *LoadTester) recordResponse(operation string, duration time.Duration, err error) {
	atomic.AddInt64(&lt.result.TotalRequests, 1)

	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	lt.result.ResponseTimes[operation] = append(lt.result.ResponseTimes[operation], duration)
	if err == nil {
		atomic.AddInt64(&lt.result.SuccessfulRequests, 1)
		return
	}
	atomic.AddInt64(&lt.result.FailedRequests, 1)
	lt.result.Errors[fmt.Sprintf("%s: %s", operation, err.Error())]++
}

// call sends one request and decodes the envelope. Any status outside 2xx is
// reported as an error carrying the response code.
func (lt *LoadTester) call(ctx context.Context, operation, method, path, userID string, body any) (*apiResponse, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, lt.config.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	start := time.Now()
	resp, err := lt.client.Do(req)
	if err != nil {
		lt.recordResponse(operation, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		lt.recordResponse(operation, duration, err)
		return nil, err
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		lt.recordResponse(operation, duration, err)
		return nil, err
	}
	if resp.StatusCode >= 300 {
		err = fmt.Errorf("status %d %s", resp.StatusCode, env.Code)
		lt.recordResponse(operation, duration, err)
		return &env, err
	}

	lt.recordResponse(operation, duration, nil)
	return &env, nil
}

func (lt *LoadTester) simulateUser(ctx context.Context, userID int, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			lt.shop(ctx, userID)
			time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
		}
	}
}

// shop runs one full visit: fill the cart, check out, let the simulated
// provider answer and wait for the verdict.
func (lt *LoadTester) shop(ctx context.Context, userID int) {
	products, err := lt.availableProducts(ctx)
	if err != nil || len(products) == 0 {
		return
	}

	user := fmt.Sprintf("user_%d", userID)

	lines := rand.Intn(min(3, len(products))) + 1
	for i := 0; i < lines; i++ {
		if _, err := lt.call(ctx, "add_item", http.MethodPost, "/cart/items", user, map[string]any{
			"product_id": products[rand.Intn(len(products))],
			"quantity":   rand.Intn(2) + 1,
		}); err != nil {
			return
		}
	}

	env, err := lt.call(ctx, "begin_checkout", http.MethodPost, "/checkout", user, nil)
	if err != nil {
		atomic.AddInt64(&lt.result.CheckoutFailures, 1)
		return
	}
	atomic.AddInt64(&lt.result.CheckoutsStarted, 1)

	var session sessionData
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return
	}
	base := "/checkout/" + session.ID

	env, err = lt.call(ctx, "submit_address", http.MethodPost, base+"/address", user, map[string]string{
		"name":        user,
		"line1":       "1 Load Street",
		"city":        "Testville",
		"postal_code": "10001",
		"country":     "US",
	})
	if err != nil {
		atomic.AddInt64(&lt.result.CheckoutFailures, 1)
		return
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return
	}

	verdict := map[string]any{"intent_id": session.PaymentIntentID, "success": true, "transaction_id": "TX-" + uuid.NewString()}
	if rand.Float64() < lt.config.DeclineRate {
		verdict = map[string]any{"intent_id": session.PaymentIntentID, "success": false, "reason": "card_declined"}
	}
	if _, err := lt.call(ctx, "payment_webhook", http.MethodPost, "/payments/webhook", "", verdict); err != nil {
		return
	}

	env, err = lt.call(ctx, "await_payment", http.MethodPost, base+"/payment/await", user, nil)
	switch {
	case err == nil:
		atomic.AddInt64(&lt.result.OrdersConfirmed, 1)
	case env != nil && env.Code == "payment_failed":
		atomic.AddInt64(&lt.result.PaymentsDeclined, 1)
		_, _ = lt.call(ctx, "abandon", http.MethodPost, base+"/abandon", user, map[string]string{"reason": "declined"})
	default:
		atomic.AddInt64(&lt.result.CheckoutFailures, 1)
	}
}

func (lt *LoadTester) availableProducts(ctx context.Context) ([]string, error) {
	lt.productsMu.RLock()
	if time.Since(lt.productsLoaded) < 30*time.Second && len(lt.products) > 0 {
		products := append([]string(nil), lt.products...)
		lt.productsMu.RUnlock()
		return products, nil
	}
	lt.productsMu.RUnlock()

	env, err := lt.call(ctx, "list_products", http.MethodGet, "/products", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var list []productData
	if err := json.Unmarshal(env.Data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}

	available := make([]string, 0, len(list))
	for _, p := range list {
		if p.AvailableStock > 0 {
			available = append(available, p.ID)
		}
	}

	lt.productsMu.Lock()
	lt.products = available
	lt.productsLoaded = time.Now()
	lt.productsMu.Unlock()

	return available, nil
}

func (lt *LoadTester) Run(ctx context.Context) *PerformanceMetrics {
	fmt.Printf("Starting load test with %d concurrent users for %s\n",
		lt.config.ConcurrentUsers, lt.config.Duration)

	ctx, cancel := context.WithTimeout(ctx, lt.config.Duration)
	defer cancel()

	startTime := time.Now()
	var wg sync.WaitGroup

	userInterval := lt.config.RampUp / time.Duration(max(lt.config.ConcurrentUsers, 1))
	for i := 0; i < lt.config.ConcurrentUsers; i++ {
		wg.Add(1)
		go lt.simulateUser(ctx, i, &wg)

		if i < lt.config.ConcurrentUsers-1 {
			time.Sleep(userInterval)
		}
	}

	go lt.monitorProgress(ctx, startTime)

	wg.Wait()
	return lt.calculateMetrics(startTime, time.Now())
}

func (lt *LoadTester) monitorProgress(ctx context.Context, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(startTime)
			totalReqs := atomic.LoadInt64(&lt.result.TotalRequests)
			confirmed := atomic.LoadInt64(&lt.result.OrdersConfirmed)

			fmt.Printf("[%s] Requests: %d, RPS: %.1f, Orders: %d\n",
				elapsed.Round(time.Second), totalReqs, float64(totalReqs)/elapsed.Seconds(), confirmed)
		}
	}
}

func (lt *LoadTester) calculateMetrics(startTime, endTime time.Time) *PerformanceMetrics {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	totalDuration := endTime.Sub(startTime)
	totalRequests := atomic.LoadInt64(&lt.result.TotalRequests)

	metrics := &PerformanceMetrics{
		StartTime:        startTime,
		EndTime:          endTime,
		TotalDuration:    totalDuration,
		Latency:          make(map[string]LatencyReport, len(lt.result.ResponseTimes)),
		Errors:           lt.result.Errors,
		OrdersConfirmed:  atomic.LoadInt64(&lt.result.OrdersConfirmed),
		PaymentsDeclined: atomic.LoadInt64(&lt.result.PaymentsDeclined),
	}

	if totalDuration.Seconds() > 0 {
		metrics.ThroughputRPS = float64(totalRequests) / totalDuration.Seconds()
	}
	if totalRequests > 0 {
		metrics.ErrorRate = float64(atomic.LoadInt64(&lt.result.FailedRequests)) / float64(totalRequests) * 100
	}
	if started := atomic.LoadInt64(&lt.result.CheckoutsStarted); started > 0 {
		metrics.CheckoutSuccessRate = float64(atomic.LoadInt64(&lt.result.OrdersConfirmed)) / float64(started) * 100
	}

	for op, durations := range lt.result.ResponseTimes {
		metrics.Latency[op] = LatencyReport{
			Count: len(durations),
			P50:   calculatePercentile(durations, 50),
			P95:   calculatePercentile(durations, 95),
			P99:   calculatePercentile(durations, 99),
		}
	}

	return metrics
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func (pm *PerformanceMetrics) PrintReport() {
	fmt.Printf("PERFORMANCE TEST RESULTS\n")
	fmt.Printf("Test Duration: %v\n", pm.TotalDuration.Round(time.Second))
	fmt.Printf("Throughput: %.2f requests/second\n", pm.ThroughputRPS)
	fmt.Printf("Error Rate: %.2f%%\n", pm.ErrorRate)
	fmt.Printf("Checkout Success Rate: %.2f%%\n", pm.CheckoutSuccessRate)
	fmt.Printf("Orders Confirmed: %d, Payments Declined: %d\n\n", pm.OrdersConfirmed, pm.PaymentsDeclined)

	ops := make([]string, 0, len(pm.Latency))
	for op := range pm.Latency {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Printf("RESPONSE TIMES:\n")
	for _, op := range ops {
		l := pm.Latency[op]
		fmt.Printf("- %-16s n=%-7d p50=%-8v p95=%-8v p99=%v\n", op, l.Count,
			l.P50.Round(time.Millisecond), l.P95.Round(time.Millisecond), l.P99.Round(time.Millisecond))
	}
}

func (pm *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
