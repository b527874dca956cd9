package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerUserID         = "X-User-ID"
	headerRole           = "X-User-Role"

	defaultQty = int32(1)
)

type loadMode string

const (
	modeCreate        loadMode = "create"
	modeCreateDeliver loadMode = "create-deliver"
	modeCreateCancel  loadMode = "create-cancel"
)

type config struct {
	baseURL       string
	total         int
	totalSet      bool
	duration      time.Duration
	concurrency   int
	timeout       time.Duration
	mode          loadMode
	cancelRate    int
	productID     int64
	qty           int32
	priceMinor    int64
	shippingMinor int64
	users         int
	userBase      int64
	adminID       int64
	outputPath    string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
	}
}

// record учитывает один вызов; code — метка исхода ("201", "409:insufficient_stock", "error").
func (c *collector) record(method string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.methods[method]
	if !found {
		stats = &methodStats{
			codes: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	scenarioStats := c.methods["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var timeoutValue string
	var durationValue string
	var qtyValue int

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "storefront REST API base URL")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-deliver | create-cancel")
	flag.IntVar(&cfg.cancelRate, "cancel-rate", 100, "cancel probability in percent for create-cancel mode (0..100)")
	flag.Int64Var(&cfg.productID, "product-id", 1, "catalog product id used for orders")
	flag.IntVar(&qtyValue, "qty", int(defaultQty), "units per order")
	flag.Int64Var(&cfg.priceMinor, "price-minor", 1000, "expected product price in minor units")
	flag.Int64Var(&cfg.shippingMinor, "shipping-minor", 500, "shipping cost in minor units")
	flag.IntVar(&cfg.users, "users", 50, "number of distinct user ids to spread orders across")
	flag.Int64Var(&cfg.userBase, "user-base", 100_000, "first synthetic user id")
	flag.Int64Var(&cfg.adminID, "admin-id", 1, "admin user id for status transitions")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.qty = int32(qtyValue)

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validateConfig(cfg config) error {
	if strings.TrimSpace(cfg.baseURL) == "" {
		return errors.New("addr is required")
	}
	if cfg.duration < 0 {
		return errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if cfg.productID <= 0 {
		return errors.New("product-id must be > 0")
	}
	if cfg.qty <= 0 {
		return errors.New("qty must be > 0")
	}
	if cfg.priceMinor <= 0 {
		return errors.New("price-minor must be > 0")
	}
	if cfg.shippingMinor < 0 {
		return errors.New("shipping-minor must be >= 0")
	}
	if cfg.users <= 0 {
		return errors.New("users must be > 0")
	}
	if cfg.userBase <= 0 {
		return errors.New("user-base must be > 0")
	}
	if cfg.adminID <= 0 {
		return errors.New("admin-id must be > 0")
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		return errors.New("cancel-rate must be between 0 and 100")
	}
	return nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCreate:
		return modeCreate, nil
	case modeCreateDeliver:
		return modeCreateDeliver, nil
	case modeCreateCancel:
		return modeCreateCancel, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.timeout}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(client, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// orderPayload собирает тело запроса оформления заказа.
func orderPayload(cfg config, index int) map[string]any {
	subtotal := cfg.priceMinor * int64(cfg.qty)
	return map[string]any{
		"items": []map[string]any{
			{"product_id": cfg.productID, "qty": cfg.qty},
		},
		"subtotal_minor": subtotal,
		"shipping_minor": cfg.shippingMinor,
		"tax_minor":      0,
		"total_minor":    subtotal + cfg.shippingMinor,
		"customer": map[string]any{
			"name":    fmt.Sprintf("load-user-%d", index),
			"email":   fmt.Sprintf("load-%d@example.com", index),
			"address": "Load Street 1",
		},
		"payment": map[string]any{
			"method":     "card",
			"card_last4": "4242",
		},
	}
}

func scenarioUserID(cfg config, index int) int64 {
	return cfg.userBase + int64(index%cfg.users)
}

func runScenario(client *http.Client, cfg config, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := "ok"
	scenarioOK := true
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioCode, scenarioOK)
	}()

	key := fmt.Sprintf("lt-create-%s-%d", runID, index)
	orderID, code, err := callPlaceOrder(client, cfg, index, key, col)
	if err != nil {
		scenarioCode = code
		scenarioOK = false
		return err
	}

	if cfg.mode == modeCreate {
		return nil
	}

	transitions := []string{"processing", "shipped", "delivered"}
	if cfg.mode == modeCreateCancel && shouldCancelScenario(index, cfg.cancelRate) {
		transitions = []string{"cancelled"}
	}

	for _, next := range transitions {
		if code, err := callUpdateStatus(client, cfg, orderID, next, col); err != nil {
			scenarioCode = code
			scenarioOK = false
			return err
		}
	}

	return nil
}

func callPlaceOrder(client *http.Client, cfg config, index int, key string, col *collector) (int64, string, error) {
	body, err := json.Marshal(orderPayload(cfg, index))
	if err != nil {
		return 0, "error", err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return 0, "error", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerUserID, strconv.FormatInt(scenarioUserID(cfg, index), 10))
	req.Header.Set(headerIdempotencyKey, key)

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		col.record("PlaceOrder", latency, "error", false)
		return 0, "error", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	code := classify(resp.StatusCode, raw)
	ok := resp.StatusCode == http.StatusCreated
	col.record("PlaceOrder", latency, code, ok)
	if !ok {
		return 0, code, fmt.Errorf("place order: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == 0 {
		return 0, "error", errors.New("place order response returned no order id")
	}
	return created.ID, code, nil
}

func callUpdateStatus(client *http.Client, cfg config, orderID int64, next string, col *collector) (string, error) {
	body, err := json.Marshal(map[string]any{"status": next})
	if err != nil {
		return "error", err
	}

	url := fmt.Sprintf("%s/api/v1/admin/orders/%d/status", cfg.baseURL, orderID)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "error", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerUserID, strconv.FormatInt(cfg.adminID, 10))
	req.Header.Set(headerRole, "admin")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		col.record("UpdateStatus", latency, "error", false)
		return "error", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	code := classify(resp.StatusCode, raw)
	ok := resp.StatusCode == http.StatusOK
	col.record("UpdateStatus", latency, code, ok)
	if !ok {
		return code, fmt.Errorf("update status to %s: unexpected status %d", next, resp.StatusCode)
	}
	return code, nil
}

// classify превращает HTTP-ответ в метку исхода: успешные — по статус-коду,
// ошибки — статус-код плюс машинный код из тела ("409:insufficient_stock").
func classify(statusCode int, body []byte) string {
	if statusCode < http.StatusBadRequest {
		return strconv.Itoa(statusCode)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Sprintf("%d:%s", statusCode, apiErr.Error)
	}
	return strconv.Itoa(statusCode)
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
