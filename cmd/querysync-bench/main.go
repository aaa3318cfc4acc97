package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/server"
)

type profile struct {
	Name     string
	Clients  int
	Duration time.Duration
	RPS      float64
}

var profiles = map[string]profile{
	"fast":     {Name: "fast", Clients: 50, Duration: 10 * time.Second, RPS: 2},
	"standard": {Name: "standard", Clients: 200, Duration: 30 * time.Second, RPS: 5},
	"stress":   {Name: "stress", Clients: 500, Duration: 60 * time.Second, RPS: 10},
}

type benchConfig struct {
	Profile      string
	Clients      int
	Duration     time.Duration
	RPS          float64
	JSONOutput   string
	EventTimeout time.Duration
}

type benchCounters struct {
	setsSent      atomic.Uint64
	setsComplete  atomic.Uint64
	replaceFrames atomic.Uint64
	stateFrames   atomic.Uint64
}

type benchErrors struct {
	handshakeFailures atomic.Uint64
	writeFailures     atomic.Uint64
	decodeFailures    atomic.Uint64
	serverErrorFrames atomic.Uint64
	stateMissing      atomic.Uint64
	totalErrors       atomic.Uint64
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	srvCfg := config.New()
	srvCfg.Params = []config.ParamConfig{
		{Key: "page", Type: config.TypeNumber, Default: "1"},
		{Key: "q", Type: config.TypeString},
	}
	srv := server.New(srvCfg, server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	httpServer := &http.Server{Handler: srv.Handler()}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = srv.Shutdown(context.Background())
		_ = httpServer.Shutdown(context.Background())
	}()

	wsURL := "ws://" + ln.Addr().String() + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var counters benchCounters
	var errCounts benchErrors

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		clientID := i
		go func() {
			defer wg.Done()
			if err := runClient(ctx, wsURL, clientID, cfg, &counters, &errCounts, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	report := buildReport(cfg, elapsed, samples, &counters, &errCounts, before, after)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func sampleBuffer(clients int) int {
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := flag.Int("clients", -1, "number of concurrent websocket clients")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target store edits/sec per client")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:    base.Name,
		Clients:    base.Clients,
		Duration:   base.Duration,
		RPS:        base.RPS,
		JSONOutput: strings.TrimSpace(*jsonFlag),
	}

	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("-clients must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

func eventTimeout(rps float64) time.Duration {
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

// runClient opens one session and edits the page param at the target
// rate. An edit completes when a state frame carries the new value.
func runClient(
	ctx context.Context,
	wsURL string,
	clientID int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	hello := server.ClientMessage{Type: server.MsgHello, URL: "/bench?page=1&q=client" + strconv.Itoa(clientID)}
	if err := conn.WriteJSON(hello); err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("hello write: %w", err)
	}
	if _, err := waitForState(ctx, conn, "page", "1", counters, errCounts); err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("hello: %w", err)
	}

	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		value := strconv.FormatUint(seq+1, 10)
		start := time.Now()

		msg := server.ClientMessage{Type: server.MsgSet, Param: "page", Value: &value}
		if err := conn.WriteJSON(msg); err != nil {
			errCounts.writeFailures.Add(1)
			return fmt.Errorf("set write: %w", err)
		}
		counters.setsSent.Add(1)

		conn.SetReadDeadline(time.Now().Add(cfg.EventTimeout))
		eventCtx, cancel := context.WithTimeout(ctx, cfg.EventTimeout)
		found, err := waitForState(eventCtx, conn, "page", value, counters, errCounts)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				errCounts.stateMissing.Add(1)
				return fmt.Errorf("state not observed")
			}
			return fmt.Errorf("wait for state: %w", err)
		}
		if !found {
			errCounts.stateMissing.Add(1)
			return fmt.Errorf("state not observed")
		}

		counters.setsComplete.Add(1)
		samples <- time.Since(start)

		if sleep := period - time.Since(start); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func waitForState(
	ctx context.Context,
	conn *websocket.Conn,
	key, want string,
	counters *benchCounters,
	errCounts *benchErrors,
) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		var msg server.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				errCounts.decodeFailures.Add(1)
			}
			return false, err
		}

		switch msg.Type {
		case server.MsgReplace:
			counters.replaceFrames.Add(1)
		case server.MsgState:
			counters.stateFrames.Add(1)
			if msg.Values[key] == want {
				return true, nil
			}
		case server.MsgError:
			errCounts.serverErrorFrames.Add(1)
			return false, fmt.Errorf("server error: %s", msg.Error.Message)
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Clients        int     `json:"clients"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	SetsTotal        uint64  `json:"sets_total"`
	SetsPerSec       float64 `json:"sets_per_sec"`
	SetsPerSecClient float64 `json:"sets_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	HeapLiveMB   float64 `json:"heap_live_mb"`
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
}

type protocolInfo struct {
	ReplaceFrames  uint64  `json:"replace_frames_total"`
	StateFrames    uint64  `json:"state_frames_total"`
	ReplacesPerSet float64 `json:"replaces_per_set"`
}

type errorInfo struct {
	TotalErrors       uint64 `json:"total_errors"`
	HandshakeFailures uint64 `json:"handshake_failures"`
	WriteFailures     uint64 `json:"write_failures"`
	DecodeFailures    uint64 `json:"decode_failures"`
	ServerErrorFrames uint64 `json:"server_error_frames"`
	StateMissing      uint64 `json:"state_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errs *benchErrors,
	before runtime.MemStats,
	after runtime.MemStats,
) benchReport {
	setsTotal := counters.setsComplete.Load()
	replaces := counters.replaceFrames.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	setsPerSec := float64(setsTotal) / elapsedSeconds

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	replacesPerSet := 0.0
	if setsTotal > 0 {
		replacesPerSet = float64(replaces) / float64(setsTotal)
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			SetsTotal:        setsTotal,
			SetsPerSec:       setsPerSec,
			SetsPerSecClient: setsPerSec / float64(cfg.Clients),
		},
		GC: gcInfo{
			AllocMB:      float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:   float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:        after.NumGC - before.NumGC,
			PauseTotalMS: ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
		},
		Protocol: protocolInfo{
			ReplaceFrames:  replaces,
			StateFrames:    counters.stateFrames.Load(),
			ReplacesPerSet: replacesPerSet,
		},
		Errors: errorInfo{
			TotalErrors:       errs.totalErrors.Load(),
			HandshakeFailures: errs.handshakeFailures.Load(),
			WriteFailures:     errs.writeFailures.Load(),
			DecodeFailures:    errs.decodeFailures.Load(),
			ServerErrorFrames: errs.serverErrorFrames.Load(),
			StateMissing:      errs.stateMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== querysync benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f sets/s\n", report.Workload.RPSPerClient)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total sets: %d\n", report.Throughput.SetsTotal)
	fmt.Fprintf(w, "Throughput: %.1f sets/s (%.2f per client)\n", report.Throughput.SetsPerSec, report.Throughput.SetsPerSecClient)
	fmt.Fprintf(w, "Replaces per set: %.2f\n", report.Protocol.ReplacesPerSet)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (set -> flush -> state received):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
