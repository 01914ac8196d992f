package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tailored-agentic-units/flora/observability"
)

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_Mappings(t *testing.T) {
	tests := []struct {
		level  observability.Level
		slog   slog.Level
		logrus logrus.Level
	}{
		{observability.LevelVerbose, slog.LevelDebug, logrus.DebugLevel},
		{observability.LevelInfo, slog.LevelInfo, logrus.InfoLevel},
		{observability.LevelWarning, slog.LevelWarn, logrus.WarnLevel},
		{observability.LevelError, slog.LevelError, logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.slog {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.slog)
			}
			if got := tt.level.LogrusLevel(); got != tt.logrus {
				t.Errorf("LogrusLevel() = %v, want %v", got, tt.logrus)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	e := observability.NewEvent("kernel.response", observability.LevelInfo, "kernel.Run", map[string]any{"rounds": 2})

	if e.Timestamp.Before(before) {
		t.Error("timestamp not stamped at creation")
	}
	if e.Type != "kernel.response" || e.Source != "kernel.Run" || e.Data["rounds"] != 2 {
		t.Errorf("event = %+v", e)
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &captureObserver{}, &captureObserver{}
	multi := observability.NewMultiObserver(nil, a, nil, b)

	multi.OnEvent(context.Background(), observability.Event{Type: "kernel.tool.call", Level: observability.LevelInfo})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out = %d/%d, want 1/1", len(a.events), len(b.events))
	}
}

func TestNoOpObserver(t *testing.T) {
	observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{Type: "ignored"})
}

func TestSlogObserver(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{"verbose at debug handler", observability.LevelVerbose, slog.LevelDebug, true},
		{"verbose at info handler", observability.LevelVerbose, slog.LevelInfo, false},
		{"warning at warn handler", observability.LevelWarning, slog.LevelWarn, true},
		{"info at error handler", observability.LevelInfo, slog.LevelError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(),
				observability.NewEvent("kernel.tool.complete", tt.level, "kernel.Run", map[string]any{
					"name":  "find_best_florist",
					"error": false,
				}))

			out := buf.String()
			if logged := out != ""; logged != tt.expectLog {
				t.Fatalf("logged = %v, want %v: %s", logged, tt.expectLog, out)
			}
			if !tt.expectLog {
				return
			}
			for _, want := range []string{"kernel.tool.complete", "source=kernel.Run", "name=find_best_florist", "error=false"} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q: %s", want, out)
				}
			}
		})
	}
}

func TestLogrusObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	obs := observability.NewLogrusObserver(logger)
	obs.OnEvent(context.Background(), observability.NewEvent("kernel.response", observability.LevelVerbose, "kernel.Run", nil))
	if buf.Len() != 0 {
		t.Fatalf("debug event logged at info level: %s", buf.String())
	}

	obs.OnEvent(context.Background(), observability.NewEvent("kernel.round.limit", observability.LevelWarning, "kernel.Run", map[string]any{"rounds": 10}))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if line["msg"] != "kernel.round.limit" || line["level"] != "warning" || line["source"] != "kernel.Run" {
		t.Errorf("logged entry = %v", line)
	}
	if line["rounds"] != float64(10) {
		t.Errorf("rounds field = %v, want 10", line["rounds"])
	}
}

func TestOTelObserver_NoSpan(t *testing.T) {
	obs, err := observability.NewOTelObserver(nil)
	if err != nil {
		t.Fatalf("NewOTelObserver failed: %v", err)
	}
	// The global providers are no-ops; this must not panic without a span.
	obs.OnEvent(context.Background(), observability.NewEvent("kernel.run.start", observability.LevelInfo, "kernel.Run", map[string]any{
		"session": "s",
		"rounds":  1,
		"err":     context.Canceled,
		"ratio":   0.5,
		"nested":  []string{"x"},
	}))
}

func TestRegistry_GetObserver(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "noop"},
		{key: "slog"},
		{key: "logrus"},
		{key: "otel"},
		{key: "prometheus"},
		{key: "zap"},
		{key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	custom := &captureObserver{}
	observability.RegisterObserver("test-custom", custom)

	obs, err := observability.GetObserver("test-custom")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "test.event"})

	if len(custom.events) != 1 {
		t.Errorf("received %d events, want 1", len(custom.events))
	}
}

func TestZapObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	obs := observability.NewZapObserver(zap.New(core))

	obs.OnEvent(context.Background(), observability.NewEvent("kernel.iteration.start", observability.LevelVerbose, "kernel.Run", nil))
	obs.OnEvent(context.Background(), observability.NewEvent("kernel.response", observability.LevelInfo, "kernel.Run",
		map[string]any{"rounds": 2, "session_id": "s1"}))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (verbose filtered)", len(entries))
	}
	e := entries[0]
	if e.Message != "kernel.response" {
		t.Errorf("message = %q", e.Message)
	}
	fields := e.ContextMap()
	if fields["source"] != "kernel.Run" || fields["session_id"] != "s1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewPrometheusObserver(reg)
	if err != nil {
		t.Fatalf("NewPrometheusObserver failed: %v", err)
	}

	for range 3 {
		obs.OnEvent(context.Background(), observability.NewEvent("kernel.tool.call", observability.LevelVerbose, "kernel.Run", nil))
	}

	again, err := observability.NewPrometheusObserver(reg)
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}
	again.OnEvent(context.Background(), observability.NewEvent("kernel.tool.call", observability.LevelVerbose, "kernel.Run", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 1 || families[0].GetName() != "flora_events_total" {
		t.Fatalf("families = %v", families)
	}
	metrics := families[0].GetMetric()
	if len(metrics) != 1 {
		t.Fatalf("got %d series, want 1", len(metrics))
	}
	if got := metrics[0].GetCounter().GetValue(); got != 4 {
		t.Errorf("counter = %v, want 4", got)
	}
}
