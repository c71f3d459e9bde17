package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/sim"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}

	// A nil manager swallows every write.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WritePerf(PerfStats{}, 0, 0); err != nil {
		t.Error(err)
	}
	if err := om.WriteConfig(nil); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager reported a directory")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for tick := int32(1); tick <= 3; tick++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: tick * 10, Particles: 42}); err != nil {
			t.Fatal(err)
		}
	}
	perf := PerfStats{
		AvgTickDuration: 250 * time.Microsecond,
		PhasePct:        map[string]float64{sim.PhaseRelax: 80},
	}
	if err := om.WritePerf(perf, 30, 42); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(dir, "telemetry.csv"))
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3 rows:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.HasPrefix(lines[0], "window_end,sim_time,particles,speed_mean") {
		t.Errorf("telemetry header = %q", lines[0])
	}
	if strings.Contains(strings.Join(lines[1:], "\n"), "window_end") {
		t.Error("header repeated after the first row")
	}
	if !strings.HasPrefix(lines[3], "30,") {
		t.Errorf("last row = %q, want window_end 30", lines[3])
	}

	perfLines := readLines(t, filepath.Join(dir, "perf.csv"))
	if len(perfLines) != 2 {
		t.Fatalf("perf.csv has %d lines, want 2", len(perfLines))
	}
	if !strings.Contains(perfLines[0], "relax_pct") || !strings.HasPrefix(perfLines[1], "30,42,250,") {
		t.Errorf("perf.csv = %q", perfLines)
	}
}

func TestOutputManagerWriteConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	back, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if back.Physics.Gravity != cfg.Physics.Gravity {
		t.Errorf("gravity = %v, want %v", back.Physics.Gravity, cfg.Physics.Gravity)
	}
}

func TestOutputManagerHeadersPerFile(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	// Interleaved writes: each file tracks its own header.
	steps := []func() error{
		func() error { return om.WritePerf(PerfStats{}, 10, 5) },
		func() error { return om.WriteTelemetry(WindowStats{WindowEndTick: 10}) },
		func() error { return om.WritePerf(PerfStats{}, 20, 5) },
		func() error { return om.WriteTelemetry(WindowStats{WindowEndTick: 20}) },
		func() error { return om.WritePerf(PerfStats{}, 30, 5) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		file   string
		rows   int
		header string
	}{
		{"telemetry.csv", 2, "window_end"},
		{"perf.csv", 3, "window_end"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			lines := readLines(t, filepath.Join(dir, tt.file))
			if len(lines) != tt.rows+1 {
				t.Fatalf("%d lines, want header + %d rows:\n%s", len(lines), tt.rows, strings.Join(lines, "\n"))
			}
			headers := 0
			for _, l := range lines {
				if strings.HasPrefix(l, tt.header) {
					headers++
				}
			}
			if headers != 1 {
				t.Errorf("header written %d times, want 1", headers)
			}
		})
	}
}
