package vm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nooga/mdr/pkg/config"
)

func sampleStats() Stats {
	return Stats{
		RuntimeID:       "7f1c3a4e-0000-4000-8000-000000000001",
		TakenAt:         time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC),
		FamilyCache:     CacheReport{Hits: 90, Misses: 10},
		LastAccessCache: CacheReport{Hits: 3, Misses: 1},
		Fields:          12,
		FamiliesCreated: 9,
		ShapesCreated:   40,
		Propagations:    5,
		Specializations: 2,
		Calls:           1000,
		PropagationTime: 1500 * time.Microsecond,
	}
}

func TestStatsRoundTrip(t *testing.T) {
	for _, format := range []string{"toml", "cbor"} {
		t.Run(format, func(t *testing.T) {
			want := sampleStats()
			var buf bytes.Buffer
			if err := WriteStats(&buf, want, format); err != nil {
				t.Fatal(err)
			}
			got, err := ReadStats(&buf, format)
			if err != nil {
				t.Fatal(err)
			}
			if !got.TakenAt.Equal(want.TakenAt) {
				t.Errorf("TakenAt = %v, want %v", got.TakenAt, want.TakenAt)
			}
			got.TakenAt = want.TakenAt
			if got != want {
				t.Errorf("got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestStatsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, Stats{}, "xml"); err == nil {
		t.Errorf("WriteStats should reject xml")
	}
	if _, err := ReadStats(&buf, "xml"); err == nil {
		t.Errorf("ReadStats should reject xml")
	}
}

func TestCacheReportHitRate(t *testing.T) {
	if r := (CacheReport{}).HitRate(); r != 0 {
		t.Errorf("empty report hit rate = %v", r)
	}
	if r := (CacheReport{Hits: 3, Misses: 1}).HitRate(); r != 75 {
		t.Errorf("hit rate = %v, want 75", r)
	}
}

func TestRuntimeStats(t *testing.T) {
	rt := NewRuntime(nil)
	before := rt.Stats()
	if before.RuntimeID != rt.ID.String() || before.FamiliesCreated == 0 || before.ShapesCreated == 0 {
		t.Errorf("startup stats = %+v", before)
	}

	proto := rt.NewObject()
	child := rt.NewObjectWithPrototype(proto)
	_ = child.GetField("missing")
	_ = proto.SetField("missing", Int32Value(1))

	after := rt.Stats()
	if after.FamiliesCreated != before.FamiliesCreated+1 {
		t.Errorf("FamiliesCreated %d -> %d", before.FamiliesCreated, after.FamiliesCreated)
	}
	if after.Propagations <= before.Propagations {
		t.Errorf("adding a shadowed name to a prototype should count a propagation")
	}
	if after.Fields != rt.Fields().Size() {
		t.Errorf("Fields = %d", after.Fields)
	}
}

func TestCountersDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.EnableCounters = false
	rt := NewRuntime(cfg)
	o := rt.NewObject()
	_ = o.SetField("x", Int32Value(1))
	for range 5 {
		_ = o.GetField("x")
	}
	st := rt.Stats()
	if st.LastAccessCache != (CacheReport{}) || st.FamilyCache != (CacheReport{}) {
		t.Errorf("cache counters should stay zero: %+v", st)
	}
}

func TestShutdownWritesStats(t *testing.T) {
	for _, format := range []string{"toml", "cbor"} {
		t.Run(format, func(t *testing.T) {
			cfg := config.Default()
			cfg.ProfileStats = true
			cfg.StatsFormat = format
			cfg.OutputDir = t.TempDir()
			cfg.ProfilerOutput = "stats." + format
			rt := NewRuntime(cfg)
			_ = rt.NewObject().SetField("x", Int32Value(1))
			if err := rt.Shutdown(); err != nil {
				t.Fatal(err)
			}

			f, err := os.Open(filepath.Join(cfg.OutputDir, cfg.ProfilerOutput))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			st, err := ReadStats(f, format)
			if err != nil {
				t.Fatal(err)
			}
			if st.RuntimeID != rt.ID.String() || st.ShapesCreated == 0 {
				t.Errorf("report = %+v", st)
			}
		})
	}
}

func TestShutdownWithoutProfiling(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	rt := NewRuntime(cfg)
	if err := rt.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.StatsPath()); !os.IsNotExist(err) {
		t.Errorf("no report should be written, stat err = %v", err)
	}
}
