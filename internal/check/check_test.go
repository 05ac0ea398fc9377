package check

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"numstamp/internal/arith"
	"numstamp/internal/observ"
	"numstamp/internal/stamp"
)

func smallConfig(ops ...string) Config {
	cfg := Default()
	cfg.StampsPerJob = 30
	cfg.SamplesPerStamp = 8
	cfg.Workers = 4
	cfg.Ops = ops
	cfg.Report.MaxViolations = 5
	return cfg
}

func TestPlan(t *testing.T) {
	cfg := smallConfig("add", "zeroextend", "narrow", "i2d", "reinterpret")
	cfg.Widths = []int{8, 32}
	require.NoError(t, cfg.Validate())

	var names []string
	for i, j := range Plan(cfg) {
		require.Equal(t, i, j.Index)
		names = append(names, j.Name())
	}
	assert.Equal(t, []string{
		"add/i8", "add/i32", "add/f32",
		"zeroextend/i8->i16", "zeroextend/i32->i64",
		"narrow/i8->i1", "narrow/i32->i16",
		"i2d/i32",
		"reinterpret/i32", "reinterpret/f32",
		"laws/i8", "roundtrip/i8", "laws/i32", "roundtrip/i32",
		"laws/f32", "roundtrip/f32",
	}, names)
}

func TestRunFindsNoViolations(t *testing.T) {
	cfg := smallConfig("add", "sub", "and", "or", "xor", "neg", "not", "max", "umin", "shl", "ushr", "zeroextend", "signextend")
	cfg.Widths = []int{8, 16}

	r, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	for _, v := range r.Violations {
		t.Errorf("%s %s", v.Job, v.summary())
	}
	assert.True(t, r.Passed())
	assert.Len(t, r.Jobs, len(Plan(cfg)))
	assert.Positive(t, r.Cases)
	assert.NotEmpty(t, r.RunID)
	assert.Len(t, r.Timings.Phases, 3)
}

func TestRunFloatLawsAndRoundTrip(t *testing.T) {
	cfg := smallConfig("neg")
	cfg.Widths = []int{32, 64}

	r, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	for _, v := range r.Violations {
		t.Errorf("%s %s", v.Job, v.summary())
	}
	assert.True(t, r.Passed())
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := smallConfig("add", "mul")
	cfg.Widths = []int{8}
	cfg.Seed = 99

	a, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	require.Len(t, b.Jobs, len(a.Jobs))
	for i := range a.Jobs {
		assert.Equal(t, a.Jobs[i].Name, b.Jobs[i].Name)
		assert.Equal(t, a.Jobs[i].Cases, b.Jobs[i].Cases, a.Jobs[i].Name)
	}
	assert.Equal(t, a.Fingerprint, b.Fingerprint, "workers do not change the outcome")
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunReportsViolations(t *testing.T) {
	cfg := smallConfig("add")
	cfg.Widths = []int{8}
	cfg.Laws, cfg.RoundTrip = false, false
	cfg.Report.MaxViolations = 3

	zero := func(op arith.Op, _ int, args ...stamp.Stamp) (stamp.Stamp, error) {
		return stamp.IntegerConstant(8, 0), nil
	}
	events := make(chan Event, 16)
	r, err := run(context.Background(), cfg, ChannelSink{Ch: events}, zero)
	require.NoError(t, err)
	close(events)

	assert.False(t, r.Passed())
	assert.Greater(t, r.ViolationCount, 3)
	require.Len(t, r.Violations, 3)
	assert.Equal(t, "add/i8", r.Violations[0].Job)
	assert.Contains(t, []string{"soundness", "agreement"}, r.Violations[0].Property)

	var got []Status
	for ev := range events {
		got = append(got, ev.Status)
	}
	assert.Equal(t, []Status{StatusQueued, StatusWorking, StatusFailed, StatusFailed}, got)
}

func TestRunRecoversPanics(t *testing.T) {
	cfg := smallConfig("neg")
	cfg.Widths = []int{8}
	cfg.Laws, cfg.RoundTrip = false, false

	boom := func(arith.Op, int, ...stamp.Stamp) (stamp.Stamp, error) { panic("boom") }
	r, err := run(context.Background(), cfg, nil, boom)
	require.NoError(t, err)
	require.Len(t, r.Violations, 1)
	assert.Equal(t, "panic", r.Violations[0].Property)
	assert.Equal(t, "boom", r.Violations[0].Detail)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, smallConfig("add"), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numstamp.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed = 42
widths = [8, 32]
ops = ["ADD", " umax "]
workers = 2

[report]
format = "YAML"
max_violations = 7
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, []int{8, 32}, cfg.Widths)
	assert.Equal(t, []string{"add", "umax"}, cfg.Ops)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Equal(t, 7, cfg.Report.MaxViolations)
	assert.Equal(t, Default().StampsPerJob, cfg.StampsPerJob, "unset keys keep defaults")
}

func TestConfigErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"negative seed": func(c *Config) { c.Seed = -1 },
		"bad width":     func(c *Config) { c.Widths = []int{12} },
		"no widths":     func(c *Config) { c.Widths = nil },
		"unknown op":    func(c *Config) { c.Ops = []string{"frobnicate"} },
		"bad format":    func(c *Config) { c.Report.Format = "xml" },
		"no stamps":     func(c *Config) { c.StampsPerJob = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrConfig, name)
	}

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("seed = [\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestFingerprintIgnoresScheduling(t *testing.T) {
	a, b := Default(), Default()
	b.Workers = 1
	b.Report.Format = "json"
	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	b.Seed = 2
	fb, err = b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func sampleReport() *Report {
	return &Report{
		RunID:          "01890a5d-ac96-774b-bcce-b302099a8057",
		Seed:           7,
		Fingerprint:    "ab12",
		StartedAt:      time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Cases:          12345,
		ViolationCount: 3,
		Jobs: []JobResult{
			{Name: "add/i8", Kind: "op", Cases: 10000, ElapsedMS: 1.5},
			{Name: "mul/i32", Kind: "op", Cases: 2000, Violations: 3, ElapsedMS: 2.25},
			{Name: "laws/i8", Kind: "laws", Cases: 345, ElapsedMS: 0.5},
		},
		Violations: []Violation{{
			Job:      "mul/i32",
			Property: "soundness",
			Operands: []string{"i32 [1 - 2]", "i32 [3]"},
			Result:   "i32 [3 - 5]",
			Value:    "6",
			Detail:   "operands 2, 3",
		}},
	}
}

func TestRenderText(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), RenderOptions{Format: "text"}))
	g.Assert(t, "report_text", buf.Bytes())

	r := sampleReport()
	r.Timings.Phases = []observ.PhaseReport{
		{Name: "plan", DurationMS: 0.12, Note: "3 jobs"},
		{Name: "jobs", DurationMS: 4.25, Note: "4 workers"},
		{Name: "collect", DurationMS: 0.01},
	}
	buf.Reset()
	require.NoError(t, Render(&buf, r, RenderOptions{Format: "text", Verbose: true}))
	g.Assert(t, "report_text_verbose", buf.Bytes())
}

func TestRenderStructured(t *testing.T) {
	want := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, want, RenderOptions{Format: "yaml"}))
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, want.RunID, fromYAML.RunID)
	assert.Equal(t, want.Jobs, fromYAML.Jobs)
	assert.Equal(t, want.Violations, fromYAML.Violations)
	assert.True(t, want.StartedAt.Equal(fromYAML.StartedAt))

	buf.Reset()
	require.NoError(t, Render(&buf, want, RenderOptions{Format: "json"}))
	var fromJSON Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, want.Jobs, fromJSON.Jobs)
	assert.Equal(t, want.ViolationCount, fromJSON.ViolationCount)

	assert.ErrorIs(t, Render(&buf, want, RenderOptions{Format: "xml"}), ErrConfig)
}

func TestReportCache(t *testing.T) {
	cache, err := NewReportCache(t.TempDir())
	require.NoError(t, err)

	_, ok, err := cache.Get("ab12")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(sampleReport()))
	got, ok, err := cache.Get("ab12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Cached)
	assert.Equal(t, sampleReport().Jobs, got.Jobs)
	assert.True(t, sampleReport().StartedAt.Equal(got.StartedAt))

	var nilCache *ReportCache
	require.NoError(t, nilCache.Put(sampleReport()))
}

func TestRunCached(t *testing.T) {
	cache, err := NewReportCache(t.TempDir())
	require.NoError(t, err)
	cfg := smallConfig("neg")
	cfg.Widths = []int{8}

	first, err := RunCached(context.Background(), cfg, cache, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := RunCached(context.Background(), cfg, cache, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)

	cfg.Report.Cache = false
	third, err := RunCached(context.Background(), cfg, cache, nil)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}
