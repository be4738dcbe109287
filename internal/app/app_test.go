package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/posgridgo/internal/hclsuite"
	"github.com/specialistvlad/posgridgo/internal/suite"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/specialistvlad/posgridgo/internal/testutil"
	"github.com/specialistvlad/posgridgo/internal/yamlsuite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingHCL = `
language {
  pre_materialize = 1
}

program "scenario_a" {
  source      = "{F{B{S}}}"
  runs        = 3
  cross_check = true
  expect {
    empty         = true
    probe_entries = { statement = 1 }
  }
}
`

const passingYAML = `
programs:
  - name: scenario_b
    source: "{B{E}{E}}"
    instrument: [expression]
    expect:
      empty: true
      probe_entries: {E: 2}
  - name: scenario_c
    source: "{S"
    expect:
      syntax_error_at: 2
`

func loader() suite.Loader {
	return suite.NewMultiLoader(hclsuite.NewDecoder(), yamlsuite.NewDecoder())
}

func intPtr(v int) *int { return &v }

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      Config
		contains string
	}{
		{name: "nothing to run", cfg: Config{WorkerCount: 1}, contains: "either a suite path or a source program is required"},
		{name: "both", cfg: Config{SuitePaths: []string{"a"}, Source: "{S}", WorkerCount: 1}, contains: "mutually exclusive"},
		{name: "mode", cfg: Config{Source: "{S}", PreMaterialize: intPtr(4), WorkerCount: 1}, contains: "invalid pre-materialization mode 4"},
		{name: "runs", cfg: Config{Source: "{S}", Runs: -2, WorkerCount: 1}, contains: "runs must not be negative"},
		{name: "workers", cfg: Config{Source: "{S}"}, contains: "workers must be at least 1"},
		{name: "port", cfg: Config{Source: "{S}", WorkerCount: 1, MetricsPort: 70000}, contains: "out of range"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}

	cfg, err := NewConfig(Config{Source: "{S}", WorkerCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Runs)
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger("warn", "json", &buf).Info("hidden")
	newLogger("warn", "json", &buf).Warn("shown", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "posgrid", line["app"])

	buf.Reset()
	newLogger("bogus", "text", &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestApp_RunSuites(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"a.hcl":        passingHCL,
		"nested/b.yml": passingYAML,
	})
	out := &testutil.SafeBuffer{}
	cfg, err := NewConfig(Config{SuitePaths: []string{dir}, WorkerCount: 3, DumpTree: true, LogLevel: "error", LogFormat: "text"})
	require.NoError(t, err)

	a := NewApp(out, cfg, loader())
	require.Len(t, a.Suite().Programs, 3)
	assert.Equal(t, 1, a.Suite().Options().PreMaterialize)

	require.NoError(t, a.Run(context.Background()))
	output := out.String()
	assert.Contains(t, output, "PASS scenario_a (mode head, runs 3, entries 6)")
	assert.Contains(t, output, "PASS scenario_b")
	assert.Contains(t, output, "PASS scenario_c")
	assert.Contains(t, output, "3 programs, 0 failed")
	assert.Contains(t, output, "scenario_a: root F<0-8>(call(root F<0-8>(base B<2-7>(base S<4-6>))))")

	// Served metrics reflect the run.
	rec := httptest.NewRecorder()
	a.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `posgrid_runs_total{outcome="ok"} 4`)
	assert.Contains(t, rec.Body.String(), `posgrid_probe_events_total{capability="statement",event="enter"} 3`)

	rec = httptest.NewRecorder()
	a.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestApp_RunSource(t *testing.T) {
	out := &testutil.SafeBuffer{}
	cfg, err := NewConfig(Config{
		Source:         "{S{E}}",
		Runs:           2,
		Instrument:     []tags.Capability{tags.Expression},
		PreMaterialize: intPtr(2),
		WorkerCount:    1,
		LogLevel:       "error",
	})
	require.NoError(t, err)

	a := NewApp(out, cfg, loader())
	assert.Equal(t, 2, a.Suite().Options().PreMaterialize)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "PASS source (mode tail, runs 2, entries 2)")
}

func TestApp_PreMaterializeOverridesPrograms(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"modes.hcl": `
language {
  pre_materialize = 1
}

program "own_mode" {
  source          = "{S{E}}"
  pre_materialize = 2
}
`,
	})
	out := &testutil.SafeBuffer{}
	cfg, err := NewConfig(Config{SuitePaths: []string{dir}, PreMaterialize: intPtr(0), WorkerCount: 1, LogLevel: "error"})
	require.NoError(t, err)

	a := NewApp(out, cfg, loader())
	require.Len(t, a.Suite().Programs, 1)
	assert.Nil(t, a.Suite().Programs[0].PreMaterialize)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "PASS own_mode (mode off,")
}

func TestApp_RunFailure(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"bad.hcl": `
program "wrong" {
  source = "{S}"
  expect {
    probe_entries = { E = 1 }
  }
}
`,
	})
	out := &testutil.SafeBuffer{}
	cfg, err := NewConfig(Config{SuitePaths: []string{filepath.Join(dir, "bad.hcl")}, WorkerCount: 1, LogLevel: "error"})
	require.NoError(t, err)

	err = NewApp(out, cfg, loader()).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "1 of 1 programs failed: wrong", err.Error())
	assert.True(t, strings.Contains(out.String(), "FAIL wrong"))
}

func TestNewApp_PanicsOnInvalidSuite(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"broken.hcl": `program "a" {`})
	cfg, err := NewConfig(Config{SuitePaths: []string{dir}, WorkerCount: 1, LogLevel: "error"})
	require.NoError(t, err)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Contains(t, r.(error).Error(), "failed to load suites")
	}()
	NewApp(&testutil.SafeBuffer{}, cfg, loader())
}
