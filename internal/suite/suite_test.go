package suite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		suite    *Suite
		contains string
	}{
		{
			name:     "invalid language mode",
			suite:    &Suite{Language: &language.Options{PreMaterialize: 3}},
			contains: "language: invalid pre-materialization mode 3",
		},
		{
			name:     "missing name",
			suite:    &Suite{Programs: []*Program{{Source: "{S}", Origin: "a.hcl"}}},
			contains: "a.hcl: program without a name",
		},
		{
			name:     "invalid name",
			suite:    &Suite{Programs: []*Program{{Name: "a.b", Source: "{S}", Origin: "a.hcl"}}},
			contains: `invalid program name "a.b"`,
		},
		{
			name: "duplicate name",
			suite: &Suite{Programs: []*Program{
				{Name: "a", Source: "{S}", Origin: "one.hcl"},
				{Name: "a", Source: "{S}", Origin: "two.yaml"},
			}},
			contains: `two.yaml: program "a" is already defined in one.hcl`,
		},
		{
			name:     "empty source",
			suite:    &Suite{Programs: []*Program{{Name: "a"}}},
			contains: "source must not be empty",
		},
		{
			name:     "negative runs",
			suite:    &Suite{Programs: []*Program{{Name: "a", Source: "{S}", Runs: -1}}},
			contains: "runs must not be negative",
		},
		{
			name:     "invalid program mode",
			suite:    &Suite{Programs: []*Program{{Name: "a", Source: "{S}", PreMaterialize: intPtr(9)}}},
			contains: `program "a": invalid pre-materialization mode 9`,
		},
		{
			name: "negative probe entries",
			suite: &Suite{Programs: []*Program{{Name: "a", Source: "{S}", Expect: Expect{
				ProbeEntries: map[tags.Capability]int{tags.Statement: -1},
			}}}},
			contains: "probe entries for statement must not be negative",
		},
		{
			name: "syntax error and result",
			suite: &Suite{Programs: []*Program{{Name: "a", Source: "{S", Expect: Expect{
				SyntaxErrorAt: intPtr(2), Empty: true,
			}}}},
			contains: "excludes result expectations",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.suite)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	s := &Suite{Programs: []*Program{{Name: "a", Source: "{S}", Expect: Expect{Result: cty.NilVal}}}}
	require.NoError(t, Validate(s))
	assert.Equal(t, 1, s.Programs[0].Runs)
	assert.Equal(t, language.Options{}, s.Options())
}

func TestProgram_Mode(t *testing.T) {
	defaults := language.Options{PreMaterialize: 2}
	assert.Equal(t, 2, (&Program{}).Mode(defaults))
	assert.Equal(t, 0, (&Program{PreMaterialize: intPtr(0)}).Mode(defaults))
}

func TestMerge(t *testing.T) {
	s := &Suite{}
	require.NoError(t, s.Merge(&Suite{Programs: []*Program{{Name: "a"}}}))
	require.NoError(t, s.Merge(&Suite{Language: &language.Options{PreMaterialize: 1}, Programs: []*Program{{Name: "b"}}}))
	require.NoError(t, s.Merge(&Suite{Language: &language.Options{PreMaterialize: 1}}))
	assert.Len(t, s.Programs, 2)
	assert.Equal(t, 1, s.Options().PreMaterialize)

	err := s.Merge(&Suite{Language: &language.Options{PreMaterialize: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting language options")
}

func TestParseHelpers(t *testing.T) {
	entries, err := ParseProbeEntries(map[string]int{"statement": 2, "E": 1})
	require.NoError(t, err)
	assert.Equal(t, map[tags.Capability]int{tags.Statement: 2, tags.Expression: 1}, entries)

	entries, err = ParseProbeEntries(nil)
	require.NoError(t, err)
	assert.Nil(t, entries)

	caps, err := ParseInstrument([]string{"S", "statement", "call"})
	require.NoError(t, err)
	assert.Equal(t, []tags.Capability{tags.Statement, tags.Call}, caps)

	_, err = ParseInstrument([]string{"while"})
	assert.Error(t, err)
}

// lineDecoder reads one program per line as "name source" and claims .txt.
type lineDecoder struct{}

func (lineDecoder) Extensions() []string { return []string{".txt"} }

func (lineDecoder) Decode(_ context.Context, filename string, data []byte) (*Suite, error) {
	s := &Suite{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		name, source, _ := strings.Cut(line, " ")
		s.Programs = append(s.Programs, &Program{Name: name, Source: source, Origin: filename})
	}
	return s, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMultiLoader_Load(t *testing.T) {
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "second {E}")
	writeFile(t, filepath.Join(dir, "nested", "c.txt"), "third [SE]")
	writeFile(t, filepath.Join(dir, "a.txt"), "first {S}")
	writeFile(t, filepath.Join(dir, "ignored.md"), "not a suite")
	writeFile(t, filepath.Join(dir, ".hidden", "d.txt"), "hidden {S}")

	loader := NewMultiLoader(lineDecoder{})
	s, err := loader.Load(ctx, dir, filepath.Join(dir, "a.txt"))
	require.NoError(t, err)

	var names []string
	for _, p := range s.Programs {
		names = append(names, p.Name)
		assert.Equal(t, 1, p.Runs, "validated defaults")
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestMultiLoader_Errors(t *testing.T) {
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
	dir := t.TempDir()
	loader := NewMultiLoader(lineDecoder{})

	_, err := loader.Load(ctx, filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error accessing path")

	_, err = loader.Load(ctx, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suite files (.txt) found")

	writeFile(t, filepath.Join(dir, "x.json"), "{}")
	_, err = loader.Load(ctx, filepath.Join(dir, "x.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported suite file")

	writeFile(t, filepath.Join(dir, "dup.txt"), "a {S}\na {E}")
	_, err = loader.Load(ctx, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `program "a" is already defined`)
}
