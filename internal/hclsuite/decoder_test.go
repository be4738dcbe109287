package hclsuite

import (
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func TestDecode_FullProgram(t *testing.T) {
	src := `
language {
  pre_materialize = 2
}

program "scenario_a" {
  source          = "{F{B{S}}}"
  runs            = 4
  pre_materialize = 0
  instrument      = ["statement", "E"]
  args            = ["x", 1, true]
  cross_check     = true

  expect {
    empty         = true
    probe_entries = { statement = 1 }
  }
}

program "broken" {
  source = "{S"
  expect {
    syntax_error_at = 2
  }
}
`
	s, err := NewDecoder().Decode(testContext(), "suite.hcl", []byte(src))
	require.NoError(t, err)

	require.NotNil(t, s.Language)
	assert.Equal(t, 2, s.Language.PreMaterialize)
	require.Len(t, s.Programs, 2)

	a := s.Programs[0]
	assert.Equal(t, "scenario_a", a.Name)
	assert.Equal(t, "{F{B{S}}}", a.Source)
	assert.Equal(t, "suite.hcl", a.Origin)
	assert.Equal(t, 4, a.Runs)
	require.NotNil(t, a.PreMaterialize)
	assert.Equal(t, 0, *a.PreMaterialize)
	assert.Equal(t, []tags.Capability{tags.Statement, tags.Expression}, a.Instrument)
	require.Len(t, a.Args, 3)
	assert.True(t, a.Args[0].RawEquals(cty.StringVal("x")))
	assert.True(t, a.Args[1].RawEquals(cty.NumberIntVal(1)))
	assert.True(t, a.Args[2].RawEquals(cty.True))
	assert.True(t, a.CrossCheck)
	assert.True(t, a.Expect.Empty)
	assert.Equal(t, map[tags.Capability]int{tags.Statement: 1}, a.Expect.ProbeEntries)
	assert.Nil(t, a.Expect.SyntaxErrorAt)
	assert.True(t, a.Expect.Result == cty.NilVal)

	b := s.Programs[1]
	assert.Nil(t, b.PreMaterialize, "omitted optional attributes stay unset")
	assert.Nil(t, b.Args)
	require.NotNil(t, b.Expect.SyntaxErrorAt)
	assert.Equal(t, 2, *b.Expect.SyntaxErrorAt)
}

func TestDecode_NoLanguageBlock(t *testing.T) {
	s, err := NewDecoder().Decode(testContext(), "a.hcl", []byte(`program "a" { source = "{S}" }`))
	require.NoError(t, err)
	assert.Nil(t, s.Language)
	require.Len(t, s.Programs, 1)
	assert.Equal(t, 0, s.Programs[0].Runs, "defaults are applied by suite.Validate")
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		contains string
	}{
		{name: "syntax", src: `program "a" {`, contains: "failed to parse HCL file"},
		{name: "missing source", src: `program "a" {}`, contains: "failed to decode HCL file"},
		{name: "unknown attribute", src: "program \"a\" {\n  source = \"{S}\"\n  bogus = 1\n}\n", contains: "failed to decode HCL file"},
		{name: "unknown capability", src: "program \"a\" {\n  source = \"{S}\"\n  instrument = [\"loop\"]\n}\n", contains: `unknown capability "loop"`},
		{name: "bad probe entry", src: "program \"a\" {\n  source = \"{S}\"\n  expect {\n    probe_entries = { Q = 1 }\n  }\n}\n", contains: "probe_entries"},
		{name: "non-integer mode", src: "program \"a\" {\n  source = \"{S}\"\n  pre_materialize = \"x\"\n}\n", contains: "pre_materialize"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(testContext(), "bad.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestDecode_ResultAndSingleArg(t *testing.T) {
	src := `
program "a" {
  source = "{S}"
  args   = "only"
  expect {
    result = "done"
  }
}
`
	s, err := NewDecoder().Decode(testContext(), "a.hcl", []byte(src))
	require.NoError(t, err)
	p := s.Programs[0]
	require.Len(t, p.Args, 1)
	assert.True(t, p.Args[0].RawEquals(cty.StringVal("only")))
	assert.True(t, p.Expect.Result.RawEquals(cty.StringVal("done")))
}
