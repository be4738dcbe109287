// Package yamlsuite decodes program suites written in YAML.
//
//	language:
//	  pre_materialize: 1
//	programs:
//	  - name: scenario_a
//	    source: "{F{B{S}}}"
//	    runs: 4
//	    instrument: [statement]
//	    args: ["x", 1]
//	    cross_check: true
//	    expect:
//	      empty: true
//	      probe_entries: {statement: 1}
//
// Unknown keys are rejected.
package yamlsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/suite"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Language *language.Options `yaml:"language"`
	Programs []programEntry    `yaml:"programs"`
}

type programEntry struct {
	Name           string       `yaml:"name"`
	Source         string       `yaml:"source"`
	PreMaterialize *int         `yaml:"pre_materialize"`
	Runs           int          `yaml:"runs"`
	Instrument     []string     `yaml:"instrument"`
	Args           []any        `yaml:"args"`
	CrossCheck     bool         `yaml:"cross_check"`
	Expect         *expectEntry `yaml:"expect"`
}

type expectEntry struct {
	Empty         bool           `yaml:"empty"`
	Result        yaml.Node      `yaml:"result"`
	SyntaxErrorAt *int           `yaml:"syntax_error_at"`
	ProbeEntries  map[string]int `yaml:"probe_entries"`
}

// Decoder implements suite.Decoder for .yaml and .yml files.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Decode parses one YAML suite file.
func (d *Decoder) Decode(ctx context.Context, filename string, data []byte) (*suite.Suite, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	var root fileRoot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
	}

	out := &suite.Suite{Language: root.Language}
	for i := range root.Programs {
		p, err := translateProgram(filename, &root.Programs[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		out.Programs = append(out.Programs, p)
	}
	logger.Debug("YAML suite decoded.", "programs", len(out.Programs), "has_language", root.Language != nil)
	return out, nil
}

func translateProgram(filename string, pe *programEntry) (*suite.Program, error) {
	p := &suite.Program{
		Name:           pe.Name,
		Source:         pe.Source,
		Origin:         filename,
		PreMaterialize: pe.PreMaterialize,
		Runs:           pe.Runs,
		CrossCheck:     pe.CrossCheck,
	}

	var err error
	if p.Instrument, err = suite.ParseInstrument(pe.Instrument); err != nil {
		return nil, fmt.Errorf("program %q: instrument: %w", pe.Name, err)
	}
	for i, a := range pe.Args {
		v, err := toCty(a)
		if err != nil {
			return nil, fmt.Errorf("program %q: args[%d]: %w", pe.Name, i, err)
		}
		p.Args = append(p.Args, v)
	}

	if e := pe.Expect; e != nil {
		p.Expect.Empty = e.Empty
		p.Expect.SyntaxErrorAt = e.SyntaxErrorAt
		// A zero Kind means the key was absent.
		if e.Result.Kind != 0 {
			var raw any
			if err := e.Result.Decode(&raw); err != nil {
				return nil, fmt.Errorf("program %q: result: %w", pe.Name, err)
			}
			if p.Expect.Result, err = toCty(raw); err != nil {
				return nil, fmt.Errorf("program %q: result: %w", pe.Name, err)
			}
		}
		if p.Expect.ProbeEntries, err = suite.ParseProbeEntries(e.ProbeEntries); err != nil {
			return nil, fmt.Errorf("program %q: probe_entries: %w", pe.Name, err)
		}
	}
	return p, nil
}

// toCty converts a decoded YAML value by way of its JSON form, letting cty
// infer the type. A YAML null becomes the sentinel null.
func toCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	var sv ctyjson.SimpleJSONValue
	if err := sv.UnmarshalJSON(buf); err != nil {
		return cty.NilVal, err
	}
	return sv.Value, nil
}
