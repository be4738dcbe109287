// Package hclsuite decodes program suites written in HCL.
//
//	language {
//	  pre_materialize = 1
//	}
//
//	program "scenario_a" {
//	  source      = "{F{B{S}}}"
//	  runs        = 4
//	  instrument  = ["statement"]
//	  args        = ["x", 1]
//	  cross_check = true
//
//	  expect {
//	    empty         = true
//	    probe_entries = { statement = 1 }
//	  }
//	}
package hclsuite

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/language"
	"github.com/specialistvlad/posgridgo/internal/suite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// fileRoot is the top level of a suite file.
type fileRoot struct {
	Language *language.Options `hcl:"language,block"`
	Programs []*programBlock   `hcl:"program,block"`
}

type programBlock struct {
	Name           string         `hcl:"name,label"`
	Source         string         `hcl:"source"`
	PreMaterialize hcl.Expression `hcl:"pre_materialize,optional"`
	Runs           int            `hcl:"runs,optional"`
	Instrument     []string       `hcl:"instrument,optional"`
	Args           *cty.Value     `hcl:"args,optional"`
	CrossCheck     bool           `hcl:"cross_check,optional"`
	Expect         *expectBlock   `hcl:"expect,block"`
}

type expectBlock struct {
	Empty         bool           `hcl:"empty,optional"`
	Result        *cty.Value     `hcl:"result,optional"`
	SyntaxErrorAt hcl.Expression `hcl:"syntax_error_at,optional"`
	ProbeEntries  map[string]int `hcl:"probe_entries,optional"`
}

// Decoder implements suite.Decoder for .hcl files.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Extensions() []string {
	return []string{".hcl"}
}

// Decode parses one HCL suite file.
func (d *Decoder) Decode(ctx context.Context, filename string, data []byte) (*suite.Suite, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	out := &suite.Suite{Language: root.Language}
	for _, pb := range root.Programs {
		p, err := translateProgram(ctx, filename, pb)
		if err != nil {
			return nil, err
		}
		out.Programs = append(out.Programs, p)
	}
	logger.Debug("HCL suite decoded.", "programs", len(out.Programs), "has_language", root.Language != nil)
	return out, nil
}

func translateProgram(ctx context.Context, filename string, pb *programBlock) (*suite.Program, error) {
	p := &suite.Program{
		Name:       pb.Name,
		Source:     pb.Source,
		Origin:     filename,
		Runs:       pb.Runs,
		CrossCheck: pb.CrossCheck,
	}

	var err error
	if p.PreMaterialize, err = optionalInt(ctx, pb.PreMaterialize, "pre_materialize"); err != nil {
		return nil, fmt.Errorf("program %q: %w", pb.Name, err)
	}
	if p.Instrument, err = suite.ParseInstrument(pb.Instrument); err != nil {
		return nil, fmt.Errorf("program %q: instrument: %w", pb.Name, err)
	}
	if pb.Args != nil {
		if p.Args, err = argList(*pb.Args); err != nil {
			return nil, fmt.Errorf("program %q: args: %w", pb.Name, err)
		}
	}

	if e := pb.Expect; e != nil {
		p.Expect.Empty = e.Empty
		if e.Result != nil {
			p.Expect.Result = *e.Result
		}
		if p.Expect.SyntaxErrorAt, err = optionalInt(ctx, e.SyntaxErrorAt, "syntax_error_at"); err != nil {
			return nil, fmt.Errorf("program %q: %w", pb.Name, err)
		}
		if p.Expect.ProbeEntries, err = suite.ParseProbeEntries(e.ProbeEntries); err != nil {
			return nil, fmt.Errorf("program %q: probe_entries: %w", pb.Name, err)
		}
	}
	return p, nil
}

// optionalInt decodes an optional integer attribute, returning nil when it
// was not written in the file.
func optionalInt(ctx context.Context, expr hcl.Expression, attrName string) (*int, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", attrName, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	var v int
	if err := gocty.FromCtyValue(val, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", attrName, err)
	}
	return &v, nil
}

// isExprDefined reports whether an optional attribute was actually written.
// gohcl fills omitted hcl.Expression fields with a synthetic expression whose
// source range is zero-width.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checked optional HCL attribute.", "attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}

// argList flattens a list or tuple into invocation arguments. A single
// non-sequence value becomes one argument.
func argList(v cty.Value) ([]cty.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value must be known")
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return []cty.Value{v}, nil
	}
	var out []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		out = append(out, elem)
	}
	return out, nil
}
