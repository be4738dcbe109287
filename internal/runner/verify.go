package runner

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/descriptor"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/probe"
	"github.com/specialistvlad/posgridgo/internal/runid"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/zclconf/go-cty/cty"
)

// verify checks the stored outcomes and the recorded probe events of prep
// against its expectations.
func (r *Runner) verify(ctx context.Context, prep *prepared) error {
	logger := ctxlog.FromContext(ctx).With("program", prep.program.Name)
	p, pr := prep.program, prep.report

	entries, err := r.store.List(ctx, p.Name)
	if err != nil {
		return fmt.Errorf("program %q: listing outcomes: %w", p.Name, err)
	}
	completed := 0
	for _, e := range entries {
		if e.Address.Mode != prep.mode {
			continue
		}
		completed++
		pr.Duration += e.Outcome.Duration
		run := e.Address.String()
		switch {
		case e.Outcome.Err != nil:
			pr.failf("%s failed: %v", run, e.Outcome.Err)
		case p.Expect.Empty && !e.Outcome.Result.RawEquals(prep.target.Null()):
			pr.failf("%s: expected the empty value, got %s", run, probe.FormatValue(e.Outcome.Result))
		case p.Expect.Result != cty.NilVal && !e.Outcome.Result.RawEquals(p.Expect.Result):
			pr.failf("%s: expected %s, got %s", run, probe.FormatValue(p.Expect.Result), probe.FormatValue(e.Outcome.Result))
		}
	}
	if completed != p.Runs {
		pr.failf("%d of %d runs completed", completed, p.Runs)
	}

	// Every entry must be closed by a return or an error within the same frame.
	pending := make(map[uuid.UUID]int)
	for _, e := range prep.recorder.Events() {
		if e.Kind == probe.Enter {
			pending[e.Frame]++
		} else {
			pending[e.Frame]--
		}
	}
	unbalanced := 0
	for _, n := range pending {
		if n != 0 {
			unbalanced++
		}
	}
	if unbalanced > 0 {
		pr.failf("%d frames have probe entries without a matching return or error", unbalanced)
	}
	enters := prep.recorder.Count(probe.Enter)
	pr.Entries = enters

	byCap := prep.recorder.CountByCapability(probe.Enter)
	for _, c := range tags.All {
		want, ok := p.Expect.ProbeEntries[c]
		if !ok {
			continue
		}
		if got := byCap[c]; got != want*completed {
			pr.failf("expected %d %s entries per run over %d runs, got %d in total", want, c, completed, got)
		}
	}

	prep.target.Root().Descriptor().Walk(func(d *descriptor.Descriptor) {
		if _, ok := d.Materialized(); ok {
			pr.Materialized++
		}
	}, nil)

	logger.Debug("Program verified.", "runs", completed, "entries", enters, "passed", pr.Passed())
	return nil
}

// crossCheck parses the program afresh under every pre-materialization mode,
// invokes it once and requires identical trees and results.
func (r *Runner) crossCheck(ctx context.Context, prep *prepared) error {
	logger := ctxlog.FromContext(ctx).With("program", prep.program.Name)
	p, pr := prep.program, prep.report

	type observation struct {
		mode   node.Mode
		shape  string
		result cty.Value
		err    error
	}
	var seen []observation
	for _, mode := range node.Modes {
		lang, err := r.language(ctx, int(mode))
		if err != nil {
			return err
		}
		target, err := lang.ParseString(ctx, p.Name, p.Source)
		if err != nil {
			pr.failf("cross-check %s: %v", mode, err)
			return nil
		}
		result, err := target.Call(p.Args...)
		seen = append(seen, observation{mode: mode, shape: node.Shape(target.Root()), result: result, err: err})
	}

	stored, ok, err := r.store.Get(ctx, runid.New(p.Name, prep.mode, 0))
	if err != nil {
		return fmt.Errorf("program %q: loading first outcome: %w", p.Name, err)
	}
	if ok && stored.Err == nil {
		for _, o := range seen {
			if o.mode == prep.mode && o.err == nil && !o.result.RawEquals(stored.Result) {
				pr.failf("cross-check: a fresh parse in mode %s returned %s, the instrumented run returned %s",
					o.mode, probe.FormatValue(o.result), probe.FormatValue(stored.Result))
			}
		}
	}

	first := seen[0]
	for _, o := range seen[1:] {
		if diff := cmp.Diff(first.shape, o.shape); diff != "" {
			pr.failf("cross-check: tree of mode %s differs from mode %s (-%s +%s):\n%s", o.mode, first.mode, first.mode, o.mode, diff)
		}
		if (first.err == nil) != (o.err == nil) {
			pr.failf("cross-check: mode %s failed with %v, mode %s with %v", first.mode, first.err, o.mode, o.err)
			continue
		}
		if first.err == nil && !first.result.RawEquals(o.result) {
			pr.failf("cross-check: mode %s returned %s, mode %s returned %s",
				first.mode, probe.FormatValue(first.result), o.mode, probe.FormatValue(o.result))
		}
	}
	logger.Debug("Cross-check finished.", "modes", len(seen))
	return nil
}
