package runner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/specialistvlad/posgridgo/internal/node"
)

// Report is the outcome of one suite run.
type Report struct {
	Programs []*ProgramReport
	Duration time.Duration
}

// ProgramReport is the outcome of one program.
type ProgramReport struct {
	Name   string
	Origin string
	Mode   node.Mode
	Runs   int
	// Instrumented is the number of positions the probes were attached to.
	Instrumented int
	// Entries is the total number of probe entries over all runs.
	Entries int
	// Materialized is the number of descriptors holding a node after the runs.
	Materialized int
	// Duration is the summed execution time of the runs.
	Duration time.Duration

	mu       sync.Mutex
	failures []string
}

func (p *ProgramReport) failf(format string, args ...any) {
	p.mu.Lock()
	p.failures = append(p.failures, fmt.Sprintf(format, args...))
	p.mu.Unlock()
}

// Failures returns the failed expectations in the order they were found.
func (p *ProgramReport) Failures() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.failures...)
}

// Passed reports whether every expectation held.
func (p *ProgramReport) Passed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failures) == 0
}

// Failed returns the names of the programs that did not pass.
func (r *Report) Failed() []string {
	var out []string
	for _, p := range r.Programs {
		if !p.Passed() {
			out = append(out, p.Name)
		}
	}
	return out
}

// Passed reports whether every program passed.
func (r *Report) Passed() bool {
	return len(r.Failed()) == 0
}

// Program returns the report of the named program, or nil.
func (r *Report) Program(name string) *ProgramReport {
	for _, p := range r.Programs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Write prints a human-readable summary.
func (r *Report) Write(w io.Writer) {
	for _, p := range r.Programs {
		status := "PASS"
		if !p.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s (mode %s, runs %d, entries %d)\n", status, p.Name, p.Mode, p.Runs, p.Entries)
		for _, f := range p.Failures() {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
	fmt.Fprintf(w, "%d programs, %d failed\n", len(r.Programs), len(r.Failed()))
}
