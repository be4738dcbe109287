// Package resultstore keeps the outcome of every program invocation of a
// suite run, keyed by run address.
//
// The in-memory store uses sync.Map: runs complete on many workers at once
// and every key is written exactly once, which is the access pattern sync.Map
// is built for.
package resultstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/posgridgo/internal/runid"
	"github.com/zclconf/go-cty/cty"
)

// Outcome is the result of one invocation.
type Outcome struct {
	Frame    uuid.UUID
	Result   cty.Value
	Err      error
	Duration time.Duration
}

// Entry pairs an outcome with its address.
type Entry struct {
	Address runid.Address
	Outcome Outcome
}

// Store records outcomes.
type Store interface {
	Put(ctx context.Context, addr runid.Address, o Outcome) error
	// Get returns the outcome stored under addr and whether there was one.
	Get(ctx context.Context, addr runid.Address) (Outcome, bool, error)
	// List returns the entries of one program ordered by mode, then run.
	List(ctx context.Context, program string) ([]Entry, error)
}

// Memory is an ephemeral, concurrency-safe Store.
type Memory struct {
	outcomes sync.Map // Key: canonical address string, Value: Outcome
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{}
}

func (m *Memory) Put(ctx context.Context, addr runid.Address, o Outcome) error {
	if !runid.ValidProgramName(addr.Program) {
		return fmt.Errorf("cannot store outcome of %s: invalid program name %q", addr, addr.Program)
	}
	m.outcomes.Store(addr.String(), o)
	return nil
}

func (m *Memory) Get(ctx context.Context, addr runid.Address) (Outcome, bool, error) {
	v, ok := m.outcomes.Load(addr.String())
	if !ok {
		return Outcome{}, false, nil
	}
	return v.(Outcome), true, nil
}

// List recovers each address from its key.
func (m *Memory) List(ctx context.Context, program string) ([]Entry, error) {
	var out []Entry
	var err error
	m.outcomes.Range(func(k, v any) bool {
		addr, perr := runid.Parse(k.(string))
		if perr != nil {
			err = fmt.Errorf("corrupt result key: %w", perr)
			return false
		}
		if addr.Program == program {
			out = append(out, Entry{Address: addr, Outcome: v.(Outcome)})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Address, out[j].Address
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Run < b.Run
	})
	return out, nil
}
