package descriptor

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/posgridgo/internal/source"
	"github.com/specialistvlad/posgridgo/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Basics(t *testing.T) {
	src := source.New("t", "{SE{E}}")
	d := New(tags.NewSet("SE"), src, 0)
	assert.Equal(t, -1, d.End, "descriptor stays open until closed")

	child := New(tags.NewSet("E"), src, 3)
	child.Close(5)
	d.AddChild(child)
	d.Close(6)

	assert.True(t, d.HasTag('S'))
	assert.False(t, d.HasTag('B'))
	assert.True(t, d.IsInstrumentable())
	assert.Equal(t, "{SE{E}}", d.Section().Text())
	assert.Equal(t, []*Descriptor{child}, d.Children())
	assert.Equal(t, "Descriptor(SE <0 - 6>)", d.String())
}

func TestDescriptor_MaterializeOnce(t *testing.T) {
	d := New(nil, source.New("", "{}"), 0)

	_, ok := d.Materialized()
	require.False(t, ok)

	var calls atomic.Int32
	create := func(*Descriptor) any {
		calls.Add(1)
		return new(int)
	}

	first := d.Materialize(create)
	second := d.Materialize(create)
	assert.Same(t, first.(*int), second.(*int))
	assert.EqualValues(t, 1, calls.Load())

	cached, ok := d.Materialized()
	require.True(t, ok)
	assert.Same(t, first.(*int), cached.(*int))
}

// TestDescriptor_MaterializeConcurrent verifies that racing first calls build
// the value once and all observe the same object.
func TestDescriptor_MaterializeConcurrent(t *testing.T) {
	d := New(tags.NewSet("S"), source.New("", "{S}"), 0)

	var calls atomic.Int32
	create := func(*Descriptor) any {
		calls.Add(1)
		return new(int)
	}

	const goroutines = 64
	results := make([]any, goroutines)
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = d.Materialize(create)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0].(*int), results[i].(*int), "goroutine %d saw another object", i)
	}
}

func TestDescriptor_WalkOrders(t *testing.T) {
	src := source.New("", "")
	root := New(tags.NewSet("F"), src, 0)
	a := New(tags.NewSet("A"), src, 0)
	b := New(tags.NewSet("B"), src, 0)
	c := New(tags.NewSet("C"), src, 0)
	a.AddChild(b)
	root.AddChild(a)
	root.AddChild(c)

	var pre, post []string
	root.Walk(
		func(d *Descriptor) { pre = append(pre, d.Tags.String()) },
		func(d *Descriptor) { post = append(post, d.Tags.String()) },
	)

	assert.Equal(t, []string{"F", "A", "B", "C"}, pre)
	assert.Equal(t, []string{"B", "A", "C", "F"}, post)
}
