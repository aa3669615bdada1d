package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scratch struct {
	data []byte
}

func TestPoolResetsOnPut(t *testing.T) {
	p := New(
		func() *scratch { return &scratch{data: make([]byte, 0, 16)} },
		func(s *scratch) { s.data = s.data[:0] },
	)

	s := p.Get()
	s.data = append(s.data, 1, 2, 3)
	p.Put(s)

	_, inUse, gets := p.Stats()
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(1), gets)

	again := p.Get()
	assert.Empty(t, again.data)
	p.Put(again)
}

func TestPoolConcurrentUse(t *testing.T) {
	p := New(func() *scratch { return &scratch{} }, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Put(p.Get())
			}
		}()
	}
	wg.Wait()

	allocated, inUse, gets := p.Stats()
	assert.Equal(t, int64(0), inUse)
	assert.Equal(t, int64(1600), gets)
	assert.LessOrEqual(t, allocated, gets)
}

func TestIndexBuffer(t *testing.T) {
	b := GetIndexBuffer(10)
	require.Len(t, b.Rows, 10)
	PutIndexBuffer(b)

	big := GetIndexBuffer(5000)
	require.Len(t, big.Rows, 5000)
	PutIndexBuffer(big)

	empty := GetIndexBuffer(0)
	assert.Empty(t, empty.Rows)
	PutIndexBuffer(empty)
	PutIndexBuffer(nil)
}
