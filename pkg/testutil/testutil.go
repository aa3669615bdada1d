// Package testutil provides testing utilities for prism: loggers, contexts
// and arrow record construction over leak-checked allocators.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// CheckedAllocator returns an allocator that fails the test if any
// allocation is still outstanding when the test finishes. Release
// everything allocated from it before returning, or register the release
// with t.Cleanup after calling CheckedAllocator.
func CheckedAllocator(t testing.TB) *memory.CheckedAllocator {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}

// NewRecord builds a record over schema from one value slice per column. A
// nil entry appends a null. The record is released when the test finishes.
func NewRecord(t testing.TB, mem memory.Allocator, schema *arrow.Schema, columns ...[]interface{}) arrow.Record {
	t.Helper()
	if len(columns) != schema.NumFields() {
		t.Fatalf("schema has %d fields, got %d columns", schema.NumFields(), len(columns))
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, col := range columns {
		b := rb.Field(i)
		for _, v := range col {
			if v == nil {
				b.AppendNull()
				continue
			}
			if !appendValue(b, v) {
				t.Fatalf("column %s: cannot append %T to %s", schema.Field(i).Name, v, schema.Field(i).Type)
			}
		}
	}

	rec := rb.NewRecord()
	t.Cleanup(rec.Release)
	return rec
}

func appendValue(b array.Builder, v interface{}) bool {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Int8Builder:
		x, ok := v.(int8)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Int16Builder:
		x, ok := v.(int16)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Int32Builder:
		x, ok := v.(int32)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Int64Builder:
		x, ok := v.(int64)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Uint32Builder:
		x, ok := v.(uint32)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Float32Builder:
		x, ok := v.(float32)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Float64Builder:
		x, ok := v.(float64)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.StringBuilder:
		x, ok := v.(string)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.BinaryBuilder:
		x, ok := v.([]byte)
		if ok {
			b.Append(x)
		}
		return ok
	case *array.Date32Builder:
		x, ok := v.(arrow.Date32)
		if ok {
			b.Append(x)
		}
		return ok
	}
	return false
}

// Int32s converts values to the column form NewRecord expects.
func Int32s(values ...int32) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Strings converts values to the column form NewRecord expects.
func Strings(values ...string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
