// Package errors provides examples of structured error handling in prism.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Example demonstrates creating a layout error with details.
func Example() {
	err := errors.InvalidArgument("bitmap buffer too small for %s: expected minimum %d, actual %d", "result", 2, 0).
		WithDetail("field", "result").
		WithDetail("minimum", 2).
		WithDetail("actual", 0)

	fmt.Println(err.Error())

	// Output:
	// invalid_argument: bitmap buffer too small for result: expected minimum 2, actual 0
}

// ExampleWrap shows how a wrapped error keeps its cause.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeExecution, "failed to read batch")

	if errors.IsType(err, errors.ErrorTypeExecution) {
		fmt.Println("execution error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("caused by unexpected EOF")
	}

	// Output:
	// execution error
	// caused by unexpected EOF
}

// ExampleTypeOf demonstrates classifying arbitrary errors.
func ExampleTypeOf() {
	fmt.Println(errors.TypeOf(errors.Unsupported("unsupported output data type %s", "list<int32>")))
	fmt.Println(errors.TypeOf(io.EOF))

	// Output:
	// unsupported
	// internal
}
