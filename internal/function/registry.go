// Package function holds the registry of functions expressions may call and
// the kernels that evaluate them over widened column vectors.
package function

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// NullHandling describes how a function treats null arguments.
type NullHandling uint8

const (
	// NullIfNull functions produce null whenever any argument is null.
	NullIfNull NullHandling = iota
	// NullNever functions see every row and always produce a value.
	NullNever
)

// Kernel evaluates a function over dense argument vectors into out. For
// NullIfNull functions out.Valid is set before the call and kernels skip
// rows that are already null.
type Kernel func(args []*Vector, out *Vector) error

// Binder specializes a kernel for literal arguments known at build time.
// consts holds a one-row vector for every literal argument and nil for the
// rest.
type Binder func(consts []*Vector) (Kernel, error)

// Signature identifies one overload of a function.
type Signature struct {
	Name   string
	Params []arrow.DataType
	Return arrow.DataType
	Nulls  NullHandling
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s)", s.Return, s.Name, strings.Join(params, ", "))
}

func (s Signature) key() string {
	return signatureKey(s.Name, s.Params)
}

func signatureKey(name string, params []arrow.DataType) string {
	var b strings.Builder
	b.WriteString(name)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p.Name())
	}
	return b.String()
}

// Function is a registered overload together with its kernel.
type Function struct {
	Signature
	kernel Kernel
	binder Binder
	kind   Kind
}

// Kernel returns the generic kernel.
func (f *Function) Kernel() Kernel { return f.kernel }

// Bind returns a kernel specialized for the literal arguments in consts, or
// the generic kernel when the function has no specialization.
func (f *Function) Bind(consts []*Vector) (Kernel, error) {
	if f.binder == nil {
		return f.kernel, nil
	}
	return f.binder(consts)
}

// Call runs k over args, which must all have n rows.
func (f *Function) Call(k Kernel, args []*Vector, n int) (*Vector, error) {
	return f.CallMasked(k, args, n, nil)
}

// CallMasked is Call restricted to the rows where mask is true. Rows outside
// the mask come back null for NullIfNull functions and are never passed to
// their kernels. A nil mask selects every row.
func (f *Function) CallMasked(k Kernel, args []*Vector, n int, mask []bool) (*Vector, error) {
	out := NewVector(f.kind, n)
	if f.Nulls == NullIfNull {
		out.Valid = mergeValidity(args, n)
		if mask != nil {
			if out.Valid == nil {
				out.Valid = make([]bool, n)
				copy(out.Valid, mask)
			} else {
				for i := range out.Valid {
					out.Valid[i] = out.Valid[i] && mask[i]
				}
			}
		}
	}
	if err := k(args, out); err != nil {
		return nil, err
	}
	out.Narrow(f.Return)
	return out, nil
}

func mergeValidity(args []*Vector, n int) []bool {
	var valid []bool
	for _, a := range args {
		if a.Valid == nil {
			continue
		}
		if valid == nil {
			valid = make([]bool, n)
			copy(valid, a.Valid)
			continue
		}
		for i := range valid {
			valid[i] = valid[i] && a.Valid[i]
		}
	}
	return valid
}

// Registry maps signatures to functions. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Function
	names     map[string][]*Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]*Function),
		names:     make(map[string][]*Function),
	}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry holding every built-in function.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		registerArithmetic(r)
		registerComparison(r)
		registerLogical(r)
		registerStrings(r)
		registerNulls(r)
		registerCasts(r)
		defaultRegistry = r
	})
	return defaultRegistry
}

// Register adds a function. Registering the same name and parameter types
// twice is an error.
func (r *Registry) Register(sig Signature, kernel Kernel) error {
	return r.register(sig, kernel, nil)
}

// RegisterBound adds a function with a build-time specialization.
func (r *Registry) RegisterBound(sig Signature, kernel Kernel, binder Binder) error {
	return r.register(sig, kernel, binder)
}

func (r *Registry) register(sig Signature, kernel Kernel, binder Binder) error {
	kind, err := KindOf(sig.Return)
	if err != nil {
		return err
	}
	for _, p := range sig.Params {
		if !Supported(p) {
			return errors.Unsupported("function %s: parameter type %s", sig.Name, p)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := sig.key()
	if _, ok := r.functions[key]; ok {
		return errors.InvalidArgument("function %s already registered", sig)
	}
	f := &Function{Signature: sig, kernel: kernel, binder: binder, kind: kind}
	r.functions[key] = f
	r.names[sig.Name] = append(r.names[sig.Name], f)
	return nil
}

func (r *Registry) mustRegister(sig Signature, kernel Kernel) {
	if err := r.Register(sig, kernel); err != nil {
		panic(err)
	}
}

// Lookup finds the overload of name taking exactly params.
func (r *Registry) Lookup(name string, params []arrow.DataType) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.functions[signatureKey(name, params)]
	return f, ok
}

// ReturnType resolves the return type of name called with params.
func (r *Registry) ReturnType(name string, params []arrow.DataType) (arrow.DataType, error) {
	f, ok := r.Lookup(name, params)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "no function %s matches %s", name, typeList(params))
	}
	return f.Return, nil
}

// Overloads returns the registered signatures of name.
func (r *Registry) Overloads(name string) []Signature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Signature, 0, len(r.names[name]))
	for _, f := range r.names[name] {
		out = append(out, f.Signature)
	}
	return out
}

// Names returns the sorted names of all registered functions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func typeList(types []arrow.DataType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

var (
	int32Type   = arrow.PrimitiveTypes.Int32
	int64Type   = arrow.PrimitiveTypes.Int64
	float32Type = arrow.PrimitiveTypes.Float32
	float64Type = arrow.PrimitiveTypes.Float64
	boolType    = arrow.FixedWidthTypes.Boolean
	stringType  = arrow.BinaryTypes.String
	date32Type  = arrow.FixedWidthTypes.Date32

	numericTypes = []arrow.DataType{int32Type, int64Type, float32Type, float64Type}
	allTypes     = []arrow.DataType{
		boolType,
		arrow.PrimitiveTypes.Int8, arrow.PrimitiveTypes.Int16, int32Type, int64Type,
		arrow.PrimitiveTypes.Uint8, arrow.PrimitiveTypes.Uint16, arrow.PrimitiveTypes.Uint32, arrow.PrimitiveTypes.Uint64,
		float32Type, float64Type,
		stringType, arrow.BinaryTypes.Binary,
		date32Type, arrow.FixedWidthTypes.Date64,
	}
)

// unary and binary lift scalar functions over the typed slices selected by
// the accessors, skipping null rows.

func unary[A, R any](in func(*Vector) []A, res func(*Vector) []R, fn func(A) R) Kernel {
	return func(args []*Vector, out *Vector) error {
		a, r := in(args[0]), res(out)
		for i := range r {
			if out.IsValid(i) {
				r[i] = fn(a[i])
			}
		}
		return nil
	}
}

func unaryErr[A, R any](in func(*Vector) []A, res func(*Vector) []R, fn func(A) (R, error)) Kernel {
	return func(args []*Vector, out *Vector) error {
		a, r := in(args[0]), res(out)
		for i := range r {
			if !out.IsValid(i) {
				continue
			}
			v, err := fn(a[i])
			if err != nil {
				return err
			}
			r[i] = v
		}
		return nil
	}
}

func binary[A, R any](in func(*Vector) []A, res func(*Vector) []R, fn func(A, A) R) Kernel {
	return func(args []*Vector, out *Vector) error {
		a, b, r := in(args[0]), in(args[1]), res(out)
		for i := range r {
			if out.IsValid(i) {
				r[i] = fn(a[i], b[i])
			}
		}
		return nil
	}
}

func binaryErr[A, R any](in func(*Vector) []A, res func(*Vector) []R, fn func(A, A) (R, error)) Kernel {
	return func(args []*Vector, out *Vector) error {
		a, b, r := in(args[0]), in(args[1]), res(out)
		for i := range r {
			if !out.IsValid(i) {
				continue
			}
			v, err := fn(a[i], b[i])
			if err != nil {
				return err
			}
			r[i] = v
		}
		return nil
	}
}

func bools(v *Vector) []bool     { return v.Bools }
func ints(v *Vector) []int64     { return v.Ints }
func uints(v *Vector) []uint64   { return v.Uints }
func floats(v *Vector) []float64 { return v.Floats }
func strs(v *Vector) []string    { return v.Strs }
