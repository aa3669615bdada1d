package function

import "github.com/apache/arrow-go/v18/arrow"

func nullTest(want bool) Kernel {
	return func(args []*Vector, out *Vector) error {
		for i := range out.Bools {
			out.Bools[i] = args[0].IsValid(i) != want
		}
		return nil
	}
}

func registerNulls(r *Registry) {
	for _, dt := range allTypes {
		one := []arrow.DataType{dt}
		r.mustRegister(Signature{Name: "isnull", Params: one, Return: boolType, Nulls: NullNever}, nullTest(true))
		r.mustRegister(Signature{Name: "isnotnull", Params: one, Return: boolType, Nulls: NullNever}, nullTest(false))
	}
}
