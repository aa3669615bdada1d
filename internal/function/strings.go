package function

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/dgraph-io/ristretto"

	"github.com/ajitpratap0/prism/pkg/errors"
)

const (
	likeEscape = '\\'
	likeAny    = '_'
	likeAll    = '%'
)

// patternCache holds compiled LIKE patterns for kernels that see the
// pattern only at execution time.
var patternCache = mustPatternCache()

func mustPatternCache() *ristretto.Cache {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return c
}

// LikeToRegexp translates a SQL LIKE pattern into an anchored regular
// expression. '%' matches any run of characters, '_' any single character,
// and '\' escapes either of them or itself.
func LikeToRegexp(pattern string) (string, error) {
	var sb strings.Builder
	sb.WriteString("(?s)^")

	escaping := false
	for _, r := range pattern {
		if escaping {
			if r != likeAny && r != likeAll && r != likeEscape {
				return "", errors.InvalidArgument("escaping invalid character in LIKE pattern: %q", r)
			}
			escaping = false
			sb.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		switch r {
		case likeEscape:
			escaping = true
		case likeAny:
			sb.WriteByte('.')
		case likeAll:
			sb.WriteString(".*")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaping {
		return "", errors.InvalidArgument("LIKE pattern %q ends with a dangling escape", pattern)
	}
	sb.WriteByte('$')
	return sb.String(), nil
}

// CompileLike returns the compiled form of a LIKE pattern, reusing earlier
// compilations of the same pattern.
func CompileLike(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Get(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	expr, err := LikeToRegexp(pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInvalidArgument, "failed to compile LIKE pattern")
	}
	patternCache.Set(pattern, re, 1)
	return re, nil
}

func likeKernel(args []*Vector, out *Vector) error {
	s, p := args[0].Strs, args[1].Strs
	for i := range out.Bools {
		if !out.IsValid(i) {
			continue
		}
		re, err := CompileLike(p[i])
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeExecution, "like")
		}
		out.Bools[i] = re.MatchString(s[i])
	}
	return nil
}

func bindLike(consts []*Vector) (Kernel, error) {
	pattern := consts[1]
	if pattern == nil || !pattern.IsValid(0) {
		return likeKernel, nil
	}
	re, err := CompileLike(pattern.Strs[0])
	if err != nil {
		return nil, err
	}
	return unary(strs, bools, re.MatchString), nil
}

func registerStrings(r *Registry) {
	str := []arrow.DataType{stringType}
	strPair := []arrow.DataType{stringType, stringType}

	r.mustRegister(Signature{Name: "upper", Params: str, Return: stringType}, unary(strs, strs, strings.ToUpper))
	r.mustRegister(Signature{Name: "lower", Params: str, Return: stringType}, unary(strs, strs, strings.ToLower))
	r.mustRegister(Signature{Name: "char_length", Params: str, Return: int32Type},
		unary(strs, ints, func(s string) int64 { return int64(utf8.RuneCountInString(s)) }))
	r.mustRegister(Signature{Name: "concat", Params: strPair, Return: stringType},
		binary(strs, strs, func(a, b string) string { return a + b }))
	r.mustRegister(Signature{Name: "starts_with", Params: strPair, Return: boolType}, binary(strs, bools, strings.HasPrefix))
	r.mustRegister(Signature{Name: "ends_with", Params: strPair, Return: boolType}, binary(strs, bools, strings.HasSuffix))

	if err := r.RegisterBound(Signature{Name: "like", Params: strPair, Return: boolType}, likeKernel, bindLike); err != nil {
		panic(err)
	}
}
