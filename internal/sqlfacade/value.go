package sqlfacade

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds. KindInvalid marks a Go value outside the scalar set.
const (
	KindInvalid Kind = iota
	KindNull
	KindText
	KindInteger
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is one positional statement parameter.
//
// The type models every scalar an engine understands, but binding
// currently accepts only KindText; all other kinds fail with ErrBinding.
// Widening the accepted set is a contract change, not a bug fix.
type Value struct {
	kind   Kind
	text   string
	i      int64
	f      float64
	b      bool
	goType string
}

// Text returns a text parameter.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Integer returns an integer parameter.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Float returns a floating-point parameter.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean parameter.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns a null parameter.
func Null() Value { return Value{kind: KindNull} }

// ValueOf converts a Go scalar to a Value. Unsupported types produce a
// KindInvalid value, which fails at bind time rather than here.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return Text(x)
	case bool:
		return Bool(x)
	case int:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case uint8:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	default:
		return Value{kind: KindInvalid, goType: fmt.Sprintf("%T", v)}
	}
}

// Params converts each argument with ValueOf.
func Params(values ...any) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = ValueOf(v)
	}
	return out
}

// Texts builds a parameter set of text values.
func Texts(values ...string) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = Text(v)
	}
	return out
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Any returns the underlying Go value, nil for null and invalid values.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders v for error messages.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return strconv.Quote(v.text)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "NULL"
	default:
		return "<" + v.goType + ">"
	}
}

// bindParameters converts a parameter set into driver arguments, in order.
// A nil set binds nothing. The first non-text value aborts with ErrBinding.
func bindParameters(values []Value) ([]any, error) {
	if values == nil {
		return nil, nil
	}

	args := make([]any, len(values))
	for i, v := range values {
		if v.kind != KindText {
			return nil, fmt.Errorf("%w: parameter %d is %s, only text can be bound", ErrBinding, i+1, v.describe())
		}
		args[i] = v.text
	}
	return args, nil
}

func (v Value) describe() string {
	if v.kind == KindInvalid && v.goType != "" {
		return v.goType
	}
	return v.kind.String()
}
