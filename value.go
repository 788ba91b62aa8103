package txhandler

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Arg is a transaction argument before ABI encoding.
// This is a sealed interface - only Scalar and Sequence implement it.
type Arg interface {
	// isArg is unexported to seal the interface.
	isArg()
}

// Scalar is a single argument value: a string, number, bool, address or
// byte slice.
type Scalar struct {
	Value any
}

func (Scalar) isArg() {}

// Sequence is an ordered list of arguments, used for array and slice
// parameters.
type Sequence []Arg

func (Sequence) isArg() {}

// ToArg converts a Go value into an Arg. Slices other than []byte become
// Sequences, recursively; an Arg is returned unchanged.
func ToArg(v any) Arg {
	switch t := v.(type) {
	case Arg:
		return t
	case []byte:
		return Scalar{Value: t}
	case []any:
		seq := make(Sequence, len(t))
		for i, e := range t {
			seq[i] = ToArg(e)
		}
		return seq
	case []string:
		seq := make(Sequence, len(t))
		for i, e := range t {
			seq[i] = Scalar{Value: e}
		}
		return seq
	}

	rv := reflect.ValueOf(v)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		seq := make(Sequence, rv.Len())
		for i := range seq {
			seq[i] = ToArg(rv.Index(i).Interface())
		}
		return seq
	}
	return Scalar{Value: v}
}

// ToArgs converts each value with ToArg.
func ToArgs(vs ...any) []Arg {
	args := make([]Arg, len(vs))
	for i, v := range vs {
		args[i] = ToArg(v)
	}
	return args
}

// coerce converts an Arg into the Go value abi.Pack expects for t.
func coerce(arg Arg, t abi.Type) (any, error) {
	switch t.T {
	case abi.SliceTy, abi.ArrayTy:
		seq, ok := arg.(Sequence)
		if !ok {
			return nil, &TypeMismatchError{Expected: t.String(), Got: describe(arg)}
		}
		return coerceSequence(seq, t)
	}

	scalar, ok := arg.(Scalar)
	if !ok {
		return nil, &TypeMismatchError{Expected: t.String(), Got: describe(arg)}
	}
	v := scalar.Value

	switch t.T {
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !IsAddress(a) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
			}
			return common.HexToAddress(Strip0x(a)), nil
		}
	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(b) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case abi.BytesTy:
		return toBytes(v, t)
	case abi.FixedBytesTy:
		b, err := toBytes(v, t)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%d bytes", len(b))}
		}
		out := reflect.New(t.GetType()).Elem()
		reflect.Copy(out, reflect.ValueOf(b))
		return out.Interface(), nil
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return sizedInt(n, t)
	}
	return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", v)}
}

func coerceSequence(seq Sequence, t abi.Type) (any, error) {
	if t.T == abi.ArrayTy && len(seq) != t.Size {
		return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%d elements", len(seq))}
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), len(seq), len(seq))
	}
	for i, elem := range seq {
		v, err := coerce(elem, *t.Elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

func toBytes(v any, t abi.Type) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case common.Hash:
		return b.Bytes(), nil
	case string:
		decoded, err := hexutil.Decode(Add0x(b))
		if err != nil {
			return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%q", b)}
		}
		return decoded, nil
	}
	return nil, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", v)}
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return new(big.Int).Set(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return nil, &TypeMismatchError{Expected: "integer", Got: fmt.Sprintf("%v", n)}
		}
		return big.NewInt(int64(n)), nil
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(n)
	}
	return nil, &TypeMismatchError{Expected: "integer", Got: fmt.Sprintf("%T", v)}
}

func parseInt(s string) (*big.Int, error) {
	if hasHexPrefix(s) {
		return Hex2Int(s)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &TypeMismatchError{Expected: "integer", Got: fmt.Sprintf("%q", s)}
	}
	return n, nil
}

// sizedInt narrows n to the Go integer type abi.Pack expects for t.
func sizedInt(n *big.Int, t abi.Type) (any, error) {
	unsigned := t.T == abi.UintTy
	if unsigned {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, &TypeMismatchError{Expected: t.String(), Got: n.String()}
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minimum := new(big.Int).Neg(limit)
		if n.Cmp(limit) >= 0 || n.Cmp(minimum) < 0 {
			return nil, &TypeMismatchError{Expected: t.String(), Got: n.String()}
		}
	}

	switch {
	case unsigned && t.Size == 8:
		return uint8(n.Uint64()), nil
	case unsigned && t.Size == 16:
		return uint16(n.Uint64()), nil
	case unsigned && t.Size == 32:
		return uint32(n.Uint64()), nil
	case unsigned && t.Size == 64:
		return n.Uint64(), nil
	case !unsigned && t.Size == 8:
		return int8(n.Int64()), nil
	case !unsigned && t.Size == 16:
		return int16(n.Int64()), nil
	case !unsigned && t.Size == 32:
		return int32(n.Int64()), nil
	case !unsigned && t.Size == 64:
		return n.Int64(), nil
	}
	return n, nil
}

func describe(arg Arg) string {
	switch a := arg.(type) {
	case Sequence:
		return fmt.Sprintf("sequence of %d", len(a))
	case Scalar:
		return fmt.Sprintf("%T", a.Value)
	}
	return fmt.Sprintf("%T", arg)
}
