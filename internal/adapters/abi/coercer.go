package abi

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// Coercer converts config literals (TOML/YAML/CLI strings) into the Go
// types abi.Pack expects for each argument.
type Coercer struct{}

// NewCoercer creates a new argument coercer
func NewCoercer() *Coercer {
	return &Coercer{}
}

// Coerce checks arity and converts every value to its input's ABI type
func (c *Coercer) Coerce(inputs abi.Arguments, values []any) ([]any, error) {
	if len(inputs) != len(values) {
		return nil, fmt.Errorf("%w: expected %d argument(s) %s, got %d",
			domain.ErrInvalidRequest, len(inputs), Signature(inputs), len(values))
	}

	out := make([]any, len(values))
	for i, input := range inputs {
		v, err := coerceValue(input.Type, values[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("%w: argument %s (%s): %v", domain.ErrInvalidRequest, name, input.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

// Signature renders inputs as "(address land, uint256 fee)"
func Signature(inputs abi.Arguments) string {
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = strings.TrimSpace(in.Type.String() + " " + in.Name)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func coerceValue(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return fitInteger(t, n)
	case abi.BoolTy:
		return toBool(v)
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("bytes%d needs exactly %d bytes, got %d", t.Size, t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		return toList(t, v)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func toAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		s := strings.TrimSpace(a)
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, a)
		}
		return common.HexToAddress(s), nil
	default:
		return common.Address{}, fmt.Errorf("expected address string, got %T", v)
	}
}

// toBigInt accepts native integers, integral floats, and decimal, hex or
// scientific ("1e18") strings
func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return new(big.Int).Set(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float64:
		f := big.NewFloat(n)
		if !f.IsInt() {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		i, _ := f.Int(nil)
		return i, nil
	case string:
		return parseIntString(n)
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func parseIntString(raw string) (*big.Int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex integer %q", raw)
		}
		return n, nil
	}

	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}

	f, ok := new(big.Float).SetPrec(512).SetString(s)
	if !ok || !f.IsInt() {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	n, _ := f.Int(nil)
	return n, nil
}

// fitInteger range-checks n and converts it to the Go type abi.Pack
// expects: fixed-width ints up to 64 bits, *big.Int above.
func fitInteger(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%s is negative", n)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows uint%d", n, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minimum := new(big.Int).Neg(limit)
		if n.Cmp(minimum) < 0 || n.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("%s overflows int%d", n, t.Size)
		}
	}

	goType := t.GetType()
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := reflect.New(goType).Elem()
		v.SetUint(n.Uint64())
		return v.Interface(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := reflect.New(goType).Elem()
		v.SetInt(n.Int64())
		return v.Interface(), nil
	default:
		return n, nil
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected bool, got %v", v)
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		decoded, err := hexutil.Decode(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes %q: %v", b, err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("expected hex string, got %T", v)
	}
}

func toList(t abi.Type, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	if t.T == abi.ArrayTy && rv.Len() != t.Size {
		return nil, fmt.Errorf("expected %d elements, got %d", t.Size, rv.Len())
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), rv.Len(), rv.Len())
	}

	for i := 0; i < rv.Len(); i++ {
		elem, err := coerceValue(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

var _ usecase.ArgumentEncoder = (*Coercer)(nil)
