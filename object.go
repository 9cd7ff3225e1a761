// Copyright 2021-2023 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// dynamicIn is a ValueIn that can also decode itself without a target type.
type dynamicIn interface {
	ValueIn
	dynamic() (any, error)
}

// writeObject dispatches on the Go type of v. It only uses the public
// ValueOut methods, so every flavor shares it.
func writeObject(out ValueOut, v any) error {
	switch v := v.(type) {
	case nil:
		out.Nil()
	case Marshallable:
		return out.TypedMarshallable(v)
	case bool:
		out.Bool(v)
	case int8:
		out.Int8(v)
	case int16:
		out.Int16(v)
	case int32:
		out.Int32(v)
	case int64:
		out.Int64(v)
	case int:
		out.Int(v)
	case uint8:
		out.Uint8(v)
	case uint16:
		out.Uint16(v)
	case uint32:
		out.Uint32(v)
	case uint64:
		out.Uint64(v)
	case float32:
		out.Float32(v)
	case float64:
		out.Float64(v)
	case string:
		out.Text(v)
	case []byte:
		out.Bytes(v)
	case uuid.UUID:
		out.UUID(v)
	case time.Time:
		out.Time(v)
	case map[string]any:
		return out.Map(v)
	case []any:
		return writeSequence(out, v, func(e ValueOut, x any) error { return writeObject(e, x) })
	case []string:
		return writeSequence(out, v, func(e ValueOut, x string) error { e.Text(x); return nil })
	case []int64:
		return writeSequence(out, v, func(e ValueOut, x int64) error { e.Int64(x); return nil })
	case []int32:
		return writeSequence(out, v, func(e ValueOut, x int32) error { e.Int32(x); return nil })
	case []float64:
		return writeSequence(out, v, func(e ValueOut, x float64) error { e.Float64(x); return nil })
	case []bool:
		return writeSequence(out, v, func(e ValueOut, x bool) error { e.Bool(x); return nil })
	default:
		return errorf(CodeUnimplemented, "no encoding for %T", v)
	}
	return nil
}

func writeSequence[T any](out ValueOut, values []T, write func(ValueOut, T) error) error {
	return out.Sequence(func(elements ValueOut) error {
		for _, v := range values {
			if err := write(elements, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// readObject decodes v into target, a pointer.
func readObject(cfg *codecConfig, v dynamicIn, target any) error {
	switch t := target.(type) {
	case *any:
		value, err := v.dynamic()
		if err != nil {
			return err
		}
		*t = value
	case Marshallable:
		return v.Marshallable(t)
	case *bool:
		*t = v.Bool()
	case *int8:
		*t = v.Int8()
	case *int16:
		*t = v.Int16()
	case *int32:
		*t = v.Int32()
	case *int64:
		*t = v.Int64()
	case *int:
		*t = v.Int()
	case *uint8:
		*t = v.Uint8()
	case *uint16:
		*t = v.Uint16()
	case *uint32:
		*t = v.Uint32()
	case *uint64:
		*t = v.Uint64()
	case *uint:
		*t = uint(narrowUnsigned(cfg, v.Uint64(), math.MaxUint, "uint"))
	case *float32:
		*t = v.Float32()
	case *float64:
		*t = v.Float64()
	case *string:
		*t = v.Text()
	case *[]byte:
		*t = v.Bytes()
	case *uuid.UUID:
		*t = v.UUID()
	case *time.Time:
		*t = v.Time()
	case *[]any:
		values, err := readDynamicSequence(v)
		if err != nil {
			return err
		}
		*t = values
	case *[]string:
		return readSequence(v, t, ValueIn.Text)
	case *[]int64:
		return readSequence(v, t, ValueIn.Int64)
	case *[]int32:
		return readSequence(v, t, ValueIn.Int32)
	case *[]float64:
		return readSequence(v, t, ValueIn.Float64)
	case *[]bool:
		return readSequence(v, t, ValueIn.Bool)
	case *map[string]any:
		value, err := v.dynamic()
		if err != nil {
			return err
		}
		switch m := value.(type) {
		case nil:
			*t = nil
		case map[string]any:
			*t = m
		default:
			return errorf(CodeInvalidArgument, "can't decode %T into a map", value)
		}
	default:
		cfg.debugf("no decoding for %T", target)
		return errorf(CodeUnimplemented, "no decoding for %T", target)
	}
	return nil
}

func readSequence[T any](v ValueIn, target *[]T, read func(ValueIn) T) error {
	var values []T
	err := v.Sequence(func(element ValueIn) error {
		values = append(values, read(element))
		return nil
	})
	if err != nil {
		return err
	}
	*target = values
	return nil
}

func readDynamicSequence(v ValueIn) ([]any, error) {
	values := []any{}
	err := v.Sequence(func(element ValueIn) error {
		value, err := element.(dynamicIn).dynamic() //nolint:forcetypeassert
		if err != nil {
			return err
		}
		values = append(values, value)
		return nil
	})
	if v.IsNull() {
		return nil, err
	}
	return values, err
}

func readDynamicMap(fields *fieldSet) (map[string]any, error) {
	values := make(map[string]any, len(fields.fields))
	for {
		key, value, ok := fields.Next()
		if !ok {
			return values, nil
		}
		decoded, err := value.(dynamicIn).dynamic() //nolint:forcetypeassert
		if err != nil {
			return nil, err
		}
		values[key.String()] = decoded
	}
}

// CopyFields writes every field of in not yet read to out, in stream order,
// converting through Go values. Nested structures with unregistered aliases
// are copied as maps.
func CopyFields(out WireOut, in WireIn) error {
	for {
		key, value, ok := in.Next()
		if !ok {
			return nil
		}
		var decoded any
		if err := value.Object(&decoded); err != nil {
			return err
		}
		var dst ValueOut
		if key.IsID() {
			dst = out.WriteID(key.ID)
		} else {
			dst = out.Write(key.Name)
		}
		if err := dst.Object(decoded); err != nil {
			return err
		}
	}
}
