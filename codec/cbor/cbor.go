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
// Package cbor adapts plain Go values to wire.Marshallable. Exported fields
// are written as wire fields, named the way fxamacker/cbor names them (field
// name, or the `cbor:"..."` tag), and read back the same way.
package cbor

import (
	"reflect"
	"sort"

	gocbor "github.com/fxamacker/cbor/v2"

	"connectrpc.com/wire"
)

var (
	encMode gocbor.EncMode
	decMode gocbor.DecMode
)

func init() {
	var err error
	encMode, err = gocbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
	decMode, err = gocbor.DecOptions{
		// Wire fields are string-keyed, so any-typed targets decode to
		// map[string]any.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// Value is a Marshallable view of the value V points to.
type Value[T any] struct {
	V *T
}

var _ wire.Marshallable = (*Value[struct{}])(nil)

// Of returns a Marshallable view of v.
func Of[T any](v *T) *Value[T] {
	return &Value[T]{V: v}
}

// WriteMarshallable writes the top-level fields of V in sorted order.
func (v *Value[T]) WriteMarshallable(out wire.WireOut) error {
	fields, err := toMap(v.V)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := out.Write(key).Object(normalize(fields[key])); err != nil {
			return err
		}
	}
	return nil
}

// ReadMarshallable decodes every field present into V. Fields V doesn't have
// are ignored; fields missing from the stream keep their current values.
func (v *Value[T]) ReadMarshallable(in wire.WireIn) error {
	fields := make(map[string]any)
	for {
		key, value, ok := in.Next()
		if !ok {
			break
		}
		var decoded any
		if err := value.Object(&decoded); err != nil {
			return err
		}
		fields[key.String()] = decoded
	}
	data, err := encMode.Marshal(fields)
	if err != nil {
		return wire.NewError(wire.CodeInvalidArgument, err)
	}
	if err := decMode.Unmarshal(data, v.V); err != nil {
		return wire.NewError(wire.CodeInvalidArgument, err)
	}
	return nil
}

// toMap round-trips v through CBOR, which applies struct tags and
// omitempty the same way reading does.
func toMap(v any) (map[string]any, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, wire.NewError(wire.CodeInvalidArgument, err)
	}
	var fields map[string]any
	if err := decMode.Unmarshal(data, &fields); err != nil {
		return nil, wire.NewError(wire.CodeInvalidArgument, err)
	}
	return fields, nil
}

// normalize converts the generic values CBOR decodes to into ones
// wire.ValueOut.Object writes.
func normalize(value any) any {
	switch v := value.(type) {
	case uint64:
		if v <= 1<<63-1 {
			return int64(v)
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, element := range v {
			out[i] = normalize(element)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, element := range v {
			out[key] = normalize(element)
		}
		return out
	}
	return value
}
