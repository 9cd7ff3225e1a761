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
	"strconv"
	"time"

	"github.com/google/uuid"
)

// A Marshallable value can write itself to a WireOut and populate itself from
// a WireIn. ReadMarshallable must tolerate missing fields (leave them at their
// zero values) and need not read every field that is present: fields left
// unread are skipped, or handed to UnexpectedField if the value implements
// UnexpectedFieldHandler.
type Marshallable interface {
	WriteMarshallable(out WireOut) error
	ReadMarshallable(in WireIn) error
}

// UnexpectedFieldHandler is implemented by Marshallables that want to observe
// fields present in the stream but not read by ReadMarshallable. A non-nil
// error is returned to the caller exactly as the handler returned it.
type UnexpectedFieldHandler interface {
	UnexpectedField(key Key, in ValueIn) error
}

// A Key names a field: either a string or a small non-negative number.
type Key struct {
	Name string
	ID   int64
	isID bool
}

// NameKey returns a Key for a named field.
func NameKey(name string) Key { return Key{Name: name} }

// IDKey returns a Key for a numbered field.
func IDKey(id int64) Key { return Key{ID: id, isID: true} }

// IsID reports whether the key is numeric.
func (k Key) IsID() bool { return k.isID }

func (k Key) String() string {
	if k.isID {
		return strconv.FormatInt(k.ID, 10)
	}
	return k.Name
}

// WireOut writes the fields of a document or of a nested Marshallable.
type WireOut interface {
	// Write starts a named field. Exactly one value must be written to the
	// returned ValueOut.
	Write(name string) ValueOut
	// WriteID starts a numbered field.
	WriteID(id int64) ValueOut
}

// WireIn reads the fields of a document or of a nested Marshallable. Fields
// can be read by key in any order, or consumed in stream order with Next.
type WireIn interface {
	// Read returns the named field's value. Missing fields return a ValueIn
	// for which IsPresent is false and every scalar accessor yields zero.
	Read(name string) ValueIn
	// ReadID returns a numbered field's value.
	ReadID(id int64) ValueIn
	// Next returns the next field not yet read, in stream order.
	Next() (Key, ValueIn, bool)
}

// ValueOut writes exactly one value per call, except inside Sequence, where
// every call appends one element.
type ValueOut interface {
	Nil()
	Bool(v bool)
	Int8(v int8)
	Int16(v int16)
	Int32(v int32)
	Int64(v int64)
	// Int and the unsigned widths carry their Go type when types are
	// written, and read back as int64 otherwise.
	Int(v int)
	Uint8(v uint8)
	Uint16(v uint16)
	Uint32(v uint32)
	Uint64(v uint64)
	Float32(v float32)
	Float64(v float64)
	Text(v string)
	Bytes(v []byte)
	UUID(v uuid.UUID)
	Time(v time.Time)
	// Compressed writes data compressed with the named compressor. Small
	// payloads, or flavors that can't carry the compression marker, are
	// written as plain bytes. Readers get the original data back from Bytes.
	Compressed(compressor string, data []byte) error
	// Sequence writes a homogeneous sequence; fn appends its elements.
	Sequence(fn func(ValueOut) error) error
	// Marshallable writes a nested structure without a type marker.
	Marshallable(m Marshallable) error
	// TypedMarshallable writes a nested structure preceded by its alias, so
	// untyped readers can reconstruct it. With types disabled it's identical
	// to Marshallable.
	TypedMarshallable(m Marshallable) error
	// Map writes a string-keyed map in sorted key order.
	Map(m map[string]any) error
	// Object writes any supported Go value, dispatching on its type.
	Object(v any) error
}

// ValueIn reads one value. Scalar accessors convert between compatible
// representations; a value that can't be converted yields the zero value (NaN
// for floats) and a warning.
type ValueIn interface {
	// IsPresent is false for fields missing from the stream.
	IsPresent() bool
	// IsNull is true for explicit nulls and missing fields.
	IsNull() bool
	// TypeName returns the value's alias or type marker, if any.
	TypeName() string
	Bool() bool
	Int8() int8
	Int16() int16
	Int32() int32
	Int64() int64
	Int() int
	Uint8() uint8
	Uint16() uint16
	Uint32() uint32
	Uint64() uint64
	Float32() float32
	Float64() float64
	Text() string
	Bytes() []byte
	UUID() uuid.UUID
	Time() time.Time
	// Sequence calls fn once per element.
	Sequence(fn func(ValueIn) error) error
	// Marshallable populates m from a nested structure. A null or missing
	// value leaves m untouched.
	Marshallable(m Marshallable) error
	// Object decodes into target, which must be a pointer. *any receives the
	// most specific Go value the stream describes.
	Object(target any) error
}

type field struct {
	key   Key
	value ValueIn
	used  bool
}

// fieldSet is the WireIn shared by every flavor. Decoders collect the fields
// of a block up front, so lookups by key tolerate reordered, missing and
// extra fields.
type fieldSet struct {
	fields []field
	next   int
	cfg    *codecConfig
}

func (f *fieldSet) add(key Key, value ValueIn) {
	f.fields = append(f.fields, field{key: key, value: value})
}

func (f *fieldSet) Read(name string) ValueIn {
	return f.lookup(NameKey(name))
}

func (f *fieldSet) ReadID(id int64) ValueIn {
	return f.lookup(IDKey(id))
}

func (f *fieldSet) lookup(key Key) ValueIn {
	// Streams written by the same code are usually read in order, so search
	// from the cursor first.
	for i := f.next; i < len(f.fields); i++ {
		if !f.fields[i].used && f.fields[i].key == key {
			f.fields[i].used = true
			if i == f.next {
				f.advance()
			}
			return f.fields[i].value
		}
	}
	for i := 0; i < f.next; i++ {
		if !f.fields[i].used && f.fields[i].key == key {
			f.fields[i].used = true
			return f.fields[i].value
		}
	}
	return absentValue{}
}

func (f *fieldSet) Next() (Key, ValueIn, bool) {
	f.advance()
	if f.next >= len(f.fields) {
		return Key{}, nil, false
	}
	current := &f.fields[f.next]
	current.used = true
	f.advance()
	return current.key, current.value, true
}

func (f *fieldSet) advance() {
	for f.next < len(f.fields) && f.fields[f.next].used {
		f.next++
	}
}

// finish reports every unread field to m, or logs and skips it.
func (f *fieldSet) finish(m Marshallable) error {
	handler, hasHandler := m.(UnexpectedFieldHandler)
	for i := range f.fields {
		if f.fields[i].used {
			continue
		}
		f.fields[i].used = true
		if hasHandler {
			if err := handler.UnexpectedField(f.fields[i].key, f.fields[i].value); err != nil {
				return err
			}
			continue
		}
		f.cfg.debugf("skipping unexpected field %q reading %T", f.fields[i].key, m)
	}
	return nil
}

// readMarshallable runs m.ReadMarshallable over fields and then deals with
// whatever it left unread. Errors from m pass through unchanged.
func readMarshallable(fields *fieldSet, m Marshallable) error {
	if err := m.ReadMarshallable(fields); err != nil {
		return err
	}
	return fields.finish(m)
}

// absentValue stands in for a field that isn't in the stream.
type absentValue struct{}

func (absentValue) IsPresent() bool { return false }
func (absentValue) IsNull() bool { return true }
func (absentValue) TypeName() string { return "" }
func (absentValue) Bool() bool { return false }
func (absentValue) Int8() int8 { return 0 }
func (absentValue) Int16() int16 { return 0 }
func (absentValue) Int32() int32 { return 0 }
func (absentValue) Int64() int64 { return 0 }
func (absentValue) Int() int { return 0 }
func (absentValue) Uint8() uint8 { return 0 }
func (absentValue) Uint16() uint16 { return 0 }
func (absentValue) Uint32() uint32 { return 0 }
func (absentValue) Uint64() uint64 { return 0 }
func (absentValue) Float32() float32 { return 0 }
func (absentValue) Float64() float64 { return 0 }
func (absentValue) Text() string { return "" }
func (absentValue) Bytes() []byte { return nil }
func (absentValue) UUID() uuid.UUID { return uuid.Nil }
func (absentValue) Time() time.Time { return time.Time{} }
func (absentValue) Sequence(func(ValueIn) error) error { return nil }
func (absentValue) Marshallable(Marshallable) error { return nil }
func (absentValue) Object(any) error { return nil }
