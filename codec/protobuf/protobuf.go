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
// Package protobuf adapts protocol buffer messages to wire.Marshallable.
// Populated fields are written under their proto names; readers accept
// proto names or field numbers and skip fields the message doesn't declare.
package protobuf

import (
	"sort"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"connectrpc.com/wire"
)

// Message is a Marshallable view of a proto.Message.
type Message struct {
	proto.Message
}

var _ wire.Marshallable = (*Message)(nil)

// Of returns a Marshallable view of m.
func Of(m proto.Message) *Message {
	return &Message{Message: m}
}

// WriteMarshallable writes populated fields in field number order.
func (m *Message) WriteMarshallable(out wire.WireOut) error {
	msg := m.ProtoReflect()
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if !msg.Has(fd) {
			continue
		}
		if err := writeField(out.Write(string(fd.Name())), fd, msg.Get(fd)); err != nil {
			return err
		}
	}
	return nil
}

// ReadMarshallable merges the fields present into the message.
func (m *Message) ReadMarshallable(in wire.WireIn) error {
	msg := m.ProtoReflect()
	fields := msg.Descriptor().Fields()
	for {
		key, value, ok := in.Next()
		if !ok {
			return nil
		}
		var fd protoreflect.FieldDescriptor
		if key.IsID() {
			fd = fields.ByNumber(protoreflect.FieldNumber(key.ID))
		} else {
			fd = fields.ByName(protoreflect.Name(key.Name))
		}
		if fd == nil || value.IsNull() {
			continue
		}
		if err := readField(msg, fd, value); err != nil {
			return err
		}
	}
}

func writeField(out wire.ValueOut, fd protoreflect.FieldDescriptor, v protoreflect.Value) error {
	switch {
	case fd.IsList():
		list := v.List()
		return out.Sequence(func(elements wire.ValueOut) error {
			for i := 0; i < list.Len(); i++ {
				if err := writeSingular(elements, fd, list.Get(i)); err != nil {
					return err
				}
			}
			return nil
		})
	case fd.IsMap():
		return out.Marshallable(&mapEntries{fd: fd, m: v.Map()})
	}
	return writeSingular(out, fd, v)
}

func writeSingular(out wire.ValueOut, fd protoreflect.FieldDescriptor, v protoreflect.Value) error {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		out.Bool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		out.Int32(int32(v.Int()))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		out.Int64(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		out.Int64(int64(v.Uint()))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		// Values above MaxInt64 wrap and are restored by the reader.
		out.Int64(int64(v.Uint()))
	case protoreflect.FloatKind:
		out.Float32(float32(v.Float()))
	case protoreflect.DoubleKind:
		out.Float64(v.Float())
	case protoreflect.StringKind:
		out.Text(v.String())
	case protoreflect.BytesKind:
		out.Bytes(v.Bytes())
	case protoreflect.EnumKind:
		out.Int32(int32(v.Enum()))
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return out.Marshallable(Of(v.Message().Interface()))
	default:
		return wire.NewError(wire.CodeUnimplemented, errUnsupportedKind(fd))
	}
	return nil
}

func readField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, in wire.ValueIn) error {
	switch {
	case fd.IsList():
		list := msg.Mutable(fd).List()
		return in.Sequence(func(element wire.ValueIn) error {
			if isMessage(fd) {
				value := list.NewElement()
				if err := element.Marshallable(Of(value.Message().Interface())); err != nil {
					return err
				}
				list.Append(value)
				return nil
			}
			list.Append(readScalar(fd, element))
			return nil
		})
	case fd.IsMap():
		return in.Marshallable(&mapEntries{fd: fd, m: msg.Mutable(fd).Map()})
	case isMessage(fd):
		return in.Marshallable(Of(msg.Mutable(fd).Message().Interface()))
	}
	msg.Set(fd, readScalar(fd, in))
	return nil
}

func readScalar(fd protoreflect.FieldDescriptor, in wire.ValueIn) protoreflect.Value {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return protoreflect.ValueOfBool(in.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return protoreflect.ValueOfInt32(in.Int32())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return protoreflect.ValueOfInt64(in.Int64())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return protoreflect.ValueOfUint32(uint32(in.Int64()))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return protoreflect.ValueOfUint64(uint64(in.Int64()))
	case protoreflect.FloatKind:
		return protoreflect.ValueOfFloat32(in.Float32())
	case protoreflect.DoubleKind:
		return protoreflect.ValueOfFloat64(in.Float64())
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(in.Text())
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes(in.Bytes())
	case protoreflect.EnumKind:
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(in.Int32()))
	}
	return fd.Default()
}

func isMessage(fd protoreflect.FieldDescriptor) bool {
	return fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind
}

// mapEntries writes a proto map as a nested structure keyed by the map
// keys' text form.
type mapEntries struct {
	fd protoreflect.FieldDescriptor
	m  protoreflect.Map
}

func (e *mapEntries) WriteMarshallable(out wire.WireOut) error {
	keys := make([]protoreflect.MapKey, 0, e.m.Len())
	e.m.Range(func(key protoreflect.MapKey, _ protoreflect.Value) bool {
		keys = append(keys, key)
		return true
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		if err := writeSingular(out.Write(key.String()), e.fd.MapValue(), e.m.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

func (e *mapEntries) ReadMarshallable(in wire.WireIn) error {
	for {
		name, value, ok := in.Next()
		if !ok {
			return nil
		}
		key, err := parseMapKey(e.fd.MapKey(), name.String())
		if err != nil {
			return err
		}
		valueField := e.fd.MapValue()
		if isMessage(valueField) {
			if err := value.Marshallable(Of(e.m.Mutable(key).Message().Interface())); err != nil {
				return err
			}
			continue
		}
		e.m.Set(key, readScalar(valueField, value))
	}
}

func parseMapKey(fd protoreflect.FieldDescriptor, text string) (protoreflect.MapKey, error) {
	var value protoreflect.Value
	switch fd.Kind() {
	case protoreflect.StringKind:
		value = protoreflect.ValueOfString(text)
	case protoreflect.BoolKind:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return protoreflect.MapKey{}, wire.NewError(wire.CodeInvalidArgument, err)
		}
		value = protoreflect.ValueOfBool(b)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, wire.NewError(wire.CodeInvalidArgument, err)
		}
		value = protoreflect.ValueOfInt32(int32(n))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, wire.NewError(wire.CodeInvalidArgument, err)
		}
		value = protoreflect.ValueOfInt64(n)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, wire.NewError(wire.CodeInvalidArgument, err)
		}
		value = protoreflect.ValueOfUint32(uint32(n))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, wire.NewError(wire.CodeInvalidArgument, err)
		}
		value = protoreflect.ValueOfUint64(n)
	default:
		return protoreflect.MapKey{}, wire.NewError(wire.CodeUnimplemented, errUnsupportedKind(fd))
	}
	return value.MapKey(), nil
}

type unsupportedKindError struct {
	fd protoreflect.FieldDescriptor
}

func errUnsupportedKind(fd protoreflect.FieldDescriptor) error {
	return &unsupportedKindError{fd: fd}
}

func (e *unsupportedKindError) Error() string {
	return "unsupported kind " + e.fd.Kind().String() + " of field " + string(e.fd.FullName())
}
