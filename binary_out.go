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
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

type binaryCodec struct{}

var _ Codec = (*binaryCodec)(nil)

func (c *binaryCodec) Name() string { return codecNameBinary }

func (c *binaryCodec) typesByDefault() bool { return true }

func (c *binaryCodec) newEncoder(dst *Bytes, cfg *codecConfig) encoder {
	return &binaryOut{dst: dst, cfg: cfg}
}

func (c *binaryCodec) newDecoder(src []byte, cfg *codecConfig) (*fieldSet, error) {
	return parseBinaryFields(src, cfg)
}

// binaryOut appends tagged values directly to the destination. It serves as
// both the WireOut and the ValueOut: a field key is written, then its value.
type binaryOut struct {
	dst     *Bytes
	cfg     *codecConfig
	scratch [binary.MaxVarintLen64]byte
}

var (
	_ WireOut  = (*binaryOut)(nil)
	_ ValueOut = (*binaryOut)(nil)
)

func (o *binaryOut) finish() error { return nil }

func (o *binaryOut) Write(name string) ValueOut {
	if len(name) <= shortLengthMax {
		_ = o.dst.WriteByte(codeFieldName0 + byte(len(name)))
	} else {
		_ = o.dst.WriteByte(codeFieldNameAny)
		o.uvarint(uint64(len(name)))
	}
	_, _ = o.dst.WriteString(name)
	return o
}

func (o *binaryOut) WriteID(id int64) ValueOut {
	_ = o.dst.WriteByte(codeFieldNumber)
	o.uvarint(uint64(id))
	return o
}

func (o *binaryOut) Nil() {
	_ = o.dst.WriteByte(codeNull)
}

func (o *binaryOut) Bool(v bool) {
	if v {
		_ = o.dst.WriteByte(codeTrue)
		return
	}
	_ = o.dst.WriteByte(codeFalse)
}

func (o *binaryOut) Int8(v int8) {
	_, _ = o.dst.Write([]byte{codeInt8, byte(v)})
}

func (o *binaryOut) Int16(v int16) {
	var buf [3]byte
	buf[0] = codeInt16
	binary.LittleEndian.PutUint16(buf[1:], uint16(v))
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) Int32(v int32) {
	var buf [5]byte
	buf[0] = codeInt32
	binary.LittleEndian.PutUint32(buf[1:], uint32(v))
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) Int(v int) {
	o.fixed64(codeInt, uint64(v))
}

func (o *binaryOut) Uint8(v uint8) {
	_, _ = o.dst.Write([]byte{codeUint8, v})
}

func (o *binaryOut) Uint16(v uint16) {
	var buf [3]byte
	buf[0] = codeUint16
	binary.LittleEndian.PutUint16(buf[1:], v)
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) Uint32(v uint32) {
	var buf [5]byte
	buf[0] = codeUint32
	binary.LittleEndian.PutUint32(buf[1:], v)
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) Uint64(v uint64) {
	o.fixed64(codeUint64, v)
}

// Int64 writes small non-negative values inline in the tag byte.
func (o *binaryOut) Int64(v int64) {
	if v >= 0 && v <= int64(codeSmallIntMax) {
		_ = o.dst.WriteByte(byte(v))
		return
	}
	o.fixed64(codeInt64, uint64(v))
}

func (o *binaryOut) Float32(v float32) {
	var buf [5]byte
	buf[0] = codeFloat32
	binary.LittleEndian.PutUint32(buf[1:], math.Float32bits(v))
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) Float64(v float64) {
	o.fixed64(codeFloat64, math.Float64bits(v))
}

func (o *binaryOut) Text(v string) {
	if len(v) <= shortLengthMax {
		_ = o.dst.WriteByte(codeText0 + byte(len(v)))
	} else {
		_ = o.dst.WriteByte(codeTextAny)
		o.uvarint(uint64(len(v)))
	}
	_, _ = o.dst.WriteString(v)
}

func (o *binaryOut) Bytes(v []byte) {
	_ = o.dst.WriteByte(codeBytes)
	o.uvarint(uint64(len(v)))
	_, _ = o.dst.Write(v)
}

func (o *binaryOut) UUID(v uuid.UUID) {
	_ = o.dst.WriteByte(codeUUID)
	_, _ = o.dst.Write(v[:])
}

func (o *binaryOut) Time(v time.Time) {
	o.fixed64(codeTime, uint64(v.UnixNano()))
}

func (o *binaryOut) Compressed(name string, data []byte) error {
	compressed, ok, err := compressWith(o.cfg, name, data)
	if err != nil {
		return err
	}
	if !ok {
		o.Bytes(data)
		return nil
	}
	_ = o.dst.WriteByte(codeCompressed)
	o.Text(name)
	o.Bytes(compressed)
	return nil
}

func (o *binaryOut) Sequence(fn func(ValueOut) error) error {
	return o.block(codeSequence, func() error { return fn(o) })
}

func (o *binaryOut) Marshallable(m Marshallable) error {
	return o.block(codeMarshallable, func() error { return m.WriteMarshallable(o) })
}

func (o *binaryOut) TypedMarshallable(m Marshallable) error {
	if *o.cfg.types {
		_ = o.dst.WriteByte(codeTypePrefix)
		o.Text(aliasOf(o.cfg.lookup, m))
	}
	return o.Marshallable(m)
}

func (o *binaryOut) Map(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return o.block(codeMarshallable, func() error {
		for _, key := range keys {
			if err := o.Write(key).Object(m[key]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *binaryOut) Object(v any) error {
	return writeObject(o, v)
}

// block writes code, reserves a 4-byte length and patches it once fn has
// written the content.
func (o *binaryOut) block(code byte, fn func() error) error {
	_ = o.dst.WriteByte(code)
	lengthAt := o.dst.Reserve(4)
	start := o.dst.WritePosition()
	if err := fn(); err != nil {
		return err
	}
	length := o.dst.WritePosition() - start
	if length > math.MaxUint32 {
		return errorf(CodeResourceExhausted, "%s of %d bytes is too large", codeName(code), length)
	}
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], uint32(length))
	o.dst.Patch(lengthAt, word[:])
	return nil
}

func (o *binaryOut) fixed64(code byte, v uint64) {
	var buf [9]byte
	buf[0] = code
	binary.LittleEndian.PutUint64(buf[1:], v)
	_, _ = o.dst.Write(buf[:])
}

func (o *binaryOut) uvarint(v uint64) {
	n := binary.PutUvarint(o.scratch[:], v)
	_, _ = o.dst.Write(o.scratch[:n])
}
