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
	"time"

	"github.com/google/uuid"
)

// parseBinaryFields splits a run of key/value pairs. Values aren't decoded,
// only measured, which the type tags make possible without a schema.
func parseBinaryFields(src []byte, cfg *codecConfig) (*fieldSet, error) {
	fields := &fieldSet{cfg: cfg}
	pos := 0
	for pos < len(src) {
		if src[pos] == codePadding {
			pos++
			continue
		}
		key, next, err := readBinaryKey(src, pos)
		if err != nil {
			return nil, err
		}
		end, err := skipBinaryValue(src, next)
		if err != nil {
			return nil, err
		}
		fields.add(key, &binaryIn{data: src[next:end], cfg: cfg})
		pos = end
	}
	return fields, nil
}

func readBinaryKey(src []byte, pos int) (Key, int, error) {
	code := src[pos]
	switch {
	case isFieldNameCode(code):
		end := pos + 1 + int(code-codeFieldName0)
		if end > len(src) {
			return Key{}, 0, errTruncated("field name")
		}
		return NameKey(string(src[pos+1 : end])), end, nil
	case code == codeFieldNameAny:
		length, n := binary.Uvarint(src[pos+1:])
		if n <= 0 || uint64(len(src)-pos-1-n) < length {
			return Key{}, 0, errTruncated("field name")
		}
		start := pos + 1 + n
		return NameKey(string(src[start : start+int(length)])), start + int(length), nil
	case code == codeFieldNumber:
		id, n := binary.Uvarint(src[pos+1:])
		if n <= 0 || id > math.MaxInt64 {
			return Key{}, 0, errTruncated("field number")
		}
		return IDKey(int64(id)), pos + 1 + n, nil
	}
	return Key{}, 0, errorf(CodeInvalidArgument, "expected field at offset %d, found %s", pos, codeName(code))
}

// skipBinaryValue returns the offset one past the value starting at pos. A
// value carries at most one type prefix, and its alias must be plain text.
func skipBinaryValue(src []byte, pos int) (int, error) {
	if pos < len(src) && src[pos] == codeTypePrefix {
		next, err := skipPlainValue(src, pos+1)
		if err != nil {
			return 0, err
		}
		if next < len(src) && src[next] == codeTypePrefix {
			return 0, errorf(CodeInvalidArgument, "type prefix at offset %d is followed by another", pos)
		}
		pos = next
	}
	return skipPlainValue(src, pos)
}

// skipPlainValue skips a value that doesn't start with a type prefix.
func skipPlainValue(src []byte, pos int) (int, error) {
	if pos >= len(src) {
		return 0, errTruncated("value")
	}
	code := src[pos]
	fixed := func(n int) (int, error) {
		if pos+1+n > len(src) {
			return 0, errTruncated(codeName(code))
		}
		return pos + 1 + n, nil
	}
	switch {
	case code <= codeSmallIntMax:
		return pos + 1, nil
	case isShortTextCode(code):
		return fixed(int(code - codeText0))
	}
	switch code {
	case codeNull, codeTrue, codeFalse:
		return pos + 1, nil
	case codeInt8, codeUint8:
		return fixed(1)
	case codeInt16, codeUint16:
		return fixed(2)
	case codeInt32, codeUint32, codeFloat32:
		return fixed(4)
	case codeInt64, codeInt, codeUint64, codeFloat64, codeTime:
		return fixed(8)
	case codeUUID:
		return fixed(16)
	case codeBytes, codeTextAny:
		length, n := binary.Uvarint(src[pos+1:])
		if n <= 0 || uint64(len(src)-pos-1-n) < length {
			return 0, errTruncated(codeName(code))
		}
		return pos + 1 + n + int(length), nil
	case codeMarshallable, codeSequence:
		if pos+5 > len(src) {
			return 0, errTruncated(codeName(code))
		}
		length := binary.LittleEndian.Uint32(src[pos+1:])
		if uint64(len(src)-pos-5) < uint64(length) {
			return 0, errTruncated(codeName(code))
		}
		return pos + 5 + int(length), nil
	case codeCompressed:
		next, err := skipPlainValue(src, pos+1)
		if err != nil {
			return 0, err
		}
		return skipPlainValue(src, next)
	}
	return 0, errorf(CodeInvalidArgument, "unknown binary code %s at offset %d", codeName(code), pos)
}

func errTruncated(what string) *Error {
	return errorf(CodeInvalidArgument, "truncated %s", what)
}

// readBinaryText decodes a text value at pos.
func readBinaryText(src []byte, pos int) (string, int, error) {
	end, err := skipBinaryValue(src, pos)
	if err != nil {
		return "", 0, err
	}
	code := src[pos]
	switch {
	case isShortTextCode(code):
		return string(src[pos+1 : end]), end, nil
	case code == codeTextAny:
		_, n := binary.Uvarint(src[pos+1:])
		return string(src[pos+1+n : end]), end, nil
	}
	return "", 0, errorf(CodeInvalidArgument, "expected text, found %s", codeName(code))
}

// binaryIn is one encoded value, exactly as long as skipBinaryValue says.
type binaryIn struct {
	data []byte
	cfg  *codecConfig
}

var _ ValueIn = (*binaryIn)(nil)

// body strips a type prefix, returning the alias and the described value.
func (v *binaryIn) body() (string, []byte) {
	if len(v.data) == 0 || v.data[0] != codeTypePrefix {
		return "", v.data
	}
	alias, next, err := readBinaryText(v.data, 1)
	if err != nil {
		return "", v.data
	}
	return alias, v.data[next:]
}

func (v *binaryIn) IsPresent() bool { return true }

func (v *binaryIn) IsNull() bool {
	_, body := v.body()
	return len(body) > 0 && body[0] == codeNull
}

func (v *binaryIn) TypeName() string {
	alias, _ := v.body()
	return alias
}

func (v *binaryIn) scalar() (any, error) {
	_, body := v.body()
	if len(body) == 0 {
		return nil, errTruncated("value")
	}
	code := body[0]
	switch {
	case code <= codeSmallIntMax:
		return int64(code), nil
	case isShortTextCode(code):
		return string(body[1:]), nil
	}
	switch code {
	case codeNull:
		return nil, nil
	case codeTrue:
		return true, nil
	case codeFalse:
		return false, nil
	case codeInt8:
		return int8(body[1]), nil
	case codeInt16:
		return int16(binary.LittleEndian.Uint16(body[1:])), nil
	case codeInt32:
		return int32(binary.LittleEndian.Uint32(body[1:])), nil
	case codeInt64:
		return int64(binary.LittleEndian.Uint64(body[1:])), nil
	case codeInt:
		return int(int64(binary.LittleEndian.Uint64(body[1:]))), nil
	case codeUint8:
		return body[1], nil
	case codeUint16:
		return binary.LittleEndian.Uint16(body[1:]), nil
	case codeUint32:
		return binary.LittleEndian.Uint32(body[1:]), nil
	case codeUint64:
		return binary.LittleEndian.Uint64(body[1:]), nil
	case codeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(body[1:])), nil
	case codeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(body[1:])), nil
	case codeTextAny:
		text, _, err := readBinaryText(body, 0)
		return text, err
	case codeBytes:
		_, n := binary.Uvarint(body[1:])
		return append([]byte(nil), body[1+n:]...), nil
	case codeUUID:
		var id uuid.UUID
		copy(id[:], body[1:])
		return id, nil
	case codeTime:
		return time.Unix(0, int64(binary.LittleEndian.Uint64(body[1:]))).UTC(), nil
	case codeCompressed:
		name, next, err := readBinaryText(body, 1)
		if err != nil {
			return nil, err
		}
		compressed := (&binaryIn{data: body[next:], cfg: v.cfg}).Bytes()
		return decompressWith(v.cfg, name, compressed)
	}
	return nil, errorf(CodeInvalidArgument, "%s is not a scalar", codeName(code))
}

func (v *binaryIn) Bool() bool { return toBool(v.cfg, v) }
func (v *binaryIn) Int8() int8 { return toInt8(v.cfg, v) }
func (v *binaryIn) Int16() int16 { return toInt16(v.cfg, v) }
func (v *binaryIn) Int32() int32 { return toInt32(v.cfg, v) }
func (v *binaryIn) Int64() int64 { return toInt64(v.cfg, v) }
func (v *binaryIn) Int() int { return toInt(v.cfg, v) }
func (v *binaryIn) Uint8() uint8 { return toUint8(v.cfg, v) }
func (v *binaryIn) Uint16() uint16 { return toUint16(v.cfg, v) }
func (v *binaryIn) Uint32() uint32 { return toUint32(v.cfg, v) }
func (v *binaryIn) Uint64() uint64 { return toUint64(v.cfg, v) }
func (v *binaryIn) Float32() float32 { return toFloat32(v.cfg, v) }
func (v *binaryIn) Float64() float64 { return toFloat64(v.cfg, v) }
func (v *binaryIn) Text() string { return toText(v.cfg, v) }
func (v *binaryIn) Bytes() []byte { return toBytes(v.cfg, v, false) }
func (v *binaryIn) UUID() uuid.UUID { return toUUID(v.cfg, v) }
func (v *binaryIn) Time() time.Time { return toTime(v.cfg, v) }
func (v *binaryIn) Object(t any) error { return readObject(v.cfg, v, t) }

// content returns the inside of a marshallable or sequence block, or nil
// with ok set for null.
func (v *binaryIn) content(code byte) ([]byte, bool, error) {
	_, body := v.body()
	switch {
	case len(body) == 0:
		return nil, false, errTruncated("value")
	case body[0] == codeNull:
		return nil, false, nil
	case body[0] != code:
		return nil, false, errorf(CodeInvalidArgument, "expected %s, found %s", codeName(code), codeName(body[0]))
	}
	return body[5:], true, nil
}

func (v *binaryIn) Sequence(fn func(ValueIn) error) error {
	content, ok, err := v.content(codeSequence)
	if err != nil || !ok {
		return err
	}
	for pos := 0; pos < len(content); {
		end, err := skipBinaryValue(content, pos)
		if err != nil {
			return err
		}
		if err := fn(&binaryIn{data: content[pos:end], cfg: v.cfg}); err != nil {
			return err
		}
		pos = end
	}
	return nil
}

func (v *binaryIn) Marshallable(m Marshallable) error {
	fields, err := v.fields()
	if err != nil || fields == nil {
		return err
	}
	return readMarshallable(fields, m)
}

func (v *binaryIn) fields() (*fieldSet, error) {
	content, ok, err := v.content(codeMarshallable)
	if err != nil || !ok {
		return nil, err
	}
	return parseBinaryFields(content, v.cfg)
}

func (v *binaryIn) dynamic() (any, error) {
	alias, body := v.body()
	if len(body) == 0 {
		return nil, errTruncated("value")
	}
	switch body[0] {
	case codeSequence:
		return readDynamicSequence(v)
	case codeMarshallable:
		if m, ok := newAliased(v.cfg, alias); ok {
			if err := v.Marshallable(m); err != nil {
				return nil, err
			}
			return m, nil
		}
		fields, err := v.fields()
		if err != nil {
			return nil, err
		}
		return readDynamicMap(fields)
	}
	return v.scalar()
}
