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
	"fmt"
)

// Binary type tags. Every binary value starts with one of these bytes. The
// values are protocol constants: changing them breaks stored streams.
//
//	0x00-0x7F  non-negative integer 0..127, inline
//	0x80-0x8F  length-prefixed blocks and padding
//	0x90-0x9F  floating point
//	0xA0-0xAF  fixed-width integers
//	0xB0-0xBF  booleans, null and extended codes
//	0xC0-0xDF  field name of 0..31 bytes, length in the low bits
//	0xE0-0xFF  text of 0..31 bytes, length in the low bits
const (
	codeSmallIntMax byte = 0x7F

	// codeBytes is followed by a uvarint length and raw bytes.
	codeBytes byte = 0x80
	// codeMarshallable is followed by a 4-byte little-endian length and a
	// run of key/value pairs.
	codeMarshallable byte = 0x81
	// codeSequence is followed by a 4-byte little-endian length and a run of
	// values.
	codeSequence byte = 0x82
	// codePadding fills rolled-back documents.
	codePadding byte = 0x8E

	codeFloat32 byte = 0x90
	codeFloat64 byte = 0x91

	codeUint8  byte = 0xA0
	codeUint16 byte = 0xA1
	codeUint32 byte = 0xA2
	codeUint64 byte = 0xA3
	codeInt8   byte = 0xA4
	codeInt16  byte = 0xA5
	codeInt32  byte = 0xA6
	codeInt64  byte = 0xA7
	// codeInt is a Go int, written as 8 bytes whatever the platform width.
	codeInt byte = 0xA8

	codeFalse byte = 0xB0
	codeTrue  byte = 0xB1
	// codeCompressed is followed by the compressor name (a text value) and a
	// codeBytes block of compressed data.
	codeCompressed byte = 0xB5
	// codeTypePrefix is followed by an alias (a text value) and the value it
	// describes.
	codeTypePrefix byte = 0xB6
	// codeFieldNameAny is followed by a uvarint length and UTF-8 bytes.
	codeFieldNameAny byte = 0xB7
	// codeTextAny is followed by a uvarint length and UTF-8 bytes.
	codeTextAny byte = 0xB8
	// codeFieldNumber is followed by a uvarint.
	codeFieldNumber byte = 0xBA
	codeNull        byte = 0xBB
	// codeUUID is followed by 16 bytes.
	codeUUID byte = 0xBC
	// codeTime is followed by 8 bytes of little-endian Unix nanoseconds.
	codeTime byte = 0xBD

	codeFieldName0 byte = 0xC0
	codeText0      byte = 0xE0

	shortLengthMax = 31
)

func isFieldNameCode(code byte) bool {
	return code >= codeFieldName0 && code < codeText0
}

func isShortTextCode(code byte) bool {
	return code >= codeText0
}

func codeName(code byte) string {
	switch {
	case code <= codeSmallIntMax:
		return "int"
	case isShortTextCode(code):
		return "text"
	case isFieldNameCode(code):
		return "field"
	}
	switch code {
	case codeBytes:
		return "bytes"
	case codeMarshallable:
		return "marshallable"
	case codeSequence:
		return "sequence"
	case codePadding:
		return "padding"
	case codeFloat32:
		return "float32"
	case codeFloat64:
		return "float64"
	case codeInt8:
		return "int8"
	case codeInt16:
		return "int16"
	case codeInt32:
		return "int32"
	case codeInt64:
		return "int64"
	case codeInt:
		return "int"
	case codeUint8:
		return "uint8"
	case codeUint16:
		return "uint16"
	case codeUint32:
		return "uint32"
	case codeUint64:
		return "uint64"
	case codeFalse, codeTrue:
		return "bool"
	case codeCompressed:
		return "compressed"
	case codeTypePrefix:
		return "type"
	case codeFieldNameAny, codeFieldNumber:
		return "field"
	case codeTextAny:
		return "text"
	case codeNull:
		return "null"
	case codeUUID:
		return "uuid"
	case codeTime:
		return "time"
	}
	return fmt.Sprintf("0x%02X", code)
}
