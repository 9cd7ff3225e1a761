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
)

// Every document starts with a 4-byte prefix at a 4-byte aligned offset. The
// top bit marks a document still being written, the next bit marks meta-data,
// and the low 30 bits hold the payload length.
const (
	headerNotComplete uint32 = 0x80000000
	headerMetaData    uint32 = 0x40000000
	headerLengthMask  uint32 = 0x3FFFFFFF

	headerSize  = 4
	headerAlign = 4

	// MaxDocumentLength is the largest payload a prefix can describe.
	MaxDocumentLength = int(headerLengthMask)
)

type header uint32

func (h header) notComplete() bool { return uint32(h)&headerNotComplete != 0 }
func (h header) metaData() bool { return uint32(h)&headerMetaData != 0 }
func (h header) length() int { return int(uint32(h) & headerLengthMask) }

func newHeader(length int, meta, notComplete bool) header {
	h := uint32(length) & headerLengthMask
	if meta {
		h |= headerMetaData
	}
	if notComplete {
		h |= headerNotComplete
	}
	return header(h)
}

func encodeHeader(order binary.ByteOrder, h header) [4]byte {
	var word [4]byte
	order.PutUint32(word[:], uint32(h))
	return word
}

func decodeHeader(order binary.ByteOrder, word [4]byte) header {
	return header(order.Uint32(word[:]))
}
