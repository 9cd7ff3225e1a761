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
	"testing"

	"connectrpc.com/wire/internal/assert"
)

func TestHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		length      int
		meta        bool
		notComplete bool
		word        uint32
	}{
		{0, false, false, 0},
		{5, false, false, 5},
		{5, true, false, 0x40000005},
		{0, false, true, 0x80000000},
		{MaxDocumentLength, true, true, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		h := newHeader(tt.length, tt.meta, tt.notComplete)
		assert.Equal(t, uint32(h), tt.word)
		assert.Equal(t, h.length(), tt.length)
		assert.Equal(t, h.metaData(), tt.meta)
		assert.Equal(t, h.notComplete(), tt.notComplete)
	}
	t.Run("byte_order", func(t *testing.T) {
		t.Parallel()
		h := newHeader(0x0102, true, false)
		little := encodeHeader(binary.LittleEndian, h)
		big := encodeHeader(binary.BigEndian, h)
		assert.Equal(t, little, [4]byte{0x02, 0x01, 0x00, 0x40})
		assert.Equal(t, big, [4]byte{0x40, 0x00, 0x01, 0x02})
		assert.Equal(t, decodeHeader(binary.BigEndian, big), h)
		assert.Equal(t, decodeHeader(binary.LittleEndian, little), h)
	})
}
