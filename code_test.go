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
	"testing"

	"connectrpc.com/wire/internal/assert"
)

func TestCodeMarshaling(t *testing.T) {
	t.Parallel()
	var valid []Code
	for code := minCode; code <= maxCode; code++ {
		if code.valid() {
			valid = append(valid, code)
		}
	}
	t.Run("round-trip", func(t *testing.T) {
		t.Parallel()
		for _, code := range valid {
			text, err := code.MarshalText()
			assert.Nil(t, err)
			var in Code
			assert.Nil(t, in.UnmarshalText(text))
			assert.Equal(t, in, code)
		}
	})
	t.Run("names", func(t *testing.T) {
		t.Parallel()
		var code Code
		assert.Nil(t, code.UnmarshalText([]byte("DATA_LOSS")))
		assert.Equal(t, code, CodeDataLoss)
	})
	t.Run("out of bounds", func(t *testing.T) {
		t.Parallel()
		_, err := (maxCode + 1).MarshalText()
		assert.NotNil(t, err)
		_, err = Code(1).MarshalText()
		assert.NotNil(t, err)
		var code Code
		assert.NotNil(t, code.UnmarshalText([]byte("999")))
		assert.NotNil(t, code.UnmarshalText([]byte("foobar")))
	})
}
