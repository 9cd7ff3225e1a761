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
	"context"
	"testing"
	"time"

	"connectrpc.com/wire/internal/assert"
)

func TestMessageHistory(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t.Run("overflow", func(t *testing.T) {
		t.Parallel()
		h := NewMessageHistory(0)
		assert.Equal(t, h.Max(), DefaultMaxHistory)
		for i := 0; i < DefaultMaxHistory; i++ {
			assert.Nil(t, h.Append(i, int64(i), start))
		}
		err := h.Append(99, 99, start)
		assert.Equal(t, CodeOf(err), CodeResourceExhausted)
		assert.Equal(t, h.Len(), DefaultMaxHistory)
		assert.Equal(t, h.LastSourceID(), DefaultMaxHistory-1)
	})
	t.Run("relay_copies", func(t *testing.T) {
		t.Parallel()
		h := NewMessageHistory(2)
		assert.Nil(t, h.Append(1, 10, start))
		relayed, err := h.Relay(2, 20, start.Add(time.Second))
		assert.Nil(t, err)
		assert.Equal(t, h.SourceIDs(), []int{1})
		assert.Equal(t, relayed.Sources(), []HistorySource{{1, 10}, {2, 20}})
		assert.Equal(t, relayed.Timings(), []time.Time{start, start.Add(time.Second)})
		_, err = relayed.Relay(3, 30, start)
		assert.Equal(t, CodeOf(err), CodeResourceExhausted)
	})
	t.Run("equal_ignores_timings", func(t *testing.T) {
		t.Parallel()
		a, b := NewMessageHistory(0), NewMessageHistory(0)
		assert.Nil(t, a.Append(1, 0, start))
		assert.Nil(t, b.Append(1, 0, start.Add(time.Hour)))
		assert.True(t, a.Equal(b))
		assert.Nil(t, b.Append(2, 0, start))
		assert.False(t, a.Equal(b))
		assert.False(t, a.Equal(nil))
		assert.True(t, (*MessageHistory)(nil).Equal(nil))
	})
	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		h := NewMessageHistory(0)
		assert.Equal(t, h.LastSourceID(), -1)
		assert.Equal(t, h.String(), "history[]")
	})
	t.Run("string", func(t *testing.T) {
		t.Parallel()
		h := NewMessageHistory(0)
		assert.Nil(t, h.Append(1, 0, start))
		assert.Nil(t, h.Append(2, 5, start))
		assert.Equal(t, h.String(), "history[1:0 2:5]")
	})
	t.Run("context", func(t *testing.T) {
		t.Parallel()
		_, ok := HistoryFromContext(context.Background())
		assert.False(t, ok)
		h := NewMessageHistory(0)
		got, ok := HistoryFromContext(ContextWithHistory(context.Background(), h))
		assert.True(t, ok)
		assert.True(t, got == h)
	})
}

func TestMessageHistoryCodecs(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	h := NewMessageHistory(3)
	assert.Nil(t, h.Append(1, 0, start))
	assert.Nil(t, h.Append(2, 200, start.Add(time.Millisecond)))
	assert.Nil(t, h.Append(3, 1<<40, start.Add(time.Second)))
	for _, codec := range allCodecs {
		codec := codec
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()
			data, err := Marshal(codec, h)
			assert.Nil(t, err)
			// A smaller maximum doesn't stop the read, only the next hop.
			got := NewMessageHistory(2)
			assert.Nil(t, Unmarshal(codec, data, got))
			assert.True(t, got.Equal(h))
			assert.Equal(t, got.Timings(), h.Timings())
			assert.Equal(t, CodeOf(got.Append(4, 0, start)), CodeResourceExhausted)
		})
	}
	t.Run("odd_sources", func(t *testing.T) {
		t.Parallel()
		err := Unmarshal(Text, []byte("sources: [1, 2, 3]\n"), NewMessageHistory(0))
		assert.Equal(t, CodeOf(err), CodeInvalidArgument)
	})
}
