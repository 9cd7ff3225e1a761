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

package clock

import (
	"testing"
	"time"

	"connectrpc.com/wire/internal/assert"
)

func TestFake(t *testing.T) {
	t.Parallel()
	epoch := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	t.Run("stands_still", func(t *testing.T) {
		t.Parallel()
		clock := Fake(epoch)
		assert.Equal(t, clock.Now(), epoch)
		assert.Equal(t, clock.Now(), epoch)
	})
	t.Run("advance", func(t *testing.T) {
		t.Parallel()
		clock := Fake(epoch)
		clock.Advance(time.Second)
		assert.Equal(t, clock.Now(), epoch.Add(time.Second))
		clock.Set(epoch)
		assert.Equal(t, clock.Now(), epoch)
	})
	t.Run("step", func(t *testing.T) {
		t.Parallel()
		clock := Fake(epoch)
		clock.SetStep(time.Millisecond)
		assert.Equal(t, clock.Now(), epoch)
		assert.Equal(t, clock.Now(), epoch.Add(time.Millisecond))
	})
}

func TestReal(t *testing.T) {
	t.Parallel()
	before := time.Now()
	now := Real().Now()
	assert.False(t, now.Before(before))
}
