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
	"bytes"
	"sync"
)

// scratchPool holds buffers for compression and text serialization.
var scratchPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

func getScratch() *bytes.Buffer {
	return scratchPool.Get().(*bytes.Buffer) //nolint:forcetypeassert
}

func putScratch(buf *bytes.Buffer) {
	const max = 1024 * 1024 // if >1 MiB, don't hold onto it
	if buf.Cap() > max {
		return
	}
	buf.Reset()
	scratchPool.Put(buf)
}
