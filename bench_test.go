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

	"connectrpc.com/wire/internal/assert"
)

func BenchmarkCodecs(b *testing.B) {
	value := newEverything()
	for _, codec := range allCodecs {
		codec := codec
		data, err := Marshal(codec, value)
		assert.Nil(b, err)
		b.Run(codec.Name()+"/marshal", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Marshal(codec, value)
			}
		})
		b.Run(codec.Name()+"/unmarshal", func(b *testing.B) {
			b.ReportAllocs()
			var got everything
			for i := 0; i < b.N; i++ {
				_ = Unmarshal(codec, data, &got)
			}
		})
	}
}

func BenchmarkWire(b *testing.B) {
	p := &point{X: 1, Y: 2, Label: "bench"}
	for _, codec := range allCodecs {
		codec := codec
		b.Run(codec.Name(), func(b *testing.B) {
			b.ReportAllocs()
			bytes := NewBytes(1 << 16)
			w := NewWire(bytes, codec)
			var got point
			for i := 0; i < b.N; i++ {
				bytes.Reset()
				_ = w.WriteDocument(false, func(out WireOut) error {
					return out.Write("point").Marshallable(p)
				})
				_, _ = w.ReadDocument(func(in WireIn) error {
					return in.Read("point").Marshallable(&got)
				})
			}
		})
	}
}

func BenchmarkMethod(b *testing.B) {
	ctx := context.Background()
	w := NewWire(NewBytes(1<<16), Binary)
	writer := NewMethodWriter(w, ledgerInterface(b))
	target := &ledger{}
	reader := newLedgerReader(b, w, target)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Bytes().Reset()
		_ = writer.Call(ctx, "add", int64(i), int64(1))
		_, _ = reader.ReadOne(ctx)
		target.calls = target.calls[:0]
	}
}
