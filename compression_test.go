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
	"io"
	"strings"
	"testing"

	"connectrpc.com/wire/internal/assert"
)

type blob struct {
	compressor string
	Data       []byte
}

func (b *blob) WriteMarshallable(out WireOut) error {
	return out.Write("data").Compressed(b.compressor, b.Data)
}

func (b *blob) ReadMarshallable(in WireIn) error {
	b.Data = in.Read("data").Bytes()
	return nil
}

func TestCompressors(t *testing.T) {
	t.Parallel()
	payload := []byte(strings.Repeat("compressible ", 500))
	for name, compressor := range defaultCompressors() {
		name, compressor := name, compressor
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, compressor.Name(), name)
			assert.False(t, compressor.ShouldCompress(make([]byte, oneKiB)))
			assert.True(t, compressor.ShouldCompress(payload))
			// Twice, so the second pass runs on pooled readers and writers.
			for i := 0; i < 2; i++ {
				var compressed bytes.Buffer
				writer, err := compressor.NewWriteCloser(&compressed)
				assert.Nil(t, err)
				_, err = writer.Write(payload)
				assert.Nil(t, err)
				assert.Nil(t, writer.Close())
				assert.True(t, compressed.Len() < len(payload))

				reader, err := compressor.NewReadCloser(&compressed)
				assert.Nil(t, err)
				got, err := io.ReadAll(reader)
				assert.Nil(t, err)
				assert.Nil(t, reader.Close())
				assert.Equal(t, got, payload)
			}
		})
	}
}

func TestCompressorRegistry(t *testing.T) {
	t.Parallel()
	t.Run("builtins_are_shared", func(t *testing.T) {
		t.Parallel()
		first, second := newWireConfig(Binary, nil), newWireConfig(JSON, nil)
		for name := range builtinCompressors {
			assert.True(t, first.compressors[name] == second.compressors[name], assert.Sprintf("%s has two pools", name))
		}
	})
	t.Run("added_compressors_stay_private", func(t *testing.T) {
		t.Parallel()
		custom := newGzipCompressor()
		custom.name = "gzip-fast"
		replaced := newLZ4Compressor()
		cfg := newWireConfig(Binary, []WireOption{WithCompressor(custom), WithCompressor(replaced)})
		assert.True(t, cfg.compressors["gzip-fast"] == Compressor(custom))
		assert.True(t, cfg.compressors[CompressLZ4] == Compressor(replaced))
		assert.True(t, cfg.compressors[CompressGzip] == builtinCompressors[CompressGzip])

		assert.Equal(t, len(builtinCompressors), 3)
		assert.True(t, builtinCompressors[CompressLZ4] != Compressor(replaced))
		_, ok := newWireConfig(Binary, nil).compressors["gzip-fast"]
		assert.False(t, ok)
	})
}

func TestCompressedValues(t *testing.T) {
	t.Parallel()
	large := []byte(strings.Repeat("abcdefgh", 1024))
	for _, codec := range allCodecs {
		for _, name := range []string{CompressGzip, CompressZstd, CompressLZ4} {
			codec, name := codec, name
			t.Run(codec.Name()+"/"+name, func(t *testing.T) {
				t.Parallel()
				data, err := Marshal(codec, &blob{compressor: name, Data: large}, WithTypes(true))
				assert.Nil(t, err)
				assert.True(t, len(data) < len(large), assert.Sprintf("%d bytes written", len(data)))
				got := &blob{}
				assert.Nil(t, Unmarshal(codec, data, got, WithTypes(true)))
				assert.Equal(t, got.Data, large)
			})
		}
	}
	t.Run("small_payloads_stay_plain", func(t *testing.T) {
		t.Parallel()
		small := []byte("tiny")
		data, err := Marshal(Text, &blob{compressor: CompressGzip, Data: small})
		assert.Nil(t, err)
		assert.Equal(t, string(data), "data: !!binary dGlueQ==\n")
		got := &blob{}
		assert.Nil(t, Unmarshal(Text, data, got))
		assert.Equal(t, got.Data, small)
	})
	t.Run("untyped_json_writes_plain_bytes", func(t *testing.T) {
		t.Parallel()
		data, err := Marshal(JSON, &blob{compressor: CompressZstd, Data: large})
		assert.Nil(t, err)
		assert.True(t, len(data) > len(large))
		got := &blob{}
		assert.Nil(t, Unmarshal(JSON, data, got))
		assert.Equal(t, got.Data, large)
	})
	t.Run("unknown_compressor", func(t *testing.T) {
		t.Parallel()
		_, err := Marshal(Binary, &blob{compressor: "brotli", Data: large})
		assert.NotNil(t, err)
		assert.Equal(t, CodeOf(err), CodeNotFound)
	})
	t.Run("read_limit", func(t *testing.T) {
		t.Parallel()
		data, err := Marshal(Binary, &blob{compressor: CompressGzip, Data: large})
		assert.Nil(t, err)
		var warned warnings
		got := &blob{}
		assert.Nil(t, Unmarshal(Binary, data, got, WithReadMaxBytes(len(large)-1), warned.option()))
		assert.Zero(t, len(got.Data))
		assert.Equal(t, len(warned.errs), 1)
		assert.Equal(t, CodeOf(warned.errs[0]), CodeResourceExhausted)
	})
}
