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
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	CompressGzip = "gzip"
	CompressZstd = "zstd"
	CompressLZ4  = "lz4"
)

const oneKiB = 1024

// To reset gzip readers when returning them to a sync.Pool, we need a source
// of valid gzipped data. Gzip files begin with a 10-byte header, which is
// simple enough to write in a literal - no need to go:embed a file.
var emptyGzipBytes = []byte{
	// Magic number, identifies file type.
	0x1f, 0x8b,
	// Compression method. 0-7 reserved, 8 deflate.
	8,
	// File flags.
	0,
	// 32-bit timestamp.
	0, 0, 0, 0,
	// Compression flags.
	0,
	// Operating system ID, 3 is Unix.
	3,
}

// A Compressor provides compressing readers and writers for byte blocks
// written with ValueOut.Compressed. The interface is designed to let
// implementations use a sync.Pool.
//
// Compressors also decide whether it's worth compressing a given payload.
// Often, it's not worth burning CPU cycles compressing small payloads.
type Compressor interface {
	// Name is written to the stream ahead of the compressed bytes.
	Name() string
	// NewReadCloser wraps the given Reader with decompression. The
	// ReadCloser must be closed when no longer used.
	NewReadCloser(io.Reader) (io.ReadCloser, error)
	// NewWriteCloser wraps the given Writer with compression. Data written
	// isn't valid until the WriteCloser is closed.
	NewWriteCloser(io.Writer) (io.WriteCloser, error)
	// ShouldCompress says whether or not the given payload should be
	// compressed.
	ShouldCompress([]byte) bool
}

// resettableReader and resettableWriter are the parts of gzip, zstd and lz4
// streams a pool needs.
type resettableReader interface {
	io.Reader
	Reset(io.Reader) error
}

type resettableWriter interface {
	io.WriteCloser
	Reset(io.Writer)
}

type pooledCompressor struct {
	name    string
	min     int
	readers sync.Pool
	writers sync.Pool
	// release prepares a reader for the pool, dropping references to the
	// last source.
	release func(resettableReader) error
}

var _ Compressor = (*pooledCompressor)(nil)

func newGzipCompressor() *pooledCompressor {
	return &pooledCompressor{
		name: CompressGzip,
		min:  oneKiB,
		readers: sync.Pool{
			New: func() any {
				// We don't want to use gzip.NewReader, because it requires a source of
				// valid gzipped bytes.
				return &gzip.Reader{}
			},
		},
		writers: sync.Pool{
			New: func() any {
				return gzip.NewWriter(io.Discard)
			},
		},
		release: func(reader resettableReader) error {
			return reader.Reset(bytes.NewReader(emptyGzipBytes))
		},
	}
}

func newZstdCompressor() *pooledCompressor {
	return &pooledCompressor{
		name: CompressZstd,
		min:  oneKiB,
		readers: sync.Pool{
			New: func() any {
				// Goroutine-free decoders can sit in a pool without leaking.
				decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					return err
				}
				return decoder
			},
		},
		writers: sync.Pool{
			New: func() any {
				encoder, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
				if err != nil {
					return err
				}
				return encoder
			},
		},
		release: func(reader resettableReader) error {
			return reader.Reset(nil)
		},
	}
}

func newLZ4Compressor() *pooledCompressor {
	return &pooledCompressor{
		name: CompressLZ4,
		min:  oneKiB,
		readers: sync.Pool{
			New: func() any {
				return lz4Reader{lz4.NewReader(nil)}
			},
		},
		writers: sync.Pool{
			New: func() any {
				return lz4.NewWriter(nil)
			},
		},
		release: func(reader resettableReader) error {
			return reader.Reset(nil)
		},
	}
}

// lz4Reader adapts lz4.Reader, whose Reset can't fail.
type lz4Reader struct {
	*lz4.Reader
}

func (r lz4Reader) Reset(reader io.Reader) error {
	r.Reader.Reset(reader)
	return nil
}

// builtinCompressors are shared by every wire, so their pools outlive any
// one Marshal call. Options that add compressors copy the map first.
var builtinCompressors = map[string]Compressor{
	CompressGzip: newGzipCompressor(),
	CompressZstd: newZstdCompressor(),
	CompressLZ4:  newLZ4Compressor(),
}

func defaultCompressors() map[string]Compressor {
	return builtinCompressors
}

func (c *pooledCompressor) Name() string { return c.name }

func (c *pooledCompressor) NewReadCloser(reader io.Reader) (io.ReadCloser, error) {
	pooled := c.readers.Get()
	if err, ok := pooled.(error); ok {
		return nil, err
	}
	decompressor, ok := pooled.(resettableReader)
	if !ok {
		// this should never happen since we control what goes into the pool
		return nil, fmt.Errorf("expected resettable reader from pool but got %T", pooled)
	}
	if err := decompressor.Reset(reader); err != nil {
		return nil, err
	}
	return &pooledReader{resettableReader: decompressor, compressor: c}, nil
}

func (c *pooledCompressor) NewWriteCloser(writer io.Writer) (io.WriteCloser, error) {
	pooled := c.writers.Get()
	if err, ok := pooled.(error); ok {
		return nil, err
	}
	compressor, ok := pooled.(resettableWriter)
	if !ok {
		// this should never happen since we control what goes into the pool
		return nil, fmt.Errorf("expected resettable writer from pool but got %T", pooled)
	}
	compressor.Reset(writer)
	return &pooledWriter{resettableWriter: compressor, compressor: c}, nil
}

func (c *pooledCompressor) ShouldCompress(bs []byte) bool {
	return len(bs) > c.min
}

// pooledReader returns its decompressor to the pool on Close.
type pooledReader struct {
	resettableReader

	compressor *pooledCompressor
}

func (r *pooledReader) Close() error {
	// Don't keep references
	if err := r.compressor.release(r.resettableReader); err != nil {
		return err
	}
	r.compressor.readers.Put(r.resettableReader)
	return nil
}

// pooledWriter returns its compressor to the pool on Close.
type pooledWriter struct {
	resettableWriter

	compressor *pooledCompressor
}

func (w *pooledWriter) Close() error {
	if err := w.resettableWriter.Close(); err != nil {
		return err
	}
	// Don't keep references
	w.resettableWriter.Reset(io.Discard)
	w.compressor.writers.Put(w.resettableWriter)
	return nil
}

// compressWith compresses data with the named compressor. ok is false when
// the compressor declines the payload and it should be written as is.
func compressWith(cfg *codecConfig, name string, data []byte) ([]byte, bool, error) {
	compressor, found := cfg.compressors[name]
	if !found {
		return nil, false, errorf(CodeNotFound, "no compressor named %q", name)
	}
	if !compressor.ShouldCompress(data) {
		return nil, false, nil
	}
	scratch := getScratch()
	defer putScratch(scratch)
	writer, err := compressor.NewWriteCloser(scratch)
	if err != nil {
		return nil, false, errorf(CodeInternal, "get %s compressor: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, false, errorf(CodeInternal, "compress with %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, false, errorf(CodeInternal, "compress with %s: %w", name, err)
	}
	return append([]byte(nil), scratch.Bytes()...), true, nil
}

func decompressWith(cfg *codecConfig, name string, data []byte) ([]byte, error) {
	compressor, found := cfg.compressors[name]
	if !found {
		return nil, errorf(CodeNotFound, "no compressor named %q", name)
	}
	reader, err := compressor.NewReadCloser(bytes.NewReader(data))
	if err != nil {
		return nil, errorf(CodeInvalidArgument, "get %s decompressor: %w", name, err)
	}
	scratch := getScratch()
	defer putScratch(scratch)
	readMaxBytes := int64(cfg.readMaxBytes)
	bytesRead, err := scratch.ReadFrom(io.LimitReader(reader, readMaxBytes+1))
	if closeErr := reader.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errorf(CodeInvalidArgument, "decompress with %s: %w", name, err)
	}
	if bytesRead > readMaxBytes {
		return nil, errorf(CodeResourceExhausted, "decompressed size is larger than configured max %d", readMaxBytes)
	}
	return append([]byte(nil), scratch.Bytes()...), nil
}
