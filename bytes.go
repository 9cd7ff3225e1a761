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
	"sync/atomic"
	"unsafe"
)

const minBytesCapacity = 256

// An Offset identifies a region reserved in a Bytes. It stays valid across
// growth of the underlying storage.
type Offset int64

// Bytes is an elastic byte sequence with independent read and write
// positions. It is the storage a Wire frames documents into.
//
// Bytes supports one writing goroutine and one reading goroutine. The writer
// publishes its backing slice and write position atomically, and document
// prefixes are stored and loaded with atomic 32-bit operations, so a reader
// never observes a prefix before the payload it describes. Everything else is
// unsynchronized: concurrent writers (or concurrent readers) must coordinate
// externally.
type Bytes struct {
	mem       atomic.Pointer[[]byte]
	writePos  atomic.Int64
	readPos   int64
	writeDone atomic.Bool
}

// NewBytes returns an empty Bytes with at least the given capacity.
func NewBytes(capacity int) *Bytes {
	if capacity < minBytesCapacity {
		capacity = minBytesCapacity
	}
	mem := make([]byte, capacity)
	b := &Bytes{}
	b.mem.Store(&mem)
	return b
}

// BytesOf returns a Bytes whose readable content is a copy of data. The
// result is still writable.
func BytesOf(data []byte) *Bytes {
	b := NewBytes(len(data))
	_, _ = b.Write(data)
	return b
}

// Write appends p, growing the storage as needed. It implements io.Writer and
// never returns an error.
func (b *Bytes) Write(p []byte) (int, error) {
	pos := b.writePos.Load()
	mem := b.ensure(pos + int64(len(p)))
	copy(mem[pos:], p)
	b.writePos.Store(pos + int64(len(p)))
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Bytes) WriteByte(c byte) error {
	pos := b.writePos.Load()
	mem := b.ensure(pos + 1)
	mem[pos] = c
	b.writePos.Store(pos + 1)
	return nil
}

// WriteString appends the bytes of s.
func (b *Bytes) WriteString(s string) (int, error) {
	pos := b.writePos.Load()
	mem := b.ensure(pos + int64(len(s)))
	copy(mem[pos:], s)
	b.writePos.Store(pos + int64(len(s)))
	return len(s), nil
}

// Reserve appends n zero bytes and returns their offset so they can be
// patched later.
func (b *Bytes) Reserve(n int) Offset {
	pos := b.writePos.Load()
	mem := b.ensure(pos + int64(n))
	clear(mem[pos : pos+int64(n)])
	b.writePos.Store(pos + int64(n))
	return Offset(pos)
}

// Patch overwrites previously written bytes at off.
func (b *Bytes) Patch(off Offset, p []byte) {
	mem := *b.mem.Load()
	copy(mem[off:int64(off)+int64(len(p))], p)
}

// Fill overwrites n previously written bytes at off with c.
func (b *Bytes) Fill(off Offset, n int, c byte) {
	mem := *b.mem.Load()
	region := mem[off : int64(off)+int64(n)]
	for i := range region {
		region[i] = c
	}
}

// ReserveWord aligns the write position to 4 bytes and appends word. The word
// is stored with StoreOrdered before the write position covers it, so a
// reader never sees the zero bytes of an unfinished reservation.
func (b *Bytes) ReserveWord(word [4]byte) Offset {
	b.Align(4)
	pos := b.writePos.Load()
	mem := b.ensure(pos + 4)
	atomic.StoreUint32(wordAt(mem, Offset(pos)), *(*uint32)(unsafe.Pointer(&word[0])))
	b.writePos.Store(pos + 4)
	return Offset(pos)
}

// Align pads the write position with zero bytes up to a multiple of n.
func (b *Bytes) Align(n int) {
	if pad := alignUp(b.writePos.Load(), int64(n)) - b.writePos.Load(); pad > 0 {
		b.Reserve(int(pad))
	}
}

// StoreOrdered writes a 4-byte word at a 4-byte aligned offset with release
// semantics: every byte written before the call is visible to a reader that
// observes the new word through LoadOrdered.
func (b *Bytes) StoreOrdered(off Offset, word [4]byte) {
	mem := *b.mem.Load()
	atomic.StoreUint32(wordAt(mem, off), *(*uint32)(unsafe.Pointer(&word[0])))
}

// LoadOrdered reads a 4-byte word at a 4-byte aligned offset with acquire
// semantics. See StoreOrdered.
func (b *Bytes) LoadOrdered(off Offset) [4]byte {
	mem := *b.mem.Load()
	var word [4]byte
	*(*uint32)(unsafe.Pointer(&word[0])) = atomic.LoadUint32(wordAt(mem, off))
	return word
}

// Slice returns a view of the readable content between from and to. The view
// aliases the storage and must not be retained past the next write.
func (b *Bytes) Slice(from, to int64) []byte {
	return (*b.mem.Load())[from:to:to]
}

// WritePosition is the offset one past the last written byte.
func (b *Bytes) WritePosition() int64 { return b.writePos.Load() }

// ReadPosition is the offset of the next unread byte.
func (b *Bytes) ReadPosition() int64 { return b.readPos }

// SetReadPosition moves the read cursor. It panics if pos is outside the
// written content.
func (b *Bytes) SetReadPosition(pos int64) {
	if pos < 0 || pos > b.writePos.Load() {
		panic("wire: read position out of range")
	}
	b.readPos = pos
}

// ReadRemaining is the number of written bytes not yet consumed.
func (b *Bytes) ReadRemaining() int64 { return b.writePos.Load() - b.readPos }

// Capacity is the size of the current storage.
func (b *Bytes) Capacity() int { return len(*b.mem.Load()) }

// CloseWrite records that no more bytes will be appended. Readers use it to
// tell a truncated stream from one that is still being written.
func (b *Bytes) CloseWrite() { b.writeDone.Store(true) }

// WriteClosed reports whether CloseWrite was called.
func (b *Bytes) WriteClosed() bool { return b.writeDone.Load() }

// Bytes returns a copy of the readable content.
func (b *Bytes) Bytes() []byte {
	return append([]byte(nil), b.Slice(b.readPos, b.writePos.Load())...)
}

// Reset discards all content. It must not race with a reader.
func (b *Bytes) Reset() {
	b.readPos = 0
	b.writePos.Store(0)
	b.writeDone.Store(false)
}

// ensure returns storage able to hold size bytes, growing by doubling. The
// old contents are copied before the new slice is published.
func (b *Bytes) ensure(size int64) []byte {
	mem := *b.mem.Load()
	if size <= int64(len(mem)) {
		return mem
	}
	capacity := int64(len(mem)) * 2
	for capacity < size {
		capacity *= 2
	}
	grown := make([]byte, capacity)
	copy(grown, mem[:b.writePos.Load()])
	b.mem.Store(&grown)
	return grown
}

func wordAt(mem []byte, off Offset) *uint32 {
	if off%4 != 0 {
		panic("wire: ordered access at unaligned offset")
	}
	return (*uint32)(unsafe.Pointer(&mem[off]))
}

func alignUp(pos, n int64) int64 {
	return (pos + n - 1) / n * n
}
