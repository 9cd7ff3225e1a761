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
	"fmt"
)

// A Wire frames documents into a Bytes using one Codec. A Wire may be used by
// one writing goroutine and one reading goroutine at the same time, as long
// as they call disjoint methods: WritingDocument and WriteDocument on one
// side, ReadingDocument and ReadDocument on the other.
type Wire struct {
	bytes *Bytes
	codec Codec
	cfg   *wireConfig

	writeNumber int64
	open        *WriteDocument

	readNumber int64
	reading    *ReadDocument
	// readErr is sticky: once the stream is found corrupt, reading stops.
	readErr error
}

// NewWire binds bytes to codec.
func NewWire(bytes *Bytes, codec Codec, options ...WireOption) *Wire {
	return &Wire{
		bytes: bytes,
		codec: codec,
		cfg:   newWireConfig(codec, options),
	}
}

// Bytes returns the underlying storage.
func (w *Wire) Bytes() *Bytes { return w.bytes }

// Codec returns the codec values are written with.
func (w *Wire) Codec() Codec { return w.codec }

// SetHeaderNumber sets the number the next data document written or read is
// assigned. Numbers then increase by one per data document.
func (w *Wire) SetHeaderNumber(n int64) {
	w.writeNumber = n
	w.readNumber = n
}

// WritingDocument opens a document for writing. If a document is already
// open, because it's chained or its writer hasn't closed it, the same
// document is returned and meta is ignored.
func (w *Wire) WritingDocument(meta bool) *WriteDocument {
	if w.open != nil {
		return w.open
	}
	doc := &WriteDocument{wire: w, meta: meta, number: -1}
	if !meta {
		doc.number = w.writeNumber
		w.writeNumber++
	}
	doc.prefix = w.bytes.ReserveWord(encodeHeader(w.cfg.headerOrder, newHeader(0, meta, true)))
	doc.enc = w.codec.newEncoder(w.bytes, &w.cfg.codec)
	w.open = doc
	return doc
}

// WriteDocument writes one document with fn and closes it. If fn returns an
// error or panics, the document is rolled back and the error returned (or the
// panic propagated). If a document is already open, fn writes into it and
// closing is left to its owner.
func (w *Wire) WriteDocument(meta bool, fn func(out WireOut) error) (retErr error) {
	if w.open != nil {
		return fn(w.open.Wire())
	}
	doc := w.WritingDocument(meta)
	defer func() {
		if r := recover(); r != nil {
			doc.Rollback()
			panic(r)
		}
	}()
	if err := fn(doc.Wire()); err != nil {
		doc.Rollback()
		return err
	}
	return doc.Close()
}

// ReadingDocument returns the next document. If no complete document is
// available yet, the returned document isn't present and the read position
// is unchanged. A prefix that can't be valid, because it declares more than
// the configured maximum or more than a closed Bytes holds, is a
// CodeDataLoss error; the error is returned by every later call too.
func (w *Wire) ReadingDocument() (*ReadDocument, error) {
	if w.readErr != nil {
		return &ReadDocument{wire: w, number: -1}, w.readErr
	}
	if w.reading != nil {
		w.reading.Close()
	}
	absent := &ReadDocument{wire: w, number: -1}
	b := w.bytes
	// Snapshot closed before the write position: if the writer closed after
	// we looked, the bytes we saw may still have been incomplete.
	closed := b.WriteClosed()
	end := b.WritePosition()
	pos := alignUp(b.ReadPosition(), headerAlign)
	if pos+headerSize > end {
		if closed && pos < end {
			return absent, w.fail("truncated document prefix at offset %d", pos)
		}
		return absent, nil
	}
	h := decodeHeader(w.cfg.headerOrder, b.LoadOrdered(Offset(pos)))
	if h.notComplete() {
		if closed {
			return absent, w.fail("unfinished document at offset %d", pos)
		}
		return absent, nil
	}
	length := int64(h.length())
	if length > int64(w.cfg.codec.readMaxBytes) {
		return absent, w.fail("document at offset %d declares %d bytes, max is %d", pos, length, w.cfg.codec.readMaxBytes)
	}
	payloadEnd := pos + headerSize + length
	if payloadEnd > end {
		if closed {
			return absent, w.fail("document at offset %d declares %d bytes, only %d written", pos, length, end-pos-headerSize)
		}
		return absent, nil
	}
	doc := &ReadDocument{
		wire:    w,
		present: true,
		meta:    h.metaData(),
		number:  -1,
		payload: b.Slice(pos+headerSize, payloadEnd),
	}
	if !doc.meta {
		doc.number = w.readNumber
		w.readNumber++
	}
	b.SetReadPosition(payloadEnd)
	w.reading = doc
	return doc, nil
}

// ReadDocument reads the next data document with fn, skipping meta-data
// documents. It returns false if no data document is available.
func (w *Wire) ReadDocument(fn func(in WireIn) error) (bool, error) {
	for {
		doc, err := w.ReadingDocument()
		if err != nil || !doc.IsPresent() {
			return false, err
		}
		if doc.IsMetaData() {
			doc.Close()
			continue
		}
		in, err := doc.Wire()
		if err == nil {
			err = fn(in)
		}
		doc.Close()
		return true, err
	}
}

func (w *Wire) fail(template string, args ...any) error {
	w.readErr = errorf(CodeDataLoss, template, args...)
	return w.readErr
}

func (w *Wire) String() string {
	return fmt.Sprintf("%s wire at read %d write %d", w.codec.Name(), w.bytes.ReadPosition(), w.bytes.WritePosition())
}
