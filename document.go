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

// A WriteDocument is a document being written. Obtain one from
// Wire.WritingDocument, write fields through Wire(), and Close it.
type WriteDocument struct {
	wire    *Wire
	prefix  Offset
	meta    bool
	chained bool
	done    bool
	number  int64
	enc     encoder
}

// Wire returns the WireOut fields are written to.
func (d *WriteDocument) Wire() WireOut { return d.enc }

// IsMetaData reports whether the document carries control data rather than
// application data.
func (d *WriteDocument) IsMetaData() bool { return d.meta }

// HeaderNumber is the number assigned to a data document, or -1 for
// meta-data.
func (d *WriteDocument) HeaderNumber() int64 { return d.number }

// SetChained marks the document as continued by a later call. Close leaves a
// chained document open; it is finalized by the first Close after
// SetChained(false).
func (d *WriteDocument) SetChained(chained bool) { d.chained = chained }

// IsChained reports whether Close will leave the document open.
func (d *WriteDocument) IsChained() bool { return d.chained }

// Close finalizes the document: the prefix is patched with the payload
// length and the not-ready bit is cleared. Closing a finalized or rolled
// back document does nothing. If the payload can't be finished, the document
// is rolled back and the error returned.
func (d *WriteDocument) Close() error {
	if d.done || d.chained {
		return nil
	}
	if err := d.enc.finish(); err != nil {
		d.Rollback()
		return err
	}
	length := d.wire.bytes.WritePosition() - int64(d.prefix) - headerSize
	if length > int64(MaxDocumentLength) {
		d.Rollback()
		return errorf(CodeResourceExhausted, "document of %d bytes exceeds max %d", length, MaxDocumentLength)
	}
	d.finalize(newHeader(int(length), d.meta, false))
	return nil
}

// Rollback abandons the document. Whatever was written becomes a meta-data
// document filled with padding, which every reader skips, and the header
// number is given back. Rolling back a closed document does nothing.
func (d *WriteDocument) Rollback() {
	if d.done {
		return
	}
	w := d.wire
	start := int64(d.prefix) + headerSize
	length := w.bytes.WritePosition() - start
	if length > int64(MaxDocumentLength) {
		// Too long to describe; drop the payload instead.
		w.bytes.writePos.Store(start)
		length = 0
	}
	w.bytes.Fill(Offset(start), int(length), codePadding)
	if !d.meta {
		w.writeNumber = d.number
	}
	d.finalize(newHeader(int(length), true, false))
}

func (d *WriteDocument) finalize(h header) {
	d.done = true
	d.chained = false
	d.wire.bytes.StoreOrdered(d.prefix, encodeHeader(d.wire.cfg.headerOrder, h))
	if d.wire.open == d {
		d.wire.open = nil
	}
}

// A ReadDocument is a document obtained from Wire.ReadingDocument. When
// IsPresent is false, nothing was consumed and the caller may retry once more
// data has been written.
type ReadDocument struct {
	wire    *Wire
	present bool
	meta    bool
	number  int64
	payload []byte
	fields  *fieldSet
	err     error
	closed  bool
}

// IsPresent reports whether a complete document was read.
func (d *ReadDocument) IsPresent() bool { return d.present }

// IsMetaData reports whether the document carries control data.
func (d *ReadDocument) IsMetaData() bool { return d.meta }

// IsPadding reports whether the document is a rolled-back write.
func (d *ReadDocument) IsPadding() bool {
	return d.meta && len(d.payload) > 0 && isPadding(d.payload)
}

// HeaderNumber is the number of a data document, or -1 for meta-data.
func (d *ReadDocument) HeaderNumber() int64 { return d.number }

// Payload returns the raw bytes of the document. They alias the wire's
// storage.
func (d *ReadDocument) Payload() []byte { return d.payload }

// Wire decodes the payload. The result is cached, so a malformed payload
// returns the same error on every call.
func (d *ReadDocument) Wire() (WireIn, error) {
	if !d.present {
		return nil, errorf(CodeFailedPrecondition, "no document present")
	}
	if d.fields == nil && d.err == nil {
		if isPadding(d.payload) {
			d.fields = &fieldSet{cfg: &d.wire.cfg.codec}
		} else {
			d.fields, d.err = d.wire.codec.newDecoder(d.payload, &d.wire.cfg.codec)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.fields, nil
}

// Close releases the document. It's idempotent.
func (d *ReadDocument) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.wire.reading == d {
		d.wire.reading = nil
	}
}

// isPadding reports whether payload consists only of padding bytes. Empty
// payloads count.
func isPadding(payload []byte) bool {
	for _, b := range payload {
		if b != codePadding {
			return false
		}
	}
	return true
}
