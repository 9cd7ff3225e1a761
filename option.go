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
	"encoding/binary"
	"maps"

	"connectrpc.com/wire/clock"
)

// A WireOption configures a Wire, or the standalone Marshal and Unmarshal
// functions.
type WireOption interface {
	applyToWire(*wireConfig)
}

// A WriterOption configures a MethodWriter.
type WriterOption interface {
	applyToWriter(*writerConfig)
}

// A ReaderOption configures a MethodReader.
type ReaderOption interface {
	applyToReader(*readerConfig)
}

// A MethodOption configures both MethodWriters and MethodReaders.
type MethodOption interface {
	WriterOption
	ReaderOption
}

type typesOption struct {
	types bool
}

// WithTypes controls whether values carry explicit type markers. With types
// enabled, nested Marshallables written through Object are preceded by their
// alias and non-default numeric widths are tagged in the text flavors, so a
// reader decoding into *any reconstructs the original Go types. With types
// disabled, the same values decode as generic maps and int64/float64.
//
// Binary and text wires default to writing types, JSON wires don't.
func WithTypes(types bool) WireOption {
	return &typesOption{types: types}
}

func (o *typesOption) applyToWire(cfg *wireConfig) {
	cfg.codec.types = &o.types
}

type classLookupOption struct {
	lookup ClassLookup
}

// WithClassLookup supplies the registry used to name Marshallables when
// writing types and to construct them when reading into *any.
func WithClassLookup(lookup ClassLookup) WireOption {
	return &classLookupOption{lookup: lookup}
}

func (o *classLookupOption) applyToWire(cfg *wireConfig) {
	cfg.codec.lookup = o.lookup
}

type warnOption struct {
	warn func(error)
}

// WithWarn sets the function used to report recoverable decoding problems,
// such as a scalar that can't be converted to the requested type. By default,
// warnings are logged with glog.
func WithWarn(warn func(error)) WireOption {
	return &warnOption{warn: warn}
}

func (o *warnOption) applyToWire(cfg *wireConfig) {
	if o.warn != nil {
		cfg.codec.warn = newWarnIfError(o.warn)
	}
}

type compressorOption struct {
	compressor Compressor
}

// WithCompressor registers an additional compressor for ValueOut.Compressed,
// replacing any built-in compressor of the same name. gzip, zstd and lz4 are
// always available.
func WithCompressor(compressor Compressor) WireOption {
	return &compressorOption{compressor: compressor}
}

func (o *compressorOption) applyToWire(cfg *wireConfig) {
	if !cfg.ownCompressors {
		cfg.compressors = maps.Clone(cfg.compressors)
		cfg.ownCompressors = true
	}
	cfg.compressors[o.compressor.Name()] = o.compressor
}

type byteOrderOption struct {
	order binary.ByteOrder
}

// WithHeaderByteOrder sets the byte order of document prefixes. Both ends of
// a stream must agree. The default is little-endian.
func WithHeaderByteOrder(order binary.ByteOrder) WireOption {
	return &byteOrderOption{order: order}
}

func (o *byteOrderOption) applyToWire(cfg *wireConfig) {
	cfg.headerOrder = o.order
}

type readMaxBytesOption struct {
	max int
}

// WithReadMaxBytes limits the declared length of documents and of
// decompressed byte blocks. A prefix declaring more is treated as corruption.
// Zero or negative values mean MaxDocumentLength.
func WithReadMaxBytes(n int) WireOption {
	return &readMaxBytesOption{max: n}
}

func (o *readMaxBytesOption) applyToWire(cfg *wireConfig) {
	if o.max <= 0 || o.max > MaxDocumentLength {
		cfg.codec.readMaxBytes = MaxDocumentLength
		return
	}
	cfg.codec.readMaxBytes = o.max
}

type historySourceOption struct {
	source int
}

// WithHistorySource enables message history. Readers append (source, header
// number) to the history of every document they dispatch; writers start a
// fresh history with their own source when the context carries none.
func WithHistorySource(source int) MethodOption {
	return &historySourceOption{source: source}
}

func (o *historySourceOption) applyToWriter(cfg *writerConfig) {
	cfg.history.source = o.source
	cfg.history.enabled = true
}

func (o *historySourceOption) applyToReader(cfg *readerConfig) {
	cfg.history.source = o.source
	cfg.history.enabled = true
}

type maxHistoryOption struct {
	max int
}

// WithMaxHistory bounds the number of sources a message history may hold.
// The default is DefaultMaxHistory.
func WithMaxHistory(n int) MethodOption {
	return &maxHistoryOption{max: n}
}

func (o *maxHistoryOption) applyToWriter(cfg *writerConfig) {
	cfg.history.max = o.max
}

func (o *maxHistoryOption) applyToReader(cfg *readerConfig) {
	cfg.history.max = o.max
}

type clockOption struct {
	clock clock.Clock
}

// WithClock sets the clock used to timestamp message history.
func WithClock(c clock.Clock) MethodOption {
	return &clockOption{clock: c}
}

func (o *clockOption) applyToWriter(cfg *writerConfig) {
	cfg.history.clock = o.clock
}

func (o *clockOption) applyToReader(cfg *readerConfig) {
	cfg.history.clock = o.clock
}

type firstArgFilterOption struct {
	filter func(event Key, firstArg any) bool
}

// WithFirstArgFilter installs a predicate evaluated before a call is
// written, for methods declared with FilterOnFirstArg. Returning false
// suppresses the call entirely: no document is produced.
func WithFirstArgFilter(filter func(event Key, firstArg any) bool) WriterOption {
	return &firstArgFilterOption{filter: filter}
}

func (o *firstArgFilterOption) applyToWriter(cfg *writerConfig) {
	cfg.filter = o.filter
}

type unknownEventOption struct {
	handle func(ctx context.Context, event Key, args ValueIn)
}

// WithUnknownEvent observes events the reader's interface doesn't declare.
// Such events are always skipped; the hook only makes them visible.
func WithUnknownEvent(handle func(ctx context.Context, event Key, args ValueIn)) ReaderOption {
	return &unknownEventOption{handle: handle}
}

func (o *unknownEventOption) applyToReader(cfg *readerConfig) {
	cfg.unknown = o.handle
}

type readerModeOption struct {
	mode ReaderMode
}

// WithReaderMode selects how ReadOne treats documents containing no event
// the interface declares.
func WithReaderMode(mode ReaderMode) ReaderOption {
	return &readerModeOption{mode: mode}
}

func (o *readerModeOption) applyToReader(cfg *readerConfig) {
	cfg.mode = o.mode
}

type strictArgumentsOption struct{}

// WithStrictArguments makes a reader reject calls whose argument count
// differs from the method's, failing that document with CodeInvalidArgument.
// By default missing trailing arguments read as zero values and extra ones
// are ignored.
func WithStrictArguments() ReaderOption {
	return &strictArgumentsOption{}
}

func (o *strictArgumentsOption) applyToReader(cfg *readerConfig) {
	cfg.strictArgs = true
}
