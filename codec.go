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
	"encoding/binary"
)

const (
	codecNameBinary = "binary"
	codecNameText   = "text"
	codecNameJSON   = "json"
)

// A Codec is one physical representation of values: the length-prefixed
// binary form, YAML text, or JSON. Every Codec reads what any other Codec
// wrote, after conversion through Go values.
type Codec interface {
	Name() string

	// typesByDefault reports whether the flavor writes type markers unless
	// told otherwise.
	typesByDefault() bool
	newEncoder(dst *Bytes, cfg *codecConfig) encoder
	newDecoder(src []byte, cfg *codecConfig) (*fieldSet, error)
}

// encoder is the write side of a Codec for one document.
type encoder interface {
	WireOut
	// finish flushes anything buffered into the destination.
	finish() error
}

var (
	// Binary is the self-describing binary flavor.
	Binary Codec = &binaryCodec{}
	// Text is the YAML flavor.
	Text Codec = &textCodec{}
	// JSON is the JSON flavor.
	JSON Codec = &jsonCodec{}
)

// CodecByName returns the built-in Codec with the given name.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case codecNameBinary:
		return Binary, true
	case codecNameText, "yaml":
		return Text, true
	case codecNameJSON:
		return JSON, true
	}
	return nil, false
}

// codecConfig is the part of a wire's configuration the value codecs read.
type codecConfig struct {
	types        *bool
	lookup       ClassLookup
	warn         func(error)
	compressors  map[string]Compressor
	readMaxBytes int
}

func (c *codecConfig) writeTypes(codec Codec) bool {
	if c.types != nil {
		return *c.types
	}
	return codec.typesByDefault()
}

type wireConfig struct {
	codec          codecConfig
	compressors    map[string]Compressor
	ownCompressors bool
	headerOrder    binary.ByteOrder
}

func newWireConfig(codec Codec, options []WireOption) *wireConfig {
	cfg := &wireConfig{
		codec: codecConfig{
			lookup:       emptyLookup{},
			warn:         defaultWarn,
			readMaxBytes: MaxDocumentLength,
		},
		compressors: defaultCompressors(),
		headerOrder: binary.LittleEndian,
	}
	for _, opt := range options {
		opt.applyToWire(cfg)
	}
	cfg.codec.compressors = cfg.compressors
	types := cfg.codec.writeTypes(codec)
	cfg.codec.types = &types
	return cfg
}

// Marshal encodes the fields of m with codec, without document framing.
func Marshal(codec Codec, m Marshallable, options ...WireOption) ([]byte, error) {
	cfg := newWireConfig(codec, options)
	dst := NewBytes(0)
	enc := codec.newEncoder(dst, &cfg.codec)
	if err := m.WriteMarshallable(enc); err != nil {
		return nil, err
	}
	if err := enc.finish(); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

// Unmarshal decodes data written by Marshal with the same codec into m.
func Unmarshal(codec Codec, data []byte, m Marshallable, options ...WireOption) error {
	cfg := newWireConfig(codec, options)
	fields, err := codec.newDecoder(data, &cfg.codec)
	if err != nil {
		return err
	}
	return readMarshallable(fields, m)
}
