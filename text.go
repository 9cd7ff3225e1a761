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
	"encoding/base64"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// YAML tags used by the text flavors. Tags starting with "!!" are the YAML
// core schema; the rest are local to this package.
const (
	tagNull      = "!!null"
	tagBool      = "!!bool"
	tagInt       = "!!int"
	tagFloat     = "!!float"
	tagStr       = "!!str"
	tagBinary    = "!!binary"
	tagTimestamp = "!!timestamp"
	tagMap       = "!!map"
	tagSeq       = "!!seq"

	tagInt8    = "!int8"
	tagInt16   = "!int16"
	tagInt32   = "!int32"
	tagGoInt   = "!int"
	tagUint8   = "!uint8"
	tagUint16  = "!uint16"
	tagUint32  = "!uint32"
	tagUint64  = "!uint64"
	tagFloat32 = "!float32"
	tagUUID    = "!uuid"
	tagTime    = "!time"
)

type textCodec struct{}

var _ Codec = (*textCodec)(nil)

func (c *textCodec) Name() string { return codecNameText }

func (c *textCodec) typesByDefault() bool { return true }

func (c *textCodec) newEncoder(dst *Bytes, cfg *codecConfig) encoder {
	return newNodeEncoder(dst, cfg, false)
}

func (c *textCodec) newDecoder(src []byte, cfg *codecConfig) (*fieldSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, errorf(CodeInvalidArgument, "parse yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &fieldSet{cfg: cfg}, nil
	}
	return nodeFields(doc.Content[0], cfg, false)
}

// nodeEncoder builds a yaml.Node tree for one document and serializes it
// when the document is finished. The text and JSON flavors share it.
type nodeEncoder struct {
	nodeOut

	root *yaml.Node
	dst  *Bytes
}

func newNodeEncoder(dst *Bytes, cfg *codecConfig, json bool) *nodeEncoder {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
	return &nodeEncoder{
		nodeOut: nodeOut{parent: root, cfg: cfg, json: json},
		root:    root,
		dst:     dst,
	}
}

func (e *nodeEncoder) finish() error {
	if e.json {
		return writeJSON(e.dst, e.root, *e.cfg.types)
	}
	return writeYAML(e.dst, e.root)
}

func writeYAML(dst *Bytes, root *yaml.Node) error {
	scratch := getScratch()
	defer putScratch(scratch)
	enc := yaml.NewEncoder(scratch)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return errorf(CodeInvalidArgument, "write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return errorf(CodeInvalidArgument, "write yaml: %w", err)
	}
	_, _ = dst.Write(bytes.TrimSuffix(scratch.Bytes(), []byte("...\n")))
	return nil
}

// nodeOut appends nodes to a mapping or sequence. In a mapping, Write appends
// the key and the value method that follows appends the value.
type nodeOut struct {
	parent *yaml.Node
	cfg    *codecConfig
	json   bool
}

var (
	_ WireOut  = (*nodeOut)(nil)
	_ ValueOut = (*nodeOut)(nil)
)

func (o *nodeOut) Write(name string) ValueOut {
	o.append(scalarNode(tagStr, name))
	return o
}

func (o *nodeOut) WriteID(id int64) ValueOut {
	o.append(scalarNode(tagInt, strconv.FormatInt(id, 10)))
	return o
}

func (o *nodeOut) Nil() { o.append(scalarNode(tagNull, "null")) }

func (o *nodeOut) Bool(v bool) { o.append(scalarNode(tagBool, strconv.FormatBool(v))) }

func (o *nodeOut) Int8(v int8) { o.int(tagInt8, int64(v)) }

func (o *nodeOut) Int16(v int16) { o.int(tagInt16, int64(v)) }

func (o *nodeOut) Int32(v int32) { o.int(tagInt32, int64(v)) }

func (o *nodeOut) Int64(v int64) { o.int(tagInt, v) }

func (o *nodeOut) Int(v int) { o.int(tagGoInt, int64(v)) }

func (o *nodeOut) Uint8(v uint8) { o.uint(tagUint8, uint64(v)) }

func (o *nodeOut) Uint16(v uint16) { o.uint(tagUint16, uint64(v)) }

func (o *nodeOut) Uint32(v uint32) { o.uint(tagUint32, uint64(v)) }

func (o *nodeOut) Uint64(v uint64) { o.uint(tagUint64, v) }

func (o *nodeOut) Float32(v float32) {
	o.append(scalarNode(o.typed(tagFloat32, tagFloat), formatYAMLFloat(float64(v), 32)))
}

func (o *nodeOut) Float64(v float64) {
	o.append(scalarNode(tagFloat, formatYAMLFloat(v, 64)))
}

func (o *nodeOut) Text(v string) { o.append(scalarNode(tagStr, v)) }

func (o *nodeOut) Bytes(v []byte) {
	o.append(scalarNode(tagBinary, base64.StdEncoding.EncodeToString(v)))
}

func (o *nodeOut) UUID(v uuid.UUID) {
	o.append(scalarNode(o.typed(tagUUID, tagStr), v.String()))
}

func (o *nodeOut) Time(v time.Time) {
	o.append(scalarNode(o.typed(tagTime, tagStr), v.UTC().Format(time.RFC3339Nano)))
}

// Compressed tags the base64 payload with the compressor name. Untyped JSON
// has nowhere to put the tag, so the data is written plain.
func (o *nodeOut) Compressed(name string, data []byte) error {
	if o.json && !*o.cfg.types {
		o.Bytes(data)
		return nil
	}
	compressed, ok, err := compressWith(o.cfg, name, data)
	if err != nil {
		return err
	}
	if !ok {
		o.Bytes(data)
		return nil
	}
	o.append(scalarNode("!"+name, base64.StdEncoding.EncodeToString(compressed)))
	return nil
}

func (o *nodeOut) Sequence(fn func(ValueOut) error) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
	o.append(seq)
	return fn(&nodeOut{parent: seq, cfg: o.cfg, json: o.json})
}

func (o *nodeOut) Marshallable(m Marshallable) error {
	return o.mapping(tagMap, m.WriteMarshallable)
}

func (o *nodeOut) TypedMarshallable(m Marshallable) error {
	tag := tagMap
	if *o.cfg.types {
		tag = "!" + aliasOf(o.cfg.lookup, m)
	}
	return o.mapping(tag, m.WriteMarshallable)
}

func (o *nodeOut) Map(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return o.mapping(tagMap, func(out WireOut) error {
		for _, key := range keys {
			if err := out.Write(key).Object(m[key]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *nodeOut) Object(v any) error {
	return writeObject(o, v)
}

func (o *nodeOut) mapping(tag string, fn func(WireOut) error) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
	o.append(mapping)
	return fn(&nodeOut{parent: mapping, cfg: o.cfg, json: o.json})
}

func (o *nodeOut) int(tag string, v int64) {
	o.append(scalarNode(o.typed(tag, tagInt), strconv.FormatInt(v, 10)))
}

func (o *nodeOut) uint(tag string, v uint64) {
	o.append(scalarNode(o.typed(tag, tagInt), strconv.FormatUint(v, 10)))
}

// typed picks the width tag when types are written, the core tag otherwise.
func (o *nodeOut) typed(tag, untyped string) string {
	if *o.cfg.types {
		return tag
	}
	return untyped
}

func (o *nodeOut) append(node *yaml.Node) {
	o.parent.Content = append(o.parent.Content, node)
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatYAMLFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return formatFloat(v, bits)
}
