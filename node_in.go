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
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// nodeFields collects the pairs of a mapping node. Integer keys are field
// numbers; everything else is a field name.
func nodeFields(mapping *yaml.Node, cfg *codecConfig, json bool) (*fieldSet, error) {
	mapping = resolveAlias(mapping)
	if mapping.Kind != yaml.MappingNode {
		return nil, errorf(CodeInvalidArgument, "line %d: expected a mapping, found %s", mapping.Line, kindName(mapping))
	}
	fields := &fieldSet{cfg: cfg}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := resolveAlias(mapping.Content[i])
		key := NameKey(keyNode.Value)
		if keyNode.Tag == tagInt {
			id, err := strconv.ParseInt(keyNode.Value, 0, 64)
			if err != nil || id < 0 {
				return nil, errorf(CodeInvalidArgument, "line %d: invalid field number %q", keyNode.Line, keyNode.Value)
			}
			key = IDKey(id)
		}
		fields.add(key, &nodeIn{node: mapping.Content[i+1], cfg: cfg, json: json})
	}
	return fields, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}

// nodeIn reads one node of a parsed YAML or JSON document.
type nodeIn struct {
	node *yaml.Node
	cfg  *codecConfig
	json bool
}

var _ ValueIn = (*nodeIn)(nil)

func (v *nodeIn) resolved() *yaml.Node { return resolveAlias(v.node) }

func (v *nodeIn) IsPresent() bool { return true }

func (v *nodeIn) IsNull() bool {
	node := v.resolved()
	return node.Kind == yaml.ScalarNode && node.Tag == tagNull
}

// TypeName returns local tags without the leading "!". Core schema tags
// aren't type names.
func (v *nodeIn) TypeName() string {
	tag := v.resolved().Tag
	if strings.HasPrefix(tag, "!!") || !strings.HasPrefix(tag, "!") {
		return ""
	}
	return tag[1:]
}

func (v *nodeIn) scalar() (any, error) {
	node := v.resolved()
	if node.Kind != yaml.ScalarNode {
		return nil, errorf(CodeInvalidArgument, "line %d: %s is not a scalar", node.Line, kindName(node))
	}
	value := node.Value
	switch node.Tag {
	case tagNull:
		return nil, nil
	case tagStr, "":
		return value, nil
	case tagBool:
		b, err := strconv.ParseBool(strings.ToLower(value))
		return b, v.scalarErr(node, err)
	case tagInt:
		n, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			// Untyped uint64 values above the int64 range.
			if u, uerr := strconv.ParseUint(value, 0, 64); uerr == nil {
				return u, nil
			}
		}
		return n, v.scalarErr(node, err)
	case tagGoInt:
		n, err := strconv.ParseInt(value, 0, strconv.IntSize)
		return int(n), v.scalarErr(node, err)
	case tagUint8:
		n, err := strconv.ParseUint(value, 0, 8)
		return uint8(n), v.scalarErr(node, err)
	case tagUint16:
		n, err := strconv.ParseUint(value, 0, 16)
		return uint16(n), v.scalarErr(node, err)
	case tagUint32:
		n, err := strconv.ParseUint(value, 0, 32)
		return uint32(n), v.scalarErr(node, err)
	case tagUint64:
		n, err := strconv.ParseUint(value, 0, 64)
		return n, v.scalarErr(node, err)
	case tagInt8:
		n, err := strconv.ParseInt(value, 0, 8)
		return int8(n), v.scalarErr(node, err)
	case tagInt16:
		n, err := strconv.ParseInt(value, 0, 16)
		return int16(n), v.scalarErr(node, err)
	case tagInt32:
		n, err := strconv.ParseInt(value, 0, 32)
		return int32(n), v.scalarErr(node, err)
	case tagFloat:
		f, err := parseFloatText(value, 64)
		return f, v.scalarErr(node, err)
	case tagFloat32:
		f, err := parseFloatText(value, 32)
		return float32(f), v.scalarErr(node, err)
	case tagBinary:
		data, err := base64.StdEncoding.DecodeString(value)
		return data, v.scalarErr(node, err)
	case tagUUID:
		id, err := uuid.Parse(value)
		return id, v.scalarErr(node, err)
	case tagTime, tagTimestamp:
		return parseTimeText(value)
	}
	name := strings.TrimPrefix(node.Tag, "!")
	if _, ok := v.cfg.compressors[name]; ok {
		compressed, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, v.scalarErr(node, err)
		}
		return decompressWith(v.cfg, name, compressed)
	}
	v.cfg.debugf("line %d: unknown tag %s, reading as text", node.Line, node.Tag)
	return value, nil
}

func (v *nodeIn) scalarErr(node *yaml.Node, err error) error {
	if err == nil {
		return nil
	}
	return errorf(CodeInvalidArgument, "line %d: %s %q: %w", node.Line, node.Tag, node.Value, err)
}

func (v *nodeIn) Bool() bool { return toBool(v.cfg, v) }
func (v *nodeIn) Int8() int8 { return toInt8(v.cfg, v) }
func (v *nodeIn) Int16() int16 { return toInt16(v.cfg, v) }
func (v *nodeIn) Int32() int32 { return toInt32(v.cfg, v) }
func (v *nodeIn) Int64() int64 { return toInt64(v.cfg, v) }
func (v *nodeIn) Int() int { return toInt(v.cfg, v) }
func (v *nodeIn) Uint8() uint8 { return toUint8(v.cfg, v) }
func (v *nodeIn) Uint16() uint16 { return toUint16(v.cfg, v) }
func (v *nodeIn) Uint32() uint32 { return toUint32(v.cfg, v) }
func (v *nodeIn) Uint64() uint64 { return toUint64(v.cfg, v) }
func (v *nodeIn) Float32() float32 { return toFloat32(v.cfg, v) }
func (v *nodeIn) Float64() float64 { return toFloat64(v.cfg, v) }
func (v *nodeIn) Text() string { return toText(v.cfg, v) }
func (v *nodeIn) Bytes() []byte { return toBytes(v.cfg, v, v.json) }
func (v *nodeIn) UUID() uuid.UUID { return toUUID(v.cfg, v) }
func (v *nodeIn) Time() time.Time { return toTime(v.cfg, v) }
func (v *nodeIn) Object(t any) error { return readObject(v.cfg, v, t) }

func (v *nodeIn) Sequence(fn func(ValueIn) error) error {
	node := v.resolved()
	if v.IsNull() {
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		return errorf(CodeInvalidArgument, "line %d: expected a sequence, found %s", node.Line, kindName(node))
	}
	for _, element := range node.Content {
		if err := fn(&nodeIn{node: element, cfg: v.cfg, json: v.json}); err != nil {
			return err
		}
	}
	return nil
}

func (v *nodeIn) Marshallable(m Marshallable) error {
	if v.IsNull() {
		return nil
	}
	fields, err := nodeFields(v.node, v.cfg, v.json)
	if err != nil {
		return err
	}
	return readMarshallable(fields, m)
}

func (v *nodeIn) dynamic() (any, error) {
	node := v.resolved()
	switch node.Kind {
	case yaml.SequenceNode:
		return readDynamicSequence(v)
	case yaml.MappingNode:
		if m, ok := newAliased(v.cfg, v.TypeName()); ok {
			if err := v.Marshallable(m); err != nil {
				return nil, err
			}
			return m, nil
		}
		fields, err := nodeFields(node, v.cfg, v.json)
		if err != nil {
			return nil, err
		}
		return readDynamicMap(fields)
	}
	return v.scalar()
}

// parseFloatText accepts YAML's .nan and .inf spellings, JSON's null, and
// anything strconv.ParseFloat does.
func parseFloatText(s string, bits int) (float64, error) {
	switch strings.ToLower(strings.TrimPrefix(s, "+")) {
	case ".nan", "null":
		return math.NaN(), nil
	case ".inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), bits)
}

func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999Z07:00", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errorf(CodeInvalidArgument, "can't parse time %q", s)
}
