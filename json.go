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
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// typeKeyPrefix marks the single key of an object that carries a type: a
// typed value v is written as {"@type": v}.
const typeKeyPrefix = "@"

// bytesTypeName is the JSON type name of base64 byte blocks.
const bytesTypeName = "bytes"

type jsonCodec struct{}

var _ Codec = (*jsonCodec)(nil)

func (c *jsonCodec) Name() string { return codecNameJSON }

func (c *jsonCodec) typesByDefault() bool { return false }

func (c *jsonCodec) newEncoder(dst *Bytes, cfg *codecConfig) encoder {
	return newNodeEncoder(dst, cfg, true)
}

// newDecoder accepts JSON with comments and trailing commas.
func (c *jsonCodec) newDecoder(src []byte, cfg *codecConfig) (*fieldSet, error) {
	src = jsonc.ToJSON(src)
	if len(bytes.TrimSpace(src)) == 0 {
		return &fieldSet{cfg: cfg}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	root, err := parseJSONValue(dec)
	if err != nil {
		return nil, errorf(CodeInvalidArgument, "parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errorf(CodeInvalidArgument, "parse json: trailing data after document")
	}
	return nodeFields(root, cfg, true)
}

// parseJSONValue builds the same node tree the YAML parser would, so both
// flavors share nodeIn.
func parseJSONValue(dec *json.Decoder) (*yaml.Node, error) {
	token, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch token := token.(type) {
	case json.Delim:
		switch token {
		case '{':
			return parseJSONObject(dec)
		case '[':
			seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}
			for dec.More() {
				element, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				seq.Content = append(seq.Content, element)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		return nil, errorf(CodeInvalidArgument, "unexpected %v", token)
	case nil:
		return scalarNode(tagNull, "null"), nil
	case bool:
		if token {
			return scalarNode(tagBool, "true"), nil
		}
		return scalarNode(tagBool, "false"), nil
	case json.Number:
		if strings.ContainsAny(token.String(), ".eE") {
			return scalarNode(tagFloat, token.String()), nil
		}
		return scalarNode(tagInt, token.String()), nil
	case string:
		return scalarNode(tagStr, token), nil
	}
	return nil, errorf(CodeInvalidArgument, "unexpected token %v", token)
}

// parseJSONObject reads the members of an object whose opening brace was
// consumed. An object with a single "@type" member is the typed form of its
// value.
func parseJSONObject(dec *json.Decoder) (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := token.(string)
		if !ok {
			return nil, errorf(CodeInvalidArgument, "expected object key, found %v", token)
		}
		value, err := parseJSONValue(dec)
		if err != nil {
			return nil, err
		}
		key := scalarNode(tagStr, name)
		if isDigits(name) {
			key.Tag = tagInt
		}
		mapping.Content = append(mapping.Content, key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if len(mapping.Content) != 2 || !strings.HasPrefix(mapping.Content[0].Value, typeKeyPrefix) {
		return mapping, nil
	}
	typeName := strings.TrimPrefix(mapping.Content[0].Value, typeKeyPrefix)
	value := mapping.Content[1]
	switch {
	case typeName == bytesTypeName:
		value.Tag = tagBinary
	case value.Kind == yaml.ScalarNode && value.Tag == tagNull && typeName != "float32":
		// A typed null is just null.
	default:
		value.Tag = "!" + typeName
	}
	return value, nil
}

func isDigits(s string) bool {
	if s == "" || len(s) > 18 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// writeJSON serializes a node tree built by nodeOut. Local tags become the
// {"@type": value} form when types are written, and are dropped otherwise.
func writeJSON(dst *Bytes, root *yaml.Node, typed bool) error {
	w := &jsonWriter{dst: dst, typed: typed}
	if err := w.node(root); err != nil {
		return err
	}
	_ = dst.WriteByte('\n')
	return nil
}

type jsonWriter struct {
	dst   *Bytes
	typed bool
}

func (w *jsonWriter) node(node *yaml.Node) error {
	node = resolveAlias(node)
	typeName := ""
	switch {
	case node.Tag == tagBinary && w.typed:
		typeName = bytesTypeName
	case strings.HasPrefix(node.Tag, "!") && !strings.HasPrefix(node.Tag, "!!"):
		typeName = node.Tag[1:]
	}
	if typeName == "" || !w.typed {
		return w.untagged(node)
	}
	_ = w.dst.WriteByte('{')
	if err := w.text(typeKeyPrefix + typeName); err != nil {
		return err
	}
	_ = w.dst.WriteByte(':')
	if err := w.untagged(node); err != nil {
		return err
	}
	return w.dst.WriteByte('}')
}

func (w *jsonWriter) untagged(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		_ = w.dst.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				_ = w.dst.WriteByte(',')
			}
			if err := w.text(resolveAlias(node.Content[i]).Value); err != nil {
				return err
			}
			_ = w.dst.WriteByte(':')
			if err := w.node(node.Content[i+1]); err != nil {
				return err
			}
		}
		return w.dst.WriteByte('}')
	case yaml.SequenceNode:
		_ = w.dst.WriteByte('[')
		for i, element := range node.Content {
			if i > 0 {
				_ = w.dst.WriteByte(',')
			}
			if err := w.node(element); err != nil {
				return err
			}
		}
		return w.dst.WriteByte(']')
	case yaml.ScalarNode:
		return w.scalar(node)
	}
	return errorf(CodeInternal, "can't write %s as json", kindName(node))
}

// scalar writes numbers and booleans bare and everything else as strings.
// NaN has no JSON number, so it's written as null; infinities are strings
// strconv.ParseFloat understands.
func (w *jsonWriter) scalar(node *yaml.Node) error {
	switch node.Tag {
	case tagNull:
		_, _ = w.dst.WriteString("null")
	case tagBool, tagInt, tagInt8, tagInt16, tagInt32, tagGoInt, tagUint8, tagUint16, tagUint32, tagUint64:
		_, _ = w.dst.WriteString(node.Value)
	case tagFloat, tagFloat32:
		switch node.Value {
		case ".nan":
			_, _ = w.dst.WriteString("null")
		case ".inf":
			_, _ = w.dst.WriteString(`"Infinity"`)
		case "-.inf":
			_, _ = w.dst.WriteString(`"-Infinity"`)
		default:
			_, _ = w.dst.WriteString(node.Value)
		}
	default:
		return w.text(node.Value)
	}
	return nil
}

func (w *jsonWriter) text(s string) error {
	quoted, err := json.Marshal(s)
	if err != nil {
		return errorf(CodeInvalidArgument, "write json string: %w", err)
	}
	_, _ = w.dst.Write(quoted)
	return nil
}
