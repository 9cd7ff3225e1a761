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
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// A TextStreamWriter writes Marshallables as a stream of YAML documents
// separated by "---", the form logs and fixtures are usually kept in.
type TextStreamWriter struct {
	enc *yaml.Encoder
	cfg *wireConfig
}

// NewTextStreamWriter returns a writer to w. Close it to flush.
func NewTextStreamWriter(w io.Writer, options ...WireOption) *TextStreamWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &TextStreamWriter{enc: enc, cfg: newWireConfig(Text, options)}
}

// Write appends one document holding the fields of m.
func (s *TextStreamWriter) Write(m Marshallable) error {
	return s.WriteDocument(m.WriteMarshallable)
}

// WriteDocument appends one document written by fn.
func (s *TextStreamWriter) WriteDocument(fn func(out WireOut) error) error {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
	if err := fn(&nodeOut{parent: root, cfg: &s.cfg.codec}); err != nil {
		return err
	}
	if err := s.enc.Encode(root); err != nil {
		return errorf(CodeInvalidArgument, "write yaml: %w", err)
	}
	return nil
}

// Close flushes the stream. It doesn't close the underlying writer.
func (s *TextStreamWriter) Close() error {
	return s.enc.Close()
}

// A TextStreamReader reads a stream of YAML documents.
type TextStreamReader struct {
	dec *yaml.Decoder
	cfg *wireConfig
}

// NewTextStreamReader returns a reader of r.
func NewTextStreamReader(r io.Reader, options ...WireOption) *TextStreamReader {
	return &TextStreamReader{dec: yaml.NewDecoder(r), cfg: newWireConfig(Text, options)}
}

// Read populates m from the next document. It returns false at the end of
// the stream.
func (s *TextStreamReader) Read(m Marshallable) (bool, error) {
	fields, ok, err := s.next()
	if err != nil || !ok {
		return ok, err
	}
	return true, readMarshallable(fields, m)
}

// ReadDocument reads the next document with fn. It returns false at the end
// of the stream.
func (s *TextStreamReader) ReadDocument(fn func(in WireIn) error) (bool, error) {
	fields, ok, err := s.next()
	if err != nil || !ok {
		return ok, err
	}
	return true, fn(fields)
}

func (s *TextStreamReader) next() (*fieldSet, bool, error) {
	var doc yaml.Node
	if err := s.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, errorf(CodeInvalidArgument, "parse yaml: %w", err)
	}
	if len(doc.Content) == 0 || isNullNode(doc.Content[0]) {
		return &fieldSet{cfg: &s.cfg.codec}, true, nil
	}
	fields, err := nodeFields(doc.Content[0], &s.cfg.codec, false)
	return fields, true, err
}

func isNullNode(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == tagNull
}
