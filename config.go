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
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the file form of a wire's options, for tools and services that
// configure wires without code. Zero fields keep the defaults.
type Config struct {
	// Codec is "binary", "text" (or "yaml"), or "json".
	Codec string `toml:"codec" yaml:"codec"`
	// Types overrides the codec's default for writing type markers.
	Types *bool `toml:"types" yaml:"types"`
	// ByteOrder of document prefixes: "little" or "big".
	ByteOrder    string `toml:"byte_order" yaml:"byte_order"`
	ReadMaxBytes int    `toml:"read_max_bytes" yaml:"read_max_bytes"`
	// HistorySource enables message history with this source id.
	HistorySource *int `toml:"history_source" yaml:"history_source"`
	MaxHistory    int  `toml:"max_history" yaml:"max_history"`
	// ReaderMode is "read_one_document" or "scan_to_match".
	ReaderMode string `toml:"reader_mode" yaml:"reader_mode"`
	// StrictArguments rejects calls with the wrong number of arguments.
	StrictArguments bool `toml:"strict_arguments" yaml:"strict_arguments"`
}

// LoadConfig reads a Config from a .toml, .yaml or .yml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf(CodeNotFound, "load config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, errorf(CodeOf(err), "load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses data in the given format: "toml", "yaml" or "yml".
func ParseConfig(data []byte, format string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(format) {
	case "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errorf(CodeInvalidArgument, "parse toml: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errorf(CodeInvalidArgument, "parse yaml: %w", err)
		}
	default:
		return nil, errorf(CodeInvalidArgument, "unknown config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if _, err := c.codec(); err != nil {
		return err
	}
	if _, err := c.byteOrder(); err != nil {
		return err
	}
	if _, err := c.readerMode(); err != nil {
		return err
	}
	if c.ReadMaxBytes < 0 || c.MaxHistory < 0 {
		return errorf(CodeInvalidArgument, "negative limit in config")
	}
	return nil
}

// NewWire binds bytes to the configured codec and options.
func (c *Config) NewWire(bytes *Bytes, options ...WireOption) (*Wire, error) {
	codec, err := c.codec()
	if err != nil {
		return nil, err
	}
	wireOptions, err := c.WireOptions()
	if err != nil {
		return nil, err
	}
	return NewWire(bytes, codec, append(wireOptions, options...)...), nil
}

// WireOptions returns the configured wire options.
func (c *Config) WireOptions() ([]WireOption, error) {
	var options []WireOption
	if c.Types != nil {
		options = append(options, WithTypes(*c.Types))
	}
	order, err := c.byteOrder()
	if err != nil {
		return nil, err
	}
	options = append(options, WithHeaderByteOrder(order))
	if c.ReadMaxBytes > 0 {
		options = append(options, WithReadMaxBytes(c.ReadMaxBytes))
	}
	return options, nil
}

// WriterOptions returns the configured method writer options.
func (c *Config) WriterOptions() []WriterOption {
	var options []WriterOption
	for _, opt := range c.methodOptions() {
		options = append(options, opt)
	}
	return options
}

// ReaderOptions returns the configured method reader options.
func (c *Config) ReaderOptions() ([]ReaderOption, error) {
	mode, err := c.readerMode()
	if err != nil {
		return nil, err
	}
	options := []ReaderOption{WithReaderMode(mode)}
	if c.StrictArguments {
		options = append(options, WithStrictArguments())
	}
	for _, opt := range c.methodOptions() {
		options = append(options, opt)
	}
	return options, nil
}

func (c *Config) methodOptions() []MethodOption {
	var options []MethodOption
	if c.HistorySource != nil {
		options = append(options, WithHistorySource(*c.HistorySource))
	}
	if c.MaxHistory > 0 {
		options = append(options, WithMaxHistory(c.MaxHistory))
	}
	return options
}

func (c *Config) codec() (Codec, error) {
	if c.Codec == "" {
		return Binary, nil
	}
	codec, ok := CodecByName(strings.ToLower(c.Codec))
	if !ok {
		return nil, errorf(CodeInvalidArgument, "unknown codec %q", c.Codec)
	}
	return codec, nil
}

func (c *Config) byteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(c.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, errorf(CodeInvalidArgument, "unknown byte order %q", c.ByteOrder)
}

func (c *Config) readerMode() (ReaderMode, error) {
	switch strings.ToLower(c.ReaderMode) {
	case "", ReadOneDocument.String():
		return ReadOneDocument, nil
	case ScanToMatch.String():
		return ScanToMatch, nil
	}
	return ReadOneDocument, errorf(CodeInvalidArgument, "unknown reader mode %q", c.ReaderMode)
}
