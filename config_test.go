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
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/wire/internal/assert"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	tomlConfig := `
codec = "json"
types = true
byte_order = "big"
read_max_bytes = 4096
history_source = 3
max_history = 5
reader_mode = "scan_to_match"
strict_arguments = true
`
	yamlConfig := `
codec: json
types: true
byte_order: big
read_max_bytes: 4096
history_source: 3
max_history: 5
reader_mode: scan_to_match
strict_arguments: true
`
	types, source := true, 3
	want := &Config{
		Codec:           "json",
		Types:           &types,
		ByteOrder:       "big",
		ReadMaxBytes:    4096,
		HistorySource:   &source,
		MaxHistory:      5,
		ReaderMode:      "scan_to_match",
		StrictArguments: true,
	}
	for format, data := range map[string]string{"toml": tomlConfig, "yaml": yamlConfig} {
		format, data := format, data
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			got, err := ParseConfig([]byte(data), format)
			assert.Nil(t, err)
			assert.Equal(t, got, want)
		})
	}
	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		for _, tt := range []struct {
			data, format string
		}{
			{`codec = "xml"`, "toml"},
			{`byte_order = "middle"`, "toml"},
			{`reader_mode: sometimes`, "yaml"},
			{`max_history: -1`, "yaml"},
			{`codec: [`, "yaml"},
			{`codec = "json"`, "ini"},
		} {
			_, err := ParseConfig([]byte(tt.data), tt.format)
			assert.Equal(t, CodeOf(err), CodeInvalidArgument, assert.Sprintf("%s %q", tt.format, tt.data))
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "wire.yml")
	assert.Nil(t, os.WriteFile(path, []byte("codec: text\nhistory_source: 4\n"), 0o600))
	cfg, err := LoadConfig(path)
	assert.Nil(t, err)
	assert.Equal(t, cfg.Codec, "text")

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Equal(t, CodeOf(err), CodeNotFound)

	t.Run("wired", func(t *testing.T) {
		t.Parallel()
		w, err := cfg.NewWire(NewBytes(0))
		assert.Nil(t, err)
		assert.Equal(t, w.Codec(), Text)
		ctx := context.Background()
		assert.Nil(t, NewMethodWriter(w, ledgerInterface(t), cfg.WriterOptions()...).Call(ctx, "ping"))
		readerOptions, err := cfg.ReaderOptions()
		assert.Nil(t, err)
		target := &ledger{}
		drain(t, newLedgerReader(t, w, target, readerOptions...))
		assert.Equal(t, len(target.histories), 1)
		// Writer and reader share the configured source.
		assert.Equal(t, target.histories[0].SourceIDs(), []int{4, 4})
	})
}

func TestConfigWireOptions(t *testing.T) {
	t.Parallel()
	cfg := &Config{ByteOrder: "big", ReadMaxBytes: 64}
	w, err := cfg.NewWire(NewBytes(0))
	assert.Nil(t, err)
	assert.Equal(t, w.Codec(), Binary)
	assert.Equal(t, w.cfg.headerOrder, binary.ByteOrder(binary.BigEndian))
	assert.Equal(t, w.cfg.codec.readMaxBytes, 64)
	assert.True(t, *w.cfg.codec.types)
}

func TestConfigStrictArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := &Config{StrictArguments: true}
	w, err := cfg.NewWire(NewBytes(0))
	assert.Nil(t, err)
	assert.Nil(t, NewMethodWriter(w, ledgerInterface(t)).Call(ctx, "add", 1, 2))
	narrow, err := NewInterface("narrow", Handle1("add", (*ledger).Add1))
	assert.Nil(t, err)
	assert.Nil(t, NewMethodWriter(w, narrow).Call(ctx, "add", 3))

	readerOptions, err := cfg.ReaderOptions()
	assert.Nil(t, err)
	target := &ledger{}
	reader := newLedgerReader(t, w, target, readerOptions...)
	ok, err := reader.ReadOne(ctx)
	assert.True(t, ok)
	assert.Nil(t, err)
	ok, err = reader.ReadOne(ctx)
	assert.True(t, ok)
	assert.Equal(t, CodeOf(err), CodeInvalidArgument)
	assert.Equal(t, target.calls, []string{"add 1 2"})
}
