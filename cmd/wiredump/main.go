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
// wiredump prints the documents of a wire file as a YAML stream, one YAML
// document per wire document:
//
//	wiredump [flags] [file]
//
// With no file, or "-", it reads standard input. Each YAML document carries
// the header number, the flags and length of the wire document, and its
// fields. Meta-data documents are skipped unless --meta is set.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"

	"connectrpc.com/wire"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "wiredump: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	codec      string
	configPath string
	meta       bool
	digest     bool
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("wiredump", pflag.ContinueOnError)
	flagSet.StringVar(&opts.codec, "codec", "", `codec of the input: "binary", "text" or "json" (overrides --config)`)
	flagSet.StringVar(&opts.configPath, "config", "", "wire configuration file (.toml, .yaml)")
	flagSet.BoolVar(&opts.meta, "meta", false, "include meta-data documents")
	flagSet.BoolVar(&opts.digest, "digest", false, "print the BLAKE3 digest of each payload")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(1))
	}

	cfg := &wire.Config{}
	if opts.configPath != "" {
		loaded, err := wire.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.codec != "" {
		cfg.Codec = opts.codec
	}

	data, err := readInput(stdin, flagSet.Arg(0))
	if err != nil {
		return err
	}
	bytes := wire.BytesOf(data)
	bytes.CloseWrite()
	in, err := cfg.NewWire(bytes)
	if err != nil {
		return err
	}
	out := wire.NewTextStreamWriter(stdout)
	if err := dump(in, out, opts); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func dump(in *wire.Wire, out *wire.TextStreamWriter, opts options) error {
	for {
		doc, err := in.ReadingDocument()
		if err != nil {
			return err
		}
		if !doc.IsPresent() {
			return nil
		}
		if doc.IsMetaData() && !opts.meta {
			doc.Close()
			continue
		}
		err = out.WriteDocument(func(w wire.WireOut) error {
			return describe(w, doc, opts)
		})
		doc.Close()
		if err != nil {
			return err
		}
	}
}

func describe(out wire.WireOut, doc *wire.ReadDocument, opts options) error {
	if doc.IsMetaData() {
		out.Write("meta").Bool(true)
	} else {
		out.Write("header").Int64(doc.HeaderNumber())
	}
	out.Write("length").Int64(int64(len(doc.Payload())))
	if opts.digest {
		sum := blake3.Sum256(doc.Payload())
		out.Write("blake3").Text(hex.EncodeToString(sum[:]))
	}
	if doc.IsPadding() {
		out.Write("padding").Bool(true)
		return nil
	}
	fields, err := doc.Wire()
	if err != nil {
		out.Write("error").Text(err.Error())
		return nil
	}
	return out.Write("fields").Marshallable(copier{fields})
}

// copier re-encodes the fields of a decoded document.
type copier struct {
	in wire.WireIn
}

func (c copier) WriteMarshallable(out wire.WireOut) error {
	return wire.CopyFields(out, c.in)
}

func (c copier) ReadMarshallable(wire.WireIn) error {
	return errors.New("copier is write-only")
}
