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

	"connectrpc.com/wire/clock"
)

// historyConfig is shared by writers and readers.
type historyConfig struct {
	source  int
	enabled bool
	max     int
	clock   clock.Clock
}

func defaultHistoryConfig() historyConfig {
	return historyConfig{
		max:   DefaultMaxHistory,
		clock: clock.Real(),
	}
}

type writerConfig struct {
	history historyConfig
	filter  func(event Key, firstArg any) bool
}

// A MethodWriter writes calls to the methods of an Interface as documents on
// a Wire. It isn't safe for concurrent use, since the Wire's writing side
// isn't.
type MethodWriter struct {
	wire  *Wire
	iface *Interface
	cfg   writerConfig
}

// NewMethodWriter returns a writer of iface's events.
func NewMethodWriter(wire *Wire, iface *Interface, options ...WriterOption) *MethodWriter {
	cfg := writerConfig{history: defaultHistoryConfig()}
	for _, opt := range options {
		opt.applyToWriter(&cfg)
	}
	return &MethodWriter{wire: wire, iface: iface, cfg: cfg}
}

// Call writes one document holding a single call of event. If the method is
// filtered out by WithFirstArgFilter, nothing is written and the error is
// nil.
func (w *MethodWriter) Call(ctx context.Context, event string, args ...any) error {
	return w.newChain().Call(ctx, event, args...)
}

// Chain starts a document with a call of a chained event. Further calls on
// the returned ChainWriter go to the interface the event returns, and the
// document is finished by the first ChainWriter.Call.
func (w *MethodWriter) Chain(ctx context.Context, event string, args ...any) (*ChainWriter, error) {
	return w.newChain().Chain(ctx, event, args...)
}

func (w *MethodWriter) newChain() *ChainWriter {
	return &ChainWriter{writer: w, iface: w.iface}
}

// suppressed evaluates the first-argument filter.
func (w *MethodWriter) suppressed(method *Method, args []any) bool {
	if !method.filterOnFirstArg || w.cfg.filter == nil || len(args) == 0 {
		return false
	}
	return !w.cfg.filter(method.key(), args[0])
}

// writeHistory writes the context's history, or starts one if this writer
// is a history source.
func (w *MethodWriter) writeHistory(ctx context.Context, doc *WriteDocument) error {
	history, ok := HistoryFromContext(ctx)
	if !ok {
		if !w.cfg.history.enabled {
			return nil
		}
		history = NewMessageHistory(w.cfg.history.max)
		if err := history.Append(w.cfg.history.source, doc.HeaderNumber(), w.cfg.history.clock.Now()); err != nil {
			return err
		}
	}
	return doc.Wire().Write(historyField).Marshallable(history)
}

type chainState int

const (
	chainIdle chainState = iota
	chainChaining
	chainClosed
)

// A ChainWriter continues a document started by MethodWriter.Chain. Each
// Chain call adds a call and keeps the document open; Call adds the last one
// and finishes the document. Any error rolls the whole document back.
type ChainWriter struct {
	writer     *MethodWriter
	iface      *Interface
	doc        *WriteDocument
	state      chainState
	suppressed bool
}

// Chain writes a call of a chained event and moves on to the interface it
// returns.
func (c *ChainWriter) Chain(ctx context.Context, event string, args ...any) (*ChainWriter, error) {
	method, err := c.method(event, args)
	if err != nil {
		return c, err
	}
	if !method.chained {
		c.abort()
		return c, errorf(CodeFailedPrecondition, "%s.%s isn't chained", c.iface.name, event)
	}
	if c.state == chainIdle && c.writer.suppressed(method, args) {
		c.suppressed = true
	}
	if c.suppressed {
		c.state = chainChaining
		c.iface = method.next
		return c, nil
	}
	if err := c.write(ctx, method, args, true); err != nil {
		return c, err
	}
	c.iface = method.next
	return c, nil
}

// Call writes the last call of the document and finishes it.
func (c *ChainWriter) Call(ctx context.Context, event string, args ...any) error {
	method, err := c.method(event, args)
	if err != nil {
		return err
	}
	if c.state == chainIdle && c.writer.suppressed(method, args) {
		c.suppressed = true
	}
	if c.suppressed {
		c.state = chainClosed
		return nil
	}
	if err := c.write(ctx, method, args, false); err != nil {
		return err
	}
	c.state = chainClosed
	return c.doc.Close()
}

// Rollback abandons a chain that won't be finished.
func (c *ChainWriter) Rollback() {
	c.abort()
}

// Closed reports whether the chain's document is finished or abandoned.
func (c *ChainWriter) Closed() bool { return c.state == chainClosed }

func (c *ChainWriter) method(event string, args []any) (*Method, error) {
	if c.state == chainClosed {
		return nil, errorf(CodeFailedPrecondition, "call of %q on a finished chain", event)
	}
	method, ok := c.iface.Method(event)
	if !ok {
		c.abort()
		return nil, errorf(CodeNotFound, "%s has no method %q", c.iface.name, event)
	}
	if len(args) != method.arity {
		c.abort()
		return nil, errorf(CodeInvalidArgument, "%s.%s takes %d arguments, got %d", c.iface.name, event, method.arity, len(args))
	}
	return method, nil
}

// write appends one call frame, opening the document on the first call.
func (c *ChainWriter) write(ctx context.Context, method *Method, args []any, chained bool) error {
	if c.state == chainIdle {
		if c.writer.wire.open != nil {
			c.state = chainClosed
			return errorf(CodeFailedPrecondition, "another document is open on the wire")
		}
		c.doc = c.writer.wire.WritingDocument(false)
		c.state = chainChaining
		if err := c.writer.writeHistory(ctx, c.doc); err != nil {
			c.abort()
			return err
		}
	}
	c.doc.SetChained(chained)
	out := c.doc.Wire()
	var value ValueOut
	if key := method.key(); key.IsID() {
		value = out.WriteID(key.ID)
	} else {
		value = out.Write(key.Name)
	}
	err := value.Sequence(func(elements ValueOut) error {
		for _, arg := range args {
			if err := elements.Object(arg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.abort()
		return err
	}
	return nil
}

func (c *ChainWriter) abort() {
	if c.doc != nil && c.state != chainClosed {
		c.doc.Rollback()
	}
	c.state = chainClosed
}
