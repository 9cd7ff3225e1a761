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
)

type readerConfig struct {
	history    historyConfig
	unknown    func(ctx context.Context, event Key, args ValueIn)
	mode       ReaderMode
	strictArgs bool
}

// A MethodReader reads documents from a Wire and invokes the events they
// carry on a target.
type MethodReader struct {
	wire   *Wire
	iface  *Interface
	target any
	cfg    readerConfig
}

// NewMethodReader returns a reader dispatching iface's events to target.
// target must be usable by every method of iface.
func NewMethodReader(wire *Wire, iface *Interface, target any, options ...ReaderOption) (*MethodReader, error) {
	if err := iface.accepts(target); err != nil {
		return nil, err
	}
	cfg := readerConfig{history: defaultHistoryConfig()}
	for _, opt := range options {
		opt.applyToReader(&cfg)
	}
	return &MethodReader{wire: wire, iface: iface, target: target, cfg: cfg}, nil
}

// ReadOne reads at most one data document and dispatches its events in
// order. It never blocks: if no complete data document is available, it
// returns false. Meta-data documents are skipped.
//
// Events the interface doesn't declare are skipped. An error decoding the
// document, or returned by a handler, ends processing of that document only;
// the next call continues with the following one. Handler errors are
// returned unchanged.
func (r *MethodReader) ReadOne(ctx context.Context) (bool, error) {
	for {
		doc, err := r.wire.ReadingDocument()
		if err != nil || !doc.IsPresent() {
			return false, err
		}
		if doc.IsMetaData() {
			doc.Close()
			continue
		}
		dispatched, err := r.dispatch(ctx, doc)
		doc.Close()
		if err != nil {
			return true, err
		}
		if dispatched || r.cfg.mode == ReadOneDocument {
			return true, nil
		}
	}
}

// dispatch invokes the events of one document. It reports whether any event
// was handled.
func (r *MethodReader) dispatch(ctx context.Context, doc *ReadDocument) (bool, error) {
	in, err := doc.Wire()
	if err != nil {
		return false, err
	}
	target, iface := r.target, r.iface
	dispatched := false
	first := true
	for {
		key, value, ok := in.Next()
		if !ok {
			return dispatched, nil
		}
		if first && !key.IsID() && key.Name == historyField {
			first = false
			ctx, err = r.withHistory(ctx, doc, value)
			if err != nil {
				return dispatched, err
			}
			continue
		}
		if first {
			first = false
			ctx, err = r.withHistory(ctx, doc, nil)
			if err != nil {
				return dispatched, err
			}
		}
		method := iface.lookup(key)
		if method == nil {
			r.skip(ctx, iface, key, value)
			continue
		}
		args, err := collectArgs(value, method.arity, r.cfg.strictArgs)
		if err != nil {
			return dispatched, prefixError(CodeInvalidArgument, iface.name+"."+method.name, err)
		}
		next, err := method.invoke(ctx, target, args)
		if err != nil {
			return dispatched, err
		}
		dispatched = true
		if method.chained {
			target, iface = next, method.next
		}
	}
}

// withHistory attaches the document's history to ctx, appending this
// reader's hop if it's a history source. The inbound history isn't
// modified.
func (r *MethodReader) withHistory(ctx context.Context, doc *ReadDocument, value ValueIn) (context.Context, error) {
	var inbound *MessageHistory
	if value != nil && !value.IsNull() {
		inbound = NewMessageHistory(r.cfg.history.max)
		if err := value.Marshallable(inbound); err != nil {
			return ctx, errorf(CodeInvalidArgument, "read message history: %w", err)
		}
	}
	if !r.cfg.history.enabled {
		if inbound == nil {
			return ctx, nil
		}
		return ContextWithHistory(ctx, inbound), nil
	}
	if inbound == nil {
		inbound = NewMessageHistory(r.cfg.history.max)
	}
	relayed, err := inbound.Relay(r.cfg.history.source, doc.HeaderNumber(), r.cfg.history.clock.Now())
	if err != nil {
		return ctx, err
	}
	return ContextWithHistory(ctx, relayed), nil
}

func (r *MethodReader) skip(ctx context.Context, iface *Interface, key Key, value ValueIn) {
	r.wire.cfg.codec.debugf("%s: skipping unknown event %q", iface.name, key)
	if r.cfg.unknown != nil {
		r.cfg.unknown(ctx, key, value)
	}
}

// collectArgs splits an argument sequence. Unless strict, missing trailing
// arguments read as zero values and extra ones are ignored, so writers and
// readers may differ by appended arguments.
func collectArgs(value ValueIn, arity int, strict bool) ([]ValueIn, error) {
	args := make([]ValueIn, 0, arity)
	count := 0
	err := value.Sequence(func(element ValueIn) error {
		count++
		if len(args) < arity {
			args = append(args, element)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if strict && count != arity {
		return nil, errorf(CodeInvalidArgument, "expected %d arguments, found %d", arity, count)
	}
	for len(args) < arity {
		args = append(args, absentValue{})
	}
	return args, nil
}
