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
	"fmt"
	"reflect"
)

// historyField is the reserved leading field of a call frame carrying the
// message history.
const historyField = "history"

// ReaderMode selects how MethodReader.ReadOne treats documents that contain
// no event the reader's interface declares.
type ReaderMode int

const (
	// ReadOneDocument consumes exactly one data document per ReadOne call,
	// whether or not any of its events were dispatched.
	ReadOneDocument ReaderMode = iota
	// ScanToMatch keeps consuming data documents until one dispatches an
	// event or none are left.
	ScanToMatch
)

func (m ReaderMode) String() string {
	switch m {
	case ReadOneDocument:
		return "read_one_document"
	case ScanToMatch:
		return "scan_to_match"
	}
	return "unknown"
}

// An Interface is the dispatch table of a set of events: what a MethodWriter
// may write and what a MethodReader can invoke. Build it once with
// NewInterface and share it.
type Interface struct {
	name    string
	methods []*Method
	byName  map[string]*Method
	byID    map[int64]*Method
}

// NewInterface builds a dispatch table. Method names and numeric ids must be
// unique; duplicates are a CodeAlreadyExists error.
func NewInterface(name string, methods ...*Method) (*Interface, error) {
	iface := &Interface{
		name:    name,
		methods: methods,
		byName:  make(map[string]*Method, len(methods)),
		byID:    make(map[int64]*Method),
	}
	for _, method := range methods {
		if method.name == "" || method.name == historyField {
			return nil, errorf(CodeInvalidArgument, "%s: invalid method name %q", name, method.name)
		}
		if _, ok := iface.byName[method.name]; ok {
			return nil, errorf(CodeAlreadyExists, "%s: duplicate method %q", name, method.name)
		}
		iface.byName[method.name] = method
		if !method.hasID {
			continue
		}
		if existing, ok := iface.byID[method.id]; ok {
			return nil, errorf(CodeAlreadyExists, "%s: methods %q and %q share id %d", name, existing.name, method.name, method.id)
		}
		iface.byID[method.id] = method
	}
	for _, method := range methods {
		if method.chained && method.next == nil {
			method.next = iface
		}
	}
	return iface, nil
}

// Name returns the interface's name.
func (i *Interface) Name() string { return i.name }

// Methods returns the methods in declaration order.
func (i *Interface) Methods() []*Method {
	return append([]*Method(nil), i.methods...)
}

// Method returns the method with the given name.
func (i *Interface) Method(name string) (*Method, bool) {
	method, ok := i.byName[name]
	return method, ok
}

// lookup finds the method for an event key. Methods with an id also answer
// to their name.
func (i *Interface) lookup(key Key) *Method {
	if key.IsID() {
		return i.byID[key.ID]
	}
	return i.byName[key.Name]
}

func (i *Interface) accepts(target any) error {
	for _, method := range i.methods {
		if !method.accepts(target) {
			return errorf(CodeInvalidArgument, "%T can't handle %s.%s", target, i.name, method.name)
		}
	}
	return nil
}

// A Method describes one event: its name, optional numeric id, argument
// count, and how to invoke it on a target. Construct methods with the
// Handle and Chain functions.
type Method struct {
	name             string
	id               int64
	hasID            bool
	arity            int
	chained          bool
	next             *Interface
	filterOnFirstArg bool

	accepts func(target any) bool
	invoke  func(ctx context.Context, target any, args []ValueIn) (any, error)
}

// WithID makes writers identify the event by a small number instead of its
// name. Readers accept both.
func (m *Method) WithID(id int64) *Method {
	m.id = id
	m.hasID = true
	return m
}

// FilterOnFirstArg subjects calls to the predicate installed with
// WithFirstArgFilter.
func (m *Method) FilterOnFirstArg() *Method {
	m.filterOnFirstArg = true
	return m
}

// Name returns the method's event name.
func (m *Method) Name() string { return m.name }

// ID returns the method's numeric id, if it has one.
func (m *Method) ID() (int64, bool) { return m.id, m.hasID }

// Arity is the number of arguments.
func (m *Method) Arity() int { return m.arity }

// Chained reports whether the method returns another interface whose calls
// continue the same document.
func (m *Method) Chained() bool { return m.chained }

// Next is the interface a chained method returns.
func (m *Method) Next() *Interface { return m.next }

// key is the event key writers use.
func (m *Method) key() Key {
	if m.hasID {
		return IDKey(m.id)
	}
	return NameKey(m.name)
}

func newMethod[T any](name string, arity int, call func(context.Context, T, []ValueIn) (any, error)) *Method {
	return &Method{
		name:  name,
		arity: arity,
		accepts: func(target any) bool {
			_, ok := target.(T)
			return ok
		},
		invoke: func(ctx context.Context, target any, args []ValueIn) (any, error) {
			typed, ok := target.(T)
			if !ok {
				return nil, errorf(CodeInternal, "%T can't handle %s", target, name)
			}
			return call(ctx, typed, args)
		},
	}
}

func newChainedMethod[T any](name string, arity int, next *Interface, call func(context.Context, T, []ValueIn) (any, error)) *Method {
	method := newMethod(name, arity, call)
	method.chained = true
	method.next = next
	return method
}

// Handle0 describes an event without arguments. fn is usually a method
// expression, such as (*Server).Ping.
func Handle0[T any](name string, fn func(T, context.Context) error) *Method {
	return newMethod(name, 0, func(ctx context.Context, target T, _ []ValueIn) (any, error) {
		return nil, fn(target, ctx)
	})
}

// Handle1 describes an event with one argument.
func Handle1[T, A any](name string, fn func(T, context.Context, A) error) *Method {
	decodeA := argDecoder[A](name, 0)
	return newMethod(name, 1, func(ctx context.Context, target T, args []ValueIn) (any, error) {
		a, err := decodeA(args[0])
		if err != nil {
			return nil, err
		}
		return nil, fn(target, ctx, a)
	})
}

// Handle2 describes an event with two arguments.
func Handle2[T, A, B any](name string, fn func(T, context.Context, A, B) error) *Method {
	decodeA, decodeB := argDecoder[A](name, 0), argDecoder[B](name, 1)
	return newMethod(name, 2, func(ctx context.Context, target T, args []ValueIn) (any, error) {
		a, err := decodeA(args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeB(args[1])
		if err != nil {
			return nil, err
		}
		return nil, fn(target, ctx, a, b)
	})
}

// Handle3 describes an event with three arguments.
func Handle3[T, A, B, C any](name string, fn func(T, context.Context, A, B, C) error) *Method {
	decodeA, decodeB, decodeC := argDecoder[A](name, 0), argDecoder[B](name, 1), argDecoder[C](name, 2)
	return newMethod(name, 3, func(ctx context.Context, target T, args []ValueIn) (any, error) {
		a, err := decodeA(args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeB(args[1])
		if err != nil {
			return nil, err
		}
		c, err := decodeC(args[2])
		if err != nil {
			return nil, err
		}
		return nil, fn(target, ctx, a, b, c)
	})
}

// Chain0 describes an event without arguments returning the target of the
// next call in the same document, which must implement next. A nil next
// means the method's own interface.
func Chain0[T, N any](name string, fn func(T, context.Context) (N, error), next *Interface) *Method {
	return newChainedMethod(name, 0, next, func(ctx context.Context, target T, _ []ValueIn) (any, error) {
		return fn(target, ctx)
	})
}

// Chain1 describes a chained event with one argument.
func Chain1[T, A, N any](name string, fn func(T, context.Context, A) (N, error), next *Interface) *Method {
	decodeA := argDecoder[A](name, 0)
	return newChainedMethod(name, 1, next, func(ctx context.Context, target T, args []ValueIn) (any, error) {
		a, err := decodeA(args[0])
		if err != nil {
			return nil, err
		}
		return fn(target, ctx, a)
	})
}

// Chain2 describes a chained event with two arguments.
func Chain2[T, A, B, N any](name string, fn func(T, context.Context, A, B) (N, error), next *Interface) *Method {
	decodeA, decodeB := argDecoder[A](name, 0), argDecoder[B](name, 1)
	return newChainedMethod(name, 2, next, func(ctx context.Context, target T, args []ValueIn) (any, error) {
		a, err := decodeA(args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeB(args[1])
		if err != nil {
			return nil, err
		}
		return fn(target, ctx, a, b)
	})
}

var marshallableType = reflect.TypeOf((*Marshallable)(nil)).Elem()

// argDecoder picks, once per method, how to decode an argument of type A.
func argDecoder[A any](method string, position int) func(ValueIn) (A, error) {
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return prefixError(CodeInvalidArgument, fmt.Sprintf("%s argument %d", method, position), err)
	}
	var zero A
	if _, ok := any(&zero).(Marshallable); ok {
		return func(in ValueIn) (A, error) {
			var a A
			err := in.Marshallable(any(&a).(Marshallable)) //nolint:forcetypeassert
			return a, wrap(err)
		}
	}
	typ := reflect.TypeOf(&zero).Elem()
	if typ.Kind() == reflect.Pointer && typ.Implements(marshallableType) {
		elem := typ.Elem()
		return func(in ValueIn) (A, error) {
			var a A
			if in.IsNull() {
				return a, nil
			}
			a = reflect.New(elem).Interface().(A) //nolint:forcetypeassert
			return a, wrap(in.Marshallable(any(a).(Marshallable))) //nolint:forcetypeassert
		}
	}
	return func(in ValueIn) (A, error) {
		var a A
		err := in.Object(&a)
		if CodeOf(err) != CodeUnimplemented {
			return a, wrap(err)
		}
		// Fall back to the dynamic form, for interface-typed arguments.
		var value any
		if err := in.Object(&value); err != nil {
			return a, wrap(err)
		}
		if value == nil {
			return a, nil
		}
		converted, ok := value.(A)
		if !ok {
			return a, wrap(errorf(CodeInvalidArgument, "can't use %T as %T", value, a))
		}
		return converted, nil
	}
}
