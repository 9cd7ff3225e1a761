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
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// A ClassLookup maps Marshallable types to short aliases and back. Wires
// consult it only when writing or reading type markers.
type ClassLookup interface {
	// Alias returns the alias registered for v's type.
	Alias(v any) (string, bool)
	// New returns a fresh value for alias, typically a pointer to a zero
	// struct.
	New(alias string) (any, bool)
}

// Aliases is a ClassLookup backed by explicit registrations. The zero value
// isn't usable; construct one with NewAliases. It's safe for concurrent use.
type Aliases struct {
	mu     sync.RWMutex
	byName map[string]func() any
	byType map[reflect.Type]string
}

var _ ClassLookup = (*Aliases)(nil)

// NewAliases returns an empty registry.
func NewAliases() *Aliases {
	return &Aliases{
		byName: make(map[string]func() any),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds alias to the type of the values newValue returns. Aliases
// and types may each be registered once.
func (a *Aliases) Register(alias string, newValue func() any) error {
	if alias == "" || strings.ContainsAny(alias, " \t\n{}[]:,@!") {
		return errorf(CodeInvalidArgument, "invalid alias %q", alias)
	}
	typ := reflect.TypeOf(newValue())
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byName[alias]; ok {
		return errorf(CodeAlreadyExists, "alias %q already registered", alias)
	}
	if existing, ok := a.byType[typ]; ok {
		return errorf(CodeAlreadyExists, "%v already registered as %q", typ, existing)
	}
	a.byName[alias] = newValue
	a.byType[typ] = alias
	return nil
}

// Alias implements ClassLookup.
func (a *Aliases) Alias(v any) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	alias, ok := a.byType[reflect.TypeOf(v)]
	return alias, ok
}

// New implements ClassLookup.
func (a *Aliases) New(alias string) (any, bool) {
	a.mu.RLock()
	newValue, ok := a.byName[alias]
	a.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return newValue(), true
}

// RegisterAlias registers the Marshallable *T under alias.
func RegisterAlias[T any, PT interface {
	*T
	Marshallable
}](a *Aliases, alias string) error {
	return a.Register(alias, func() any { return PT(new(T)) })
}

type emptyLookup struct{}

func (emptyLookup) Alias(any) (string, bool) { return "", false }
func (emptyLookup) New(string) (any, bool) { return nil, false }

// aliasOf names m for a type marker, falling back to its Go type name.
// Values written under an unregistered name decode as generic maps.
func aliasOf(lookup ClassLookup, m Marshallable) string {
	if alias, ok := lookup.Alias(m); ok {
		return alias
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
}

func newAliased(cfg *codecConfig, alias string) (Marshallable, bool) {
	if alias == "" {
		return nil, false
	}
	value, ok := cfg.lookup.New(alias)
	if !ok {
		cfg.debugf("alias %q not registered, decoding as a map", alias)
		return nil, false
	}
	m, ok := value.(Marshallable)
	if !ok {
		cfg.warnf("alias %q constructs %T, which isn't Marshallable", alias, value)
		return nil, false
	}
	return m, true
}
