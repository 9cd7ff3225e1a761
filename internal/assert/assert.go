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
// Package assert is a minimal assert package using generics.
//
// Values are compared with go-cmp. Unexported fields are compared too, NaNs
// equal each other, and protobuf messages compare by content. Failures print
// a diff, and byte slices are shown as hex dumps so framed payloads stay
// readable.
package assert

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"google.golang.org/protobuf/testing/protocmp"
)

var compareOptions = []cmp.Option{
	protocmp.Transform(),
	cmpopts.EquateNaNs(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal asserts that two values are equal.
func Equal[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	if cmpEqual(got, want) {
		return true
	}
	fail(t, failure{name: "Equal", got: got, want: want, diff: true}, options)
	return false
}

// NotEqual asserts that two values aren't equal.
func NotEqual[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	if !cmpEqual(got, want) {
		return true
	}
	fail(t, failure{name: "NotEqual", got: got, want: want, showWant: true}, options)
	return false
}

// Nil asserts that the value is nil.
func Nil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	if isNil(got) {
		return true
	}
	fail(t, failure{name: "Nil", got: got}, options)
	return false
}

// NotNil asserts that the value isn't nil.
func NotNil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	if !isNil(got) {
		return true
	}
	fail(t, failure{name: "NotNil", got: got}, options)
	return false
}

// Zero asserts that the value is its type's zero value.
func Zero[T any](t testing.TB, got T, options ...Option) bool {
	t.Helper()
	var zero T
	if cmpEqual(got, zero) {
		return true
	}
	fail(t, failure{name: fmt.Sprintf("Zero (type %T)", got), got: got}, options)
	return false
}

// NotZero asserts that the value is non-zero.
func NotZero[T any](t testing.TB, got T, options ...Option) bool {
	t.Helper()
	var zero T
	if !cmpEqual(got, zero) {
		return true
	}
	fail(t, failure{name: fmt.Sprintf("NotZero (type %T)", got), got: got}, options)
	return false
}

// Match asserts that the value matches a regexp.
func Match(t testing.TB, got, pattern string, options ...Option) bool {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("invalid regexp %q: %v", pattern, err)
	}
	if re.MatchString(got) {
		return true
	}
	fail(t, failure{name: "Match", got: got, want: pattern, showWant: true}, options)
	return false
}

// ErrorIs asserts that want is in got's error chain.
func ErrorIs(t testing.TB, got, want error, options ...Option) bool {
	t.Helper()
	if errors.Is(got, want) {
		return true
	}
	fail(t, failure{name: "ErrorIs", got: got, want: want, showWant: true}, options)
	return false
}

// False asserts that got is false.
func False(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	if !got {
		return true
	}
	fail(t, failure{name: "False", got: got}, options)
	return false
}

// True asserts that got is true.
func True(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	if got {
		return true
	}
	fail(t, failure{name: "True", got: got}, options)
	return false
}

// Panics asserts that the function called panics.
func Panics(t testing.TB, panicker func(), options ...Option) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			fail(t, failure{name: "Panics", got: r}, options)
		}
	}()
	panicker()
}

// An Option configures an assertion.
type Option interface {
	message() string
}

// Sprintf adds a message to the assertion's output. If Sprintf is passed
// multiple times, only the last message is used.
func Sprintf(template string, args ...any) Option {
	return sprintfOption(fmt.Sprintf(template, args...))
}

type sprintfOption string

func (o sprintfOption) message() string { return string(o) }

type failure struct {
	name     string
	got      any
	want     any
	showWant bool
	// diff prints a cmp diff instead of the raw want.
	diff bool
}

func (f failure) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "assertion:\tassert.%s\n", f.name)
	fmt.Fprintf(&out, "got:\t%s\n", show(f.got))
	switch {
	case f.diff:
		fmt.Fprintf(&out, "want:\t%s\n", show(f.want))
		fmt.Fprintf(&out, "diff (-want +got):\n%s", cmp.Diff(f.want, f.got, compareOptions...))
	case f.showWant:
		fmt.Fprintf(&out, "want:\t%s\n", show(f.want))
	}
	return out.String()
}

func fail(t testing.TB, f failure, options []Option) {
	t.Helper()
	var msg string
	if len(options) > 0 {
		msg = options[len(options)-1].message()
	}
	t.Fatal(msg + "\n" + f.String())
}

func show(v any) string {
	if data, ok := v.([]byte); ok && data != nil {
		return "\n" + hex.Dump(data)
	}
	return fmt.Sprintf("%+v", v)
}

func isNil(got any) bool {
	if got == nil {
		return true
	}
	// A typed nil inside an interface isn't == nil.
	val := reflect.ValueOf(got)
	switch val.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return val.IsNil()
	default:
		return false
	}
}

func cmpEqual(got, want any) bool {
	return cmp.Equal(got, want, compareOptions...)
}
