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
	"strconv"
)

var strToCode = map[string]Code{
	"OK":                  CodeOK,
	"UNKNOWN":             CodeUnknown,
	"INVALID_ARGUMENT":    CodeInvalidArgument,
	"NOT_FOUND":           CodeNotFound,
	"ALREADY_EXISTS":      CodeAlreadyExists,
	"RESOURCE_EXHAUSTED":  CodeResourceExhausted,
	"FAILED_PRECONDITION": CodeFailedPrecondition,
	"UNIMPLEMENTED":       CodeUnimplemented,
	"INTERNAL":            CodeInternal,
	"DATA_LOSS":           CodeDataLoss,
}

// A Code classifies an *Error. The codes reuse the names of gRPC's canonical
// status codes, restricted to the ones that make sense for an in-process
// framing and encoding layer.
//
// Codes map onto the failure scopes of a wire: CodeDataLoss aborts the whole
// stream, CodeInvalidArgument is scoped to a single value or document, and
// CodeAlreadyExists is only returned while constructing dispatch tables and
// classifiers.
type Code uint32

const (
	CodeOK                 Code = 0  // success
	CodeUnknown            Code = 2  // unknown error
	CodeInvalidArgument    Code = 3  // value or document can't be decoded
	CodeNotFound           Code = 5  // alias or compressor not registered
	CodeAlreadyExists      Code = 6  // duplicate registration
	CodeResourceExhausted  Code = 8  // bounded structure is full
	CodeFailedPrecondition Code = 9  // API used out of order
	CodeUnimplemented      Code = 12 // value kind not supported by the flavor
	CodeInternal           Code = 13 // internal invariant broken
	CodeDataLoss           Code = 15 // stream corrupted, unusable past this point

	minCode Code = CodeOK
	maxCode Code = CodeDataLoss
)

// MarshalText implements encoding.TextMarshaler. Codes are marshaled in their
// numeric representations.
func (c Code) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("invalid code %v", uint32(c))
	}
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts both numeric
// representations (as produced by MarshalText) and the all-caps names.
func (c *Code) UnmarshalText(b []byte) error {
	if n, ok := strToCode[string(b)]; ok {
		*c = n
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10 /* base */, 32 /* bitsize */)
	if err != nil {
		return fmt.Errorf("invalid code %q", string(b))
	}
	code := Code(n)
	if !code.valid() {
		return fmt.Errorf("invalid code %v", n)
	}
	*c = code
	return nil
}

func (c Code) valid() bool {
	if c < minCode || c > maxCode {
		return false
	}
	return c.String() != fmt.Sprintf("Code(%d)", uint32(c))
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeNotFound:
		return "NotFound"
	case CodeAlreadyExists:
		return "AlreadyExists"
	case CodeResourceExhausted:
		return "ResourceExhausted"
	case CodeFailedPrecondition:
		return "FailedPrecondition"
	case CodeUnimplemented:
		return "Unimplemented"
	case CodeInternal:
		return "Internal"
	case CodeDataLoss:
		return "DataLoss"
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}
