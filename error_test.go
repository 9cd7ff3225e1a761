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
	"fmt"
	"strings"
	"testing"

	"connectrpc.com/wire/internal/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NewError(CodeDataLoss, errors.New("")).Error(), CodeDataLoss.String())
	text := errorf(CodeInvalidArgument, "bad tag 0x%02x", 0x99).Error()
	assert.True(t, strings.Contains(text, CodeInvalidArgument.String()))
	assert.True(t, strings.Contains(text, "0x99"))
}

func TestErrorCode(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("another: %w", errorf(CodeResourceExhausted, "foo"))
	wireErr, ok := asError(err)
	assert.True(t, ok)
	assert.Equal(t, wireErr.Code(), CodeResourceExhausted)
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("cause")
	err := errorf(CodeInvalidArgument, "decode: %w", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, NewError(CodeInternal, cause), cause)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CodeOf(nil), CodeOK)
	assert.Equal(t, CodeOf(errorf(CodeAlreadyExists, "foo")), CodeAlreadyExists)
	assert.Equal(t, CodeOf(errors.New("foo")), CodeUnknown)
}
