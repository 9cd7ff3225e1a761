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
	"strings"
	"testing"

	"connectrpc.com/wire/internal/assert"
)

func TestAliases(t *testing.T) {
	t.Parallel()
	aliases := NewAliases()
	assert.Nil(t, RegisterAlias[point](aliases, "Point"))

	alias, ok := aliases.Alias(&point{})
	assert.True(t, ok)
	assert.Equal(t, alias, "Point")
	_, ok = aliases.Alias(point{})
	assert.False(t, ok)

	value, ok := aliases.New("Point")
	assert.True(t, ok)
	_, isPoint := value.(*point)
	assert.True(t, isPoint)
	_, ok = aliases.New("Missing")
	assert.False(t, ok)

	err := RegisterAlias[point](aliases, "Other")
	assert.Equal(t, CodeOf(err), CodeAlreadyExists)
	err = RegisterAlias[counter](aliases, "Point")
	assert.Equal(t, CodeOf(err), CodeAlreadyExists)
	err = RegisterAlias[counter](aliases, "has space")
	assert.Equal(t, CodeOf(err), CodeInvalidArgument)

	assert.Equal(t, aliasOf(aliases, &point{}), "Point")
	assert.Equal(t, aliasOf(aliases, &counter{}), "wire.counter")
	assert.Equal(t, aliasOf(emptyLookup{}, &point{}), "wire.point")
}

func TestAliasedText(t *testing.T) {
	t.Parallel()
	aliases := NewAliases()
	assert.Nil(t, RegisterAlias[point](aliases, "Point"))
	data, err := Marshal(Text, &bag{Values: []any{&point{X: 1, Y: 2, Label: "p"}}}, WithClassLookup(aliases))
	assert.Nil(t, err)
	assert.True(t, strings.Contains(string(data), "!Point"), assert.Sprintf("%s", data))
	got := &bag{}
	assert.Nil(t, Unmarshal(Text, data, got, WithClassLookup(aliases)))
	assert.Equal(t, got.Values, []any{&point{X: 1, Y: 2, Label: "p"}})
}
