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
package cbor_test

import (
	"testing"

	"connectrpc.com/wire"
	"connectrpc.com/wire/codec/cbor"
	"connectrpc.com/wire/internal/assert"
)

type order struct {
	ID    string            `cbor:"id"`
	Qty   int               `cbor:"qty"`
	Delta int64             `cbor:"delta"`
	Price float64           `cbor:"price"`
	Tags  []string          `cbor:"tags"`
	Meta  map[string]string `cbor:"meta"`
	Blob  []byte            `cbor:"blob,omitempty"`
	Note  string            `cbor:"-"`
}

type orderV1 struct {
	ID  string `cbor:"id"`
	Qty int    `cbor:"qty"`
}

func TestValueRoundTrip(t *testing.T) {
	t.Parallel()
	for _, codec := range []wire.Codec{wire.Binary, wire.Text, wire.JSON} {
		codec := codec
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()
			in := order{
				ID:    "o-1",
				Qty:   3,
				Delta: -40,
				Price: 2.5,
				Tags:  []string{"new", "rush"},
				Meta:  map[string]string{"by": "ops"},
				Note:  "not written",
			}
			if codec != wire.JSON {
				// Untyped JSON has no byte strings.
				in.Blob = []byte{1, 2, 3}
			}
			data, err := wire.Marshal(codec, cbor.Of(&in))
			assert.Nil(t, err)
			var got order
			assert.Nil(t, wire.Unmarshal(codec, data, cbor.Of(&got)))
			in.Note = ""
			assert.Equal(t, got, in)
		})
	}
}

func TestValueFieldOrder(t *testing.T) {
	t.Parallel()
	data, err := wire.Marshal(wire.Text, cbor.Of(&orderV1{ID: "o-2", Qty: 1}))
	assert.Nil(t, err)
	assert.Equal(t, string(data), "id: o-2\nqty: 1\n")
}

func TestValueVersionSkew(t *testing.T) {
	t.Parallel()
	data, err := wire.Marshal(wire.Binary, cbor.Of(&order{ID: "o-3", Qty: 2, Tags: []string{"x"}}))
	assert.Nil(t, err)
	var older orderV1
	assert.Nil(t, wire.Unmarshal(wire.Binary, data, cbor.Of(&older)))
	assert.Equal(t, older, orderV1{ID: "o-3", Qty: 2})

	data, err = wire.Marshal(wire.Binary, cbor.Of(&orderV1{ID: "o-4", Qty: 5}))
	assert.Nil(t, err)
	newer := order{Price: 9.5}
	assert.Nil(t, wire.Unmarshal(wire.Binary, data, cbor.Of(&newer)))
	assert.Equal(t, newer, order{ID: "o-4", Qty: 5, Price: 9.5})
}

func TestValueAsArgument(t *testing.T) {
	t.Parallel()
	w := wire.NewWire(wire.NewBytes(0), wire.Text)
	err := w.WriteDocument(false, func(out wire.WireOut) error {
		return out.Write("order").Marshallable(cbor.Of(&orderV1{ID: "o-5", Qty: 7}))
	})
	assert.Nil(t, err)
	var got orderV1
	ok, err := w.ReadDocument(func(in wire.WireIn) error {
		return in.Read("order").Marshallable(cbor.Of(&got))
	})
	assert.True(t, ok)
	assert.Nil(t, err)
	assert.Equal(t, got, orderV1{ID: "o-5", Qty: 7})
}
