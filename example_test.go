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
package wire_test

import (
	"context"
	"fmt"

	"connectrpc.com/wire"
)

type greeter struct{}

func (greeter) Greet(_ context.Context, name string) error {
	fmt.Println("hello,", name)
	return nil
}

func Example() {
	ctx := context.Background()
	greeting, err := wire.NewInterface("greeter", wire.Handle1("greet", greeter.Greet))
	if err != nil {
		panic(err)
	}
	w := wire.NewWire(wire.NewBytes(0), wire.JSON)
	if err := wire.NewMethodWriter(w, greeting).Call(ctx, "greet", "world"); err != nil {
		panic(err)
	}
	// Skip the 4-byte document prefix.
	fmt.Print(string(w.Bytes().Bytes()[4:]))

	reader, err := wire.NewMethodReader(w, greeting, greeter{})
	if err != nil {
		panic(err)
	}
	for {
		ok, err := reader.ReadOne(ctx)
		if err != nil {
			panic(err)
		}
		if !ok {
			break
		}
	}
	// Output:
	// {"greet":["world"]}
	// hello, world
}

type temperature struct {
	Celsius float64
}

func (t *temperature) WriteMarshallable(out wire.WireOut) error {
	out.Write("celsius").Float64(t.Celsius)
	return nil
}

func (t *temperature) ReadMarshallable(in wire.WireIn) error {
	t.Celsius = in.Read("celsius").Float64()
	return nil
}

func ExampleMarshal() {
	data, err := wire.Marshal(wire.JSON, &temperature{Celsius: 21})
	if err != nil {
		panic(err)
	}
	fmt.Print(string(data))

	var t temperature
	if err := wire.Unmarshal(wire.Text, []byte("celsius: 19.5\n"), &t); err != nil {
		panic(err)
	}
	fmt.Println(t.Celsius)
	// Output:
	// {"celsius":21.0}
	// 19.5
}
