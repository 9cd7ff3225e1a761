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
	"time"

	"github.com/google/uuid"
)

var allCodecs = []Codec{Binary, Text, JSON}

type point struct {
	X, Y  int64
	Label string
}

func (p *point) WriteMarshallable(out WireOut) error {
	out.Write("x").Int64(p.X)
	out.Write("y").Int64(p.Y)
	out.Write("label").Text(p.Label)
	return nil
}

func (p *point) ReadMarshallable(in WireIn) error {
	p.X = in.Read("x").Int64()
	p.Y = in.Read("y").Int64()
	p.Label = in.Read("label").Text()
	return nil
}

// everything exercises every value kind.
type everything struct {
	Flag   bool
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	Small  int64
	Int    int
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	F32    float32
	F64    float64
	Short  string
	Long   string
	Data   []byte
	ID     uuid.UUID
	At     time.Time
	Nested point
	Seq    []int64
	Names  []string
	Attrs  map[string]any
	Null   any
}

func newEverything() *everything {
	return &everything{
		Flag:   true,
		I8:     -8,
		I16:    -1600,
		I32:    320000,
		I64:    -1 << 40,
		Small:  42,
		Int:    -123456,
		U8:     200,
		U16:    60000,
		U32:    4000000000,
		U64:    1<<63 + 5,
		F32:    1.5,
		F64:    -0.1,
		Short:  "short",
		Long:   "a string long enough to need an explicit length prefix",
		Data:   []byte{0, 1, 2, 0xFF},
		ID:     uuid.MustParse("2b7e1516-28ae-4d2a-abf7-158809cf4f3c"),
		At:     time.Date(2023, 4, 5, 6, 7, 8, 9000, time.UTC),
		Nested: point{X: 3, Y: -4, Label: "nested"},
		Seq:    []int64{1, 200, -3},
		Names:  []string{"a", "b"},
		Attrs:  map[string]any{"count": int64(7), "name": "seven"},
	}
}

func (e *everything) WriteMarshallable(out WireOut) error {
	out.Write("flag").Bool(e.Flag)
	out.Write("i8").Int8(e.I8)
	out.Write("i16").Int16(e.I16)
	out.Write("i32").Int32(e.I32)
	out.Write("i64").Int64(e.I64)
	out.Write("small").Int64(e.Small)
	out.Write("int").Int(e.Int)
	out.Write("u8").Uint8(e.U8)
	out.Write("u16").Uint16(e.U16)
	out.Write("u32").Uint32(e.U32)
	out.Write("u64").Uint64(e.U64)
	out.Write("f32").Float32(e.F32)
	out.Write("f64").Float64(e.F64)
	out.Write("short").Text(e.Short)
	out.Write("long").Text(e.Long)
	out.Write("data").Bytes(e.Data)
	out.Write("id").UUID(e.ID)
	out.Write("at").Time(e.At)
	if err := out.Write("nested").Marshallable(&e.Nested); err != nil {
		return err
	}
	if err := out.Write("seq").Object(e.Seq); err != nil {
		return err
	}
	if err := out.Write("names").Object(e.Names); err != nil {
		return err
	}
	if err := out.Write("attrs").Map(e.Attrs); err != nil {
		return err
	}
	out.Write("null").Nil()
	return nil
}

func (e *everything) ReadMarshallable(in WireIn) error {
	e.Flag = in.Read("flag").Bool()
	e.I8 = in.Read("i8").Int8()
	e.I16 = in.Read("i16").Int16()
	e.I32 = in.Read("i32").Int32()
	e.I64 = in.Read("i64").Int64()
	e.Small = in.Read("small").Int64()
	e.Int = in.Read("int").Int()
	e.U8 = in.Read("u8").Uint8()
	e.U16 = in.Read("u16").Uint16()
	e.U32 = in.Read("u32").Uint32()
	e.U64 = in.Read("u64").Uint64()
	e.F32 = in.Read("f32").Float32()
	e.F64 = in.Read("f64").Float64()
	e.Short = in.Read("short").Text()
	e.Long = in.Read("long").Text()
	e.Data = in.Read("data").Bytes()
	e.ID = in.Read("id").UUID()
	e.At = in.Read("at").Time()
	if err := in.Read("nested").Marshallable(&e.Nested); err != nil {
		return err
	}
	if err := in.Read("seq").Object(&e.Seq); err != nil {
		return err
	}
	if err := in.Read("names").Object(&e.Names); err != nil {
		return err
	}
	if err := in.Read("attrs").Object(&e.Attrs); err != nil {
		return err
	}
	return in.Read("null").Object(&e.Null)
}

// triple and single are two versions of the same message.
type triple struct {
	One, Two, Three string
}

func (t *triple) WriteMarshallable(out WireOut) error {
	out.Write("one").Text(t.One)
	out.Write("two").Text(t.Two)
	out.Write("three").Text(t.Three)
	return nil
}

func (t *triple) ReadMarshallable(in WireIn) error {
	t.One = in.Read("one").Text()
	t.Two = in.Read("two").Text()
	t.Three = in.Read("three").Text()
	return nil
}

type single struct {
	One string
}

func (s *single) WriteMarshallable(out WireOut) error {
	out.Write("one").Text(s.One)
	return nil
}

func (s *single) ReadMarshallable(in WireIn) error {
	s.One = in.Read("one").Text()
	return nil
}

// watchful records fields it didn't read.
type watchful struct {
	single

	unexpected []string
	err        error
}

func (w *watchful) UnexpectedField(key Key, in ValueIn) error {
	w.unexpected = append(w.unexpected, key.String()+"="+in.Text())
	return w.err
}

// warnings collects codec warnings.
type warnings struct {
	errs []error
}

func (w *warnings) option() WireOption {
	return WithWarn(func(err error) { w.errs = append(w.errs, err) })
}
