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
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// scalarSource is implemented by each flavor's ValueIn. scalar returns one of
// nil, bool, int, int8, int16, int32, int64, uint8, uint16, uint32, uint64,
// float32, float64, string, []byte, uuid.UUID or time.Time.
type scalarSource interface {
	scalar() (any, error)
}

func loadScalar(cfg *codecConfig, src scalarSource, want string) (any, bool) {
	value, err := src.scalar()
	if err != nil {
		cfg.warnf("reading %s: %w", want, err)
		return nil, false
	}
	return value, true
}

func toBool(cfg *codecConfig, src scalarSource) bool {
	value, ok := loadScalar(cfg, src, "bool")
	if !ok {
		return false
	}
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			cfg.warnf("reading bool: can't parse %q", v)
		}
		return b
	}
	if n, ok := integerOf(value); ok {
		return n != 0
	}
	cfg.warnf("reading bool: can't convert %T", value)
	return false
}

func toInt64(cfg *codecConfig, src scalarSource) int64 {
	value, ok := loadScalar(cfg, src, "int64")
	if !ok {
		return 0
	}
	n, ok := convertInt(cfg, value)
	if !ok {
		return 0
	}
	return n
}

func toInt8(cfg *codecConfig, src scalarSource) int8 {
	return int8(narrow(cfg, toInt64(cfg, src), math.MinInt8, math.MaxInt8, "int8"))
}

func toInt16(cfg *codecConfig, src scalarSource) int16 {
	return int16(narrow(cfg, toInt64(cfg, src), math.MinInt16, math.MaxInt16, "int16"))
}

func toInt32(cfg *codecConfig, src scalarSource) int32 {
	return int32(narrow(cfg, toInt64(cfg, src), math.MinInt32, math.MaxInt32, "int32"))
}

func toInt(cfg *codecConfig, src scalarSource) int {
	return int(narrow(cfg, toInt64(cfg, src), math.MinInt, math.MaxInt, "int"))
}

func toUint8(cfg *codecConfig, src scalarSource) uint8 {
	return uint8(narrowUnsigned(cfg, toUint64(cfg, src), math.MaxUint8, "uint8"))
}

func toUint16(cfg *codecConfig, src scalarSource) uint16 {
	return uint16(narrowUnsigned(cfg, toUint64(cfg, src), math.MaxUint16, "uint16"))
}

func toUint32(cfg *codecConfig, src scalarSource) uint32 {
	return uint32(narrowUnsigned(cfg, toUint64(cfg, src), math.MaxUint32, "uint32"))
}

// toUint64 accepts the full unsigned range, which int64 can't hold.
func toUint64(cfg *codecConfig, src scalarSource) uint64 {
	value, ok := loadScalar(cfg, src, "uint64")
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case uint64:
		return v
	case string:
		if u, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64); err == nil {
			return u
		}
	case float64:
		if v >= 1<<63 && v < 1<<64 && v == math.Trunc(v) {
			return uint64(v)
		}
	}
	n, ok := convertInt(cfg, value)
	if !ok {
		return 0
	}
	if n < 0 {
		cfg.warnf("reading uint64: %d out of range", n)
		return 0
	}
	return uint64(n)
}

func narrowUnsigned(cfg *codecConfig, n, hi uint64, want string) uint64 {
	if n > hi {
		cfg.warnf("reading %s: %d out of range", want, n)
		return 0
	}
	return n
}

func narrow(cfg *codecConfig, n, lo, hi int64, want string) int64 {
	if n < lo || n > hi {
		cfg.warnf("reading %s: %d out of range", want, n)
		return 0
	}
	return n
}

func convertInt(cfg *codecConfig, value any) (int64, bool) {
	if n, ok := integerOf(value); ok {
		return n, true
	}
	switch v := value.(type) {
	case nil:
		return 0, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float32:
		return floatToInt(cfg, float64(v))
	case float64:
		return floatToInt(cfg, v)
	case string:
		trimmed := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(trimmed, 0, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return floatToInt(cfg, f)
		}
		cfg.warnf("reading integer: can't parse %q", v)
		return 0, false
	case time.Time:
		return v.UnixNano(), true
	case uint64:
		cfg.warnf("reading integer: %d out of range", v)
		return 0, false
	}
	cfg.warnf("reading integer: can't convert %T", value)
	return 0, false
}

func integerOf(value any) (int64, bool) {
	switch v := value.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func floatToInt(cfg *codecConfig, f float64) (int64, bool) {
	if f != math.Trunc(f) {
		cfg.warnf("reading integer: %v isn't integral", f)
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 can't hold.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		cfg.warnf("reading integer: %v out of range", f)
		return 0, false
	}
	return int64(f), true
}

// toFloat64 treats null as NaN, the convention JSON writers use for it.
func toFloat64(cfg *codecConfig, src scalarSource) float64 {
	value, ok := loadScalar(cfg, src, "float64")
	if !ok {
		return math.NaN()
	}
	switch v := value.(type) {
	case nil:
		return math.NaN()
	case float32:
		return float64(v)
	case float64:
		return v
	case uint64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			cfg.warnf("reading float: can't parse %q, using NaN", v)
			return math.NaN()
		}
		return f
	}
	if n, ok := integerOf(value); ok {
		return float64(n)
	}
	cfg.warnf("reading float: can't convert %T, using NaN", value)
	return math.NaN()
}

func toFloat32(cfg *codecConfig, src scalarSource) float32 {
	if value, err := src.scalar(); err == nil {
		if f, ok := value.(float32); ok {
			return f
		}
	}
	return float32(toFloat64(cfg, src))
}

func toText(cfg *codecConfig, src scalarSource) string {
	value, ok := loadScalar(cfg, src, "text")
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uuid.UUID:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	}
	if n, ok := integerOf(value); ok {
		return strconv.FormatInt(n, 10)
	}
	cfg.warnf("reading text: can't convert %T", value)
	return ""
}

// toBytes reads a byte block. Flavors without a native byte representation
// carry bytes as base64 text, which base64Text asks to decode.
func toBytes(cfg *codecConfig, src scalarSource, base64Text bool) []byte {
	value, ok := loadScalar(cfg, src, "bytes")
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		if base64Text {
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err == nil {
				return decoded
			}
			cfg.warnf("reading bytes: %q isn't base64, using raw text", v)
		}
		return []byte(v)
	case uuid.UUID:
		return v[:]
	}
	cfg.warnf("reading bytes: can't convert %T", value)
	return nil
}

func toUUID(cfg *codecConfig, src scalarSource) uuid.UUID {
	value, ok := loadScalar(cfg, src, "uuid")
	if !ok {
		return uuid.Nil
	}
	switch v := value.(type) {
	case nil:
		return uuid.Nil
	case uuid.UUID:
		return v
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			cfg.warnf("reading uuid: %w", err)
			return uuid.Nil
		}
		return id
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			cfg.warnf("reading uuid: %w", err)
			return uuid.Nil
		}
		return id
	}
	cfg.warnf("reading uuid: can't convert %T", value)
	return uuid.Nil
}

func toTime(cfg *codecConfig, src scalarSource) time.Time {
	value, ok := loadScalar(cfg, src, "time")
	if !ok {
		return time.Time{}
	}
	switch v := value.(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			cfg.warnf("reading time: %w", err)
			return time.Time{}
		}
		return t.UTC()
	}
	if n, ok := integerOf(value); ok {
		return time.Unix(0, n).UTC()
	}
	cfg.warnf("reading time: can't convert %T", value)
	return time.Time{}
}

// formatFloat writes the shortest decimal that parses back to f. Integral
// values keep a ".0" so untyped readers still see a float.
func formatFloat(f float64, bits int) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'g'
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}
