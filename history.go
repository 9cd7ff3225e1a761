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
	"strings"
	"time"
)

// DefaultMaxHistory is the number of sources a MessageHistory holds unless
// configured otherwise with WithMaxHistory.
const DefaultMaxHistory = 20

const (
	historyFieldSources = "sources"
	historyFieldTimings = "timings"
)

// A HistorySource records one hop of a message: the source that handled it
// and the header number the message had there.
type HistorySource struct {
	ID    int
	Index int64
}

// MessageHistory is the provenance of a message: the hops it passed through,
// in order, and a timing sample per hop. Histories are copied, never shared,
// when a message is relayed.
type MessageHistory struct {
	max     int
	sources []HistorySource
	timings []int64
}

var _ Marshallable = (*MessageHistory)(nil)

// NewMessageHistory returns an empty history holding at most max sources. A
// max of zero or less means DefaultMaxHistory.
func NewMessageHistory(max int) *MessageHistory {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &MessageHistory{max: max}
}

// Append records a hop. Appending beyond the maximum is a
// CodeResourceExhausted error and leaves the history unchanged.
func (h *MessageHistory) Append(source int, index int64, at time.Time) error {
	if len(h.sources) >= h.max || len(h.timings) >= h.max {
		return errorf(CodeResourceExhausted, "message history is full: %d sources, max %d", len(h.sources), h.max)
	}
	h.sources = append(h.sources, HistorySource{ID: source, Index: index})
	h.timings = append(h.timings, at.UnixNano())
	return nil
}

// Relay returns a copy of h with one more hop. h itself is unchanged.
func (h *MessageHistory) Relay(source int, index int64, at time.Time) (*MessageHistory, error) {
	relayed := h.Copy()
	if err := relayed.Append(source, index, at); err != nil {
		return nil, err
	}
	return relayed, nil
}

// Copy returns a deep copy of h.
func (h *MessageHistory) Copy() *MessageHistory {
	return &MessageHistory{
		max:     h.max,
		sources: append([]HistorySource(nil), h.sources...),
		timings: append([]int64(nil), h.timings...),
	}
}

// Len is the number of recorded sources.
func (h *MessageHistory) Len() int { return len(h.sources) }

// Max is the number of sources h can hold.
func (h *MessageHistory) Max() int { return h.max }

// Sources returns the recorded hops, oldest first.
func (h *MessageHistory) Sources() []HistorySource {
	return append([]HistorySource(nil), h.sources...)
}

// SourceIDs returns the source of every hop, oldest first.
func (h *MessageHistory) SourceIDs() []int {
	ids := make([]int, len(h.sources))
	for i, source := range h.sources {
		ids[i] = source.ID
	}
	return ids
}

// LastSourceID returns the most recent source, or -1 for an empty history.
func (h *MessageHistory) LastSourceID() int {
	if len(h.sources) == 0 {
		return -1
	}
	return h.sources[len(h.sources)-1].ID
}

// Timings returns the timing samples, oldest first.
func (h *MessageHistory) Timings() []time.Time {
	timings := make([]time.Time, len(h.timings))
	for i, nanos := range h.timings {
		timings[i] = time.Unix(0, nanos).UTC()
	}
	return timings
}

// Equal compares sources only. Timings depend on the clock, so two histories
// of the same logical path are equal regardless of when the hops happened.
func (h *MessageHistory) Equal(other *MessageHistory) bool {
	if h == nil || other == nil {
		return h == other
	}
	if len(h.sources) != len(other.sources) {
		return false
	}
	for i := range h.sources {
		if h.sources[i] != other.sources[i] {
			return false
		}
	}
	return true
}

// WriteMarshallable writes sources as flattened (id, index) pairs.
func (h *MessageHistory) WriteMarshallable(out WireOut) error {
	err := out.Write(historyFieldSources).Sequence(func(elements ValueOut) error {
		for _, source := range h.sources {
			elements.Int64(int64(source.ID))
			elements.Int64(source.Index)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return out.Write(historyFieldTimings).Sequence(func(elements ValueOut) error {
		for _, nanos := range h.timings {
			elements.Int64(nanos)
		}
		return nil
	})
}

// ReadMarshallable replaces the contents of h. A history longer than h's
// maximum is accepted; the next Append fails.
func (h *MessageHistory) ReadMarshallable(in WireIn) error {
	var flat []int64
	if err := in.Read(historyFieldSources).Object(&flat); err != nil {
		return err
	}
	if len(flat)%2 != 0 {
		return errorf(CodeInvalidArgument, "message history has an odd number of source values")
	}
	h.sources = h.sources[:0]
	for i := 0; i < len(flat); i += 2 {
		h.sources = append(h.sources, HistorySource{ID: int(flat[i]), Index: flat[i+1]})
	}
	var timings []int64
	if err := in.Read(historyFieldTimings).Object(&timings); err != nil {
		return err
	}
	h.timings = timings
	if h.max <= 0 {
		h.max = DefaultMaxHistory
	}
	return nil
}

func (h *MessageHistory) String() string {
	var b strings.Builder
	b.WriteString("history[")
	for i, source := range h.sources {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d:%d", source.ID, source.Index)
	}
	b.WriteString("]")
	return b.String()
}

type historyContextKey struct{}

// ContextWithHistory returns a context carrying h. Writers stamp the history
// they find in their call's context onto the document.
func ContextWithHistory(ctx context.Context, h *MessageHistory) context.Context {
	return context.WithValue(ctx, historyContextKey{}, h)
}

// HistoryFromContext returns the history of the message being handled, as
// set by a MethodReader or by ContextWithHistory.
func HistoryFromContext(ctx context.Context) (*MessageHistory, bool) {
	h, ok := ctx.Value(historyContextKey{}).(*MessageHistory)
	return h, ok && h != nil
}
