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
	"sort"
)

// A PathRule maps messages whose source chain ends with Ending to Path. An
// empty Ending matches every message.
type PathRule struct {
	Ending []int
	Path   int
}

// Ending is shorthand for a PathRule.
func Ending(path int, ending ...int) PathRule {
	return PathRule{Ending: ending, Path: path}
}

// A PathClassifier assigns a path to a message from the sources in its
// history. The longest matching Ending wins; among rules of equal length,
// the one registered first does.
type PathClassifier struct {
	rules       []PathRule
	defaultPath int
}

// NewPathClassifier returns a classifier answering defaultPath when no rule
// matches. Registering the same Ending twice is a CodeAlreadyExists error.
func NewPathClassifier(defaultPath int, rules ...PathRule) (*PathClassifier, error) {
	seen := make(map[string]int, len(rules))
	sorted := make([]PathRule, 0, len(rules))
	for _, rule := range rules {
		pattern := fmt.Sprint(rule.Ending)
		if path, ok := seen[pattern]; ok {
			return nil, errorf(CodeAlreadyExists, "ending %v already maps to path %d", rule.Ending, path)
		}
		seen[pattern] = rule.Path
		sorted = append(sorted, PathRule{Ending: append([]int(nil), rule.Ending...), Path: rule.Path})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Ending) > len(sorted[j].Ending)
	})
	return &PathClassifier{rules: sorted, defaultPath: defaultPath}, nil
}

// Classify returns the path of a message with the given history. A nil
// history has no sources.
func (c *PathClassifier) Classify(h *MessageHistory) int {
	if h == nil {
		return c.ClassifySources(nil)
	}
	return c.ClassifySources(h.SourceIDs())
}

// ClassifySources returns the path of a message that passed through ids, in
// order.
func (c *PathClassifier) ClassifySources(ids []int) int {
	for _, rule := range c.rules {
		if hasSuffix(ids, rule.Ending) {
			return rule.Path
		}
	}
	return c.defaultPath
}

func hasSuffix(ids, suffix []int) bool {
	if len(suffix) > len(ids) {
		return false
	}
	offset := len(ids) - len(suffix)
	for i, id := range suffix {
		if ids[offset+i] != id {
			return false
		}
	}
	return true
}
