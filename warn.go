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

	"github.com/golang/glog"
)

// defaultWarn is the default function used to log recoverable codec problems.
// Users can replace it with WithWarn.
func defaultWarn(err error) {
	glog.WarningDepth(2, err.Error())
}

// newWarnIfError wraps a log function to automatically ignore nil errors.
func newWarnIfError(warn func(error)) func(error) {
	return func(err error) {
		if err != nil {
			warn(err)
		}
	}
}

func (c *codecConfig) warnf(template string, args ...any) {
	c.warn(fmt.Errorf(template, args...))
}

// debugf logs diagnostics that are expected in healthy streams, such as
// fields or events a newer writer added.
func (c *codecConfig) debugf(template string, args ...any) {
	if glog.V(2) {
		glog.InfoDepth(1, fmt.Sprintf(template, args...))
	}
}
