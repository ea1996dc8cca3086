/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package vm

import (
	"fmt"
	"io"
	"os"
)

// traceOut is where safe-point tracing writes, when enabled. No logging
// library appears anywhere in the retrieval pack this module was built
// against, so this mirrors the teacher's own ad hoc fmt.Fprintf diagnostics
// rather than reaching for one.
var traceOut io.Writer = os.Stderr

var traceEnabled = false

// SetTraceSafePoints toggles per-safe-point tracing, wired to
// internal/config's TraceSafePoints field.
func SetTraceSafePoints(enabled bool) {
	traceEnabled = enabled
}

// SetTraceOutput redirects trace output; tests use this to capture it.
func SetTraceOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	traceOut = w
}

func traceSafePoint(fn *Function, e safePointEntry) {
	if !traceEnabled {
		return
	}
	fmt.Fprintf(traceOut, "csvm: safepoint %s@%d: %d live ref slot(s)\n", fn.Name, e.PcOffset, countLiveRefs(e.Refs))
}

func countLiveRefs(refs []bool) int {
	n := 0
	for _, r := range refs {
		if r {
			n++
		}
	}
	return n
}
