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

import "github.com/davecgh/go-spew/spew"

// DumpFrame renders a FrameState's full internal shape for test-failure
// messages: every typeMap slot (locals then operand stack) and any pending
// type arguments. Not used outside tests and cmd/csvmdump.
func DumpFrame(fs *FrameState) string {
	return spew.Sdump(fs)
}

// DumpMap renders a StackPointerMap's entry table and bitmap.
func DumpMap(m *StackPointerMap) string {
	return spew.Sdump(m)
}
