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

import "github.com/csvm/codeswitch/internal/bytecode"

// testAsm is a minimal mnemonic assembler shared by this package's tests, so
// scenarios read as instruction lists instead of hand-counted byte offsets.
type testAsm struct {
	buf    []byte
	blocks []int
}

func newTestAsm() *testAsm {
	a := &testAsm{}
	a.mark()
	return a
}

func (a *testAsm) mark() int {
	id := len(a.blocks)
	a.blocks = append(a.blocks, len(a.buf))
	return id
}

func (a *testAsm) op(mnemonic string, operands ...int64) *testAsm {
	info := bytecode.ByName(mnemonic)
	if info == nil {
		panic("testAsm: unknown mnemonic " + mnemonic)
	}
	a.buf = append(a.buf, byte(info.Code))
	for _, v := range operands {
		a.buf = bytecode.AppendVbn(a.buf, v)
	}
	return a
}

func (a *testAsm) arith(mnemonic string) *testAsm {
	code, ok := bytecode.ArithOpCode(mnemonic)
	if !ok {
		panic("testAsm: unknown arith mnemonic " + mnemonic)
	}
	a.buf = append(a.buf, byte(code))
	return a
}

// stubAllocForTest swaps checkAlloc for f for the duration of a test, and
// returns a func restoring the prior hook; used to exercise the OOM-retry
// path without a real allocator that can be made to fail on demand.
func stubAllocForTest(f func() error) (restore func()) {
	prev := checkAlloc
	checkAlloc = f
	return func() { checkAlloc = prev }
}
