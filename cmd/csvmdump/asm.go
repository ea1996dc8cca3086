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

package main

import "github.com/csvm/codeswitch/internal/bytecode"

// asm is a tiny hand-rolled assembler for demo bytecode: just enough to
// string together opcodes and vbn immediates by mnemonic without hand-counting
// byte offsets, in the spirit of the teacher's own disassembler-adjacent test
// helpers.
type asm struct {
	buf          []byte
	blockOffsets []int
}

func newAsm() *asm {
	a := &asm{}
	a.block()
	return a
}

// block marks the current length as the start of a new basic block.
func (a *asm) block() int {
	id := len(a.blockOffsets)
	a.blockOffsets = append(a.blockOffsets, len(a.buf))
	return id
}

func (a *asm) op0(mnemonic string) *asm {
	info := bytecode.ByName(mnemonic)
	a.buf = append(a.buf, byte(info.Code))
	return a
}

func (a *asm) op1(mnemonic string, v int64) *asm {
	info := bytecode.ByName(mnemonic)
	a.buf = append(a.buf, byte(info.Code))
	a.buf = bytecode.AppendVbn(a.buf, v)
	return a
}

func (a *asm) op2(mnemonic string, v1, v2 int64) *asm {
	info := bytecode.ByName(mnemonic)
	a.buf = append(a.buf, byte(info.Code))
	a.buf = bytecode.AppendVbn(a.buf, v1)
	a.buf = bytecode.AppendVbn(a.buf, v2)
	return a
}

func (a *asm) arith(mnemonic string) *asm {
	code, ok := bytecode.ArithOpCode(mnemonic)
	if !ok {
		panic("asm: unknown arith mnemonic " + mnemonic)
	}
	a.buf = append(a.buf, byte(code))
	return a
}

func (a *asm) bytes() []byte {
	return a.buf
}

func (a *asm) blocks() []int {
	return a.blockOffsets
}
