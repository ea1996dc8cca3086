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

package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownOpcodes(t *testing.T) {
	info := Lookup(OpALLOCOBJ)
	require.NotNil(t, info)
	assert.Equal(t, "allocobj", info.Mnemonic)
	assert.Equal(t, FamilyAlloc, info.Family)
}

func TestByName(t *testing.T) {
	info := ByName("ret")
	require.NotNil(t, info)
	assert.Equal(t, OpRET, info.Code)
}

func TestArithOpCodeLookup(t *testing.T) {
	code, ok := ArithOpCode("add.i32")
	require.True(t, ok)
	info := Lookup(code)
	require.NotNil(t, info)
	assert.Equal(t, FamilyArith, info.Family)
	assert.Equal(t, 2, info.Arity)
	assert.Equal(t, ResultI32, info.ResultKind)

	_, ok = ArithOpCode("nope.i32")
	assert.False(t, ok)
}

func TestArithOpCodesDoNotCollideWithNamedOpcodes(t *testing.T) {
	for mnemonic, code := range arithOpCodes {
		info := Lookup(code)
		require.NotNil(t, info, "mnemonic %s", mnemonic)
		assert.Equal(t, mnemonic, info.Mnemonic)
	}
}

func TestIsSafePoint(t *testing.T) {
	for _, op := range []OpCode{OpALLOCOBJ, OpALLOCOBJF, OpALLOCARR, OpALLOCARRF,
		OpCALLG, OpCALLV, OpCALLGF, OpCALLVF, OpPUSHTRY} {
		assert.True(t, op.IsSafePoint(), "%s should be a safe point", op)
	}
	for _, op := range []OpCode{OpNOP, OpDROP, OpLDLOCAL, OpBRANCH} {
		assert.False(t, op.IsSafePoint(), "%s should not be a safe point", op)
	}
}

func TestIsBlockTerminator(t *testing.T) {
	for _, op := range []OpCode{OpBRANCH, OpBRANCHIF, OpBRANCHL, OpCASTCBR,
		OpPUSHTRY, OpPOPTRY, OpTHROW, OpRET} {
		assert.True(t, op.IsBlockTerminator(), "%s should terminate a block", op)
	}
	for _, op := range []OpCode{OpNOP, OpCALLG, OpALLOCOBJ, OpLDLOCAL} {
		assert.False(t, op.IsBlockTerminator(), "%s should not terminate a block", op)
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	assert.Contains(t, OpCode(0xff).String(), "op(0x")
}
