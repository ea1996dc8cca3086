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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvm/codeswitch/internal/defs"
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

func newTestFn(id pkgmodel.DefnId) *Function {
	return &Function{
		Id:      id,
		Package: NewPackage("scenarios"),
	}
}

// S1 — empty return: no entries, empty bitmap.
func TestScenarioS1EmptyReturn(t *testing.T) {
	a := newTestAsm()
	a.op("unit")
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	require.NoError(t, BuildStackPointerMap(fn))
	require.NotNil(t, fn.Map)
	assert.Equal(t, 0, fn.Map.EntryCount())
	assert.Equal(t, 0, fn.Map.BitmapLength())
}

// S2 — object allocation: one entry at the pc right after ALLOCOBJ's
// immediate, locals region length 0 (no locals, result not yet pushed).
func TestScenarioS2ObjectAllocation(t *testing.T) {
	a := newTestAsm()
	a.op("allocobj", int64(defs.BuiltinStringClassId))
	allocEnd := len(a.buf)
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	require.NoError(t, BuildStackPointerMap(fn))
	require.Equal(t, 1, fn.Map.EntryCount())
	require.True(t, fn.Map.HasLocalsRegion(allocEnd))

	_, count := fn.Map.GetLocalsRegion(allocEnd)
	assert.Equal(t, 0, count)

	assert.Equal(t, 0, fn.Map.BitmapLength())
}

// S3 — reference parameter, simple load: parameters region = 1, no entries.
func TestScenarioS3ReferenceParameter(t *testing.T) {
	a := newTestAsm()
	a.op("ldlocal", 0)
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks
	fn.ParameterTypes = []*types.Type{types.String}

	require.NoError(t, BuildStackPointerMap(fn))
	assert.Equal(t, 0, fn.Map.EntryCount())

	off, count := fn.Map.GetParametersRegion()
	assert.Equal(t, 0, off)
	assert.Equal(t, 1, count)
	assert.True(t, fn.Map.IsSet(0))
}

// S4 — call returning a reference: one entry right after CALLG's immediate;
// its locals region has length 1 (one local), and that bit is set since the
// local holds the null reference stored just before the call.
func TestScenarioS4CallReturningReference(t *testing.T) {
	pkg := NewPackage("scenarios")
	callee := &Function{
		Id:         pkgmodel.NewDefnId(),
		ReturnType: types.String,
		Package:    pkg,
	}
	pkg.Functions = append(pkg.Functions, callee)

	a := newTestAsm()
	a.op("nul")
	a.op("stlocal", -1)
	a.op("callg", 0)
	callEnd := len(a.buf)
	a.op("drop")
	a.op("unit")
	a.op("ret")

	fn := &Function{
		Id:           pkgmodel.NewDefnId(),
		Package:      pkg,
		LocalsSize:   defs.WordSize,
		Instructions: a.buf,
		BlockOffsets: a.blocks,
	}

	require.NoError(t, BuildStackPointerMap(fn))
	require.Equal(t, 1, fn.Map.EntryCount())
	require.True(t, fn.Map.HasLocalsRegion(callEnd))

	off, count := fn.Map.GetLocalsRegion(callEnd)
	assert.Equal(t, 1, count)
	assert.True(t, fn.Map.IsSet(off))

	poff, pcount := fn.Map.GetParametersRegion()
	assert.Equal(t, 0, poff)
	assert.Equal(t, 0, pcount)
}

// S5 — branch merge: two predecessors with identical stack shapes reach one
// block, which the builder visits only once; the resulting map is stable
// under re-sorting regardless of which predecessor arrived first.
func TestScenarioS5BranchMergeVisitedOnce(t *testing.T) {
	pkg := NewPackage("scenarios")
	callee := &Function{Id: pkgmodel.NewDefnId(), ReturnType: types.Unit, Package: pkg}
	pkg.Functions = append(pkg.Functions, callee)

	a := newTestAsm()
	a.op("ldlocal", 0)     // block 0: push the Bool parameter
	a.op("branchif", 1, 2) // pops it as the condition
	a.mark()               // block 1
	a.op("branch", 3)
	a.mark() // block 2
	a.op("branch", 3)
	a.mark() // block 3: the merge point
	a.op("callg", 0)
	mergeCallEnd := len(a.buf)
	a.op("drop")
	a.op("unit")
	a.op("ret")

	fn := &Function{
		Id:             pkgmodel.NewDefnId(),
		Package:        pkg,
		ParameterTypes: []*types.Type{types.Bool},
		Instructions:   a.buf,
		BlockOffsets:   a.blocks,
	}

	require.NoError(t, BuildStackPointerMap(fn))
	// The merge block's safe point is recorded exactly once, not twice, even
	// though two predecessors reach it.
	require.Equal(t, 1, fn.Map.EntryCount())
	assert.True(t, fn.Map.HasLocalsRegion(mergeCallEnd))
}

// S6 — try/catch entry: the recorded entry reflects the catch handler's
// frame, with the builtin exception reference pushed on top.
func TestScenarioS6TryCatchEntry(t *testing.T) {
	a := newTestAsm()
	a.op("pushtry", 1, 2) // block 0
	pushtryEnd := len(a.buf)
	a.mark() // block 1: try body
	a.op("unit")
	a.op("ret")
	a.mark() // block 2: catch body — pops the pushed exception value
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	require.NoError(t, BuildStackPointerMap(fn))
	require.Equal(t, 1, fn.Map.EntryCount())
	require.True(t, fn.Map.HasLocalsRegion(pushtryEnd))

	_, count := fn.Map.GetLocalsRegion(pushtryEnd)
	assert.Equal(t, 1, count) // the exception reference, nothing else live
	off, _ := fn.Map.GetLocalsRegion(pushtryEnd)
	assert.True(t, fn.Map.IsSet(off))
}

func TestBuildStackPointerMapNativeIsNoOp(t *testing.T) {
	fn := &Function{Flags: defs.FlagNative}
	require.NoError(t, BuildStackPointerMap(fn))
	assert.Nil(t, fn.Map)
}

func TestBuildStackPointerMapEmptyBytecodeIsNoOp(t *testing.T) {
	fn := &Function{}
	require.NoError(t, BuildStackPointerMap(fn))
	assert.Nil(t, fn.Map)
}

func TestBuildStackPointerMapUnknownOpcode(t *testing.T) {
	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = []byte{0xff}
	fn.BlockOffsets = []int{0}

	err := BuildStackPointerMap(fn)
	var be *BuildError
	require.ErrorAs(t, err, &be)
}

func TestBuildStackPointerMapStackUnderflow(t *testing.T) {
	a := newTestAsm()
	a.op("drop")
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	err := BuildStackPointerMap(fn)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrStackUnderflow, be.Kind)
}

func TestBuildStackPointerMapRetriesOnOOM(t *testing.T) {
	defer SetGCRetryLimit(1)
	SetGCRetryLimit(2)

	hookCalls := 0
	SetGCHook(func() { hookCalls++ })
	defer SetGCHook(nil)

	attempts := 0
	restore := stubAllocForTest(func() error {
		attempts++
		if attempts <= 2 {
			return ErrOutOfMemory
		}
		return nil
	})
	defer restore()

	a := newTestAsm()
	a.op("allocobj", int64(defs.BuiltinStringClassId))
	a.op("drop")
	a.op("unit")
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	require.NoError(t, BuildStackPointerMap(fn))
	assert.Equal(t, 2, hookCalls)
	assert.Equal(t, 3, attempts)
}

func TestBuildStackPointerMapFatalAfterRetriesExhausted(t *testing.T) {
	defer SetGCRetryLimit(1)
	SetGCRetryLimit(1)
	SetGCHook(func() {})
	defer SetGCHook(nil)

	restore := stubAllocForTest(func() error { return ErrOutOfMemory })
	defer restore()

	a := newTestAsm()
	a.op("allocobj", int64(defs.BuiltinStringClassId))
	a.op("drop")
	a.op("unit")
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	err := BuildStackPointerMap(fn)
	var fe *FatalAllocationError
	require.ErrorAs(t, err, &fe)
}

func TestAssertJoinAgreementPanicsOnDisagreement(t *testing.T) {
	SetAssertJoinAgreement(true)
	defer SetAssertJoinAgreement(false)

	// Two predecessors reach block 3 with different stack heights: block 1
	// leaves an extra value on the stack that block 2 does not. Block 3 is
	// valid under either height, so whichever arrives first is interpreted
	// and the second arrival trips the assertion.
	a := newTestAsm()
	a.op("ldlocal", 0)     // block 0: push the Bool parameter
	a.op("branchif", 1, 2) // pops it as the condition
	a.mark()               // block 1
	a.op("unit")
	a.op("branch", 3)
	a.mark() // block 2
	a.op("branch", 3)
	a.mark() // block 3
	a.op("unit")
	a.op("ret")

	fn := newTestFn(pkgmodel.NewDefnId())
	fn.ParameterTypes = []*types.Type{types.Bool}
	fn.Instructions = a.buf
	fn.BlockOffsets = a.blocks

	assert.Panics(t, func() { _, _ = build(fn) })
}
