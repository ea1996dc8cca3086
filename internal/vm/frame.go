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
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

// FrameState is the build-time-only shadow of one point in a function's
// bytecode: the abstract operand stack (as types, with the locals region
// occupying its lowest slots) and the pending type-argument stack for the
// next generic operation. It never escapes to the managed heap (spec §3
// "lives only during map building").
type FrameState struct {
	typeMap     []*types.Type
	typeArgs    []*types.Type
	localsCount int
	pcOffset    int
	fnID        pkgmodel.DefnId
}

// newFrameState seeds the initial frame: localsCount copies of the unit type
// (spec §4.E "Initial frame" — no locals contain references yet), empty
// typeArgs, pcOffset 0.
func newFrameState(fnID pkgmodel.DefnId, localsCount int) *FrameState {
	fs := newPooledFrameState()
	fs.fnID = fnID
	fs.localsCount = localsCount
	fs.typeMap = append(fs.typeMap, make([]*types.Type, localsCount)...)
	for i := range fs.typeMap {
		fs.typeMap[i] = types.Unit
	}
	return fs
}

// clone returns an independent copy of fs, for pushing one state per
// successor at a control-flow divergence (spec §4.E "push copies of the
// current frame state").
func (fs *FrameState) clone() *FrameState {
	out := newPooledFrameState()
	out.fnID = fs.fnID
	out.localsCount = fs.localsCount
	out.pcOffset = fs.pcOffset
	out.typeMap = append(out.typeMap, fs.typeMap...)
	out.typeArgs = append(out.typeArgs, fs.typeArgs...)
	return out
}

// stackHeight returns the number of live operand-stack slots, excluding the
// fixed locals region.
func (fs *FrameState) stackHeight() int {
	return len(fs.typeMap) - fs.localsCount
}

func (fs *FrameState) push(t *types.Type) {
	fs.typeMap = append(fs.typeMap, t)
}

func (fs *FrameState) pop() (*types.Type, error) {
	if fs.stackHeight() <= 0 {
		return nil, fs.underflow()
	}
	t := fs.typeMap[len(fs.typeMap)-1]
	fs.typeMap = fs.typeMap[:len(fs.typeMap)-1]
	return t, nil
}

// popN removes the top n operand-stack slots and returns them in the order
// they were pushed (bottom-most, i.e. the first argument, first).
func (fs *FrameState) popN(n int) ([]*types.Type, error) {
	if fs.stackHeight() < n {
		return nil, fs.underflow()
	}
	split := len(fs.typeMap) - n
	vals := append([]*types.Type(nil), fs.typeMap[split:]...)
	fs.typeMap = fs.typeMap[:split]
	return vals, nil
}

func (fs *FrameState) top() (*types.Type, error) {
	if fs.stackHeight() <= 0 {
		return nil, fs.underflow()
	}
	return fs.typeMap[len(fs.typeMap)-1], nil
}

// setLocal writes t into the local slot named by the STLOCAL-style negative
// slot encoding: absolute index -slot-1 into the locals region. Writes to a
// non-negative (parameter) slot are the caller's responsibility to discard,
// per spec §4.E's STLOCAL bullet.
func (fs *FrameState) setLocal(slot int, t *types.Type) {
	idx := -slot - 1
	fs.typeMap[idx] = t
}

func (fs *FrameState) getLocal(slot int) *types.Type {
	idx := -slot - 1
	return fs.typeMap[idx]
}

// pushTypeArg records a pending type argument. Only object-kind types are
// expected here — primitive type arguments are carried directly in a
// Function's InstTypes pool instead — so a primitive argument indicates a
// malformed TYS/TYD reference. Neither this method nor its TYS/TYD callers
// check it: a primitive is recorded like any other type.
func (fs *FrameState) pushTypeArg(t *types.Type) {
	fs.typeArgs = append(fs.typeArgs, t)
}

func (fs *FrameState) popTypeArg() (*types.Type, error) {
	if len(fs.typeArgs) == 0 {
		return nil, fs.underflow()
	}
	t := fs.typeArgs[len(fs.typeArgs)-1]
	fs.typeArgs = fs.typeArgs[:len(fs.typeArgs)-1]
	return t, nil
}

// popTypeArgs drains and returns every pending type argument, in the order
// they were pushed, clearing typeArgs.
func (fs *FrameState) popTypeArgs() []*types.Type {
	out := fs.typeArgs
	fs.typeArgs = nil
	return out
}

// popTypeArgsExpect drains typeArgs and requires it to hold exactly want
// entries, per the build-time invariant "typeArgs.size == callee's
// type-parameter count before a call/instantiation".
func (fs *FrameState) popTypeArgsExpect(want int) ([]*types.Type, error) {
	if len(fs.typeArgs) != want {
		return nil, &BuildError{
			Kind:     ErrMalformedBytecode,
			Function: fs.fnID,
			PcOffset: fs.pcOffset,
			Detail:   "type-argument stack height does not match type-parameter count",
		}
	}
	return fs.popTypeArgs(), nil
}

// substituteReturnType binds the pending type-arg stack (must have exactly
// calleeTypeParamCount entries) to callee's type parameters in declaration
// order and substitutes the result into returnType, clearing typeArgs.
func (fs *FrameState) substituteReturnType(calleeTypeParamCount int, returnType *types.Type) (*types.Type, error) {
	bindings, err := fs.popTypeArgsExpect(calleeTypeParamCount)
	if err != nil {
		return nil, err
	}
	if calleeTypeParamCount == 0 {
		return returnType, nil
	}
	return types.Substitute(returnType, bindings), nil
}

func (fs *FrameState) underflow() error {
	return &BuildError{
		Kind:     ErrStackUnderflow,
		Function: fs.fnID,
		PcOffset: fs.pcOffset,
	}
}
